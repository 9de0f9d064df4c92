package model

import "time"

// BotStatus はBotの稼働状態を表す。
type BotStatus string

const (
	BotStatusOnline      BotStatus = "ONLINE"
	BotStatusOffline     BotStatus = "OFFLINE"
	BotStatusMaintenance BotStatus = "MAINTENANCE"
	BotStatusUnknown     BotStatus = "UNKNOWN"
)

// Bot はディレクトリに掲載されるBotを表す。
// ApplicationIDはDiscordが採番したIDで、作成後は変更されない。
type Bot struct {
	ID            string
	ApplicationID string
	Name          string
	Description   string
	Tags          []string
	Prefix        string
	Website       string
	Support       string
	GitHub        string
	Avatar        string
	InviteURL     string
	Votes         int
	ServerCount   *int
	Status        BotStatus
	Approved      bool
	Featured      bool
	SubmittedBy   string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BotSubmission は検証済みのBot登録入力。
// validation.ParseSubmission が検証に成功した場合のみ生成される。
type BotSubmission struct {
	ApplicationID string
	Name          string
	Description   string
	Tags          []string
	Prefix        string
	Website       string
	Support       string
	GitHub        string
}

// BotDetail はBotに投稿者とレビューを結合した表示用データ。
type BotDetail struct {
	Bot
	Submitter UserSummary
	Reviews   []ReviewDetail
}

// ApplicationInfo はDiscordから取得したアプリケーション情報。
// 所有権の確認に成功した場合のみ返される。
type ApplicationInfo struct {
	ID                  string
	Name                string
	Description         string
	Icon                string
	OwnerID             string
	OwnerName           string
	BotPublic           bool
	BotRequireCodeGrant bool
}
