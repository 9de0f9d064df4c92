package model

import "time"

// Review はBotに対するユーザーの評価を表す。
// (BotID, UserID) の組み合わせは一意。
type Review struct {
	ID        string
	BotID     string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewInput は検証済みのレビュー入力。
type ReviewInput struct {
	Rating  int
	Comment string
}

// ReviewDetail はレビューに投稿者情報を結合した表示用データ。
type ReviewDetail struct {
	Review
	User UserSummary
}
