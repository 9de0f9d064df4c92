// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
//
// 検索系メソッドは対象が見つからない場合に (nil, nil) を返す。
// 一意制約違反は ErrDuplicate をラップしたエラーとして返す。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/botdir/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はDiscordから取得した表示名とアバターで更新する。
	UpdateProfile(ctx context.Context, id, name, avatar string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindActorByProviderUserID はproviderとprovider_user_idでidentityを検索し、
	// 紐付くユーザーをActorとして返す。見つからない場合はnilを返す。
	FindActorByProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Actor, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindActor はセッションIDからリクエスト実行者を解決する。
	// セッションが存在しない、期限切れ、またはDiscord identityがない場合はnilを返す。
	FindActor(ctx context.Context, sessionID string) (*model.Actor, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// BotRepository はBot掲載情報の永続化インターフェース。
// Find/List系はbots.submitted_byをusersとJOINし、投稿者の概要を埋める。
// レビューは埋めない。
type BotRepository interface {
	// FindByApplicationID はDiscordアプリケーションIDでBotを検索する。
	// 承認状態に関わらず返す。見つからない場合はnilを返す。
	FindByApplicationID(ctx context.Context, applicationID string) (*model.BotDetail, error)

	// ListApproved は承認済みBotを投票数の多い順に返す。
	ListApproved(ctx context.Context) ([]model.BotDetail, error)

	// ListRecentlyApproved は承認日時の新しい順に最大limit件の承認済みBotを返す。
	ListRecentlyApproved(ctx context.Context, limit int) ([]model.Bot, error)

	// ListBySubmitter は指定ユーザーが登録したBotを新しい順に返す。
	ListBySubmitter(ctx context.Context, userID string) ([]model.BotDetail, error)

	// Create はBotを作成する。application_idが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, bot *model.Bot) error

	// Update は説明系のフィールド（名前、説明、タグ、プレフィックス、各URL）を更新する。
	Update(ctx context.Context, bot *model.Bot) error

	// Delete は指定IDのBotを削除する。レビューはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// Approve は未承認のBotを承認済みにする。状態が変化した場合にtrueを返す。
	Approve(ctx context.Context, id string, at time.Time) (bool, error)

	// SetFeatured はおすすめフラグを設定する。
	SetFeatured(ctx context.Context, id string, featured bool) error
}

// ReviewRepository はレビューの永続化インターフェース。
type ReviewRepository interface {
	// FindByBotAndUser はBotとユーザーの組でレビューを検索する。見つからない場合はnilを返す。
	FindByBotAndUser(ctx context.Context, botID, userID string) (*model.Review, error)

	// CreateWithVote はレビューの作成とBotの投票数の加算を同一トランザクションで行う。
	// 同じユーザーのレビューが既にある場合はErrDuplicateを返し、投票数は変化しない。
	CreateWithVote(ctx context.Context, review *model.Review) error

	// ListByBot はBotのレビューを投稿者情報付きで新しい順に返す。
	ListByBot(ctx context.Context, botID string) ([]model.ReviewDetail, error)

	// ListByBots は複数BotのレビューをBot IDごとにまとめて返す。
	ListByBots(ctx context.Context, botIDs []string) (map[string][]model.ReviewDetail, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
