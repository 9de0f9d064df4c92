// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 表示名とアバターはDiscordログイン時に取得した値を保持する。
type User struct {
	ID        string
	Name      string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// BotディレクトリではProviderは常に"discord"で、ProviderUserIDはDiscordのユーザーID。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Actor はリクエストを実行している認証済みユーザーを表す。
// セッションミドルウェアが解決し、各パイプラインに明示的な引数として渡される。
type Actor struct {
	UserID    string
	DiscordID string
	Name      string
	Avatar    string
}

// Summary はActorを公開用のユーザー概要に変換する。
func (a *Actor) Summary() UserSummary {
	return UserSummary{ID: a.UserID, Name: a.Name, Image: a.Avatar}
}

// UserSummary はBotやレビューに埋め込む公開ユーザー情報。
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
