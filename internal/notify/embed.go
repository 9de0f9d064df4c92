// Package notify はDiscord Webhookへの通知を提供する。
//
// 通知はパイプラインの結果に影響しない副作用として扱う。
// Notifyはエラーを返さず、送信の失敗はログとメトリクスにのみ記録する。
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/botdir/internal/model"
)

// Kind は通知の種別。
type Kind string

const (
	KindBotSubmitted Kind = "bot_submitted"
	KindBotApproved  Kind = "bot_approved"
	KindBotReviewed  Kind = "bot_reviewed"
)

// 埋め込みの色
const (
	colorSubmitted = 0x0099ff
	colorApproved  = 0x00ff00
	colorReviewed  = 0xffaa00
)

const footerText = "Discord Bot Directory"

// Event は通知の内容。種別に応じて必要なフィールドのみ参照される。
type Event struct {
	Kind   Kind
	Bot    *model.Bot
	User   *model.UserSummary
	Review *model.ReviewInput
}

// Dispatcher は通知を送信するインターフェース。
// 実装はエラーを返さず、呼び出し元をブロックしない。
type Dispatcher interface {
	Notify(ctx context.Context, ev Event)
}

// Embed はDiscordのメッセージ埋め込み。
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
	Footer      EmbedFooter  `json:"footer"`
}

// EmbedField は埋め込みのフィールド。
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter は埋め込みのフッター。
type EmbedFooter struct {
	Text string `json:"text"`
}

// webhookPayload はWebhookに送信するJSONボディ。
type webhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// BuildEmbed はイベントから通知用の埋め込みを組み立てる。
// 欠けている値は "Unknown" などの既定値で補う。
func BuildEmbed(ev Event, now time.Time) Embed {
	embed := Embed{
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Footer:    EmbedFooter{Text: footerText},
	}

	switch ev.Kind {
	case KindBotSubmitted:
		embed.Title = "🤖 New Bot Submission"
		embed.Description = "A new Discord bot has been submitted for review"
		embed.Color = colorSubmitted
		embed.Fields = []EmbedField{
			{Name: "Bot Name", Value: botName(ev.Bot), Inline: true},
			{Name: "Application ID", Value: applicationID(ev.Bot), Inline: true},
			{Name: "Submitted By", Value: userName(ev.User, "Unknown User"), Inline: true},
			{Name: "Description", Value: botDescription(ev.Bot), Inline: false},
		}

	case KindBotApproved:
		embed.Title = "✅ Bot Approved"
		embed.Description = "A Discord bot has been approved and is now live"
		embed.Color = colorApproved
		embed.Fields = []EmbedField{
			{Name: "Bot Name", Value: botName(ev.Bot), Inline: true},
			{Name: "Application ID", Value: applicationID(ev.Bot), Inline: true},
		}

	case KindBotReviewed:
		rating := 0
		comment := ""
		if ev.Review != nil {
			rating = max(ev.Review.Rating, 0)
			comment = ev.Review.Comment
		}
		embed.Title = "⭐ New Review Posted"
		embed.Description = "A user has reviewed a Discord bot"
		embed.Color = colorReviewed
		embed.Fields = []EmbedField{
			{Name: "Bot Name", Value: botName(ev.Bot), Inline: true},
			{Name: "Rating", Value: fmt.Sprintf("%s (%d/5)", strings.Repeat("⭐", rating), rating), Inline: true},
			{Name: "Reviewer", Value: userName(ev.User, "Anonymous"), Inline: true},
		}
		if comment != "" {
			embed.Fields = append(embed.Fields, EmbedField{Name: "Comment", Value: comment, Inline: false})
		}
	}

	return embed
}

func botName(b *model.Bot) string {
	if b == nil || b.Name == "" {
		return "Unknown"
	}
	return b.Name
}

func applicationID(b *model.Bot) string {
	if b == nil || b.ApplicationID == "" {
		return "Unknown"
	}
	return b.ApplicationID
}

func botDescription(b *model.Bot) string {
	if b == nil || b.Description == "" {
		return "No description provided"
	}
	return b.Description
}

func userName(u *model.UserSummary, fallback string) string {
	if u == nil || u.Name == "" {
		return fallback
	}
	return u.Name
}
