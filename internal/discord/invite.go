package discord

import (
	"net/url"
	"strconv"
)

// DefaultInvitePermissions は招待URLに付与する既定の権限ビット（Administrator）。
const DefaultInvitePermissions int64 = 8

// InviteURL はBotをサーバーに追加するためのOAuth2招待URLを返す。
// スコープは常に bot と applications.commands。
func InviteURL(applicationID string, permissions int64) string {
	return "https://discord.com/oauth2/authorize?client_id=" + url.QueryEscape(applicationID) +
		"&permissions=" + strconv.FormatInt(permissions, 10) +
		"&scope=bot%20applications.commands"
}
