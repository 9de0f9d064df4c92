package auth

import (
	"context"
	"fmt"

	"github.com/hitoshi/botdir/internal/discord"
	"golang.org/x/oauth2"
)

const (
	defaultDiscordAuthURL  = "https://discord.com/oauth2/authorize"
	defaultDiscordTokenURL = "https://discord.com/api/oauth2/token"

	providerDiscord = "discord"
)

// DiscordUserFetcher はアクセストークンでログインユーザーを取得するインターフェース。
type DiscordUserFetcher interface {
	GetCurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
}

// DiscordOAuthConfig はDiscord OAuthプロバイダーの設定。
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
// スコープはidentifyのみ。
type DiscordOAuthProvider struct {
	config *oauth2.Config
	users  DiscordUserFetcher
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(cfg DiscordOAuthConfig, users DiscordUserFetcher) *DiscordOAuthProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultDiscordAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultDiscordTokenURL
	}
	return &DiscordOAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		users: users,
	}
}

// GetLoginURL はDiscordの認可画面のURLを生成する。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode は認可コードをアクセストークンに交換し、Discordのユーザー情報を取得する。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	user, err := p.users.GetCurrentUser(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &OAuthUserInfo{
		ProviderUserID: user.ID,
		Name:           user.DisplayName(),
		Avatar:         user.AvatarURL(),
		Provider:       providerDiscord,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
