// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Discord OAuth
	DiscordClientID     string `env:"DISCORD_CLIENT_ID,notEmpty"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET,notEmpty"`
	DiscordRedirectURL  string `env:"DISCORD_REDIRECT_URL,notEmpty"`

	// Discord API
	DiscordBotToken          string        `env:"DISCORD_BOT_TOKEN,notEmpty"`
	DiscordAPIBaseURL        string        `env:"DISCORD_API_BASE_URL" envDefault:"https://discord.com/api/v10"`
	DiscordAPITimeout        time.Duration `env:"DISCORD_API_TIMEOUT" envDefault:"10s"`
	DiscordInvitePermissions int64         `env:"DISCORD_INVITE_PERMISSIONS" envDefault:"8"`

	// Webhook通知（URLが空の場合は通知しない）
	DiscordWebhookURL string        `env:"DISCORD_WEBHOOK_URL"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookRetryBase  time.Duration `env:"WEBHOOK_RETRY_BASE" envDefault:"500ms"`
	WebhookQueueSize  int           `env:"WEBHOOK_QUEUE_SIZE" envDefault:"100"`
	WebhookWorkers    int           `env:"WEBHOOK_WORKERS" envDefault:"2"`

	// Session
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"604800"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	// Rate Limit（req/min）
	RateLimitGeneral    int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitSubmission int `env:"RATE_LIMIT_SUBMISSION" envDefault:"10"`

	// Feed
	FeedSize int `env:"FEED_SIZE" envDefault:"50"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Tracing
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"`
	OTLPEndpoint    string `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,notEmpty"`

	// Cookie
	CookieSecure bool   `env:"-"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	// カンマ区切りで複数指定できる
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGIN" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load は環境変数からConfigを読み込む。
// 未設定の必須環境変数はすべてまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("TRACING_EXPORTER must be one of none, stdout, otlp: %q", cfg.TracingExporter)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	return cfg, nil
}
