// Package discord はDiscord REST APIのクライアントとBot所有権の確認を提供する。
//
// アプリケーション情報の取得にはBotトークンによるサービス間認証を、
// ログインユーザー情報の取得にはユーザーのアクセストークンを使用する。
// すべてのリクエストはサーキットブレーカーを経由する。
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/botdir/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL はDiscord REST API v10のベースURL。
	DefaultBaseURL = "https://discord.com/api/v10"
	cdnBaseURL     = "https://cdn.discordapp.com"
	// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
	maxResponseSize = 1 << 20
	userAgent       = "DiscordBot (https://github.com/hitoshi/botdir, 1.0)"
)

// ErrCircuitOpen はサーキットブレーカーが開いているためリクエストを送信しなかったことを示す。
var ErrCircuitOpen = gobreaker.ErrOpenState

// StatusError はDiscord APIが2xx以外を返したことを示す。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("discord api returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound はエラーがDiscord APIの404かどうかを判定する。
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// User はDiscordのユーザー情報。
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName はグローバル表示名があればそれを、なければユーザー名を返す。
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL はアバター画像のCDN URLを返す。アバター未設定の場合は空文字。
func (u *User) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return cdnBaseURL + "/avatars/" + u.ID + "/" + u.Avatar + ".png"
}

// TeamMember はDiscordチームのメンバー。
type TeamMember struct {
	User            User   `json:"user"`
	Role            string `json:"role"`
	MembershipState int    `json:"membership_state"`
}

// Team はDiscordアプリケーションを所有するチーム。
type Team struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	OwnerUserID string       `json:"owner_user_id"`
	Members     []TeamMember `json:"members"`
}

// Application はDiscordアプリケーション情報。
type Application struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Icon                string `json:"icon"`
	Owner               *User  `json:"owner"`
	Team                *Team  `json:"team"`
	BotPublic           bool   `json:"bot_public"`
	BotRequireCodeGrant bool   `json:"bot_require_code_grant"`
}

// BreakerConfig はサーキットブレーカーの設定。
type BreakerConfig struct {
	MaxRequests  uint32        // half-open状態で許可するリクエスト数
	Interval     time.Duration // closed状態でカウントをリセットする周期
	Timeout      time.Duration // open状態からhalf-openへ移るまでの時間
	FailureRatio float64       // open状態へ遷移する失敗率
	MinRequests  uint32        // 失敗率を評価する最小リクエスト数
}

// DefaultBreakerConfig はデフォルトのサーキットブレーカー設定を返す。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL    string // テスト用に差し替え可能
	BotToken   string
	HTTPClient *http.Client
	Breaker    BreakerConfig
}

// Client はDiscord REST APIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	tracer     trace.Tracer
}

// NewClient はClientを生成する。
func NewClient(cfg ClientConfig, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	const breakerName = "discord"
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			mc.SetCircuitBreakerState(name, stateToFloat(to))
		},
		// 4xxはリクエスト側の問題のためブレーカーの失敗として数えない
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
		},
	}
	mc.SetCircuitBreakerState(breakerName, 0)

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		botToken:   cfg.BotToken,
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:     logger,
		metrics:    mc,
		tracer:     otel.Tracer("github.com/hitoshi/botdir/internal/discord"),
	}
}

// GetApplication はBotトークンでアプリケーション情報を取得する。
// GET /applications/{id}
func (c *Client) GetApplication(ctx context.Context, applicationID string) (*Application, error) {
	body, err := c.get(ctx, "get_application", "/applications/"+url.PathEscape(applicationID), "Bot "+c.botToken)
	if err != nil {
		return nil, err
	}

	var app Application
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("failed to parse application response: %w", err)
	}
	if app.ID == "" {
		return nil, fmt.Errorf("empty id in application response")
	}
	return &app, nil
}

// GetCurrentUser はユーザーのアクセストークンでログインユーザー情報を取得する。
// GET /users/@me
func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.get(ctx, "get_current_user", "/users/@me", "Bearer "+accessToken)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty id in user response")
	}
	return &user, nil
}

// get はサーキットブレーカー経由でGETリクエストを送信し、2xxのボディを返す。
func (c *Client) get(ctx context.Context, endpoint, path, authorization string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "discord."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", http.MethodGet)),
	)
	defer span.End()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, authorization)
	})
	c.metrics.RecordDiscordRequest(endpoint, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

// do は1回のHTTPリクエストを実行する。
func (c *Client) do(ctx context.Context, path, authorization string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read discord response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// stateToFloat はgobreakerの状態をゲージ値に変換する。
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
