package discord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/botdir/internal/metrics"
	"github.com/hitoshi/botdir/internal/model"
)

// 所有権を認めるチームロール
const (
	teamRoleOwner = "owner"
	teamRoleAdmin = "admin"
)

// ApplicationFetcher はアプリケーション情報の取得に必要なインターフェース。
// Clientの部分集合として定義する。
type ApplicationFetcher interface {
	GetApplication(ctx context.Context, applicationID string) (*Application, error)
}

// Resolver はユーザーがDiscordアプリケーションを所有しているかを確認する。
// クライアントが申告した所有者は信用せず、Discord側の登録情報で確認する。
type Resolver struct {
	fetcher ApplicationFetcher
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewResolver はResolverを生成する。timeoutはDiscord API呼び出し1回あたりの上限。
func NewResolver(fetcher ApplicationFetcher, timeout time.Duration, logger *slog.Logger, mc metrics.MetricsCollector) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger,
		metrics: mc,
	}
}

// ResolveOwnership はdiscordUserIDがapplicationIDのアプリケーションを
// 登録できるかを確認し、できる場合はアプリケーション情報を返す。
//
// 次のいずれかを満たす場合に所有者と判定する:
//   - アプリケーションのownerがdiscordUserIDである
//   - アプリケーションがチーム所有で、discordUserIDがowner/adminロールのメンバーである
//
// 取得失敗（ネットワークエラー、404、タイムアウト、ブレーカーopen）や
// 所有者でない場合はnilを返す。エラーは返さずログに記録する。
func (r *Resolver) ResolveOwnership(ctx context.Context, applicationID, discordUserID string) *model.ApplicationInfo {
	if applicationID == "" || discordUserID == "" {
		r.metrics.RecordOwnershipCheck("rejected")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	app, err := r.fetcher.GetApplication(ctx, applicationID)
	if err != nil {
		outcome := "fetch_failed"
		switch {
		case IsNotFound(err):
			outcome = "not_found"
		case errors.Is(err, ErrCircuitOpen), errors.Is(err, context.DeadlineExceeded):
			outcome = "unavailable"
		}
		r.metrics.RecordOwnershipCheck(outcome)
		r.logger.Warn("failed to fetch discord application",
			slog.String("application_id", applicationID),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if !isAuthorized(app, discordUserID) {
		r.metrics.RecordOwnershipCheck("rejected")
		r.logger.Warn("user is not an owner of the discord application",
			slog.String("application_id", applicationID),
			slog.String("discord_user_id", discordUserID),
		)
		return nil
	}

	r.metrics.RecordOwnershipCheck("verified")
	return toApplicationInfo(app)
}

// isAuthorized はユーザーがアプリケーションのownerまたはチームのowner/adminかを判定する。
func isAuthorized(app *Application, discordUserID string) bool {
	if app.Owner != nil && app.Owner.ID == discordUserID {
		return true
	}
	if app.Team == nil {
		return false
	}
	if app.Team.OwnerUserID == discordUserID {
		return true
	}
	for _, m := range app.Team.Members {
		if m.User.ID != discordUserID {
			continue
		}
		if m.Role == teamRoleOwner || m.Role == teamRoleAdmin {
			return true
		}
	}
	return false
}

func toApplicationInfo(app *Application) *model.ApplicationInfo {
	info := &model.ApplicationInfo{
		ID:                  app.ID,
		Name:                app.Name,
		Description:         app.Description,
		Icon:                app.Icon,
		BotPublic:           app.BotPublic,
		BotRequireCodeGrant: app.BotRequireCodeGrant,
	}
	if app.Owner != nil {
		info.OwnerID = app.Owner.ID
		info.OwnerName = app.Owner.DisplayName()
	}
	return info
}

// compile-time interface check
var _ ApplicationFetcher = (*Client)(nil)
