// Package moderation は管理者によるBotの承認とおすすめ設定を提供する。
// HTTPには公開せず、CLIサブコマンドからのみ利用する。
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/notify"
	"github.com/hitoshi/botdir/internal/repository"
)

// Service はモデレーション操作のサービス層。
type Service struct {
	bots     repository.BotRepository
	notifier notify.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(bots repository.BotRepository, notifier notify.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		bots:     bots,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Approve はBotを承認して公開する。
// 既に承認済みの場合は通知せずにそのまま返す。
func (s *Service) Approve(ctx context.Context, applicationID string) (*model.Bot, error) {
	detail, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	bot := &detail.Bot
	if bot.Approved {
		return bot, nil
	}

	at := s.now()
	changed, err := s.bots.Approve(ctx, bot.ID, at)
	if err != nil {
		return nil, fmt.Errorf("Botの承認に失敗しました: %w", err)
	}
	bot.Approved = true
	if !changed {
		// 別の操作で先に承認された
		return bot, nil
	}
	bot.ApprovedAt = &at

	submitter := detail.Submitter
	s.notifier.Notify(ctx, notify.Event{Kind: notify.KindBotApproved, Bot: bot, User: &submitter})

	s.logger.Info("bot approved", slog.String("application_id", applicationID))
	return bot, nil
}

// SetFeatured はBotのおすすめフラグを設定する。
func (s *Service) SetFeatured(ctx context.Context, applicationID string, featured bool) (*model.Bot, error) {
	detail, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := s.bots.SetFeatured(ctx, detail.ID, featured); err != nil {
		return nil, fmt.Errorf("おすすめ設定の更新に失敗しました: %w", err)
	}
	detail.Featured = featured

	s.logger.Info("bot featured flag updated",
		slog.String("application_id", applicationID),
		slog.Bool("featured", featured),
	)
	return &detail.Bot, nil
}

// Delete は登録者に関わらずBotを削除する。掲載を却下する場合に使う。
func (s *Service) Delete(ctx context.Context, applicationID string) error {
	detail, err := s.find(ctx, applicationID)
	if err != nil {
		return err
	}

	if err := s.bots.Delete(ctx, detail.ID); err != nil {
		return fmt.Errorf("Botの削除に失敗しました: %w", err)
	}

	s.logger.Info("bot deleted by moderator", slog.String("application_id", applicationID))
	return nil
}

func (s *Service) find(ctx context.Context, applicationID string) (*model.BotDetail, error) {
	detail, err := s.bots.FindByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("Botの取得に失敗しました: %w", err)
	}
	if detail == nil {
		return nil, model.NewBotNotFoundError(applicationID)
	}
	return detail, nil
}
