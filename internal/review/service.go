// Package review はBotへのレビュー投稿と参照を提供する。
package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/botdir/internal/metrics"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/notify"
	"github.com/hitoshi/botdir/internal/repository"
	"github.com/hitoshi/botdir/internal/validation"
)

// Service はレビューのサービス層。
type Service struct {
	bots     repository.BotRepository
	reviews  repository.ReviewRepository
	notifier notify.Dispatcher
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	bots repository.BotRepository,
	reviews repository.ReviewRepository,
	notifier notify.Dispatcher,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		bots:     bots,
		reviews:  reviews,
		notifier: notifier,
		metrics:  mc,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitReview は承認済みBotにレビューを投稿する。
// 1ユーザーにつき1Botあたり1件までで、投稿するとBotの投票数が1増える。
func (s *Service) SubmitReview(ctx context.Context, actor *model.Actor, applicationID string, p validation.ReviewPayload) (_ *model.ReviewDetail, err error) {
	defer func() { s.metrics.RecordReview(metrics.ResultLabel(err)) }()

	if actor == nil || actor.UserID == "" {
		return nil, model.NewUnauthorizedError()
	}

	input, res := validation.ParseReview(p)
	if !res.Valid {
		return nil, res.Err()
	}

	bot, err := s.bots.FindByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, s.storeError("find bot by application id", err)
	}
	if bot == nil || !bot.Approved {
		return nil, model.NewBotNotFoundError(applicationID)
	}

	existing, err := s.reviews.FindByBotAndUser(ctx, bot.ID, actor.UserID)
	if err != nil {
		return nil, s.storeError("find review", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyReviewedError()
	}

	rv := &model.Review{
		ID:        uuid.NewString(),
		BotID:     bot.ID,
		UserID:    actor.UserID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: s.now(),
	}
	if err := s.reviews.CreateWithVote(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewAlreadyReviewedError()
		}
		return nil, s.storeError("create review", err)
	}

	user := actor.Summary()
	s.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindBotReviewed,
		Bot:    &bot.Bot,
		User:   &user,
		Review: input,
	})

	s.logger.Info("review submitted",
		slog.String("application_id", applicationID),
		slog.String("user_id", actor.UserID),
		slog.Int("rating", rv.Rating),
	)

	return &model.ReviewDetail{Review: *rv, User: user}, nil
}

// ListByBot は承認済みBotのレビューを新しい順に返す。
func (s *Service) ListByBot(ctx context.Context, applicationID string) ([]model.ReviewDetail, error) {
	bot, err := s.bots.FindByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, s.storeError("find bot by application id", err)
	}
	if bot == nil || !bot.Approved {
		return nil, model.NewBotNotFoundError(applicationID)
	}

	reviews, err := s.reviews.ListByBot(ctx, bot.ID)
	if err != nil {
		return nil, s.storeError("list reviews", err)
	}
	if reviews == nil {
		reviews = []model.ReviewDetail{}
	}
	return reviews, nil
}

func (s *Service) storeError(op string, err error) error {
	s.logger.Error("store operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return model.NewUpstreamUnavailableError()
}
