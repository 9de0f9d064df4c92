// Package bot はBot掲載の登録・参照・編集のドメインロジックを提供する。
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/botdir/internal/discord"
	"github.com/hitoshi/botdir/internal/metrics"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/notify"
	"github.com/hitoshi/botdir/internal/repository"
	"github.com/hitoshi/botdir/internal/validation"
)

// OwnershipResolver はDiscord上のアプリケーション所有権を確認するインターフェース。
// 確認できない場合はnilを返す。
type OwnershipResolver interface {
	ResolveOwnership(ctx context.Context, applicationID, discordUserID string) *model.ApplicationInfo
}

// Service はBot掲載のサービス層。
type Service struct {
	bots              repository.BotRepository
	reviews           repository.ReviewRepository
	resolver          OwnershipResolver
	notifier          notify.Dispatcher
	metrics           metrics.MetricsCollector
	logger            *slog.Logger
	invitePermissions int64
	now               func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// invitePermissionsは招待URLに付与する権限ビット。
func NewService(
	bots repository.BotRepository,
	reviews repository.ReviewRepository,
	resolver OwnershipResolver,
	notifier notify.Dispatcher,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	invitePermissions int64,
) *Service {
	return &Service{
		bots:              bots,
		reviews:           reviews,
		resolver:          resolver,
		notifier:          notifier,
		metrics:           mc,
		logger:            logger,
		invitePermissions: invitePermissions,
		now:               time.Now,
	}
}

// SubmitBot はBotを掲載申請する。
//
// 入力検証、実行者の確認、重複確認、Discord上の所有権確認の順に行い、
// すべて通過した場合のみ未承認状態で保存して通知する。
// 通知の成否は戻り値に影響しない。
func (s *Service) SubmitBot(ctx context.Context, actor *model.Actor, p validation.SubmissionPayload) (_ *model.BotDetail, err error) {
	defer func() { s.metrics.RecordSubmission(metrics.ResultLabel(err)) }()

	sub, res := validation.ParseSubmission(p)
	if !res.Valid {
		return nil, res.Err()
	}

	if actor == nil || actor.UserID == "" {
		return nil, model.NewValidationFailedError([]model.FieldError{
			{Field: "submittedBy", Message: "User ID is required"},
		})
	}

	existing, err := s.bots.FindByApplicationID(ctx, sub.ApplicationID)
	if err != nil {
		return nil, s.storeError("find bot by application id", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSubmissionError(sub.ApplicationID)
	}

	info := s.resolver.ResolveOwnership(ctx, sub.ApplicationID, actor.DiscordID)
	if info == nil {
		return nil, model.NewOwnershipUnverifiedError(sub.ApplicationID)
	}

	now := s.now()
	bot := &model.Bot{
		ID:            uuid.NewString(),
		ApplicationID: sub.ApplicationID,
		Name:          sub.Name,
		Description:   sub.Description,
		Tags:          sub.Tags,
		Prefix:        sub.Prefix,
		Website:       sub.Website,
		Support:       sub.Support,
		GitHub:        sub.GitHub,
		Avatar:        info.Icon,
		InviteURL:     discord.InviteURL(sub.ApplicationID, s.invitePermissions),
		Votes:         0,
		Status:        model.BotStatusUnknown,
		Approved:      false,
		Featured:      false,
		SubmittedBy:   actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.bots.Create(ctx, bot); err != nil {
		// 重複確認と保存の間に同じIDが登録された場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateSubmissionError(sub.ApplicationID)
		}
		return nil, s.storeError("create bot", err)
	}

	submitter := actor.Summary()
	s.notifier.Notify(ctx, notify.Event{Kind: notify.KindBotSubmitted, Bot: bot, User: &submitter})

	s.logger.Info("bot submitted",
		slog.String("application_id", bot.ApplicationID),
		slog.String("user_id", actor.UserID),
	)

	return &model.BotDetail{Bot: *bot, Submitter: submitter, Reviews: []model.ReviewDetail{}}, nil
}

// ValidateApplication は登録前の確認として、実行者がアプリケーションを所有しているかを確認する。
func (s *Service) ValidateApplication(ctx context.Context, actor *model.Actor, applicationID string) (*model.ApplicationInfo, error) {
	if actor == nil || actor.UserID == "" {
		return nil, model.NewUnauthorizedError()
	}

	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, model.NewValidationFailedError([]model.FieldError{
			{Field: "applicationId", Message: "Application ID is required"},
		})
	}
	if !validation.IsSnowflake(applicationID) {
		return nil, model.NewValidationFailedError([]model.FieldError{
			{Field: "applicationId", Message: "Invalid Discord Application ID format"},
		})
	}

	info := s.resolver.ResolveOwnership(ctx, applicationID, actor.DiscordID)
	if info == nil {
		return nil, model.NewApplicationUnverifiedError(applicationID)
	}
	return info, nil
}

// ListApproved は承認済みBotを投票数の多い順にレビュー付きで返す。
func (s *Service) ListApproved(ctx context.Context) ([]model.BotDetail, error) {
	bots, err := s.bots.ListApproved(ctx)
	if err != nil {
		return nil, s.storeError("list approved bots", err)
	}
	if err := s.attachReviews(ctx, bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// GetApproved は承認済みBotをレビュー付きで返す。未承認のBotは見つからない扱いとする。
func (s *Service) GetApproved(ctx context.Context, applicationID string) (*model.BotDetail, error) {
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
	bot.Reviews = reviews
	return bot, nil
}

// ListBySubmitter は実行者が登録したBotを承認状態に関わらず新しい順に返す。
func (s *Service) ListBySubmitter(ctx context.Context, actor *model.Actor) ([]model.BotDetail, error) {
	if actor == nil || actor.UserID == "" {
		return nil, model.NewUnauthorizedError()
	}

	bots, err := s.bots.ListBySubmitter(ctx, actor.UserID)
	if err != nil {
		return nil, s.storeError("list bots by submitter", err)
	}
	if err := s.attachReviews(ctx, bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// UpdateBot は登録者のみが説明系のフィールドを更新できる。
// Application ID、投票数、承認状態は変更されない。
func (s *Service) UpdateBot(ctx context.Context, actor *model.Actor, applicationID string, p validation.UpdatePayload) (*model.BotDetail, error) {
	bot, err := s.findOwned(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}

	upd, res := validation.ParseUpdate(applicationID, p)
	if !res.Valid {
		return nil, res.Err()
	}

	bot.Name = upd.Name
	bot.Description = upd.Description
	bot.Tags = upd.Tags
	bot.Prefix = upd.Prefix
	bot.Website = upd.Website
	bot.Support = upd.Support
	bot.GitHub = upd.GitHub
	bot.UpdatedAt = s.now()

	if err := s.bots.Update(ctx, &bot.Bot); err != nil {
		return nil, s.storeError("update bot", err)
	}

	reviews, err := s.reviews.ListByBot(ctx, bot.ID)
	if err != nil {
		return nil, s.storeError("list reviews", err)
	}
	bot.Reviews = reviews
	return bot, nil
}

// DeleteBot は登録者のみがBotを削除できる。レビューも合わせて削除される。
func (s *Service) DeleteBot(ctx context.Context, actor *model.Actor, applicationID string) error {
	bot, err := s.findOwned(ctx, actor, applicationID)
	if err != nil {
		return err
	}

	if err := s.bots.Delete(ctx, bot.ID); err != nil {
		return s.storeError("delete bot", err)
	}

	s.logger.Info("bot deleted",
		slog.String("application_id", applicationID),
		slog.String("user_id", actor.UserID),
	)
	return nil
}

// findOwned は実行者が登録したBotを取得する。
func (s *Service) findOwned(ctx context.Context, actor *model.Actor, applicationID string) (*model.BotDetail, error) {
	if actor == nil || actor.UserID == "" {
		return nil, model.NewUnauthorizedError()
	}

	bot, err := s.bots.FindByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, s.storeError("find bot by application id", err)
	}
	if bot == nil {
		return nil, model.NewBotNotFoundError(applicationID)
	}
	if bot.SubmittedBy != actor.UserID {
		return nil, model.NewForbiddenError()
	}
	return bot, nil
}

// attachReviews は一覧の各Botにレビューを設定する。
func (s *Service) attachReviews(ctx context.Context, bots []model.BotDetail) error {
	if len(bots) == 0 {
		return nil
	}

	ids := make([]string, len(bots))
	for i := range bots {
		ids[i] = bots[i].ID
	}

	byBot, err := s.reviews.ListByBots(ctx, ids)
	if err != nil {
		return s.storeError("list reviews", err)
	}

	for i := range bots {
		bots[i].Reviews = byBot[bots[i].ID]
		if bots[i].Reviews == nil {
			bots[i].Reviews = []model.ReviewDetail{}
		}
	}
	return nil
}

// storeError はストアのエラーを記録し、呼び出し元には詳細を含まないエラーを返す。
func (s *Service) storeError(op string, err error) error {
	s.logger.Error("store operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return model.NewUpstreamUnavailableError()
}
