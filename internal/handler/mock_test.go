package handler

import (
	"context"
	"io"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/validation"
)

// --- モック定義 ---

type mockBotService struct {
	submitBotFn           func(ctx context.Context, actor *model.Actor, p validation.SubmissionPayload) (*model.BotDetail, error)
	validateApplicationFn func(ctx context.Context, actor *model.Actor, applicationID string) (*model.ApplicationInfo, error)
	listApprovedFn        func(ctx context.Context) ([]model.BotDetail, error)
	getApprovedFn         func(ctx context.Context, applicationID string) (*model.BotDetail, error)
	listBySubmitterFn     func(ctx context.Context, actor *model.Actor) ([]model.BotDetail, error)
	updateBotFn           func(ctx context.Context, actor *model.Actor, applicationID string, p validation.UpdatePayload) (*model.BotDetail, error)
	deleteBotFn           func(ctx context.Context, actor *model.Actor, applicationID string) error
}

func (m *mockBotService) SubmitBot(ctx context.Context, actor *model.Actor, p validation.SubmissionPayload) (*model.BotDetail, error) {
	if m.submitBotFn != nil {
		return m.submitBotFn(ctx, actor, p)
	}
	return nil, nil
}

func (m *mockBotService) ValidateApplication(ctx context.Context, actor *model.Actor, applicationID string) (*model.ApplicationInfo, error) {
	if m.validateApplicationFn != nil {
		return m.validateApplicationFn(ctx, actor, applicationID)
	}
	return nil, nil
}

func (m *mockBotService) ListApproved(ctx context.Context) ([]model.BotDetail, error) {
	if m.listApprovedFn != nil {
		return m.listApprovedFn(ctx)
	}
	return []model.BotDetail{}, nil
}

func (m *mockBotService) GetApproved(ctx context.Context, applicationID string) (*model.BotDetail, error) {
	if m.getApprovedFn != nil {
		return m.getApprovedFn(ctx, applicationID)
	}
	return nil, model.NewBotNotFoundError(applicationID)
}

func (m *mockBotService) ListBySubmitter(ctx context.Context, actor *model.Actor) ([]model.BotDetail, error) {
	if m.listBySubmitterFn != nil {
		return m.listBySubmitterFn(ctx, actor)
	}
	return []model.BotDetail{}, nil
}

func (m *mockBotService) UpdateBot(ctx context.Context, actor *model.Actor, applicationID string, p validation.UpdatePayload) (*model.BotDetail, error) {
	if m.updateBotFn != nil {
		return m.updateBotFn(ctx, actor, applicationID, p)
	}
	return nil, nil
}

func (m *mockBotService) DeleteBot(ctx context.Context, actor *model.Actor, applicationID string) error {
	if m.deleteBotFn != nil {
		return m.deleteBotFn(ctx, actor, applicationID)
	}
	return nil
}

type mockReviewService struct {
	submitReviewFn func(ctx context.Context, actor *model.Actor, applicationID string, p validation.ReviewPayload) (*model.ReviewDetail, error)
	listByBotFn    func(ctx context.Context, applicationID string) ([]model.ReviewDetail, error)
}

func (m *mockReviewService) SubmitReview(ctx context.Context, actor *model.Actor, applicationID string, p validation.ReviewPayload) (*model.ReviewDetail, error) {
	if m.submitReviewFn != nil {
		return m.submitReviewFn(ctx, actor, applicationID, p)
	}
	return nil, nil
}

func (m *mockReviewService) ListByBot(ctx context.Context, applicationID string) ([]model.ReviewDetail, error) {
	if m.listByBotFn != nil {
		return m.listByBotFn(ctx, applicationID)
	}
	return []model.ReviewDetail{}, nil
}

type mockActorFinder struct {
	actors map[string]*model.Actor
	err    error
}

func (m *mockActorFinder) FindActor(ctx context.Context, sessionID string) (*model.Actor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.actors[sessionID], nil
}

type mockAtomWriter struct {
	writeAtomFn func(ctx context.Context, w io.Writer) error
}

func (m *mockAtomWriter) WriteAtom(ctx context.Context, w io.Writer) error {
	if m.writeAtomFn != nil {
		return m.writeAtomFn(ctx, w)
	}
	_, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	return err
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}
