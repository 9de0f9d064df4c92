package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/notify"
)

// --- モック ---

type mockBotRepo struct {
	findByApplicationIDFn func(ctx context.Context, applicationID string) (*model.BotDetail, error)
	listApprovedFn        func(ctx context.Context) ([]model.BotDetail, error)
	listBySubmitterFn     func(ctx context.Context, userID string) ([]model.BotDetail, error)
	createFn              func(ctx context.Context, bot *model.Bot) error
	updateFn              func(ctx context.Context, bot *model.Bot) error
	deleteFn              func(ctx context.Context, id string) error
}

func (m *mockBotRepo) FindByApplicationID(ctx context.Context, applicationID string) (*model.BotDetail, error) {
	if m.findByApplicationIDFn != nil {
		return m.findByApplicationIDFn(ctx, applicationID)
	}
	return nil, nil
}
func (m *mockBotRepo) ListApproved(ctx context.Context) ([]model.BotDetail, error) {
	return m.listApprovedFn(ctx)
}
func (m *mockBotRepo) ListRecentlyApproved(ctx context.Context, limit int) ([]model.Bot, error) {
	return nil, nil
}
func (m *mockBotRepo) ListBySubmitter(ctx context.Context, userID string) ([]model.BotDetail, error) {
	return m.listBySubmitterFn(ctx, userID)
}
func (m *mockBotRepo) Create(ctx context.Context, bot *model.Bot) error {
	if m.createFn != nil {
		return m.createFn(ctx, bot)
	}
	return nil
}
func (m *mockBotRepo) Update(ctx context.Context, bot *model.Bot) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, bot)
	}
	return nil
}
func (m *mockBotRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockBotRepo) Approve(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}
func (m *mockBotRepo) SetFeatured(ctx context.Context, id string, featured bool) error {
	return nil
}

type mockReviewRepo struct {
	listByBotFn  func(ctx context.Context, botID string) ([]model.ReviewDetail, error)
	listByBotsFn func(ctx context.Context, botIDs []string) (map[string][]model.ReviewDetail, error)
}

func (m *mockReviewRepo) FindByBotAndUser(ctx context.Context, botID, userID string) (*model.Review, error) {
	return nil, nil
}
func (m *mockReviewRepo) CreateWithVote(ctx context.Context, review *model.Review) error {
	return nil
}
func (m *mockReviewRepo) ListByBot(ctx context.Context, botID string) ([]model.ReviewDetail, error) {
	if m.listByBotFn != nil {
		return m.listByBotFn(ctx, botID)
	}
	return []model.ReviewDetail{}, nil
}
func (m *mockReviewRepo) ListByBots(ctx context.Context, botIDs []string) (map[string][]model.ReviewDetail, error) {
	if m.listByBotsFn != nil {
		return m.listByBotsFn(ctx, botIDs)
	}
	return map[string][]model.ReviewDetail{}, nil
}

type mockResolver struct {
	calls     int
	resolveFn func(ctx context.Context, applicationID, discordUserID string) *model.ApplicationInfo
}

func (m *mockResolver) ResolveOwnership(ctx context.Context, applicationID, discordUserID string) *model.ApplicationInfo {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, applicationID, discordUserID)
	}
	return nil
}

// recordingNotifier は受け取ったイベントを記録するDispatcherのテスト実装。
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type mockMetrics struct {
	submissions []string
}

func (m *mockMetrics) RecordSubmission(result string) { m.submissions = append(m.submissions, result) }
func (m *mockMetrics) RecordReview(string) {}
func (m *mockMetrics) RecordOwnershipCheck(string) {}
func (m *mockMetrics) RecordNotification(string, string) {}
func (m *mockMetrics) RecordDiscordRequest(string, time.Duration) {}
func (m *mockMetrics) SetCircuitBreakerState(string, float64) {}
func (m *mockMetrics) RecordHTTPStatus(int) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
