package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/botdir/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 通知結果のメトリクスラベル
const (
	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
	outcomeDropped   = "dropped"
	outcomeDisabled  = "disabled"
)

// Config はWebhookDispatcherの設定。
type Config struct {
	URL        string        // 空の場合は通知を送信しない
	Timeout    time.Duration // 1回の送信のタイムアウト
	MaxRetries int           // 初回送信後の最大再送回数
	RetryBase  time.Duration // 再送間隔の初期値
	QueueSize  int
	Workers    int
}

// message はキューに積まれる送信単位。
type message struct {
	kind    Kind
	payload []byte
}

// WebhookDispatcher はDiscord Webhookへ非同期に通知を送信する。
// Notifyはキューに積むだけで、送信はワーカーgoroutineが行う。
type WebhookDispatcher struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	tracer  trace.Tracer
	now     func() time.Time

	queue chan message
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	// ctx はClose のタイムアウト時に再送待ちを打ち切るために使う。
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebhookDispatcher はWebhookDispatcherを生成し、ワーカーを起動する。
// URLが空の場合はワーカーを起動しない。
func NewWebhookDispatcher(cfg Config, client *http.Client, logger *slog.Logger, mc metrics.MetricsCollector) *WebhookDispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &WebhookDispatcher{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		metrics: mc,
		tracer:  otel.Tracer("github.com/hitoshi/botdir/internal/notify"),
		now:     time.Now,
		queue:   make(chan message, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.URL != "" {
		for i := 0; i < cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	}
	return d
}

// Notify はイベントを埋め込みに変換して送信キューに積む。
// キューが満杯の場合やClose後は破棄してログに記録する。
func (d *WebhookDispatcher) Notify(ctx context.Context, ev Event) {
	if d.cfg.URL == "" {
		d.logger.Warn("Discord webhook URL not configured", slog.String("kind", string(ev.Kind)))
		d.metrics.RecordNotification(string(ev.Kind), outcomeDisabled)
		return
	}

	payload, err := json.Marshal(webhookPayload{Embeds: []Embed{BuildEmbed(ev, d.now())}})
	if err != nil {
		d.logger.Error("failed to encode webhook payload",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
		d.metrics.RecordNotification(string(ev.Kind), outcomeFailed)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped: dispatcher closed", slog.String("kind", string(ev.Kind)))
		d.metrics.RecordNotification(string(ev.Kind), outcomeDropped)
		return
	}

	select {
	case d.queue <- message{kind: ev.Kind, payload: payload}:
	default:
		d.logger.Warn("notification dropped: queue full",
			slog.String("kind", string(ev.Kind)),
			slog.Int("queue_size", d.cfg.QueueSize),
		)
		d.metrics.RecordNotification(string(ev.Kind), outcomeDropped)
	}
}

// Close は新規の受付を停止し、キューに残った通知を送信し終えるまで待機する。
// ctxの期限を過ぎた場合は再送待ちを打ち切り、ctx.Err()を返す。
func (d *WebhookDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *WebhookDispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

// deliver は1件の通知を送信する。429/5xx/通信エラーは指数バックオフで再送する。
func (d *WebhookDispatcher) deliver(msg message) {
	kind := string(msg.kind)

	for attempt := 0; ; attempt++ {
		retryAfter, err := d.send(msg)
		if err == nil {
			d.metrics.RecordNotification(kind, outcomeDelivered)
			d.logger.Debug("notification delivered",
				slog.String("kind", kind),
				slog.Int("attempt", attempt+1),
			)
			return
		}

		if !isRetryable(err) || attempt >= d.cfg.MaxRetries {
			d.metrics.RecordNotification(kind, outcomeFailed)
			d.logger.Error("failed to send discord notification",
				slog.String("kind", kind),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			return
		}

		delay := max(CalculateBackoff(d.cfg.RetryBase, attempt), retryAfter)
		d.logger.Warn("retrying discord notification",
			slog.String("kind", kind),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
			d.metrics.RecordNotification(kind, outcomeFailed)
			d.logger.Error("notification abandoned during shutdown", slog.String("kind", kind))
			return
		}
	}
}

// deliveryError はWebhook送信の失敗。
type deliveryError struct {
	statusCode int // 通信エラーの場合は0
	retry      bool
	err        error
}

func (e *deliveryError) Error() string {
	if e.statusCode != 0 {
		return fmt.Sprintf("webhook returned status %d: %v", e.statusCode, e.err)
	}
	return e.err.Error()
}

func (e *deliveryError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	de, ok := err.(*deliveryError)
	return ok && de.retry
}

// send はWebhookに1回POSTする。再送時に待つべき時間（Retry-After）も返す。
func (d *WebhookDispatcher) send(msg message) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Timeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "discord.webhook",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("notification.kind", string(msg.kind))),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(msg.payload))
	if err != nil {
		return 0, &deliveryError{err: fmt.Errorf("failed to create webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, &deliveryError{retry: true, err: fmt.Errorf("webhook request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch classifyStatus(resp.StatusCode) {
	case resultDelivered:
		return 0, nil
	case resultRetry:
		span.SetStatus(codes.Error, resp.Status)
		return parseRetryAfter(resp.Header.Get("Retry-After")), &deliveryError{
			statusCode: resp.StatusCode,
			retry:      true,
			err:        fmt.Errorf("%s", bytes.TrimSpace(body)),
		}
	default:
		span.SetStatus(codes.Error, resp.Status)
		return 0, &deliveryError{
			statusCode: resp.StatusCode,
			err:        fmt.Errorf("%s", bytes.TrimSpace(body)),
		}
	}
}

// compile-time interface check
var _ Dispatcher = (*WebhookDispatcher)(nil)
