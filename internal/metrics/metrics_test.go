package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルに一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m
			}
		}
	}
	return nil
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordSubmission_IncrementsCounterWithResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubmission("created")
	c.RecordSubmission("created")
	c.RecordSubmission("duplicate_submission")

	m := findMetric(t, reg, "botdir_submissions_total", map[string]string{"result": "created"})
	if m == nil {
		t.Fatal("botdir_submissions_total{result=created} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}

	m = findMetric(t, reg, "botdir_submissions_total", map[string]string{"result": "duplicate_submission"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("duplicate_submission counter = %v, want 1", m)
	}
}

func TestRecordReview_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReview("already_reviewed")

	m := findMetric(t, reg, "botdir_reviews_total", map[string]string{"result": "already_reviewed"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("reviews_total = %v, want 1", m)
	}
}

func TestRecordNotification_UsesKindAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNotification("bot_submitted", "sent")
	c.RecordNotification("bot_submitted", "failed")
	c.RecordNotification("bot_reviewed", "sent")

	m := findMetric(t, reg, "botdir_notifications_total", map[string]string{"kind": "bot_submitted", "outcome": "failed"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("bot_submitted/failed = %v, want 1", m)
	}
}

func TestRecordOwnershipCheck_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOwnershipCheck("verified")

	m := findMetric(t, reg, "botdir_ownership_checks_total", map[string]string{"outcome": "verified"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("ownership_checks_total = %v, want 1", m)
	}
}

func TestRecordDiscordRequest_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDiscordRequest("get_application", 150*time.Millisecond)
	c.RecordDiscordRequest("get_application", 250*time.Millisecond)

	m := findMetric(t, reg, "botdir_discord_request_duration_seconds", map[string]string{"endpoint": "get_application"})
	if m == nil {
		t.Fatal("histogram not found")
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestSetCircuitBreakerState_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetCircuitBreakerState("discord", 2)

	m := findMetric(t, reg, "botdir_circuit_breaker_state", map[string]string{"name": "discord"})
	if m == nil || m.GetGauge().GetValue() != 2 {
		t.Errorf("breaker gauge = %v, want 2", m)
	}
}

func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(201)
	c.RecordHTTPStatus(400)
	c.RecordHTTPStatus(400)

	m := findMetric(t, reg, "botdir_http_status_total", map[string]string{"status_code": "400"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("status 400 = %v, want 2", m)
	}
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "成功", err: nil, want: "created"},
		{name: "重複", err: model.NewDuplicateSubmissionError("1"), want: "duplicate_submission"},
		{name: "ラップされたAPIError", err: errors.Join(errors.New("ctx"), model.NewAlreadyReviewedError()), want: "already_reviewed"},
		{name: "その他のエラー", err: errors.New("boom"), want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultLabel(tt.err); got != tt.want {
				t.Errorf("ResultLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordSubmission("created")

	if m := findMetric(t, reg2, "botdir_submissions_total", map[string]string{"result": "created"}); m != nil {
		t.Error("second registry should not observe the first collector's samples")
	}
}
