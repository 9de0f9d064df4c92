package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// findLogField はJSONログ行のうちkeyを含む最初の値を返す。
func findLogField(buf *bytes.Buffer, key string) (any, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
		WillReturnResult(sqlmock.NewResult(0, 42))

	var buf bytes.Buffer
	job := NewCleanupJob(db, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}

	count, ok := findLogField(&buf, "deleted_count")
	if !ok || count != float64(42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if _, ok := findLogField(&buf, "duration_ms"); !ok {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	db, mock := newMock(t)
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	var buf bytes.Buffer
	job := NewCleanupJob(db, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}

	count, ok := findLogField(&buf, "deleted_count")
	if !ok || count != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_DBFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
		WillReturnError(sql.ErrConnDone)

	var buf bytes.Buffer
	job := NewCleanupJob(db, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("Run() error = %v, want wrapped sql.ErrConnDone", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_RowsAffectedFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver does not support RowsAffected")))

	job := NewCleanupJob(db, newTestLogger(&bytes.Buffer{}))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("RowsAffected失敗時はエラーを返すべき")
	}
}

// countingExecutor は呼び出し回数を数えるExecutor。
type countingExecutor struct {
	calls atomic.Int32
}

func (c *countingExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	c.calls.Add(1)
	return sqlmock.NewResult(0, 0), nil
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	exec := &countingExecutor{}
	job := NewCleanupJob(exec, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for exec.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want at least 2", exec.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}
