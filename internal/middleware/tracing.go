package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hitoshi/botdir/internal/middleware"

// NewTracingMiddleware はリクエストごとにOpenTelemetryのサーバースパンを生成するミドルウェアを返す。
// 受信ヘッダーのW3Cトレースコンテキストを引き継ぎ、ルーティング後にchiのルートパターンでスパン名を確定する。
func NewTracingMiddleware() func(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			propagator := otel.GetTextMapPropagator()
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.RequestURI()),
					attribute.String("user_agent.original", r.UserAgent()),
				),
			)
			defer span.End()

			// panicはスパンに記録してから外側のRecoveryへ伝播させる
			defer func() {
				if v := recover(); v != nil {
					span.RecordError(fmt.Errorf("panic: %v", v))
					span.SetStatus(codes.Error, "panic")
					panic(v)
				}
			}()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if pattern := routePattern(r); pattern != "" {
				span.SetName(r.Method + " " + pattern)
				span.SetAttributes(attribute.String("http.route", pattern))
			}
			span.SetAttributes(attribute.Int("http.status_code", rec.statusCode))

			if rec.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

// routePattern はchiがルーティング時に記録したパターンを返す。ルーター外では空文字。
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
