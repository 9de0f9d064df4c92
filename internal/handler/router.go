package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/botdir/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ActorFinder        middleware.ActorFinder
	CORSAllowedOrigins []string
	HSTS               bool // https配信時にStrict-Transport-Securityを付与する
	CSRFConfig         middleware.CSRFConfig
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler              // nilの場合は/metricsを公開しない
	StatusRecorder middleware.StatusRecorder // nilの場合はステータスコードを記録しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// Bot・レビュー
	BotService    BotServiceInterface
	ReviewService ReviewServiceInterface

	// フィード
	FeedWriter AtomWriter
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Tracing → CORS → Session → Logging → Metrics
//
// /api 配下はさらに RateLimit(General) を適用し、状態変更ルートは
// RequireActor → CSRF の順で検証する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewTracingMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSessionMiddleware(deps.ActorFinder))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	botHandler := NewBotHandler(deps.BotService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	feedHandler := NewFeedHandler(deps.FeedWriter)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/discord/login", authHandler.Login)
		r.Get("/discord/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	r.Get("/feeds/bots.atom", feedHandler.Atom)

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// --- 認証不要のルート ---
		r.Group(func(r chi.Router) {
			r.Use(csrf)

			r.Get("/bots", botHandler.ListBots)
			r.Get("/bots/{applicationId}", botHandler.GetBot)
			r.Get("/bots/{applicationId}/reviews", reviewHandler.ListReviews)
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)
			r.Use(csrf)

			submission := deps.RateLimiter.SubmissionMiddleware()

			r.With(submission).Post("/bots", botHandler.SubmitBot)
			r.Patch("/bots/{applicationId}", botHandler.UpdateBot)
			r.Delete("/bots/{applicationId}", botHandler.DeleteBot)
			r.With(submission).Post("/bots/{applicationId}/reviews", reviewHandler.SubmitReview)

			r.Post("/validate-bot", botHandler.ValidateBot)
			r.Get("/user/bots", botHandler.ListMyBots)
		})
	})

	return r
}
