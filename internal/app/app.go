package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/botdir/internal/auth"
	"github.com/hitoshi/botdir/internal/bot"
	"github.com/hitoshi/botdir/internal/config"
	"github.com/hitoshi/botdir/internal/database"
	"github.com/hitoshi/botdir/internal/discord"
	"github.com/hitoshi/botdir/internal/feed"
	"github.com/hitoshi/botdir/internal/handler"
	"github.com/hitoshi/botdir/internal/logger"
	"github.com/hitoshi/botdir/internal/metrics"
	"github.com/hitoshi/botdir/internal/middleware"
	"github.com/hitoshi/botdir/internal/moderation"
	"github.com/hitoshi/botdir/internal/notify"
	"github.com/hitoshi/botdir/internal/repository"
	"github.com/hitoshi/botdir/internal/review"
	"github.com/hitoshi/botdir/internal/security"
	"github.com/hitoshi/botdir/internal/tracing"
	"github.com/hitoshi/botdir/internal/worker/cleanup"
)

const serviceName = "botdir"

// Version はビルド時に -ldflags "-X github.com/hitoshi/botdir/internal/app.Version=..." で上書きされる。
var Version = "dev"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再構成
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("version", Version),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Writer:         w,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	switch {
	case cmd == CommandWorker:
		return runWorker(cfg)
	case cmd == CommandMigrate:
		return runMigrate(cfg)
	case cmd.IsModeration():
		return runModerationCommand(cfg, cmd, args[1:], w)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newDispatcher はWebhook通知ディスパッチャーを構築する。
// Webhook URLはSSRFガードで検証し、送信にもSSRF対策済みクライアントを使う。
func newDispatcher(cfg *config.Config, mc metrics.MetricsCollector) (*notify.WebhookDispatcher, error) {
	ssrfGuard := security.NewSSRFGuard()

	if cfg.DiscordWebhookURL != "" {
		if err := ssrfGuard.ValidateWebhookURL(cfg.DiscordWebhookURL); err != nil {
			return nil, fmt.Errorf("invalid DISCORD_WEBHOOK_URL: %w", err)
		}
	} else {
		slog.Info("DISCORD_WEBHOOK_URL is not set, notifications are disabled")
	}

	return notify.NewWebhookDispatcher(notify.Config{
		URL:        cfg.DiscordWebhookURL,
		Timeout:    cfg.WebhookTimeout,
		MaxRetries: cfg.WebhookMaxRetries,
		RetryBase:  cfg.WebhookRetryBase,
		QueueSize:  cfg.WebhookQueueSize,
		Workers:    cfg.WebhookWorkers,
	}, ssrfGuard.NewSafeClient(cfg.WebhookTimeout), slog.Default(), mc), nil
}

// closeDispatcher は未送信の通知を待ってからディスパッチャーを停止する。
func closeDispatcher(d *notify.WebhookDispatcher, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		slog.Warn("notification dispatcher did not drain", slog.String("error", err.Error()))
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	botRepo := repository.NewPostgresBotRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. Discord APIクライアントと所有者確認
	discordClient := discord.NewClient(discord.ClientConfig{
		BaseURL:    cfg.DiscordAPIBaseURL,
		BotToken:   cfg.DiscordBotToken,
		HTTPClient: &http.Client{Timeout: cfg.DiscordAPITimeout},
		Breaker:    discord.DefaultBreakerConfig(),
	}, slog.Default(), collector)
	resolver := discord.NewResolver(discordClient, cfg.DiscordAPITimeout, slog.Default(), collector)

	// 5. 通知
	dispatcher, err := newDispatcher(cfg, collector)
	if err != nil {
		return err
	}

	// 6. ドメインサービスの初期化
	oauthProvider := auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
	}, discordClient)
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge, Logger: slog.Default()},
	)

	botService := bot.NewService(
		botRepo, reviewRepo, resolver, dispatcher, collector, slog.Default(),
		cfg.DiscordInvitePermissions,
	)
	reviewService := review.NewService(botRepo, reviewRepo, dispatcher, collector, slog.Default())
	feedService := feed.NewService(botRepo, feed.NewBuilder(cfg.BaseURL), cfg.FeedSize)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSubmission),
	)

	deps := &handler.RouterDeps{
		ActorFinder:        sessionRepo,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HSTS:               cfg.CookieSecure,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		Logger:      slog.Default(),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
		StatusRecorder: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		BotService:    botService,
		ReviewService: reviewService,
		FeedWriter:    feedService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		rateLimiter.Stop()
		closeDispatcher(dispatcher, 5*time.Second)
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	rateLimiter.Stop()
	closeDispatcher(dispatcher, 10*time.Second)

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除ジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanup.NewCleanupJob(db, slog.Default()).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runModerationCommand はapprove/feature/deleteを実行する。
// 承認時の通知を送り切ってから終了する。
func runModerationCommand(cfg *config.Config, cmd Command, args []string, out io.Writer) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	dispatcher, err := newDispatcher(cfg, collector)
	if err != nil {
		return err
	}
	defer closeDispatcher(dispatcher, cfg.WebhookTimeout*time.Duration(cfg.WebhookMaxRetries+1)+5*time.Second)

	svc := moderation.NewService(repository.NewPostgresBotRepo(db), dispatcher, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := runModeration(ctx, svc, cmd, args, out); err != nil {
		return fmt.Errorf("%s failed: %w", cmd, err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
