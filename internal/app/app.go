package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/hisho/internal/config"
	"github.com/hitoshi/hisho/internal/conversation"
	"github.com/hitoshi/hisho/internal/database"
	"github.com/hitoshi/hisho/internal/dispatch"
	"github.com/hitoshi/hisho/internal/executor"
	"github.com/hitoshi/hisho/internal/handler"
	"github.com/hitoshi/hisho/internal/llm"
	"github.com/hitoshi/hisho/internal/logger"
	"github.com/hitoshi/hisho/internal/metrics"
	"github.com/hitoshi/hisho/internal/middleware"
	"github.com/hitoshi/hisho/internal/planner"
	"github.com/hitoshi/hisho/internal/repository"
	"github.com/hitoshi/hisho/internal/security"
	"github.com/hitoshi/hisho/internal/user"
	"github.com/hitoshi/hisho/internal/worker/cleanup"
	"github.com/hitoshi/hisho/internal/worker/remind"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		slog.String("port", cfg.ServerPort),
		slog.String("llm_model", cfg.LLMModel),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	journalRepo := repository.NewPostgresJournalRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewMessageSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. LLMクライアントとプランナーの初期化
	llmClient := llm.NewClient(
		&http.Client{Timeout: cfg.LLMTimeout},
		slog.Default(), cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
	)
	pln := planner.NewPlanner(llmClient, slog.Default())

	// 6. 実行器とプッシュ配信の初期化
	exec := executor.NewExecutor(taskRepo, journalRepo, pln, slog.Default())

	pushClient := dispatch.NewPushClient(ssrfGuard.NewSafeClient(cfg.PushTimeout), slog.Default())
	dispatcher := dispatch.NewDispatcher(pushClient, cfg.DispatchWorkers, cfg.DispatchQueueSize, slog.Default())

	// 7. ドメインサービスの初期化
	userService := user.NewService(userRepo, ssrfGuard, slog.Default())
	convService := conversation.NewService(
		pln, exec, userService, sanitizer, dispatcher, collector,
		slog.Default(),
		conversation.Config{PreviewTimeout: cfg.PlanPreviewTimeout},
	)

	// 8. ルーターの構築
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		StatusRecorder:    collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		ConversationService: convService,
		TaskService:         handler.NewTaskServiceAdapter(taskRepo),
		JournalService:      handler.NewJournalServiceAdapter(journalRepo, pln),
		UserService:         userService,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
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

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 進行中の非同期最終応答とキュー済みプッシュ配信を猶予時間まで待つ
	convService.Drain(cfg.DispatchDrainGrace)
	dispatcher.Close(cfg.DispatchDrainGrace)

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、リマインドスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)

	// 3. 依存サービスの初期化
	ssrfGuard := security.NewSSRFGuard()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	llmClient := llm.NewClient(
		&http.Client{Timeout: cfg.LLMTimeout},
		slog.Default(), cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
	)
	pln := planner.NewPlanner(llmClient, slog.Default())

	pushClient := dispatch.NewPushClient(ssrfGuard.NewSafeClient(cfg.PushTimeout), slog.Default())
	dispatcher := dispatch.NewDispatcher(pushClient, cfg.DispatchWorkers, cfg.DispatchQueueSize, slog.Default())

	// 4. リマインドスケジューラの初期化
	scheduler := remind.NewScheduler(
		taskRepo, userRepo, pln, dispatcher, collector,
		slog.Default(), cfg.PushTimeout,
	)

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewJob(taskRepo, slog.Default(), cfg.TaskRetentionDays)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Bool("reminders_enabled", cfg.RemindersEnabled),
		slog.Duration("reminder_interval", cfg.ReminderInterval),
		slog.String("cleanup_schedule", cfg.CleanupSchedule),
	)

	// クリーンアップジョブをcronスケジュールでバックグラウンド実行
	cronRunner, err := cleanupJob.Schedule(ctx, cfg.CleanupSchedule)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	defer func() {
		<-cronRunner.Stop().Done()
	}()

	if cfg.RemindersEnabled {
		// リマインドスケジューラをメインgoroutineで実行（ブロッキング）
		scheduler.Start(ctx, cfg.ReminderInterval)
	} else {
		slog.Info("reminders are disabled")
		<-ctx.Done()
	}

	dispatcher.Close(cfg.DispatchDrainGrace)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
