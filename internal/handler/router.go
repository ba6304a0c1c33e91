package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hisho/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 稼働確認・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// サービス
	ConversationService ConversationServiceInterface
	TaskService         TaskServiceInterface
	JournalService      JournalServiceInterface
	UserService         UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
// POST /api/messages にはLLM呼び出しを伴うため、専用の厳しいレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	messageHandler := NewMessageHandler(deps.ConversationService)
	taskHandler := NewTaskHandler(deps.TaskService)
	journalHandler := NewJournalHandler(deps.JournalService)
	userHandler := NewUserHandler(deps.UserService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 会話エンドポイント（メッセージ専用レート制限を追加）
		r.With(deps.RateLimiter.MessageMiddleware()).Post("/api/messages", messageHandler.HandleMessage)

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Post("/{id}/complete", taskHandler.CompleteTask)
		})

		// ジャーナル管理
		r.Route("/api/journals", func(r chi.Router) {
			r.Get("/", journalHandler.ListJournals)
			r.Post("/", journalHandler.CreateJournal)
		})

		// ユーザー設定
		r.Put("/api/users/{ownerID}/push", userHandler.RegisterPush)
	})

	return r
}
