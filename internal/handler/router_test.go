package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/hisho/internal/conversation"
	"github.com/hitoshi/hisho/internal/dispatch"
	"github.com/hitoshi/hisho/internal/middleware"
	"github.com/hitoshi/hisho/internal/model"
)

// stubHealthChecker は疎通確認のスタブ。
type stubHealthChecker struct {
	err error
}

func (s *stubHealthChecker) PingContext(ctx context.Context) error {
	return s.err
}

// newTestRouter は全依存をモックで埋めたルーターを返す。
func newTestRouter(t *testing.T, health HealthChecker) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(&RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: "*",
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		HealthChecker:     health,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# HELP hisho_http_requests_total\n"))
		}),
		ConversationService: &mockConversationService{
			handleFn: func(ctx context.Context, req conversation.Request) *dispatch.Envelope {
				return dispatch.NewResultEnvelope(req.RequestID, "Done.", nil)
			},
		},
		TaskService: &mockTaskService{
			listFn: func(ctx context.Context, ownerID string) ([]*model.Task, error) {
				return nil, nil
			},
		},
		JournalService: &mockJournalService{
			listFn: func(ctx context.Context, ownerID string, limit int) ([]*model.Journal, error) {
				return nil, nil
			},
		},
		UserService: &mockUserService{
			registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
				return model.NewUser(ownerID), nil
			},
		},
	})
}

// TestRouter_Health はDB疎通が取れるとき/healthが200になることをテストする。
func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q, want status ok", w.Body.String())
	}
}

// TestRouter_HealthUnhealthy はDB疎通が取れないとき/healthが503になることをテストする。
func TestRouter_HealthUnhealthy(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// TestRouter_Metrics は/metricsが公開されることをテストする。
func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "hisho_http_requests_total") {
		t.Errorf("body = %q, want metrics output", w.Body.String())
	}
}

// TestRouter_MessageEndpoint はPOST /api/messagesがサービスまで疎通することをテストする。
func TestRouter_MessageEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{})

	req := httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"requestId":"req-1","ownerId":"owner-1","text":"hello"}`))
	req.RemoteAddr = "203.0.113.1:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"requestId":"req-1"`) {
		t.Errorf("body = %q, want requestId echoed", w.Body.String())
	}
}

// TestRouter_MessageRateLimit はメッセージ専用レート制限が効くことをテストする。
func TestRouter_MessageRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := middleware.DefaultRateLimiterConfig()
	cfg.MessageRate = 0.01
	cfg.MessageBurst = 2
	router := NewRouter(&RouterDeps{
		Logger:        logger,
		RateLimiter:   middleware.NewRateLimiter(cfg),
		HealthChecker: &stubHealthChecker{},
		ConversationService: &mockConversationService{
			handleFn: func(ctx context.Context, req conversation.Request) *dispatch.Envelope {
				return dispatch.NewResultEnvelope(req.RequestID, "Done.", nil)
			},
		},
		TaskService:    &mockTaskService{},
		JournalService: &mockJournalService{},
		UserService:    &mockUserService{},
	})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/messages",
			strings.NewReader(`{"requestId":"req-1","ownerId":"owner-1","text":"hello"}`))
		req.RemoteAddr = "203.0.113.1:54321"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", last, http.StatusTooManyRequests)
	}
}

// TestRouter_NotFound は未定義ルートが404になることをテストする。
func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestRouter_SecurityHeaders は全レスポンスにセキュリティヘッダーが付くことをテストする。
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &stubHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}
