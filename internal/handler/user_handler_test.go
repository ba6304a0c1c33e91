package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/user"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	registerFn func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error)
	updateFn   func(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error)
}

func (m *mockUserService) RegisterPushDestination(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
	return m.registerFn(ctx, ownerID, pushURL, pushToken)
}

func (m *mockUserService) UpdateReminderSettings(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error) {
	return m.updateFn(ctx, ownerID, in)
}

// userRouter はユーザールートだけを構成したルーターを返す。
func userRouter(svc UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(svc)
	r.Put("/api/users/{ownerID}/push", h.RegisterPush)
	return r
}

func putJSON(t *testing.T, router http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, target, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRegisterPush_Success はプッシュ配信先の登録が成功することをテストする。
func TestRegisterPush_Success(t *testing.T) {
	var gotURL, gotToken string
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			gotURL, gotToken = pushURL, pushToken
			u := model.NewUser(ownerID)
			u.PushURL = pushURL
			u.PushToken = pushToken
			return u, nil
		},
	}
	router := userRouter(svc)

	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL:   "https://push.example.com/hook",
		Token: "secret-token",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotURL != "https://push.example.com/hook" || gotToken != "secret-token" {
		t.Errorf("registered url=%q token=%q", gotURL, gotToken)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != "owner-1" {
		t.Errorf("user_id = %q, want %q", resp.UserID, "owner-1")
	}
	if resp.PushURL != "https://push.example.com/hook" {
		t.Errorf("push_url = %q", resp.PushURL)
	}
}

// TestRegisterPush_TokenNotEchoed はレスポンスにトークンが含まれないことをテストする。
func TestRegisterPush_TokenNotEchoed(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			u := model.NewUser(ownerID)
			u.PushURL = pushURL
			u.PushToken = pushToken
			return u, nil
		},
	}
	router := userRouter(svc)

	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL:   "https://push.example.com/hook",
		Token: "secret-token",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("secret-token")) {
		t.Error("response body should not contain the push token")
	}
}

// TestRegisterPush_WithSettings は設定フィールド付きの登録で設定更新も行われることをテストする。
func TestRegisterPush_WithSettings(t *testing.T) {
	var gotSettings user.SettingsInput
	updateCalled := false
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			u := model.NewUser(ownerID)
			u.PushURL = pushURL
			return u, nil
		},
		updateFn: func(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error) {
			updateCalled = true
			gotSettings = in
			u := model.NewUser(ownerID)
			u.Timezone = *in.Timezone
			u.QuietHoursStart = *in.QuietHoursStart
			return u, nil
		},
	}
	router := userRouter(svc)

	tz := "Asia/Tokyo"
	start := 23
	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL:             "https://push.example.com/hook",
		Timezone:        &tz,
		QuietHoursStart: &start,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !updateCalled {
		t.Fatal("UpdateReminderSettings should be called when settings fields are present")
	}
	if gotSettings.Timezone == nil || *gotSettings.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %v, want Asia/Tokyo", gotSettings.Timezone)
	}
	if gotSettings.QuietHoursStart == nil || *gotSettings.QuietHoursStart != 23 {
		t.Errorf("quiet_hours_start = %v, want 23", gotSettings.QuietHoursStart)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %q, want %q", resp.Timezone, "Asia/Tokyo")
	}
}

// TestRegisterPush_WithoutSettings は設定フィールドなしなら設定更新が呼ばれないことをテストする。
func TestRegisterPush_WithoutSettings(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			return model.NewUser(ownerID), nil
		},
		updateFn: func(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error) {
			t.Error("UpdateReminderSettings should not be called")
			return model.NewUser(ownerID), nil
		},
	}
	router := userRouter(svc)

	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL: "https://push.example.com/hook",
	})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestRegisterPush_EmptyURL はURL欠落が400になることをテストする。
func TestRegisterPush_EmptyURL(t *testing.T) {
	router := userRouter(&mockUserService{})

	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidURL {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidURL)
	}
}

// TestRegisterPush_SSRFBlocked は内部宛先URLが403になることをテストする。
func TestRegisterPush_SSRFBlocked(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			return nil, model.NewSSRFBlockedError()
		},
	}
	router := userRouter(svc)

	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL: "http://169.254.169.254/latest/meta-data",
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeSSRFBlocked {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeSSRFBlocked)
	}
}

// TestRegisterPush_InvalidSettings は不正な設定値が400になることをテストする。
func TestRegisterPush_InvalidSettings(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
			return model.NewUser(ownerID), nil
		},
		updateFn: func(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error) {
			return nil, model.NewInvalidRequestError("quiet_hours_startは0〜23で指定してください")
		},
	}
	router := userRouter(svc)

	start := 99
	w := putJSON(t, router, "/api/users/owner-1/push", registerPushRequest{
		URL:             "https://push.example.com/hook",
		QuietHoursStart: &start,
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
