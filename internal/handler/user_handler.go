package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// RegisterPushDestination はプッシュ配信先を検証して登録する。
	RegisterPushDestination(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error)
	// UpdateReminderSettings はタイムゾーンとリマインダー設定を更新する。
	UpdateReminderSettings(ctx context.Context, ownerID string, in user.SettingsInput) (*model.User, error)
}

// UserHandler はユーザー設定管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// registerPushRequest はプッシュ配信先登録リクエストのボディ。
// URLとトークン以外のフィールドはリマインダー設定の任意更新。
type registerPushRequest struct {
	URL                    string  `json:"url"`
	Token                  string  `json:"token,omitempty"`
	Timezone               *string `json:"timezone,omitempty"`
	QuietHoursStart        *int    `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd          *int    `json:"quiet_hours_end,omitempty"`
	MaxOverdueReminders    *int    `json:"max_overdue_reminders,omitempty"`
	ReminderSpacingMinutes *int    `json:"reminder_spacing_minutes,omitempty"`
	OverdueIntervalHours   *int    `json:"overdue_interval_hours,omitempty"`
}

// userResponse はユーザー設定のAPIレスポンス。プッシュトークンは返さない。
type userResponse struct {
	UserID                 string `json:"user_id"`
	PushURL                string `json:"push_url"`
	Timezone               string `json:"timezone"`
	QuietHoursStart        int    `json:"quiet_hours_start"`
	QuietHoursEnd          int    `json:"quiet_hours_end"`
	MaxOverdueReminders    int    `json:"max_overdue_reminders"`
	ReminderSpacingMinutes int    `json:"reminder_spacing_minutes"`
	OverdueIntervalHours   int    `json:"overdue_interval_hours"`
}

// RegisterPush はプッシュ配信先の登録・差し替えを処理する。
// PUT /api/users/{ownerID}/push
//
// リマインダー設定フィールドが含まれている場合はあわせて更新する。
func (h *UserHandler) RegisterPush(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("ownerIDは必須です"))
		return
	}

	var req registerPushRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	u, err := h.service.RegisterPushDestination(r.Context(), ownerID, req.URL, req.Token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	settings := user.SettingsInput{
		Timezone:               req.Timezone,
		QuietHoursStart:        req.QuietHoursStart,
		QuietHoursEnd:          req.QuietHoursEnd,
		MaxOverdueReminders:    req.MaxOverdueReminders,
		ReminderSpacingMinutes: req.ReminderSpacingMinutes,
		OverdueIntervalHours:   req.OverdueIntervalHours,
	}
	if hasSettings(settings) {
		u, err = h.service.UpdateReminderSettings(r.Context(), ownerID, settings)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// hasSettings は設定更新フィールドが1つでも指定されているかを返す。
func hasSettings(in user.SettingsInput) bool {
	return in.Timezone != nil ||
		in.QuietHoursStart != nil ||
		in.QuietHoursEnd != nil ||
		in.MaxOverdueReminders != nil ||
		in.ReminderSpacingMinutes != nil ||
		in.OverdueIntervalHours != nil
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		UserID:                 u.UserID,
		PushURL:                u.PushURL,
		Timezone:               u.Timezone,
		QuietHoursStart:        u.QuietHoursStart,
		QuietHoursEnd:          u.QuietHoursEnd,
		MaxOverdueReminders:    u.MaxOverdueReminders,
		ReminderSpacingMinutes: u.ReminderSpacingMinutes,
		OverdueIntervalHours:   u.OverdueIntervalHours,
	}
}
