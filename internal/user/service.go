// Package user はユーザー設定管理のドメインロジックを提供する。
// プッシュ配信先の登録とリマインダー設定の更新を担う。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/repository"
)

// URLValidator はプッシュ配信先URLの事前検証インターフェース。
// security.SSRFGuardServiceのValidateURLを想定する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はユーザー設定管理のサービス層。
type Service struct {
	users     repository.UserRepository
	validator URLValidator
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, validator URLValidator, logger *slog.Logger) *Service {
	return &Service{
		users:     users,
		validator: validator,
		logger:    logger,
	}
}

// EnsureUser はユーザー行を冪等に用意して返す。
// 初回メッセージ受信時の遅延作成に使う。
func (s *Service) EnsureUser(ctx context.Context, ownerID string) (*model.User, error) {
	user, err := s.users.EnsureExists(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー行の用意に失敗しました: %w", err)
	}
	return user, nil
}

// Get はユーザーを取得する。見つからない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, ownerID string) (*model.User, error) {
	user, err := s.users.FindByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(ownerID)
	}
	return user, nil
}

// RegisterPushDestination はプッシュ配信先を検証して登録する。
// URLが不正な形式の場合はInvalidURL、内部ネットワーク宛ての場合は
// SSRFBlockedを返す。登録はユーザー行が無ければ作成を伴う（冪等）。
func (s *Service) RegisterPushDestination(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error) {
	if err := s.validator.ValidateURL(pushURL); err != nil {
		s.logger.Warn("プッシュ配信先URLの検証に失敗しました",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
		if strings.Contains(err.Error(), "blocked") {
			return nil, model.NewSSRFBlockedError()
		}
		return nil, model.NewInvalidURLError(err.Error())
	}

	user, err := s.users.UpsertPushDestination(ctx, ownerID, pushURL, pushToken)
	if err != nil {
		return nil, fmt.Errorf("プッシュ配信先の登録に失敗しました: %w", err)
	}

	s.logger.Info("プッシュ配信先を登録しました",
		slog.String("user_id", ownerID),
	)
	return user, nil
}

// SettingsInput はリマインダー設定の更新入力。
// nilのフィールドは「変更しない」を意味する。
type SettingsInput struct {
	Timezone               *string
	QuietHoursStart        *int
	QuietHoursEnd          *int
	MaxOverdueReminders    *int
	ReminderSpacingMinutes *int
	OverdueIntervalHours   *int
}

// UpdateReminderSettings はタイムゾーンとリマインダー設定を検証して更新する。
// ユーザー行が無ければデフォルト設定で作成してから適用する。
func (s *Service) UpdateReminderSettings(ctx context.Context, ownerID string, in SettingsInput) (*model.User, error) {
	user, err := s.users.EnsureExists(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー行の用意に失敗しました: %w", err)
	}

	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, model.NewInvalidRequestError(fmt.Sprintf("不明なタイムゾーンです: %q", *in.Timezone))
		}
		user.Timezone = tz
	}
	if in.QuietHoursStart != nil {
		if *in.QuietHoursStart < 0 || *in.QuietHoursStart > 23 {
			return nil, model.NewInvalidRequestError("quiet_hours_startは0〜23で指定してください")
		}
		user.QuietHoursStart = *in.QuietHoursStart
	}
	if in.QuietHoursEnd != nil {
		if *in.QuietHoursEnd < 0 || *in.QuietHoursEnd > 23 {
			return nil, model.NewInvalidRequestError("quiet_hours_endは0〜23で指定してください")
		}
		user.QuietHoursEnd = *in.QuietHoursEnd
	}
	if in.MaxOverdueReminders != nil {
		if *in.MaxOverdueReminders < 0 {
			return nil, model.NewInvalidRequestError("max_overdue_remindersは0以上で指定してください")
		}
		user.MaxOverdueReminders = *in.MaxOverdueReminders
	}
	if in.ReminderSpacingMinutes != nil {
		if *in.ReminderSpacingMinutes < 0 {
			return nil, model.NewInvalidRequestError("reminder_spacing_minutesは0以上で指定してください")
		}
		user.ReminderSpacingMinutes = *in.ReminderSpacingMinutes
	}
	if in.OverdueIntervalHours != nil {
		if *in.OverdueIntervalHours < 1 {
			return nil, model.NewInvalidRequestError("overdue_interval_hoursは1以上で指定してください")
		}
		user.OverdueIntervalHours = *in.OverdueIntervalHours
	}

	if err := s.users.UpdateSettings(ctx, user); err != nil {
		return nil, fmt.Errorf("リマインダー設定の更新に失敗しました: %w", err)
	}

	s.logger.Info("リマインダー設定を更新しました",
		slog.String("user_id", ownerID),
	)
	return user, nil
}
