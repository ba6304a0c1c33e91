// Package model はドメインモデルを定義する。
package model

import "time"

// リマインダー設定のデフォルト値。
// ユーザーごとの設定が未指定の場合に適用される。
const (
	DefaultQuietHoursStart        = 22
	DefaultQuietHoursEnd          = 8
	DefaultMaxOverdueReminders    = 5
	DefaultReminderSpacingMinutes = 30
	DefaultOverdueIntervalHours   = 24
)

// User はサービス利用ユーザーを表す。
// PushURLは初めてコールバックURL付きリクエストを受けたときに記録され、
// リマインダースケジューラのプッシュ先として使われる。
type User struct {
	ID                     int64
	UserID                 string
	PushURL                string
	PushToken              string
	Timezone               string
	QuietHoursStart        int
	QuietHoursEnd          int
	MaxOverdueReminders    int
	ReminderSpacingMinutes int
	OverdueIntervalHours   int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewUser はデフォルト設定のユーザーを生成する。
func NewUser(userID string) *User {
	return &User{
		UserID:                 userID,
		Timezone:               "UTC",
		QuietHoursStart:        DefaultQuietHoursStart,
		QuietHoursEnd:          DefaultQuietHoursEnd,
		MaxOverdueReminders:    DefaultMaxOverdueReminders,
		ReminderSpacingMinutes: DefaultReminderSpacingMinutes,
		OverdueIntervalHours:   DefaultOverdueIntervalHours,
	}
}

// Location はユーザーのタイムゾーンを返す。
// 不明なタイムゾーン名の場合はUTCを返す。
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasPushDestination はプッシュ先が登録済みかどうかを返す。
func (u *User) HasPushDestination() bool {
	return u.PushURL != ""
}
