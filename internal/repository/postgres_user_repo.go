package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hisho/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByUserID は外部ユーザーIDでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUserID(ctx context.Context, userID string) (*model.User, error) {
	user := &model.User{}
	var pushURL, pushToken sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, push_url, push_token, timezone,
		        quiet_hours_start, quiet_hours_end, max_overdue_reminders,
		        reminder_spacing_minutes, overdue_interval_hours, created_at, updated_at
		 FROM users WHERE user_id = $1`,
		userID,
	).Scan(
		&user.ID, &user.UserID, &pushURL, &pushToken, &user.Timezone,
		&user.QuietHoursStart, &user.QuietHoursEnd, &user.MaxOverdueReminders,
		&user.ReminderSpacingMinutes, &user.OverdueIntervalHours, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.PushURL = nullStringValue(pushURL)
	user.PushToken = nullStringValue(pushToken)

	return user, nil
}

// EnsureExists はユーザー行を冪等に作成する。
// 既に存在する場合は既存行を、存在しない場合はデフォルト設定で作成した行を返す。
func (r *PostgresUserRepo) EnsureExists(ctx context.Context, userID string) (*model.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	user, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user disappeared after insert: %s", userID)
	}
	return user, nil
}

// UpsertPushDestination はプッシュ配信先（URL・トークン）を冪等に登録する。
// ユーザー行が存在しない場合はデフォルト設定で作成する。
func (r *PostgresUserRepo) UpsertPushDestination(ctx context.Context, userID, pushURL, pushToken string) (*model.User, error) {
	user := &model.User{}
	var gotPushURL, gotPushToken sql.NullString

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (user_id, push_url, push_token)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		    push_url = EXCLUDED.push_url,
		    push_token = EXCLUDED.push_token,
		    updated_at = now()
		 RETURNING id, user_id, push_url, push_token, timezone,
		           quiet_hours_start, quiet_hours_end, max_overdue_reminders,
		           reminder_spacing_minutes, overdue_interval_hours, created_at, updated_at`,
		userID, nullString(pushURL), nullString(pushToken),
	).Scan(
		&user.ID, &user.UserID, &gotPushURL, &gotPushToken, &user.Timezone,
		&user.QuietHoursStart, &user.QuietHoursEnd, &user.MaxOverdueReminders,
		&user.ReminderSpacingMinutes, &user.OverdueIntervalHours, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert push destination: %w", err)
	}

	user.PushURL = nullStringValue(gotPushURL)
	user.PushToken = nullStringValue(gotPushToken)

	return user, nil
}

// UpdateSettings はタイムゾーンとリマインダー設定を更新する。
func (r *PostgresUserRepo) UpdateSettings(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		    timezone = $2, quiet_hours_start = $3, quiet_hours_end = $4,
		    max_overdue_reminders = $5, reminder_spacing_minutes = $6,
		    overdue_interval_hours = $7, updated_at = now()
		 WHERE user_id = $1`,
		user.UserID, user.Timezone, user.QuietHoursStart, user.QuietHoursEnd,
		user.MaxOverdueReminders, user.ReminderSpacingMinutes, user.OverdueIntervalHours,
	)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.UserID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
