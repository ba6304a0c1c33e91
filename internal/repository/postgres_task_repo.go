package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/hisho/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// CreateUnlessDuplicate は同一オーナーのpendingタスクに正規化済み説明が一致する
// ものがなければタスクを作成する。重複があった場合は既存タスクとcreated=falseを返す。
// オーナー単位のadvisory lockをトランザクション終了まで保持し、
// 同時に届いた同一内容の作成が両方挿入されることを防ぐ。
func (r *PostgresTaskRepo) CreateUnlessDuplicate(ctx context.Context, task *model.Task, normalizedDesc string) (*model.Task, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// オーナー単位のロック。トランザクション終了時に自動解放される。
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, task.UserID); err != nil {
		return nil, false, fmt.Errorf("オーナーロックの取得に失敗しました: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, description, status, due_at, reminder_at, reminder_enabled,
		        last_reminder_sent_at, reminder_count, created_at, updated_at
		 FROM tasks WHERE user_id = $1 AND status = 'pending'
		 ORDER BY created_at ASC, id ASC`,
		task.UserID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("重複確認用のタスク取得に失敗しました: %w", err)
	}

	var duplicate *model.Task
	for rows.Next() {
		t := &model.Task{}
		var dueAt, reminderAt, lastSentAt sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Description, &t.Status, &dueAt, &reminderAt,
			&t.ReminderEnabled, &lastSentAt, &t.ReminderCount, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		if dueAt.Valid {
			t.DueAt = &dueAt.Time
		}
		if reminderAt.Valid {
			t.ReminderAt = &reminderAt.Time
		}
		if lastSentAt.Valid {
			t.LastReminderSentAt = &lastSentAt.Time
		}
		if duplicate == nil && model.NormalizeDescription(t.Description) == normalizedDesc {
			duplicate = t
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("重複確認用のタスク走査に失敗しました: %w", err)
	}

	if duplicate != nil {
		return duplicate, false, nil
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, description, status, due_at, reminder_at, reminder_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, reminder_count, created_at, updated_at`,
		task.UserID, task.Description, task.Status, task.DueAt, task.ReminderAt, task.ReminderEnabled,
	).Scan(&task.ID, &task.ReminderCount, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil, true, nil
}

// FindByUserAndID はオーナーとIDでタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Task, error) {
	task := &model.Task{}
	var dueAt, reminderAt, lastSentAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, description, status, due_at, reminder_at, reminder_enabled,
		        last_reminder_sent_at, reminder_count, created_at, updated_at
		 FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(
		&task.ID, &task.UserID, &task.Description, &task.Status, &dueAt, &reminderAt,
		&task.ReminderEnabled, &lastSentAt, &task.ReminderCount, &task.CreatedAt, &task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}

	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	if reminderAt.Valid {
		task.ReminderAt = &reminderAt.Time
	}
	if lastSentAt.Valid {
		task.LastReminderSentAt = &lastSentAt.Time
	}

	return task, nil
}

// FindNewestMatching は説明に部分文字列（大文字小文字無視）を含む最新のタスクを返す。
// 見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindNewestMatching(ctx context.Context, userID, substr string) (*model.Task, error) {
	task := &model.Task{}
	var dueAt, reminderAt, lastSentAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, description, status, due_at, reminder_at, reminder_enabled,
		        last_reminder_sent_at, reminder_count, created_at, updated_at
		 FROM tasks WHERE user_id = $1 AND description ILIKE '%' || $2 || '%'
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, escapeLike(substr),
	).Scan(
		&task.ID, &task.UserID, &task.Description, &task.Status, &dueAt, &reminderAt,
		&task.ReminderEnabled, &lastSentAt, &task.ReminderCount, &task.CreatedAt, &task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの部分一致検索に失敗しました: %w", err)
	}

	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	if reminderAt.Valid {
		task.ReminderAt = &reminderAt.Time
	}
	if lastSentAt.Valid {
		task.LastReminderSentAt = &lastSentAt.Time
	}

	return task, nil
}

// ListByUser はオーナーの全タスクを作成順で返す。
func (r *PostgresTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, description, status, due_at, reminder_at, reminder_enabled,
		        last_reminder_sent_at, reminder_count, created_at, updated_at
		 FROM tasks WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		var dueAt, reminderAt, lastSentAt sql.NullTime

		if err := rows.Scan(
			&task.ID, &task.UserID, &task.Description, &task.Status, &dueAt, &reminderAt,
			&task.ReminderEnabled, &lastSentAt, &task.ReminderCount, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}

		if dueAt.Valid {
			task.DueAt = &dueAt.Time
		}
		if reminderAt.Valid {
			task.ReminderAt = &reminderAt.Time
		}
		if lastSentAt.Valid {
			task.LastReminderSentAt = &lastSentAt.Time
		}

		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// Update はタスクの説明・状態・期限・リマインダー設定を上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET
		    description = $3, status = $4, due_at = $5, reminder_at = $6,
		    reminder_enabled = $7, updated_at = now()
		 WHERE user_id = $1 AND id = $2`,
		task.UserID, task.ID, task.Description, task.Status, task.DueAt,
		task.ReminderAt, task.ReminderEnabled,
	)
	if err != nil {
		return fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はオーナーとIDでタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("タスクが見つかりません: %d", id)
	}
	return nil
}

// UpdateStatusByScope はスコープに一致するタスクの状態を一括変更し、件数を返す。
func (r *PostgresTaskRepo) UpdateStatusByScope(ctx context.Context, userID string, status model.TaskStatus, scope model.Scope) (int64, error) {
	var query string
	switch scope {
	case model.ScopeAll:
		query = `UPDATE tasks SET status = $2, updated_at = now() WHERE user_id = $1`
	case model.ScopePending:
		query = `UPDATE tasks SET status = $2, updated_at = now() WHERE user_id = $1 AND status = 'pending'`
	case model.ScopeCompleted:
		query = `UPDATE tasks SET status = $2, updated_at = now() WHERE user_id = $1 AND status = 'completed'`
	default:
		return 0, fmt.Errorf("不正なスコープです: %s", scope)
	}

	result, err := r.db.ExecContext(ctx, query, userID, status)
	if err != nil {
		return 0, fmt.Errorf("タスクの一括更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// DeleteByScope はスコープ（all/pending/completed）でタスクを一括削除し、件数を返す。
func (r *PostgresTaskRepo) DeleteByScope(ctx context.Context, userID string, scope model.Scope) (int64, error) {
	var query string
	switch scope {
	case model.ScopeAll:
		query = `DELETE FROM tasks WHERE user_id = $1`
	case model.ScopePending:
		query = `DELETE FROM tasks WHERE user_id = $1 AND status = 'pending'`
	case model.ScopeCompleted:
		query = `DELETE FROM tasks WHERE user_id = $1 AND status = 'completed'`
	default:
		return 0, fmt.Errorf("不正なスコープです: %s", scope)
	}

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("タスクの一括削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// ListReminderCandidates はリマインダー判定の対象となるタスクを返す。
// pending かつ reminder_enabled で、期限がdueBefore以前か明示リマインダーが
// remindBefore以前のものが対象。オーナー順に整列して返す。
func (r *PostgresTaskRepo) ListReminderCandidates(ctx context.Context, dueBefore, remindBefore time.Time) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, description, status, due_at, reminder_at, reminder_enabled,
		        last_reminder_sent_at, reminder_count, created_at, updated_at
		 FROM tasks
		 WHERE status = 'pending' AND reminder_enabled = TRUE
		   AND ((due_at IS NOT NULL AND due_at <= $1)
		     OR (reminder_at IS NOT NULL AND reminder_at <= $2))
		 ORDER BY user_id ASC, due_at ASC NULLS LAST, id ASC`,
		dueBefore, remindBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("リマインダー対象タスクの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		var dueAt, reminderAt, lastSentAt sql.NullTime

		if err := rows.Scan(
			&task.ID, &task.UserID, &task.Description, &task.Status, &dueAt, &reminderAt,
			&task.ReminderEnabled, &lastSentAt, &task.ReminderCount, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("リマインダー対象タスクの行読み取りに失敗しました: %w", err)
		}

		if dueAt.Valid {
			task.DueAt = &dueAt.Time
		}
		if reminderAt.Valid {
			task.ReminderAt = &reminderAt.Time
		}
		if lastSentAt.Valid {
			task.LastReminderSentAt = &lastSentAt.Time
		}

		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リマインダー対象タスクの走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// MarkReminderSent は配信成功後にリマインダー送信記録を更新する。
// clearExplicitがtrueの場合は明示リマインダー（reminder_at）を消去して再送を防ぐ。
func (r *PostgresTaskRepo) MarkReminderSent(ctx context.Context, id int64, sentAt time.Time, clearExplicit bool) error {
	query := `UPDATE tasks SET last_reminder_sent_at = $2, reminder_count = reminder_count + 1, updated_at = now()
	          WHERE id = $1`
	if clearExplicit {
		query = `UPDATE tasks SET last_reminder_sent_at = $2, reminder_count = reminder_count + 1, reminder_at = NULL, updated_at = now()
		         WHERE id = $1`
	}

	_, err := r.db.ExecContext(ctx, query, id, sentAt)
	if err != nil {
		return fmt.Errorf("リマインダー送信記録の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteCompletedBefore はcutoffより前に更新された完了タスクを削除し、件数を返す。
func (r *PostgresTaskRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status = 'completed' AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("完了タスクの掃除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
// ユーザー入力を部分一致検索に使うため、% _ \ をリテラルとして扱う。
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
var _ ReminderTaskRepository = (*PostgresTaskRepo)(nil)
var _ CleanupTaskRepository = (*PostgresTaskRepo)(nil)
