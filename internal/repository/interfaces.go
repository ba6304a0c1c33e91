// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/hisho/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// ユーザー行は初回メッセージ受信時に遅延作成されるため、Upsert系の操作を中心とする。
type UserRepository interface {
	// FindByUserID は外部ユーザーIDでユーザーを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.User, error)

	// EnsureExists はユーザー行を冪等に作成する。
	// 既に存在する場合は既存行を、存在しない場合はデフォルト設定で作成した行を返す。
	EnsureExists(ctx context.Context, userID string) (*model.User, error)

	// UpsertPushDestination はプッシュ配信先（URL・トークン）を冪等に登録する。
	// ユーザー行が存在しない場合はデフォルト設定で作成する。
	UpsertPushDestination(ctx context.Context, userID, pushURL, pushToken string) (*model.User, error)

	// UpdateSettings はタイムゾーンとリマインダー設定を更新する。
	UpdateSettings(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// 全ての読み書きはオーナー（user_id）単位にスコープされる。
type TaskRepository interface {
	// CreateUnlessDuplicate は同一オーナーのpendingタスクに正規化済み説明が一致する
	// ものがなければタスクを作成する。重複があった場合は既存タスクとcreated=falseを返す。
	// オーナー単位のadvisory lockにより、同時の同一作成が両方挿入されることを防ぐ。
	CreateUnlessDuplicate(ctx context.Context, task *model.Task, normalizedDesc string) (existing *model.Task, created bool, err error)

	// FindByUserAndID はオーナーとIDでタスクを取得する。見つからない場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Task, error)

	// FindNewestMatching は説明に部分文字列（大文字小文字無視）を含む最新のタスクを返す。
	// 見つからない場合はnilを返す。
	FindNewestMatching(ctx context.Context, userID, substr string) (*model.Task, error)

	// ListByUser はオーナーの全タスクを作成順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Task, error)

	// Update はタスクの説明・状態・期限・リマインダー設定を上書き更新する。
	Update(ctx context.Context, task *model.Task) error

	// Delete はオーナーとIDでタスクを削除する。
	Delete(ctx context.Context, userID string, id int64) error

	// UpdateStatusByScope はスコープ（all/pending/completed）に一致するタスクの
	// 状態を一括変更し、件数を返す。
	UpdateStatusByScope(ctx context.Context, userID string, status model.TaskStatus, scope model.Scope) (int64, error)

	// DeleteByScope はスコープ（all/pending/completed）でタスクを一括削除し、件数を返す。
	DeleteByScope(ctx context.Context, userID string, scope model.Scope) (int64, error)
}

// ReminderTaskRepository はリマインダースケジューラに必要なタスク操作のインターフェース。
type ReminderTaskRepository interface {
	// ListReminderCandidates はリマインダー判定の対象となるタスクを返す。
	// pending かつ reminder_enabled で、期限がdueBefore以前か明示リマインダーが
	// remindBefore以前のものが対象。オーナー順に整列して返す。
	ListReminderCandidates(ctx context.Context, dueBefore, remindBefore time.Time) ([]*model.Task, error)

	// MarkReminderSent は配信成功後にリマインダー送信記録を更新する。
	// clearExplicitがtrueの場合は明示リマインダー（reminder_at）を消去する。
	MarkReminderSent(ctx context.Context, id int64, sentAt time.Time, clearExplicit bool) error
}

// CleanupTaskRepository は保持期限切れタスクの削除に必要なインターフェース。
type CleanupTaskRepository interface {
	// DeleteCompletedBefore はcutoffより前に更新された完了タスクを削除し、件数を返す。
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JournalRepository は日誌データの永続化インターフェース。
type JournalRepository interface {
	// Create は日誌エントリを作成する。
	Create(ctx context.Context, journal *model.Journal) error

	// FindByUserAndID はオーナーとIDで日誌を取得する。見つからない場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Journal, error)

	// FindNewestMatching は本文に部分文字列（大文字小文字無視）を含む最新の日誌を返す。
	// 見つからない場合はnilを返す。
	FindNewestMatching(ctx context.Context, userID, substr string) (*model.Journal, error)

	// ListByUser はオーナーの日誌一覧を新しい順で最大limit件返す。
	// limitが0以下の場合は全件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Journal, error)

	// Update は日誌の本文・要約・感情を上書き更新する。
	Update(ctx context.Context, journal *model.Journal) error

	// Delete はオーナーとIDで日誌を削除する。
	Delete(ctx context.Context, userID string, id int64) error

	// DeleteAllByUser はオーナーの全日誌を削除し、件数を返す。
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}
