// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Task はユーザーのタスク（TODO）を表す。
type Task struct {
	ID                 int64
	UserID             string
	Description        string
	Status             TaskStatus
	DueAt              *time.Time
	ReminderAt         *time.Time
	ReminderEnabled    bool
	LastReminderSentAt *time.Time
	ReminderCount      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TaskStatus はタスクの状態を表す。
type TaskStatus string

const (
	// TaskStatusPending は未完了状態。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusCompleted は完了状態。
	TaskStatusCompleted TaskStatus = "completed"
)

// IsValidTaskStatus は有効なタスク状態かどうかを返す。
func IsValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusCompleted:
		return true
	}
	return false
}

// Scope は一括更新・一括削除の対象範囲を表す。
type Scope string

const (
	// ScopeAll は全件を対象とする。
	ScopeAll Scope = "all"
	// ScopePending は未完了タスクのみを対象とする。
	ScopePending Scope = "pending"
	// ScopeCompleted は完了タスクのみを対象とする。
	ScopeCompleted Scope = "completed"
)

// IsValidScope は有効なスコープかどうかを返す。
func IsValidScope(s string) bool {
	switch Scope(s) {
	case ScopeAll, ScopePending, ScopeCompleted:
		return true
	}
	return false
}

// NormalizeDescription はタスク説明を重複判定用に正規化する。
// 前後の空白を除去し、連続する空白を1つにまとめ、小文字に変換する。
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
