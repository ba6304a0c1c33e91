package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/hisho/internal/model"
)

// friendlyTime は日時をユーザー向けの表記（"Aug 21, 2026 05:30 PM"）に整形する。
func friendlyTime(t time.Time) string {
	return t.Format("Jan 02, 2006 03:04 PM")
}

// formatTaskList はタスク一覧をユーザー向けの要約テキストに整形する。
// 空の一覧にはタスクがない旨の定型文を返す。
func formatTaskList(tasks []*model.Task) string {
	if len(tasks) == 0 {
		return "You currently have no pending tasks."
	}

	pending := 0
	for _, t := range tasks {
		if t.Status != model.TaskStatusCompleted {
			pending++
		}
	}

	lines := []string{
		fmt.Sprintf("Here are your tasks (total: %d, pending: %d):", len(tasks), pending),
		"",
	}
	for _, t := range tasks {
		created := "N/A"
		if !t.CreatedAt.IsZero() {
			created = friendlyTime(t.CreatedAt)
		}
		line := fmt.Sprintf("- %s (status: %s, id: %d, created: %s", t.Description, t.Status, t.ID, created)
		if t.DueAt != nil {
			line += fmt.Sprintf(", due: %s", friendlyTime(*t.DueAt))
		}
		lines = append(lines, line+")")
	}
	lines = append(lines, "", "Tip: reply 'complete <id>' to mark a task as done.")
	return strings.Join(lines, "\n")
}

// snapshotTasks は読み取り結果を配信メタデータ用の射影に変換する。
func snapshotTasks(tasks []*model.Task) []TaskSnapshot {
	out := make([]TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		s := TaskSnapshot{
			ID:          t.ID,
			Description: t.Description,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		}
		if t.DueAt != nil {
			iso := t.DueAt.Format(time.RFC3339)
			s.DueDate = &iso
		}
		out = append(out, s)
	}
	return out
}

// journalDigest は一覧表示用にジャーナルの要約、なければ本文の冒頭60文字を返す。
func journalDigest(j *model.Journal) string {
	if j.Summary != "" {
		return j.Summary
	}
	r := []rune(j.Entry)
	if len(r) > 60 {
		return string(r[:60])
	}
	return j.Entry
}
