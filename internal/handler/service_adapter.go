package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/hisho/internal/executor"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/repository"
)

// TaskServiceAdapter は repository.TaskRepository を TaskServiceInterface に適合させるアダプタ。
// 会話経由のタスク操作と同じ重複判定・期限解釈をREST経由にも適用する。
type TaskServiceAdapter struct {
	tasks repository.TaskRepository
}

// NewTaskServiceAdapter はTaskServiceAdapterを生成する。
func NewTaskServiceAdapter(tasks repository.TaskRepository) *TaskServiceAdapter {
	return &TaskServiceAdapter{tasks: tasks}
}

// ListTasks はオーナーの全タスクを作成順で返す。
func (a *TaskServiceAdapter) ListTasks(ctx context.Context, ownerID string) ([]*model.Task, error) {
	return a.tasks.ListByUser(ctx, ownerID)
}

// CreateTask はタスクを作成する。dueは自然言語の期限表現として解釈する。
// 同一説明のpendingタスクが既にある場合は既存タスクとcreated=falseを返す。
func (a *TaskServiceAdapter) CreateTask(ctx context.Context, ownerID, description, due string) (*model.Task, bool, error) {
	dueAt := executor.ParseDateTime(due, time.Now())

	task := &model.Task{
		UserID:          ownerID,
		Description:     description,
		Status:          model.TaskStatusPending,
		DueAt:           dueAt,
		ReminderEnabled: dueAt != nil,
	}

	existing, created, err := a.tasks.CreateUnlessDuplicate(ctx, task, model.NormalizeDescription(description))
	if err != nil {
		return nil, false, err
	}
	if !created {
		return existing, false, nil
	}
	return task, true, nil
}

// CompleteTask はタスクを完了にする。
func (a *TaskServiceAdapter) CompleteTask(ctx context.Context, ownerID string, id int64) (*model.Task, error) {
	task, err := a.tasks.FindByUserAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(fmt.Sprintf("#%d", id))
	}

	task.Status = model.TaskStatusCompleted
	if err := a.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// JournalServiceAdapter は repository.JournalRepository を JournalServiceInterface に適合させるアダプタ。
// 作成時の要約・感情の導出は会話経由の保存と同じ解析器で行う。
type JournalServiceAdapter struct {
	journals repository.JournalRepository
	analyzer executor.EntryAnalyzer
}

// NewJournalServiceAdapter はJournalServiceAdapterを生成する。
func NewJournalServiceAdapter(journals repository.JournalRepository, analyzer executor.EntryAnalyzer) *JournalServiceAdapter {
	return &JournalServiceAdapter{journals: journals, analyzer: analyzer}
}

// ListJournals はオーナーの日誌一覧を新しい順で最大limit件返す。
func (a *JournalServiceAdapter) ListJournals(ctx context.Context, ownerID string, limit int) ([]*model.Journal, error) {
	return a.journals.ListByUser(ctx, ownerID, limit)
}

// CreateJournal は日誌エントリを作成する。
// 要約と感情の導出に失敗した場合は空のまま保存する。
func (a *JournalServiceAdapter) CreateJournal(ctx context.Context, ownerID, entry string) (*model.Journal, error) {
	sentiment, summary := a.analyzer.AnalyzeEntry(ctx, entry)

	journal := &model.Journal{
		UserID:    ownerID,
		Entry:     entry,
		Summary:   summary,
		Sentiment: sentiment,
	}
	if err := a.journals.Create(ctx, journal); err != nil {
		return nil, err
	}
	return journal, nil
}

// --- compile-time interface checks ---

var _ TaskServiceInterface = (*TaskServiceAdapter)(nil)
var _ JournalServiceInterface = (*JournalServiceAdapter)(nil)
