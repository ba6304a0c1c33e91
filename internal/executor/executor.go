// Package executor は検証済みのアクションプランをタスク・ジャーナルの
// 永続化操作に変換して実行する。個々のアクションの失敗は結果内の
// ソフトエラーとして記録し、残りのアクションの実行は継続する。
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/plan"
	"github.com/hitoshi/hisho/internal/repository"
)

// EntryAnalyzer はジャーナル本文から感情ラベルと要約を導出する。
// 導出できない場合は両方空を返す実装を想定し、エラーは返さない。
type EntryAnalyzer interface {
	AnalyzeEntry(ctx context.Context, entry string) (model.Sentiment, string)
}

// Executor はアクションプランを実行する。
type Executor struct {
	tasks    repository.TaskRepository
	journals repository.JournalRepository
	analyzer EntryAnalyzer
	logger   *slog.Logger
}

// NewExecutor はExecutorを生成する。
func NewExecutor(tasks repository.TaskRepository, journals repository.JournalRepository, analyzer EntryAnalyzer, logger *slog.Logger) *Executor {
	return &Executor{
		tasks:    tasks,
		journals: journals,
		analyzer: analyzer,
		logger:   logger,
	}
}

// state は1回のプラン実行中に蓄積される応答と記録。
type state struct {
	responses []string
	executed  []ExecutedAction
	errors    []ActionError
	taskList  *[]TaskSnapshot
}

func (s *state) respond(msg string) {
	s.responses = append(s.responses, msg)
}

func (s *state) record(e ExecutedAction) {
	s.executed = append(s.executed, e)
}

func (s *state) fail(e ActionError) {
	s.errors = append(s.errors, e)
}

// Execute はプラン内のアクションを順に実行し、結果をまとめて返す。
// ストレージ障害などの想定外の失敗もアクション単位のソフトエラーに変換する
// ため、エラーは返さない。空のプランは何もせず "Done." を返す。
func (e *Executor) Execute(ctx context.Context, userID string, p *plan.Plan) *Result {
	st := &state{executed: []ExecutedAction{}}

	for _, action := range p.Actions {
		var err error
		switch action.Kind {
		case plan.EntityTodo:
			err = e.runTodo(ctx, st, userID, action)
		case plan.EntityJournal:
			err = e.runJournal(ctx, st, userID, action)
		}
		if err != nil {
			e.logger.Warn("アクションの実行に失敗しました",
				"user_id", userID,
				"kind", action.Kind,
				"operation", action.Operation,
				"error", err,
			)
			st.respond(fmt.Sprintf("An error occurred while processing your request: %v", err))
			st.fail(ActionError{
				Type:   string(action.Kind),
				Action: string(action.Operation),
				Reason: reasonExecutionException,
				Error:  err.Error(),
			})
		}
	}

	message := "Done."
	if len(st.responses) > 0 {
		message = strings.Join(st.responses, "\n\n")
	}

	return &Result{
		Status:   "ok",
		Message:  message,
		Executed: st.executed,
		Errors:   st.errors,
		TaskList: st.taskList,
	}
}

func (e *Executor) runTodo(ctx context.Context, st *state, userID string, a plan.Action) error {
	switch a.Operation {
	case plan.OpCreate:
		return e.todoCreate(ctx, st, userID, a.Params)
	case plan.OpRead:
		return e.todoRead(ctx, st, userID, a.Params)
	case plan.OpUpdate:
		return e.todoUpdate(ctx, st, userID, a.Params)
	case plan.OpDelete:
		return e.todoDelete(ctx, st, userID, a.Params)
	}
	return nil
}

func (e *Executor) runJournal(ctx context.Context, st *state, userID string, a plan.Action) error {
	switch a.Operation {
	case plan.OpCreate:
		return e.journalCreate(ctx, st, userID, a.Params)
	case plan.OpRead:
		return e.journalRead(ctx, st, userID, a.Params)
	case plan.OpUpdate:
		return e.journalUpdate(ctx, st, userID, a.Params)
	case plan.OpDelete:
		return e.journalDelete(ctx, st, userID, a.Params)
	}
	return nil
}

func (e *Executor) todoCreate(ctx context.Context, st *state, userID string, p plan.Params) error {
	now := time.Now()
	due := ParseDateTime(p.DueText, now)
	remind := ParseDateTime(p.RemindText, now)

	task := &model.Task{
		UserID:          userID,
		Description:     p.Description,
		Status:          model.TaskStatusPending,
		DueAt:           due,
		ReminderAt:      remind,
		ReminderEnabled: due != nil || remind != nil,
	}

	_, created, err := e.tasks.CreateUnlessDuplicate(ctx, task, model.NormalizeDescription(p.Description))
	if err != nil {
		return err
	}
	if !created {
		st.respond(fmt.Sprintf("Task already exists: '%s'", p.Description))
		st.record(ExecutedAction{Type: "todo.create.duplicate", Description: p.Description})
		return nil
	}

	msg := fmt.Sprintf("Added '%s' (id: %d)", task.Description, task.ID)
	if due != nil {
		msg += " due " + friendlyTime(*due)
	}
	st.respond(msg)
	st.record(ExecutedAction{Type: "todo.create", TaskID: task.ID})
	return nil
}

func (e *Executor) todoRead(ctx context.Context, st *state, userID string, p plan.Params) error {
	now := time.Now()
	dueBefore := ParseDateTime(p.DueBeforeText, now)
	dueAfter := ParseDateTime(p.DueAfterText, now)
	query := strings.ToLower(p.Query)

	all, err := e.tasks.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	tasks := make([]*model.Task, 0, len(all))
	for _, t := range all {
		if p.Status != "" && string(t.Status) != p.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		if dueBefore != nil && (t.DueAt == nil || !t.DueAt.Before(*dueBefore)) {
			continue
		}
		if dueAfter != nil && (t.DueAt == nil || !t.DueAt.After(*dueAfter)) {
			continue
		}
		tasks = append(tasks, t)
	}
	if p.Limit > 0 && len(tasks) > p.Limit {
		tasks = tasks[:p.Limit]
	}

	// フィルタ指定があって0件のときだけ短い定型文にする。
	// 無条件の読み取りはタスクの有無にかかわらず一覧の整形に任せる。
	filtered := p.Status != "" || query != "" || dueBefore != nil || dueAfter != nil
	if len(tasks) == 0 && filtered {
		st.respond("No tasks found.")
	} else {
		st.respond(formatTaskList(tasks))
	}

	snapshots := snapshotTasks(tasks)
	st.taskList = &snapshots
	st.record(ExecutedAction{Type: "todo.read", Count: int64Ptr(int64(len(tasks)))})
	return nil
}

func (e *Executor) todoUpdate(ctx context.Context, st *state, userID string, p plan.Params) error {
	if p.Scope != "" {
		if p.Status == "" {
			st.respond("Missing target status for bulk update.")
			st.fail(ActionError{Type: "todo.update.bulk", Reason: reasonMissingStatus})
			return nil
		}
		count, err := e.tasks.UpdateStatusByScope(ctx, userID, model.TaskStatus(p.Status), p.Scope)
		if err != nil {
			return err
		}
		st.respond(fmt.Sprintf("Updated %d task(s).", count))
		st.record(ExecutedAction{Type: "todo.update.bulk", Count: int64Ptr(count)})
		return nil
	}

	if p.RawID != "" {
		st.respond(fmt.Sprintf("Couldn't update task: invalid id '%s'.", p.RawID))
		st.fail(ActionError{Type: "todo.update", Reason: reasonInvalidID})
		return nil
	}

	var task *model.Task
	descWasFinder := false
	if p.HasID {
		t, err := e.tasks.FindByUserAndID(ctx, userID, p.ID)
		if err != nil {
			return err
		}
		if t == nil {
			st.respond(fmt.Sprintf("Task #%d not found.", p.ID))
			st.fail(ActionError{Type: "todo.update", Reason: reasonNotFound})
			return nil
		}
		task = t
	} else {
		finder := p.Query
		if finder == "" {
			finder = p.Description
			descWasFinder = true
		}
		t, err := e.tasks.FindNewestMatching(ctx, userID, finder)
		if err != nil {
			return err
		}
		if t == nil {
			st.respond(fmt.Sprintf("Task not found: '%s'", finder))
			st.fail(ActionError{Type: "todo.update", Reason: reasonNotFound})
			return nil
		}
		task = t
	}

	// 検索語として使ったテキストは新しい値としては適用しない。
	if p.Description != "" && !descWasFinder {
		task.Description = p.Description
	}
	if p.Status != "" {
		task.Status = model.TaskStatus(p.Status)
	}
	now := time.Now()
	if due := ParseDateTime(p.DueText, now); due != nil {
		task.DueAt = due
		task.ReminderEnabled = true
	}
	if remind := ParseDateTime(p.RemindText, now); remind != nil {
		task.ReminderAt = remind
		task.ReminderEnabled = true
	}

	if err := e.tasks.Update(ctx, task); err != nil {
		return err
	}
	st.respond(fmt.Sprintf("Updated task #%d.", task.ID))
	st.record(ExecutedAction{Type: "todo.update", TaskID: task.ID})
	return nil
}

func (e *Executor) todoDelete(ctx context.Context, st *state, userID string, p plan.Params) error {
	if p.Scope != "" {
		count, err := e.tasks.DeleteByScope(ctx, userID, p.Scope)
		if err != nil {
			return err
		}
		st.respond(fmt.Sprintf("Deleted %d task(s).", count))
		st.record(ExecutedAction{Type: "todo.delete.bulk", Count: int64Ptr(count), Scope: string(p.Scope)})
		return nil
	}

	if p.RawID != "" {
		st.respond(fmt.Sprintf("Couldn't delete task: invalid id '%s'.", p.RawID))
		st.fail(ActionError{Type: "todo.delete", Reason: reasonInvalidID})
		return nil
	}

	var id int64
	if p.HasID {
		t, err := e.tasks.FindByUserAndID(ctx, userID, p.ID)
		if err != nil {
			return err
		}
		if t == nil {
			st.respond(fmt.Sprintf("Task #%d wasn't found to delete.", p.ID))
			st.fail(ActionError{Type: "todo.delete", Reason: reasonNotFound, TaskID: p.ID})
			return nil
		}
		id = t.ID
	} else {
		finder := p.Query
		if finder == "" {
			finder = p.Description
		}
		t, err := e.tasks.FindNewestMatching(ctx, userID, finder)
		if err != nil {
			return err
		}
		if t == nil {
			st.respond(fmt.Sprintf("Couldn't find a task matching '%s' to delete.", finder))
			st.fail(ActionError{Type: "todo.delete", Reason: reasonNotFound, Query: finder})
			return nil
		}
		id = t.ID
	}

	if err := e.tasks.Delete(ctx, userID, id); err != nil {
		return err
	}
	st.respond(fmt.Sprintf("Deleted task #%d.", id))
	st.record(ExecutedAction{Type: "todo.delete", TaskID: id})
	return nil
}

func (e *Executor) journalCreate(ctx context.Context, st *state, userID string, p plan.Params) error {
	summary := p.Summary
	sentiment := model.Sentiment(p.Sentiment)
	// 要約も感情も指定されていないときだけ本文から導出する。
	// 導出に失敗しても空のまま保存する。
	if summary == "" && sentiment == "" {
		sentiment, summary = e.analyzer.AnalyzeEntry(ctx, p.Entry)
	}

	journal := &model.Journal{
		UserID:    userID,
		Entry:     p.Entry,
		Summary:   summary,
		Sentiment: sentiment,
	}
	if err := e.journals.Create(ctx, journal); err != nil {
		return err
	}
	st.respond(fmt.Sprintf("Journal saved (id: %d).", journal.ID))
	st.record(ExecutedAction{Type: "journal.create", JournalID: journal.ID})
	return nil
}

func (e *Executor) journalRead(ctx context.Context, st *state, userID string, p plan.Params) error {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	journals, err := e.journals.ListByUser(ctx, userID, limit)
	if err != nil {
		return err
	}

	if len(journals) == 0 {
		st.respond("No journal entries yet.")
	} else {
		lines := []string{fmt.Sprintf("Your latest %d journal entries:", len(journals))}
		for _, j := range journals {
			lines = append(lines, fmt.Sprintf("- id %d: %s", j.ID, journalDigest(j)))
		}
		st.respond(strings.Join(lines, "\n"))
	}
	st.record(ExecutedAction{Type: "journal.read", Total: intPtr(len(journals))})
	return nil
}

func (e *Executor) journalUpdate(ctx context.Context, st *state, userID string, p plan.Params) error {
	if p.RawID != "" {
		st.respond(fmt.Sprintf("Couldn't update journal: invalid id '%s'.", p.RawID))
		st.fail(ActionError{Type: "journal.update", Reason: reasonInvalidID})
		return nil
	}

	var journal *model.Journal
	finderField := ""
	if p.HasID {
		j, err := e.journals.FindByUserAndID(ctx, userID, p.ID)
		if err != nil {
			return err
		}
		if j == nil {
			st.respond(fmt.Sprintf("Journal #%d wasn't found to update.", p.ID))
			st.fail(ActionError{Type: "journal.update", Reason: reasonNotFound, JournalID: p.ID})
			return nil
		}
		journal = j
	} else {
		finder := p.Entry
		finderField = "entry"
		if finder == "" {
			finder = p.Summary
			finderField = "summary"
		}
		j, err := e.journals.FindNewestMatching(ctx, userID, finder)
		if err != nil {
			return err
		}
		if j == nil {
			st.respond("Couldn't find a journal matching the provided text to update.")
			st.fail(ActionError{Type: "journal.update", Reason: reasonNotFound, Query: finder})
			return nil
		}
		journal = j
	}

	// 検索語として使ったテキストは新しい値としては適用しない。
	if p.Entry != "" && finderField != "entry" {
		journal.Entry = p.Entry
	}
	if p.Summary != "" && finderField != "summary" {
		journal.Summary = p.Summary
	}
	if p.Sentiment != "" {
		journal.Sentiment = model.Sentiment(p.Sentiment)
	}

	if err := e.journals.Update(ctx, journal); err != nil {
		return err
	}
	st.respond(fmt.Sprintf("Updated journal #%d.", journal.ID))
	st.record(ExecutedAction{Type: "journal.update", JournalID: journal.ID})
	return nil
}

func (e *Executor) journalDelete(ctx context.Context, st *state, userID string, p plan.Params) error {
	if p.Scope != "" {
		count, err := e.journals.DeleteAllByUser(ctx, userID)
		if err != nil {
			return err
		}
		st.respond(fmt.Sprintf("Deleted %d journal(s).", count))
		st.record(ExecutedAction{Type: "journal.delete.bulk", Count: int64Ptr(count), Scope: string(p.Scope)})
		return nil
	}

	if p.RawID != "" {
		st.respond(fmt.Sprintf("Couldn't delete journal: invalid id '%s'.", p.RawID))
		st.fail(ActionError{Type: "journal.delete", Reason: reasonInvalidID})
		return nil
	}

	var id int64
	if p.HasID {
		j, err := e.journals.FindByUserAndID(ctx, userID, p.ID)
		if err != nil {
			return err
		}
		if j == nil {
			st.respond(fmt.Sprintf("Journal #%d wasn't found to delete.", p.ID))
			st.fail(ActionError{Type: "journal.delete", Reason: reasonNotFound, JournalID: p.ID})
			return nil
		}
		id = j.ID
	} else {
		finder := p.Entry
		if finder == "" {
			finder = p.Summary
		}
		j, err := e.journals.FindNewestMatching(ctx, userID, finder)
		if err != nil {
			return err
		}
		if j == nil {
			st.respond("Couldn't find a journal matching the provided text to delete.")
			st.fail(ActionError{Type: "journal.delete", Reason: reasonNotFound, Query: finder})
			return nil
		}
		id = j.ID
	}

	if err := e.journals.Delete(ctx, userID, id); err != nil {
		return err
	}
	st.respond(fmt.Sprintf("Deleted journal #%d.", id))
	st.record(ExecutedAction{Type: "journal.delete", JournalID: id})
	return nil
}
