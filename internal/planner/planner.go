// Package planner は自然言語メッセージのアクションプラン化と、
// 日誌分析・リマインド文面生成のLLM呼び出しを提供する。
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/hisho/internal/llm"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/plan"
)

// ChatCompleter はチャット補完APIの呼び出し窓口。
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, system, user string, opts llm.Options) (string, error)
}

// Planner はLLMによるプラン生成・文章生成のサービス。
type Planner struct {
	client ChatCompleter
	logger *slog.Logger
}

// NewPlanner はPlannerの新しいインスタンスを生成する。
func NewPlanner(client ChatCompleter, logger *slog.Logger) *Planner {
	return &Planner{
		client: client,
		logger: logger,
	}
}

// planSystemPrompt はプラン生成のシステムプロンプト。
// typeとactionは検証器の閉じた集合と同じ語彙のみを許可し、
// 解釈できないメッセージには空のactionsを返させる。
const planSystemPrompt = `You are a controller for a todo and journal assistant. Parse the user's message and output a STRICT JSON object with an "actions" array describing the operations to perform, in order.

Each action is {"type": ..., "action": ..., "params": {...}}.
"type" must be exactly "todo" or "journal".
"action" must be exactly "create", "read", "update" or "delete".

Allowed params per combination:
- todo create: {"description": str, "due_date": str|null, "reminder_at": str|null}
- todo read: {"status": "pending"|"completed"|null, "query": str|null, "limit": int|null, "dueBefore": str|null, "dueAfter": str|null}
- todo update: {"id": int|null, "description": str|null, "status": "pending"|"completed"|null, "due_date": str|null, "query": str|null, "scope": "all"|"pending"|"completed"|null}
- todo delete: {"id": int|null, "description": str|null, "query": str|null, "scope": "all"|"pending"|"completed"|null}
- journal create: {"entry": str}
- journal read: {"limit": int|null}
- journal update: {"id": int|null, "entry": str|null, "summary": str|null, "sentiment": "positive"|"neutral"|"negative"|null}
- journal delete: {"id": int|null, "entry": str|null, "scope": "all"|null}

When the user does not provide an id for update or delete, include a text selector (description, query or entry) so the backend can resolve the item. Be conservative with ids: never invent one. Dates may be natural language ("tomorrow 9am"). If the message cannot be interpreted as any todo or journal operation, return {"actions": []}. Only output JSON, no extra text.`

// PlanActions はユーザーメッセージからアクションプランを生成する。
// LLMに到達できない場合はCollaboratorUnavailable、出力がスキーマに
// 適合しない場合は検証器のスキーマエラーを返す。
// 解釈できないメッセージは空のプランとして返る（エラーではない）。
func (p *Planner) PlanActions(ctx context.Context, message string) (*plan.Plan, error) {
	user := fmt.Sprintf("Message: %s\n\nReturn only JSON with an \"actions\" array per the schema.", message)

	content, err := p.client.ChatCompletion(ctx, planSystemPrompt, user, llm.Options{
		Temperature: 0.1,
		MaxTokens:   400,
		JSONMode:    true,
	})
	if err != nil {
		p.logger.Error("プラン生成のLLM呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCollaboratorUnavailableError()
	}

	parsed, err := plan.Parse([]byte(llm.StripFences(content)))
	if err != nil {
		p.logger.Warn("プランの検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	p.logger.Debug("プランを生成しました",
		slog.Int("action_count", len(parsed.Actions)),
	)
	return parsed, nil
}

// analyzeSystemPrompt は日誌分析のシステムプロンプト。
const analyzeSystemPrompt = `You analyze journal entries. Return a short summary (at most 2 sentences) and a sentiment label from {positive, neutral, negative}. Respond ONLY as JSON: {"summary": "...", "sentiment": "..."}.`

// AnalyzeEntry は日誌本文から感情ラベルと要約を導出する。
// LLM呼び出しや結果の検証に失敗した場合は空の結果を返す（エラーにしない）。
// 日誌の保存自体は分析の成否に依存しない。
func (p *Planner) AnalyzeEntry(ctx context.Context, entry string) (model.Sentiment, string) {
	user := fmt.Sprintf("Entry: %s", entry)

	content, err := p.client.ChatCompletion(ctx, analyzeSystemPrompt, user, llm.Options{
		Temperature: 0.2,
		MaxTokens:   120,
		JSONMode:    true,
	})
	if err != nil {
		p.logger.Warn("日誌分析のLLM呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", ""
	}

	var analysis struct {
		Summary   string `json:"summary"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &analysis); err != nil {
		p.logger.Warn("日誌分析結果のパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", ""
	}

	summary := strings.TrimSpace(analysis.Summary)
	sentiment := strings.ToLower(strings.TrimSpace(analysis.Sentiment))
	if summary == "" || !model.IsValidSentiment(sentiment) {
		p.logger.Warn("日誌分析結果が不完全なため破棄します",
			slog.String("sentiment", sentiment),
		)
		return "", ""
	}

	return model.Sentiment(sentiment), summary
}

// composeSystemPrompt はリマインド文面生成のシステムプロンプト。
const composeSystemPrompt = `You write short, friendly reminder messages for a personal assistant. Given a task and its deadline status, write ONE brief sentence reminding the user. Mention the task itself. Plain text only, no quotes, no preamble.`

// ComposeReminderMessage はタスクと期限状況から通知文面を生成する。
// LLMに頼れない場合は定型文にフォールバックし、常に空でない文面を返す。
func (p *Planner) ComposeReminderMessage(ctx context.Context, description, timeContext string) string {
	user := fmt.Sprintf("Task: %s\nDeadline status: %s", description, timeContext)

	content, err := p.client.ChatCompletion(ctx, composeSystemPrompt, user, llm.Options{
		Temperature: 0.7,
		MaxTokens:   60,
	})
	if err != nil {
		p.logger.Warn("リマインド文面の生成に失敗したため定型文を使用します",
			slog.String("error", err.Error()),
		)
		return fallbackReminderMessage(description, timeContext)
	}

	message := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if message == "" {
		return fallbackReminderMessage(description, timeContext)
	}
	return message
}

// fallbackReminderMessage はLLM不通時の定型リマインド文面。
func fallbackReminderMessage(description, timeContext string) string {
	return fmt.Sprintf("Reminder: '%s' is %s.", description, timeContext)
}
