package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/hisho/internal/model"
)

// Parse は信頼できないプランデータを検証し、型付きのPlanに変換する。
// 検証に失敗した場合はスキーマエラーを返し、部分的なプランは決して返さない。
// 空のactionsリストは有効（no-opプラン）として扱う。
func Parse(data []byte) (*Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, model.NewSchemaInvalidError("empty plan payload")
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, model.NewSchemaInvalidError("plan is not a JSON object")
	}

	rawActions, ok := root["actions"]
	if !ok || isJSONNull(rawActions) {
		return nil, model.NewSchemaInvalidError("actions field is missing")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawActions, &items); err != nil {
		return nil, model.NewSchemaInvalidError("actions is not a list")
	}

	p := &Plan{Actions: make([]Action, 0, len(items))}
	for i, raw := range items {
		action, err := parseAction(i, raw)
		if err != nil {
			return nil, err
		}
		p.Actions = append(p.Actions, *action)
	}

	return p, nil
}

// parseAction は単一アクションを検証する。
// (kind, operation)の組ごとに必須フィールドとターゲティング条件を検査する。
func parseAction(index int, raw json.RawMessage) (*Action, error) {
	var item map[string]any
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, schemaErrorf("actions[%d]: not an object", index)
	}

	kindStr, ok := stringValue(item["type"])
	if !ok || kindStr == "" {
		return nil, schemaErrorf("actions[%d].type: missing or not a string", index)
	}
	kind := EntityKind(strings.ToLower(kindStr))
	switch kind {
	case EntityTodo, EntityJournal:
	default:
		return nil, schemaErrorf("actions[%d].type: unknown entity kind %q", index, kindStr)
	}

	opStr, ok := stringValue(item["action"])
	if !ok || opStr == "" {
		return nil, schemaErrorf("actions[%d].action: missing or not a string", index)
	}
	op := Operation(strings.ToLower(opStr))
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
	default:
		return nil, schemaErrorf("actions[%d].action: unknown operation %q", index, opStr)
	}

	params, err := paramsMap(index, item["params"])
	if err != nil {
		return nil, err
	}

	action := &Action{Kind: kind, Operation: op}

	switch kind {
	case EntityTodo:
		err = parseTodoParams(index, op, params, &action.Params)
	case EntityJournal:
		err = parseJournalParams(index, op, params, &action.Params)
	}
	if err != nil {
		return nil, err
	}

	return action, nil
}

func parseTodoParams(index int, op Operation, params map[string]any, out *Params) error {
	var err error

	out.Description, out.HasDescription, err = stringParam(index, params, "description")
	if err != nil {
		return err
	}

	switch op {
	case OpCreate:
		if !out.HasDescription || out.Description == "" {
			return schemaErrorf("actions[%d]: description is required for todo create", index)
		}
		if err := extractDueFields(index, params, out); err != nil {
			return err
		}

	case OpRead:
		if err := extractStatus(index, params, out); err != nil {
			return err
		}
		if err := extractQuery(index, params, out, "query", "title"); err != nil {
			return err
		}
		// readでは説明文も検索キーとして使われる
		if out.Query == "" && out.HasDescription {
			out.Query = out.Description
		}
		var ferr error
		out.DueBeforeText, ferr = textishParam(index, params, "dueBefore", "due_before")
		if ferr != nil {
			return ferr
		}
		out.DueAfterText, ferr = textishParam(index, params, "dueAfter", "due_after")
		if ferr != nil {
			return ferr
		}
		out.Limit = limitParam(params)

	case OpUpdate:
		if err := extractScope(index, params, out, model.ScopeAll, model.ScopePending, model.ScopeCompleted); err != nil {
			return err
		}
		if err := extractStatus(index, params, out); err != nil {
			return err
		}
		if err := extractID(index, params, out); err != nil {
			return err
		}
		if err := extractQuery(index, params, out, "query", "title"); err != nil {
			return err
		}
		if err := extractDueFields(index, params, out); err != nil {
			return err
		}
		if !out.HasExplicitTarget() && out.Description == "" && out.Query == "" && out.Scope == "" {
			return schemaErrorf("actions[%d]: todo update requires an id, a matching description, or a scope", index)
		}

	case OpDelete:
		if err := extractScope(index, params, out, model.ScopeAll, model.ScopePending, model.ScopeCompleted); err != nil {
			return err
		}
		if err := extractID(index, params, out); err != nil {
			return err
		}
		if err := extractQuery(index, params, out, "query", "title"); err != nil {
			return err
		}
		if !out.HasExplicitTarget() && out.Description == "" && out.Query == "" && out.Scope == "" {
			return schemaErrorf("actions[%d]: todo delete requires an id, a matching description, or a scope", index)
		}
	}

	return nil
}

func parseJournalParams(index int, op Operation, params map[string]any, out *Params) error {
	var err error

	out.Entry, out.HasEntry, err = stringParam(index, params, "entry")
	if err != nil {
		return err
	}
	out.Summary, out.HasSummary, err = stringParam(index, params, "summary")
	if err != nil {
		return err
	}

	switch op {
	case OpCreate:
		if !out.HasEntry || out.Entry == "" {
			return schemaErrorf("actions[%d]: entry is required for journal create", index)
		}

	case OpRead:
		out.Limit = limitParam(params)

	case OpUpdate:
		if _, present := params["scope"]; present {
			return schemaErrorf("actions[%d]: scope is not supported for journal update", index)
		}
		if err := extractSentiment(index, params, out); err != nil {
			return err
		}
		if err := extractID(index, params, out); err != nil {
			return err
		}
		if !out.HasExplicitTarget() && out.Entry == "" && out.Summary == "" {
			return schemaErrorf("actions[%d]: journal update requires an id or matching entry text", index)
		}

	case OpDelete:
		// 日誌の一括削除はallのみ。pending/completedは日誌には存在しない概念。
		if err := extractScope(index, params, out, model.ScopeAll); err != nil {
			return err
		}
		if err := extractID(index, params, out); err != nil {
			return err
		}
		if !out.HasExplicitTarget() && out.Entry == "" && out.Summary == "" && out.Scope == "" {
			return schemaErrorf("actions[%d]: journal delete requires an id, matching entry text, or scope \"all\"", index)
		}
	}

	return nil
}

// ============================================================
// フィールド抽出ヘルパー
// ============================================================

func schemaErrorf(format string, args ...any) error {
	return model.NewSchemaInvalidError(fmt.Sprintf(format, args...))
}

// isJSONNull はraw JSONがnullリテラルかを返す。
func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// stringValue はany値から文字列を取り出す。nilと非文字列はfalse。
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// paramsMap はparamsフィールドをmapとして取り出す。
// 欠落はパラメータなしとして空mapを返し、オブジェクト以外は拒否する。
func paramsMap(index int, v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, schemaErrorf("actions[%d].params: not an object", index)
	}
	return m, nil
}

// stringParam は既知の文字列フィールドを取り出す。
// 欠落・nullはpresent=false。文字列以外の型は不正として拒否する。
func stringParam(index int, params map[string]any, key string) (string, bool, error) {
	v, present := params[key]
	if !present || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, schemaErrorf("actions[%d].params.%s: not a string", index, key)
	}
	return strings.TrimSpace(s), true, nil
}

// extractID はidフィールドを解釈する。
// JSON数値は整数のみ許可。数値文字列は数値として受理し、
// 数値に解釈できない文字列はRawIDに保持して実行層の判断に委ねる。
func extractID(index int, params map[string]any, out *Params) error {
	v, present := params["id"]
	if !present || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return schemaErrorf("actions[%d].params.id: not an integer", index)
		}
		out.ID = int64(n)
		out.HasID = true
		return nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			out.ID = parsed
			out.HasID = true
			return nil
		}
		out.RawID = s
		return nil
	default:
		return schemaErrorf("actions[%d].params.id: malformed", index)
	}
}

// extractStatus はstatusフィールドを検証して取り出す。
func extractStatus(index int, params map[string]any, out *Params) error {
	v, present := params["status"]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return schemaErrorf("actions[%d].params.status: not a string", index)
	}
	status := strings.ToLower(strings.TrimSpace(s))
	if status == "" {
		return nil
	}
	if !model.IsValidTaskStatus(status) {
		return schemaErrorf("actions[%d].params.status: unknown status %q", index, s)
	}
	out.Status = status
	return nil
}

// extractSentiment はsentimentフィールドを検証して取り出す。
func extractSentiment(index int, params map[string]any, out *Params) error {
	v, present := params["sentiment"]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return schemaErrorf("actions[%d].params.sentiment: not a string", index)
	}
	label := strings.ToLower(strings.TrimSpace(s))
	if label == "" {
		return nil
	}
	if !model.IsValidSentiment(label) {
		return schemaErrorf("actions[%d].params.sentiment: unknown sentiment %q", index, s)
	}
	out.Sentiment = label
	out.HasSentiment = true
	return nil
}

// extractScope はscopeフィールドを検証して取り出す。
// allowedで許可される値を制限する（日誌はallのみ）。
func extractScope(index int, params map[string]any, out *Params, allowed ...model.Scope) error {
	v, present := params["scope"]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return schemaErrorf("actions[%d].params.scope: not a string", index)
	}
	scope := model.Scope(strings.ToLower(strings.TrimSpace(s)))
	if scope == "" {
		return nil
	}
	for _, a := range allowed {
		if scope == a {
			out.Scope = scope
			return nil
		}
	}
	return schemaErrorf("actions[%d].params.scope: unknown scope %q", index, s)
}

// extractQuery は検索キーとなるフィールドを優先順で取り出す。
func extractQuery(index int, params map[string]any, out *Params, keys ...string) error {
	for _, key := range keys {
		v, present := params[key]
		if !present || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return schemaErrorf("actions[%d].params.%s: not a string", index, key)
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out.Query = trimmed
			return nil
		}
	}
	return nil
}

// extractDueFields は期限・リマインド時刻の生の表現を取り出す。
func extractDueFields(index int, params map[string]any, out *Params) error {
	var err error
	out.DueText, err = textishParam(index, params, "due_date", "due", "due_at")
	if err != nil {
		return err
	}
	out.RemindText, err = textishParam(index, params, "reminder_at", "remind_at", "reminder")
	return err
}

// textishParam は文字列または数値（エポック秒）のフィールドを
// 生のテキストとして取り出す。解釈は実行層のParseDateTimeに委ねる。
// 文字列・数値以外の型は表現できないため無視する（エラーにはしない）。
func textishParam(index int, params map[string]any, keys ...string) (string, error) {
	for _, key := range keys {
		v, present := params[key]
		if !present || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				return trimmed, nil
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		}
	}
	return "", nil
}

// limitParam はlimitフィールドを取り出す。
// 正の整数または数字のみの文字列を受理し、それ以外は未指定として無視する。
func limitParam(params map[string]any) int {
	v, present := params["limit"]
	if !present || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		if n > 0 && n == math.Trunc(n) {
			return int(n)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
