package plan

import (
	"errors"
	"testing"

	"github.com/hitoshi/hisho/internal/model"
)

// requireSchemaError はスキーマエラーが返ることを検証するヘルパー。
func requireSchemaError(t *testing.T, data string) *model.APIError {
	t.Helper()
	p, err := Parse([]byte(data))
	if err == nil {
		t.Fatalf("スキーマエラーが期待されるが成功した: %+v", p)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが期待されるが %T が返った: %v", err, err)
	}
	if apiErr.Code != model.ErrCodeSchemaInvalid {
		t.Errorf("期待コード: %s, 結果: %s", model.ErrCodeSchemaInvalid, apiErr.Code)
	}
	return apiErr
}

// requireValid はプランが検証を通過することを検証するヘルパー。
func requireValid(t *testing.T, data string) *Plan {
	t.Helper()
	p, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("検証を通過するべきプランが拒否された: %v", err)
	}
	return p
}

// --- ルート構造のテスト ---

// TestParse_EmptyActions は空のアクションリストが有効なno-opプランになることをテストする。
func TestParse_EmptyActions(t *testing.T) {
	p := requireValid(t, `{"actions": []}`)
	if len(p.Actions) != 0 {
		t.Errorf("期待: 0アクション, 結果: %d", len(p.Actions))
	}
}

// TestParse_MissingActions はactionsフィールドの欠落が拒否されることをテストする。
func TestParse_MissingActions(t *testing.T) {
	requireSchemaError(t, `{}`)
}

// TestParse_NullActions はactionsがnullの場合に拒否されることをテストする。
func TestParse_NullActions(t *testing.T) {
	requireSchemaError(t, `{"actions": null}`)
}

// TestParse_ActionsNotList はactionsがリストでない場合に拒否されることをテストする。
func TestParse_ActionsNotList(t *testing.T) {
	requireSchemaError(t, `{"actions": {"type": "todo"}}`)
}

// TestParse_NotJSON はJSONとして不正な入力が拒否されることをテストする。
func TestParse_NotJSON(t *testing.T) {
	requireSchemaError(t, `not json at all`)
}

// TestParse_EmptyPayload は空入力が拒否されることをテストする。
func TestParse_EmptyPayload(t *testing.T) {
	requireSchemaError(t, ``)
}

// TestParse_ActionNotObject はアクション要素がオブジェクトでない場合に拒否されることをテストする。
func TestParse_ActionNotObject(t *testing.T) {
	requireSchemaError(t, `{"actions": ["todo.create"]}`)
}

// --- 種別・操作のテスト ---

// TestParse_UnknownEntityKind は未知のエンティティ種別がプラン全体を拒否することをテストする。
func TestParse_UnknownEntityKind(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "note", "action": "create", "params": {"description": "x"}}]}`)
}

// TestParse_UnknownOperation は未知の操作がプラン全体を拒否することをテストする。
func TestParse_UnknownOperation(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "archive", "params": {"id": 1}}]}`)
}

// TestParse_MissingType はtype欠落が拒否されることをテストする。
func TestParse_MissingType(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"action": "create", "params": {"description": "x"}}]}`)
}

// TestParse_MissingAction はaction欠落が拒否されることをテストする。
func TestParse_MissingAction(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "params": {"description": "x"}}]}`)
}

// TestParse_TypeCaseInsensitive は種別・操作が大文字小文字を区別しないことをテストする。
func TestParse_TypeCaseInsensitive(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "Todo", "action": "CREATE", "params": {"description": "milk"}}]}`)
	if p.Actions[0].Kind != EntityTodo {
		t.Errorf("期待種別: todo, 結果: %s", p.Actions[0].Kind)
	}
	if p.Actions[0].Operation != OpCreate {
		t.Errorf("期待操作: create, 結果: %s", p.Actions[0].Operation)
	}
}

// TestParse_UnknownTypeNotCoerced は似て非なる種別が強制変換されず拒否されることをテストする。
func TestParse_UnknownTypeNotCoerced(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todos", "action": "create", "params": {"description": "x"}}]}`)
	requireSchemaError(t, `{"actions": [{"type": "task", "action": "create", "params": {"description": "x"}}]}`)
	requireSchemaError(t, `{"actions": [{"type": "unknown", "action": "create", "params": {}}]}`)
}

// TestParse_SecondActionInvalid は後続アクションの不正がプラン全体を拒否することをテストする。
func TestParse_SecondActionInvalid(t *testing.T) {
	requireSchemaError(t, `{"actions": [
		{"type": "todo", "action": "create", "params": {"description": "valid"}},
		{"type": "todo", "action": "explode", "params": {}}
	]}`)
}

// TestParse_ParamsNotObject はparamsがオブジェクトでない場合に拒否されることをテストする。
func TestParse_ParamsNotObject(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "read", "params": "all"}]}`)
}

// TestParse_ParamsOmitted はparams省略がtodo readでは許容されることをテストする。
func TestParse_ParamsOmitted(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "read"}]}`)
	if p.Actions[0].Operation != OpRead {
		t.Errorf("期待操作: read, 結果: %s", p.Actions[0].Operation)
	}
}

// --- todo createのテスト ---

// TestParse_TodoCreate は基本的なタスク作成プランが通ることをテストする。
func TestParse_TodoCreate(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": "buy milk", "due_date": "2026-09-01"}}]}`)
	a := p.Actions[0]
	if a.Params.Description != "buy milk" {
		t.Errorf("期待説明: buy milk, 結果: %s", a.Params.Description)
	}
	if a.Params.DueText != "2026-09-01" {
		t.Errorf("期待期限テキスト: 2026-09-01, 結果: %s", a.Params.DueText)
	}
}

// TestParse_TodoCreate_MissingDescription は説明なしのタスク作成が拒否されることをテストする。
func TestParse_TodoCreate_MissingDescription(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "create", "params": {}}]}`)
}

// TestParse_TodoCreate_EmptyDescription は空文字列の説明が拒否されることをテストする。
func TestParse_TodoCreate_EmptyDescription(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": "   "}}]}`)
}

// TestParse_TodoCreate_DescriptionNotString は説明が文字列以外の場合に拒否されることをテストする。
func TestParse_TodoCreate_DescriptionNotString(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": 42}}]}`)
}

// TestParse_TodoCreate_DueAliases は期限フィールドの別名が受理されることをテストする。
func TestParse_TodoCreate_DueAliases(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": "x", "due": "tomorrow"}}]}`)
	if p.Actions[0].Params.DueText != "tomorrow" {
		t.Errorf("期待期限テキスト: tomorrow, 結果: %s", p.Actions[0].Params.DueText)
	}

	p = requireValid(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": "x", "remind_at": "in 2 hours"}}]}`)
	if p.Actions[0].Params.RemindText != "in 2 hours" {
		t.Errorf("期待リマインドテキスト: in 2 hours, 結果: %s", p.Actions[0].Params.RemindText)
	}
}

// TestParse_TodoCreate_DueEpochNumber は期限が数値（エポック秒）でも受理されることをテストする。
func TestParse_TodoCreate_DueEpochNumber(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "create", "params": {"description": "x", "due_date": 1767225600}}]}`)
	if p.Actions[0].Params.DueText != "1767225600" {
		t.Errorf("期待期限テキスト: 1767225600, 結果: %s", p.Actions[0].Params.DueText)
	}
}

// --- todo read のテスト ---

// TestParse_TodoRead_Filters はreadのフィルタ群が取り出されることをテストする。
func TestParse_TodoRead_Filters(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "read", "params": {
		"status": "completed", "query": "report", "limit": 5,
		"dueBefore": "next friday", "due_after": "today"
	}}]}`)
	params := p.Actions[0].Params
	if params.Status != "completed" {
		t.Errorf("期待ステータス: completed, 結果: %s", params.Status)
	}
	if params.Query != "report" {
		t.Errorf("期待クエリ: report, 結果: %s", params.Query)
	}
	if params.Limit != 5 {
		t.Errorf("期待リミット: 5, 結果: %d", params.Limit)
	}
	if params.DueBeforeText != "next friday" {
		t.Errorf("期待dueBefore: next friday, 結果: %s", params.DueBeforeText)
	}
	if params.DueAfterText != "today" {
		t.Errorf("期待dueAfter: today, 結果: %s", params.DueAfterText)
	}
}

// TestParse_TodoRead_InvalidStatus は未知のステータスフィルタが拒否されることをテストする。
func TestParse_TodoRead_InvalidStatus(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "read", "params": {"status": "done"}}]}`)
}

// TestParse_TodoRead_StatusCaseInsensitive はステータスが大文字でも受理されることをテストする。
func TestParse_TodoRead_StatusCaseInsensitive(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "read", "params": {"status": "PENDING"}}]}`)
	if p.Actions[0].Params.Status != "pending" {
		t.Errorf("期待ステータス: pending, 結果: %s", p.Actions[0].Params.Status)
	}
}

// TestParse_TodoRead_DescriptionAsQuery はreadで説明文が検索キーに転用されることをテストする。
func TestParse_TodoRead_DescriptionAsQuery(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "read", "params": {"description": "groceries"}}]}`)
	if p.Actions[0].Params.Query != "groceries" {
		t.Errorf("期待クエリ: groceries, 結果: %s", p.Actions[0].Params.Query)
	}
}

// TestParse_TodoRead_LimitIgnoredWhenInvalid は不正なlimitが未指定として無視されることをテストする。
func TestParse_TodoRead_LimitIgnoredWhenInvalid(t *testing.T) {
	for _, data := range []string{
		`{"actions": [{"type": "todo", "action": "read", "params": {"limit": -3}}]}`,
		`{"actions": [{"type": "todo", "action": "read", "params": {"limit": 2.5}}]}`,
		`{"actions": [{"type": "todo", "action": "read", "params": {"limit": "many"}}]}`,
		`{"actions": [{"type": "todo", "action": "read", "params": {"limit": 0}}]}`,
	} {
		p := requireValid(t, data)
		if p.Actions[0].Params.Limit != 0 {
			t.Errorf("不正なlimitは無視されるべき: %s → %d", data, p.Actions[0].Params.Limit)
		}
	}
}

// TestParse_TodoRead_LimitNumericString は数字文字列のlimitが受理されることをテストする。
func TestParse_TodoRead_LimitNumericString(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "read", "params": {"limit": "7"}}]}`)
	if p.Actions[0].Params.Limit != 7 {
		t.Errorf("期待リミット: 7, 結果: %d", p.Actions[0].Params.Limit)
	}
}

// --- todo update のテスト ---

// TestParse_TodoUpdate_ByID はID指定の更新が通ることをテストする。
func TestParse_TodoUpdate_ByID(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"id": 12, "status": "completed"}}]}`)
	params := p.Actions[0].Params
	if !params.HasID || params.ID != 12 {
		t.Errorf("期待ID: 12, 結果: HasID=%v ID=%d", params.HasID, params.ID)
	}
	if params.Status != "completed" {
		t.Errorf("期待ステータス: completed, 結果: %s", params.Status)
	}
}

// TestParse_TodoUpdate_ByQuery はクエリ指定の更新が通ることをテストする。
func TestParse_TodoUpdate_ByQuery(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"query": "milk", "status": "completed"}}]}`)
	if p.Actions[0].Params.Query != "milk" {
		t.Errorf("期待クエリ: milk, 結果: %s", p.Actions[0].Params.Query)
	}
}

// TestParse_TodoUpdate_TitleFallsBackToQuery はtitleがクエリとして扱われることをテストする。
func TestParse_TodoUpdate_TitleFallsBackToQuery(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"title": "report", "status": "completed"}}]}`)
	if p.Actions[0].Params.Query != "report" {
		t.Errorf("期待クエリ: report, 結果: %s", p.Actions[0].Params.Query)
	}
}

// TestParse_TodoUpdate_QueryTakesPrecedenceOverTitle はqueryとtitle併記時にqueryが優先されることをテストする。
func TestParse_TodoUpdate_QueryTakesPrecedenceOverTitle(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"query": "q", "title": "t", "status": "completed"}}]}`)
	if p.Actions[0].Params.Query != "q" {
		t.Errorf("期待クエリ: q, 結果: %s", p.Actions[0].Params.Query)
	}
}

// TestParse_TodoUpdate_ByScope はスコープ指定の一括更新が通ることをテストする。
func TestParse_TodoUpdate_ByScope(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"scope": "all", "status": "completed"}}]}`)
	if p.Actions[0].Params.Scope != model.ScopeAll {
		t.Errorf("期待スコープ: all, 結果: %s", p.Actions[0].Params.Scope)
	}
}

// TestParse_TodoUpdate_NoTarget は対象指定なしの更新が拒否されることをテストする。
func TestParse_TodoUpdate_NoTarget(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "update", "params": {"status": "completed"}}]}`)
}

// TestParse_TodoUpdate_EmptyDescriptionNotATarget は空の説明が対象指定に数えられないことをテストする。
func TestParse_TodoUpdate_EmptyDescriptionNotATarget(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "update", "params": {"description": "", "status": "completed"}}]}`)
}

// TestParse_TodoUpdate_MissingStatusPassesValidation はstatusなしの一括更新が検証を通過することをテストする。
// statusの要否は実行層がitem単位のソフトエラーとして扱う。
func TestParse_TodoUpdate_MissingStatusPassesValidation(t *testing.T) {
	requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"scope": "all"}}]}`)
}

// TestParse_TodoUpdate_InvalidScope は未知のスコープが拒否されることをテストする。
func TestParse_TodoUpdate_InvalidScope(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "update", "params": {"scope": "everything", "status": "completed"}}]}`)
}

// --- id解釈のテスト ---

// TestParse_ID_NumericString は数値文字列のidが数値として受理されることをテストする。
func TestParse_ID_NumericString(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "update", "params": {"id": "42", "status": "completed"}}]}`)
	params := p.Actions[0].Params
	if !params.HasID || params.ID != 42 {
		t.Errorf("期待ID: 42, 結果: HasID=%v ID=%d", params.HasID, params.ID)
	}
	if params.RawID != "" {
		t.Errorf("RawIDは空であるべき, 結果: %s", params.RawID)
	}
}

// TestParse_ID_NonNumericString は数値でないidが検証を通過しRawIDに保持されることをテストする。
// item単位のソフトエラーとして実行層が報告する契約のため、ここでは拒否しない。
func TestParse_ID_NonNumericString(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "delete", "params": {"id": "abc"}}]}`)
	params := p.Actions[0].Params
	if params.HasID {
		t.Error("数値でないidはHasIDにならないべき")
	}
	if params.RawID != "abc" {
		t.Errorf("期待RawID: abc, 結果: %s", params.RawID)
	}
	if !params.HasExplicitTarget() {
		t.Error("RawIDは明示的な対象指定として数えられるべき")
	}
}

// TestParse_ID_FractionalNumber は小数のidが拒否されることをテストする。
func TestParse_ID_FractionalNumber(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "update", "params": {"id": 1.5, "status": "completed"}}]}`)
}

// TestParse_ID_Boolean は真偽値のidが拒否されることをテストする。
func TestParse_ID_Boolean(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "delete", "params": {"id": true}}]}`)
}

// TestParse_ID_IntegralFloat は整数値のJSON数値が受理されることをテストする。
func TestParse_ID_IntegralFloat(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "delete", "params": {"id": 7.0}}]}`)
	params := p.Actions[0].Params
	if !params.HasID || params.ID != 7 {
		t.Errorf("期待ID: 7, 結果: HasID=%v ID=%d", params.HasID, params.ID)
	}
}

// --- todo delete のテスト ---

// TestParse_TodoDelete_ByDescription は説明文指定の削除が通ることをテストする。
func TestParse_TodoDelete_ByDescription(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "todo", "action": "delete", "params": {"description": "old task"}}]}`)
	if p.Actions[0].Params.Description != "old task" {
		t.Errorf("期待説明: old task, 結果: %s", p.Actions[0].Params.Description)
	}
}

// TestParse_TodoDelete_ByScope はスコープ指定の一括削除が通ることをテストする。
func TestParse_TodoDelete_ByScope(t *testing.T) {
	for _, scope := range []string{"all", "pending", "completed"} {
		p := requireValid(t, `{"actions": [{"type": "todo", "action": "delete", "params": {"scope": "`+scope+`"}}]}`)
		if string(p.Actions[0].Params.Scope) != scope {
			t.Errorf("期待スコープ: %s, 結果: %s", scope, p.Actions[0].Params.Scope)
		}
	}
}

// TestParse_TodoDelete_NoTarget は対象指定なしの削除が拒否されることをテストする。
func TestParse_TodoDelete_NoTarget(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "todo", "action": "delete", "params": {}}]}`)
}

// --- journal のテスト ---

// TestParse_JournalCreate は基本的な日誌作成プランが通ることをテストする。
func TestParse_JournalCreate(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "journal", "action": "create", "params": {"entry": "today was good", "summary": "good day", "sentiment": "positive"}}]}`)
	params := p.Actions[0].Params
	if params.Entry != "today was good" {
		t.Errorf("期待本文: today was good, 結果: %s", params.Entry)
	}
	if params.Summary != "good day" {
		t.Errorf("期待要約: good day, 結果: %s", params.Summary)
	}
}

// TestParse_JournalCreate_MissingEntry は本文なしの日誌作成が拒否されることをテストする。
func TestParse_JournalCreate_MissingEntry(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "create", "params": {"summary": "no body"}}]}`)
}

// TestParse_JournalUpdate_InvalidSentiment は未知の感情ラベルが拒否されることをテストする。
func TestParse_JournalUpdate_InvalidSentiment(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "update", "params": {"id": 1, "sentiment": "ecstatic"}}]}`)
}

// TestParse_JournalUpdate_SentimentCaseInsensitive は感情ラベルが大文字でも受理されることをテストする。
func TestParse_JournalUpdate_SentimentCaseInsensitive(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "journal", "action": "update", "params": {"id": 1, "sentiment": "Negative"}}]}`)
	params := p.Actions[0].Params
	if !params.HasSentiment || params.Sentiment != "negative" {
		t.Errorf("期待感情: negative, 結果: %s", params.Sentiment)
	}
}

// TestParse_JournalUpdate_ScopeForbidden は日誌更新でのscope指定が拒否されることをテストする。
func TestParse_JournalUpdate_ScopeForbidden(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "update", "params": {"scope": "all", "sentiment": "positive"}}]}`)
}

// TestParse_JournalUpdate_NoTarget は対象指定なしの日誌更新が拒否されることをテストする。
func TestParse_JournalUpdate_NoTarget(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "update", "params": {"sentiment": "positive"}}]}`)
}

// TestParse_JournalUpdate_ByEntryText は本文指定の日誌更新が通ることをテストする。
func TestParse_JournalUpdate_ByEntryText(t *testing.T) {
	requireValid(t, `{"actions": [{"type": "journal", "action": "update", "params": {"entry": "rewrite to this"}}]}`)
}

// TestParse_JournalDelete_ScopeAllOnly は日誌削除のscopeがallのみ許可されることをテストする。
func TestParse_JournalDelete_ScopeAllOnly(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "journal", "action": "delete", "params": {"scope": "all"}}]}`)
	if p.Actions[0].Params.Scope != model.ScopeAll {
		t.Errorf("期待スコープ: all, 結果: %s", p.Actions[0].Params.Scope)
	}
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "delete", "params": {"scope": "pending"}}]}`)
}

// TestParse_JournalDelete_NoTarget は対象指定なしの日誌削除が拒否されることをテストする。
func TestParse_JournalDelete_NoTarget(t *testing.T) {
	requireSchemaError(t, `{"actions": [{"type": "journal", "action": "delete", "params": {}}]}`)
}

// TestParse_JournalRead_Limit は日誌readのlimitが取り出されることをテストする。
func TestParse_JournalRead_Limit(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "journal", "action": "read", "params": {"limit": 3}}]}`)
	if p.Actions[0].Params.Limit != 3 {
		t.Errorf("期待リミット: 3, 結果: %d", p.Actions[0].Params.Limit)
	}
}

// --- 複合プランのテスト ---

// TestParse_MultipleActions は複数アクションのプランが順序を保って検証されることをテストする。
func TestParse_MultipleActions(t *testing.T) {
	p := requireValid(t, `{"actions": [
		{"type": "todo", "action": "create", "params": {"description": "first"}},
		{"type": "journal", "action": "create", "params": {"entry": "second"}},
		{"type": "todo", "action": "read", "params": {}}
	]}`)
	if len(p.Actions) != 3 {
		t.Fatalf("期待: 3アクション, 結果: %d", len(p.Actions))
	}
	if p.Actions[0].Kind != EntityTodo || p.Actions[0].Operation != OpCreate {
		t.Errorf("actions[0]が期待と異なる: %+v", p.Actions[0])
	}
	if p.Actions[1].Kind != EntityJournal || p.Actions[1].Operation != OpCreate {
		t.Errorf("actions[1]が期待と異なる: %+v", p.Actions[1])
	}
	if p.Actions[2].Operation != OpRead {
		t.Errorf("actions[2]が期待と異なる: %+v", p.Actions[2])
	}
}

// TestParse_WhitespaceTrimmed は文字列フィールドの前後空白が除去されることをテストする。
func TestParse_WhitespaceTrimmed(t *testing.T) {
	p := requireValid(t, `{"actions": [{"type": "  todo  ", "action": " create ", "params": {"description": "  spaced out  "}}]}`)
	if p.Actions[0].Params.Description != "spaced out" {
		t.Errorf("期待説明: spaced out, 結果: %q", p.Actions[0].Params.Description)
	}
}
