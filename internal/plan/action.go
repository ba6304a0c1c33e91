// Package plan は外部コラボレータが生成したプランの検証と型付けを行う。
//
// プランは信頼できない構造化データとして届く。Parseがここで唯一の関門となり、
// 検証を通過したActionだけが実行層に渡る。エンティティ種別と操作の組は
// 閉じた集合（todo/journal × create/read/update/delete）で、
// 集合外の値は強制変換せず必ず拒否する。
package plan

import "github.com/hitoshi/hisho/internal/model"

// EntityKind は操作対象のエンティティ種別を表す。
type EntityKind string

const (
	// EntityTodo はタスクを対象とする。
	EntityTodo EntityKind = "todo"
	// EntityJournal は日誌を対象とする。
	EntityJournal EntityKind = "journal"
)

// Operation はエンティティへの操作を表す。
type Operation string

const (
	// OpCreate は新規作成。
	OpCreate Operation = "create"
	// OpRead は一覧・参照。
	OpRead Operation = "read"
	// OpUpdate は更新。
	OpUpdate Operation = "update"
	// OpDelete は削除。
	OpDelete Operation = "delete"
)

// Plan は検証済みのアクション列。空のActionsは有効（no-opプラン）。
type Plan struct {
	Actions []Action
}

// Action は検証済みの単一アクション。
type Action struct {
	Kind      EntityKind
	Operation Operation
	Params    Params
}

// Params はアクションの型付きパラメータ。
// Has系フラグは「空文字列が指定された」と「フィールドが無い」を区別する。
type Params struct {
	// Description はタスクの説明。todo createでは必須、todo updateでは
	// 新しい説明と（idが無い場合の）検索キーを兼ねる。
	Description    string
	HasDescription bool

	// Entry は日誌本文。journal createでは必須。
	Entry    string
	HasEntry bool

	// Summary は日誌要約。journal updateで更新値、id無し時は検索キー。
	Summary    string
	HasSummary bool

	// Sentiment は日誌の感情ラベル。指定時はpositive/neutral/negativeのいずれか。
	Sentiment    string
	HasSentiment bool

	// Status はタスク状態。updateでは更新値、readではフィルタ。
	Status string

	// Query はid無しターゲティング用の検索文字列。
	Query string

	// DueText / RemindText は期限・リマインド時刻の生の表現。
	// 自然言語表現のまま保持し、解釈は実行層が行う。
	DueText    string
	RemindText string

	// DueBeforeText / DueAfterText はread用の期限フィルタの生の表現。
	DueBeforeText string
	DueAfterText  string

	// Scope は一括update/deleteの対象範囲。単一対象の場合は空。
	Scope model.Scope

	// ID は明示的な対象ID。HasIDがtrueのときのみ有効。
	ID    int64
	HasID bool

	// RawID は数値に解釈できなかったid指定の原文。
	// 検証は通すが、実行層がitem単位のソフトエラーとして報告する。
	RawID string

	// Limit はread時の最大件数。0は未指定。
	Limit int
}

// HasExplicitTarget はidまたはid原文が指定されているかを返す。
func (p Params) HasExplicitTarget() bool {
	return p.HasID || p.RawID != ""
}
