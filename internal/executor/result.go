package executor

// Result は一連のアクション実行の結果をまとめたもの。
// Messageはそのままユーザーに提示できる応答文で、ExecutedとErrorsは
// 配信メタデータに載せる監査用の記録。
type Result struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Executed []ExecutedAction `json:"executed"`
	Errors   []ActionError    `json:"errors,omitempty"`
	// TaskListは読み取りアクションが実行された場合のみ非nilになる。
	// 0件の読み取りでも空スライスを指し、読み取り自体がなかった場合と区別する。
	TaskList *[]TaskSnapshot `json:"task_list,omitempty"`
}

// ExecutedAction は成功したアクション1件の記録。
// Typeは "todo.create" のようにエンティティと操作をドット区切りで表し、
// 重複検出や一括操作では ".duplicate" ".bulk" の接尾辞が付く。
type ExecutedAction struct {
	Type        string `json:"type"`
	TaskID      int64  `json:"task_id,omitempty"`
	JournalID   int64  `json:"journal_id,omitempty"`
	Description string `json:"description,omitempty"`
	Count       *int64 `json:"count,omitempty"`
	Total       *int   `json:"total,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// ActionError は実行を中断させなかったアクション単位の失敗の記録。
type ActionError struct {
	Type      string `json:"type"`
	Action    string `json:"action,omitempty"`
	Reason    string `json:"reason"`
	Query     string `json:"query,omitempty"`
	TaskID    int64  `json:"task_id,omitempty"`
	JournalID int64  `json:"journal_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TaskSnapshot は読み取り結果として外部に渡すタスクの射影。
type TaskSnapshot struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at"`
}

const (
	reasonMissingStatus      = "missing_status"
	reasonNotFound           = "not_found"
	reasonInvalidID          = "invalid_id"
	reasonExecutionException = "execution_exception"
)

func int64Ptr(n int64) *int64 { return &n }

func intPtr(n int) *int { return &n }
