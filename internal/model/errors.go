// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, task, journal, delivery, external, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSchemaInvalid           = "SCHEMA_INVALID"
	ErrCodeTaskNotFound            = "TASK_NOT_FOUND"
	ErrCodeJournalNotFound         = "JOURNAL_NOT_FOUND"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeEmptyMessage            = "EMPTY_MESSAGE"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeInvalidURL              = "INVALID_URL"
	ErrCodeSSRFBlocked             = "SSRF_BLOCKED"
	ErrCodeDeliveryFailed          = "DELIVERY_FAILED"
	ErrCodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
)

// NewSchemaInvalidError はプラン検証失敗エラーを生成する。
// detailには不正な項目と理由を含める。
func NewSchemaInvalidError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeSchemaInvalid,
		Message:  fmt.Sprintf("アクションプランの形式が不正です: %s", detail),
		Category: "validation",
		Action:   "メッセージの言い回しを変えて、もう一度お試しください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", ref),
		Category: "task",
		Action:   "タスク一覧を表示して、IDまたは内容を確認してください。",
	}
}

// NewJournalNotFoundError はジャーナル未検出エラーを生成する。
func NewJournalNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeJournalNotFound,
		Message:  fmt.Sprintf("指定されたジャーナルが見つかりません: %s", ref),
		Category: "journal",
		Action:   "ジャーナル一覧を表示して、IDまたは内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(ownerID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", ownerID),
		Category: "validation",
		Action:   "owner_idを確認してください。",
	}
}

// NewEmptyMessageError は空メッセージエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージが空です。",
		Category: "validation",
		Action:   "タスクやジャーナルの内容を送信してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディのJSON形式と必須フィールドを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebhookのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewDeliveryFailedError はプッシュ配信失敗エラーを生成する。
func NewDeliveryFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeDeliveryFailed,
		Message:  fmt.Sprintf("通知の配信に失敗しました: %s", reason),
		Category: "delivery",
		Action:   "コールバックURLが到達可能か確認してください。",
	}
}

// NewCollaboratorUnavailableError はLLM連携失敗エラーを生成する。
func NewCollaboratorUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCollaboratorUnavailable,
		Message:  "メッセージの解析サービスが一時的に利用できません。",
		Category: "external",
		Action:   "しばらく待ってから、もう一度お試しください。",
	}
}
