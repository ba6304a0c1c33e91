package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/hisho/internal/conversation"
	"github.com/hitoshi/hisho/internal/dispatch"
	"github.com/hitoshi/hisho/internal/model"
)

// ConversationServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	// Handle は受信メッセージを処理して応答エンベロープを返す。
	Handle(ctx context.Context, req conversation.Request) *dispatch.Envelope
}

// MessageHandler は会話エンドポイントのHTTPハンドラー。
// ボットアダプタから転送されたメッセージを受け取り、応答エンベロープを返す。
type MessageHandler struct {
	service ConversationServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service ConversationServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// HandleMessage は受信メッセージを処理する。
// POST /api/messages
//
// 応答は正常・エラーを問わずエンベロープ（requestId + result|error）で返す。
// エラー応答のHTTPステータスはエラーコードに対応させる。
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req conversation.Request
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	env := h.service.Handle(r.Context(), req)

	status := http.StatusOK
	if env.Error != nil {
		status = mapAPIErrorToHTTPStatus(env.Error.Code)
	}
	writeJSON(w, status, env)
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
// 失敗時は統一エラーレスポンスを書き込み、エラーを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return err
	}
	return nil
}
