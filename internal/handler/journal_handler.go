package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/hisho/internal/model"
)

// JournalServiceInterface はジャーナルハンドラーが必要とするサービスインターフェース。
type JournalServiceInterface interface {
	// ListJournals はオーナーの日誌一覧を新しい順で最大limit件返す。
	ListJournals(ctx context.Context, ownerID string, limit int) ([]*model.Journal, error)
	// CreateJournal は日誌エントリを作成する。要約と感情の付与を含む。
	CreateJournal(ctx context.Context, ownerID, entry string) (*model.Journal, error)
}

// JournalHandler はジャーナル管理のHTTPハンドラー。
type JournalHandler struct {
	service JournalServiceInterface
}

// NewJournalHandler はJournalHandlerを生成する。
func NewJournalHandler(service JournalServiceInterface) *JournalHandler {
	return &JournalHandler{service: service}
}

// createJournalRequest は日誌作成リクエストのボディ。
type createJournalRequest struct {
	OwnerID string `json:"owner_id"`
	Entry   string `json:"entry"`
}

// journalResponse は日誌情報のAPIレスポンス。
type journalResponse struct {
	ID        int64  `json:"id"`
	Entry     string `json:"entry"`
	Summary   string `json:"summary,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
	CreatedAt string `json:"created_at"`
}

// journalListResponse は日誌一覧のAPIレスポンス。
type journalListResponse struct {
	Journals []journalResponse `json:"journals"`
	Total    int               `json:"total"`
}

// ListJournals はオーナーの日誌一覧を返す。
// GET /api/journals?owner_id=&limit=
func (h *JournalHandler) ListJournals(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("owner_idは必須です"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limitは0以上の数値で指定してください"))
			return
		}
		limit = n
	}

	journals, err := h.service.ListJournals(r.Context(), ownerID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := journalListResponse{
		Journals: make([]journalResponse, len(journals)),
		Total:    len(journals),
	}
	for i, j := range journals {
		resp.Journals[i] = toJournalResponse(j)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateJournal は日誌エントリを作成する。
// POST /api/journals
func (h *JournalHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	if strings.TrimSpace(req.OwnerID) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("owner_idは必須です"))
		return
	}
	if strings.TrimSpace(req.Entry) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("entryは必須です"))
		return
	}

	journal, err := h.service.CreateJournal(r.Context(), req.OwnerID, req.Entry)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toJournalResponse(journal))
}

// toJournalResponse はmodel.JournalからAPIレスポンスに変換する。
func toJournalResponse(j *model.Journal) journalResponse {
	return journalResponse{
		ID:        j.ID,
		Entry:     j.Entry,
		Summary:   j.Summary,
		Sentiment: string(j.Sentiment),
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
}
