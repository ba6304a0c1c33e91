package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hisho/internal/model"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// ListTasks はオーナーの全タスクを作成順で返す。
	ListTasks(ctx context.Context, ownerID string) ([]*model.Task, error)
	// CreateTask はタスクを作成する。dueは自然言語の期限表現（空可）。
	// 同一説明のpendingタスクが既にある場合は既存タスクとcreated=falseを返す。
	CreateTask(ctx context.Context, ownerID, description, due string) (task *model.Task, created bool, err error)
	// CompleteTask はタスクを完了にする。
	CompleteTask(ctx context.Context, ownerID string, id int64) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
// 会話を介さない直接のタスク操作を提供する。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	OwnerID     string `json:"owner_id"`
	Description string `json:"description"`
	Due         string `json:"due,omitempty"`
}

// completeTaskRequest はタスク完了リクエストのボディ。
type completeTaskRequest struct {
	OwnerID string `json:"owner_id"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueAt       *string `json:"due_at"`
	ReminderAt  *string `json:"reminder_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// taskListResponse はタスク一覧のAPIレスポンス。
type taskListResponse struct {
	Tasks []taskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// ListTasks はオーナーのタスク一覧を返す。
// GET /api/tasks?owner_id=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("owner_idは必須です"))
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := taskListResponse{
		Tasks: make([]taskResponse, len(tasks)),
		Total: len(tasks),
	}
	for i, task := range tasks {
		resp.Tasks[i] = toTaskResponse(task)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTask はタスクを作成する。
// POST /api/tasks
//
// 同一説明のpendingタスクが既にある場合は作成せず、既存タスクを200で返す。
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	if strings.TrimSpace(req.OwnerID) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("owner_idは必須です"))
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("descriptionは必須です"))
		return
	}

	task, created, err := h.service.CreateTask(r.Context(), req.OwnerID, req.Description, req.Due)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, toTaskResponse(task))
}

// CompleteTask はタスクを完了にする。
// POST /api/tasks/{id}/complete
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("タスクIDが数値ではありません"))
		return
	}

	var req completeTaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("owner_idは必須です"))
		return
	}

	task, err := h.service.CompleteTask(r.Context(), req.OwnerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// toTaskResponse はmodel.TaskからAPIレスポンスに変換する。
func toTaskResponse(task *model.Task) taskResponse {
	resp := taskResponse{
		ID:          task.ID,
		Description: task.Description,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.DueAt != nil {
		due := task.DueAt.Format(time.RFC3339)
		resp.DueAt = &due
	}
	if task.ReminderAt != nil {
		rem := task.ReminderAt.Format(time.RFC3339)
		resp.ReminderAt = &rem
	}
	return resp
}
