// Package conversation は受信メッセージの会話処理を提供する。
// プラン生成・検証・実行をつないで最終応答を組み立て、
// リクエスト相関（requestIdの往復）と同期／非同期の応答経路を司る。
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hisho/internal/dispatch"
	"github.com/hitoshi/hisho/internal/executor"
	"github.com/hitoshi/hisho/internal/metrics"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/plan"
	"github.com/hitoshi/hisho/internal/security"
)

// unknownMessageReply は解釈できないメッセージへの定型応答。
const unknownMessageReply = "I can help with tasks and journal entries. Try \"add buy milk to my todo list\" or \"journal: today went well\"."

// Request は会話エンドポイントへの受信リクエスト。
type Request struct {
	RequestID     string `json:"requestId"`
	OwnerID       string `json:"ownerId"`
	Text          string `json:"text"`
	CallbackURL   string `json:"callbackUrl,omitempty"`
	CallbackToken string `json:"callbackToken,omitempty"`
}

// PlanProducer はメッセージからアクションプランを生成するインターフェース。
type PlanProducer interface {
	PlanActions(ctx context.Context, message string) (*plan.Plan, error)
}

// PlanExecutor は検証済みプランを実行するインターフェース。
type PlanExecutor interface {
	Execute(ctx context.Context, userID string, p *plan.Plan) *executor.Result
}

// UserRegistrar はオーナー行の用意とプッシュ配信先の登録インターフェース。
type UserRegistrar interface {
	EnsureUser(ctx context.Context, ownerID string) (*model.User, error)
	RegisterPushDestination(ctx context.Context, ownerID, pushURL, pushToken string) (*model.User, error)
}

// AsyncDeliverer は最終応答の非同期配信インターフェース。
type AsyncDeliverer interface {
	Deliver(dest dispatch.Destination, env *dispatch.Envelope, done func(error)) bool
}

// Config はServiceの動作設定。
type Config struct {
	// PreviewTimeout は非同期経路のプレビュー用プラン生成に割く時間。
	// 超過した場合は汎用の受付応答を返し、プラン生成は裏でやり直す。
	PreviewTimeout time.Duration
	// AsyncTimeout は非同期の最終処理（プラン生成・実行・配信）全体の時間上限。
	AsyncTimeout time.Duration
}

// Service は会話処理のサービス層。
// 同時に複数のリクエストから呼ばれる。共有状態はストレージ層の
// オーナー単位の排他に委ね、Service自身は不変の依存だけを持つ。
type Service struct {
	planner    PlanProducer
	exec       PlanExecutor
	users      UserRegistrar
	sanitizer  security.MessageSanitizerService
	dispatcher AsyncDeliverer
	metrics    metrics.MetricsCollector
	logger     *slog.Logger

	previewTimeout time.Duration
	asyncTimeout   time.Duration

	wg sync.WaitGroup
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	planner PlanProducer,
	exec PlanExecutor,
	users UserRegistrar,
	sanitizer security.MessageSanitizerService,
	dispatcher AsyncDeliverer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.PreviewTimeout <= 0 {
		cfg.PreviewTimeout = 2 * time.Second
	}
	if cfg.AsyncTimeout <= 0 {
		cfg.AsyncTimeout = 60 * time.Second
	}
	return &Service{
		planner:        planner,
		exec:           exec,
		users:          users,
		sanitizer:      sanitizer,
		dispatcher:     dispatcher,
		metrics:        collector,
		logger:         logger,
		previewTimeout: cfg.PreviewTimeout,
		asyncTimeout:   cfg.AsyncTimeout,
	}
}

// resultMetadata は応答エンベロープに載せる実行記録。
type resultMetadata struct {
	Status   string                    `json:"status"`
	Executed []executor.ExecutedAction `json:"executed"`
	Errors   []executor.ActionError    `json:"errors,omitempty"`
	TaskList *[]executor.TaskSnapshot  `json:"task_list,omitempty"`
}

// Handle は受信リクエストを処理して同期応答のエンベロープを返す。
// requestIdが無ければ生成し、以降の応答（プレビューと非同期最終応答を
// 含む）すべてに同じIDを載せる。応答は常に非nil。
func (s *Service) Handle(ctx context.Context, req Request) *dispatch.Envelope {
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return s.errorEnvelope(requestID, model.NewInvalidRequestError("ownerIdは必須です"))
	}

	text := s.sanitizer.Sanitize(req.Text)
	if text == "" {
		return s.errorEnvelope(requestID, model.NewEmptyMessageError())
	}

	if _, err := s.users.EnsureUser(ctx, ownerID); err != nil {
		s.logger.Error("ユーザー行の用意に失敗しました",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return s.errorEnvelope(requestID, err)
	}

	if req.CallbackURL != "" {
		return s.handleAsync(ctx, requestID, ownerID, text, req)
	}
	return s.handleSync(ctx, requestID, ownerID, text)
}

// handleSync は同期経路: プラン生成から実行まで行い、最終応答をそのまま返す。
func (s *Service) handleSync(ctx context.Context, requestID, ownerID, text string) *dispatch.Envelope {
	p, err := s.planner.PlanActions(ctx, text)
	if err != nil {
		return s.planFailureEnvelope(requestID, err)
	}

	env := s.executeAndCompose(ctx, requestID, ownerID, p)
	if s.metrics != nil {
		s.metrics.RecordMessageProcessed("sync")
	}
	return env
}

// handleAsync は非同期経路: 軽量なプレビューを即座に返し、
// 検証・実行・最終配信は接続の外でちょうど1回だけ行う。
// コールバック先は検証のうえオーナーに記憶され、以後のリマインド配信にも使われる。
func (s *Service) handleAsync(ctx context.Context, requestID, ownerID, text string, req Request) *dispatch.Envelope {
	user, err := s.users.RegisterPushDestination(ctx, ownerID, req.CallbackURL, req.CallbackToken)
	if err != nil {
		return s.errorEnvelope(requestID, err)
	}

	// プレビューは短い時間でプラン生成を試み、間に合えば予定ステップを示す。
	// 生成済みのプランは最終処理で再利用する。
	previewCtx, cancel := context.WithTimeout(ctx, s.previewTimeout)
	planned, planErr := s.planner.PlanActions(previewCtx, text)
	cancel()

	preview := "Processing your request..."
	if planErr == nil && len(planned.Actions) > 0 {
		preview = "Planned steps: " + strings.Join(stepNames(planned), ", ")
	}
	if planErr != nil {
		planned = nil
	}

	dest := dispatch.Destination{URL: user.PushURL, Token: user.PushToken}

	s.wg.Add(1)
	go s.finishAsync(requestID, ownerID, text, planned, dest)

	if s.metrics != nil {
		s.metrics.RecordMessageProcessed("async")
	}
	return dispatch.NewResultEnvelope(requestID, preview, nil)
}

// finishAsync は非同期経路の最終処理。受信接続からは切り離された
// コンテキストで実行し、配信は1回だけ試みる（失敗しても再送しない）。
func (s *Service) finishAsync(requestID, ownerID, text string, planned *plan.Plan, dest dispatch.Destination) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("非同期処理中にpanicが発生しました",
				slog.String("request_id", requestID),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
	defer cancel()

	p := planned
	if p == nil {
		// プレビューの時間内に生成できなかった場合はここでやり直す。
		var err error
		p, err = s.planner.PlanActions(ctx, text)
		if err != nil {
			s.deliverFinal(dest, s.planFailureEnvelope(requestID, err))
			return
		}
	}

	s.deliverFinal(dest, s.executeAndCompose(ctx, requestID, ownerID, p))
}

// deliverFinal は最終応答をディスパッチャに渡す。
// 会話の最終応答は特定のやり取りに答えるものなので、失敗してもログに残すだけで再送しない。
func (s *Service) deliverFinal(dest dispatch.Destination, env *dispatch.Envelope) {
	accepted := s.dispatcher.Deliver(dest, env, func(err error) {
		if err != nil {
			s.logger.Warn("最終応答の配信に失敗しました（再送しません）",
				slog.String("request_id", env.RequestID),
				slog.String("error", err.Error()),
			)
		}
	})
	if !accepted {
		s.logger.Warn("最終応答の配信を受け付けられませんでした",
			slog.String("request_id", env.RequestID),
		)
	}
}

// executeAndCompose はプランを実行して応答エンベロープを組み立てる。
// 解釈できなかったメッセージ（空のプラン）は実行せず定型の案内を返す。
func (s *Service) executeAndCompose(ctx context.Context, requestID, ownerID string, p *plan.Plan) *dispatch.Envelope {
	if len(p.Actions) == 0 {
		return dispatch.NewResultEnvelope(requestID, unknownMessageReply, nil)
	}

	result := s.exec.Execute(ctx, ownerID, p)
	if s.metrics != nil {
		for _, e := range result.Executed {
			s.metrics.RecordActionExecuted(e.Type)
		}
	}

	return dispatch.NewResultEnvelope(requestID, result.Message, resultMetadata{
		Status:   result.Status,
		Executed: result.Executed,
		Errors:   result.Errors,
		TaskList: result.TaskList,
	})
}

// planFailureEnvelope はプラン生成・検証の失敗を応答に写す。
// 検証失敗はプラン拒否として計数する。LLMの断片的な出力から
// プランを繕うことはせず、必ず定型の失敗応答を返す。
func (s *Service) planFailureEnvelope(requestID string, err error) *dispatch.Envelope {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeSchemaInvalid {
		if s.metrics != nil {
			s.metrics.RecordPlanRejected()
		}
	}
	return s.errorEnvelope(requestID, err)
}

// errorEnvelope はエラーを境界エラー応答のエンベロープに変換する。
func (s *Service) errorEnvelope(requestID string, err error) *dispatch.Envelope {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return dispatch.NewErrorEnvelope(requestID, apiErr.Code, apiErr.Message)
	}
	return dispatch.NewErrorEnvelope(requestID, "INTERNAL_ERROR", "内部エラーが発生しました。")
}

// Drain は実行中の非同期最終処理が完了するのを猶予時間まで待つ。
// シャットダウン時にディスパッチャを閉じる前に呼ぶ。
func (s *Service) Drain(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("非同期処理の完了を猶予時間内に待ち切れませんでした",
			slog.Duration("grace", grace),
		)
	}
}

// stepNames はプランのアクションを "todo.create" 形式の一覧にする。
func stepNames(p *plan.Plan) []string {
	names := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		names = append(names, string(a.Kind)+"."+string(a.Operation))
	}
	return names
}
