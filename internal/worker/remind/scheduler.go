package remind

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hisho/internal/dispatch"
	"github.com/hitoshi/hisho/internal/model"
	"github.com/hitoshi/hisho/internal/repository"
)

// advanceWindow は事前通知の最も早い閾値（期限24時間前）に合わせた
// スキャン先読み幅。期限がこの幅より先のタスクは候補に載らない。
const advanceWindow = 24 * time.Hour

// MessageComposer はリマインド文面の生成インターフェース。
// 実装は失敗時に定型文へフォールバックし、常に空でない文面を返すこと。
type MessageComposer interface {
	ComposeReminderMessage(ctx context.Context, description, timeContext string) string
}

// Deliverer はリマインド通知の同期配信インターフェース。
// スケジューラは配信の成否を確認してから送信記録を進めるため、
// 非同期のDeliverではなくDeliverSyncを使う。
type Deliverer interface {
	DeliverSync(ctx context.Context, dest dispatch.Destination, env *dispatch.Envelope) error
}

// UserFinder はオーナー設定の取得インターフェース。
type UserFinder interface {
	FindByUserID(ctx context.Context, userID string) (*model.User, error)
}

// MetricsRecorder はリマインド配信のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordReminderSent(kind string)
	RecordReminderFailure()
}

// reminderMetadata はリマインド通知のエンベロープに載せる付帯情報。
type reminderMetadata struct {
	Type   string `json:"type"`
	TaskID int64  `json:"task_id"`
	Kind   string `json:"kind"`
}

// Scheduler はリマインドの定期スキャンと配信を行う。
// プロセスごとに1インスタンスで、ティックは直列に実行される。
// 遅いティックは次のティックを遅らせるだけで、重なって実行されることはない。
type Scheduler struct {
	tasks       repository.ReminderTaskRepository
	users       UserFinder
	composer    MessageComposer
	deliverer   Deliverer
	metrics     MetricsRecorder
	logger      *slog.Logger
	pushTimeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// pushTimeoutが0以下の場合はデフォルト値10秒を使用する。
func NewScheduler(
	tasks repository.ReminderTaskRepository,
	users UserFinder,
	composer MessageComposer,
	deliverer Deliverer,
	metrics MetricsRecorder,
	logger *slog.Logger,
	pushTimeout time.Duration,
) *Scheduler {
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}
	return &Scheduler{
		tasks:       tasks,
		users:       users,
		composer:    composer,
		deliverer:   deliverer,
		metrics:     metrics,
		logger:      logger,
		pushTimeout: pushTimeout,
	}
}

// IsRunning はスケジューラが実行中かどうかを返す。
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまでブロックし、呼び出し元のゴルーチンで
// ティックを直列実行する。既に実行中の場合は何もせず戻る。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("リマインドスケジューラは既に実行中です")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リマインドスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("リマインドサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインドスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("リマインドサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はリマインド対象タスクを1回スキャンし、判定と配信を行う。
// タスク1件の失敗はログに残して次のタスクへ進む。スキャン自体の失敗
// 以外のエラーがティックの外へ漏れることはない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	now := start

	candidates, err := s.tasks.ListReminderCandidates(ctx, now.Add(advanceWindow), now)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		s.logger.Debug("リマインド対象のタスクはありません")
		return nil
	}

	// 候補はオーナー順に並んでいるため、オーナー解決は1回ずつで済む。
	userCache := make(map[string]*model.User)
	sent := 0

	for _, task := range candidates {
		if ctx.Err() != nil {
			break
		}
		if s.evaluateTask(ctx, now, task, userCache) {
			sent++
		}
	}

	s.logger.Info("リマインドサイクルが完了しました",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("sent_count", sent),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// evaluateTask はタスク1件の判定・配信・記録を行い、通知を送った場合に
// trueを返す。panicを含むあらゆる失敗はここで回収される。
func (s *Scheduler) evaluateTask(ctx context.Context, now time.Time, task *model.Task, userCache map[string]*model.User) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("タスク評価中にpanicが発生しました",
				slog.Int64("task_id", task.ID),
				slog.Any("panic", r),
			)
			delivered = false
		}
	}()

	user, ok := userCache[task.UserID]
	if !ok {
		found, err := s.users.FindByUserID(ctx, task.UserID)
		if err != nil {
			s.logger.Error("オーナー設定の取得に失敗しました",
				slog.String("user_id", task.UserID),
				slog.String("error", err.Error()),
			)
			return false
		}
		if found == nil {
			// タスクだけ残ってユーザー行がない場合はデフォルト設定で評価する。
			// プッシュ先は無いのでこの先のスキップに倒れる。
			found = model.NewUser(task.UserID)
		}
		user = found
		userCache[task.UserID] = user
	}

	if !user.HasPushDestination() {
		s.logger.Debug("プッシュ先が未登録のためスキップします",
			slog.String("user_id", task.UserID),
			slog.Int64("task_id", task.ID),
		)
		return false
	}

	decision := Decide(task, now, user)
	if !decision.Send {
		return false
	}

	message := s.composer.ComposeReminderMessage(ctx, task.Description, decision.TimeContext)
	env := dispatch.NewResultEnvelope(uuid.NewString(), message, reminderMetadata{
		Type:   "reminder",
		TaskID: task.ID,
		Kind:   string(decision.Kind),
	})
	dest := dispatch.Destination{URL: user.PushURL, Token: user.PushToken}

	deliverCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()

	if err := s.deliverer.DeliverSync(deliverCtx, dest, env); err != nil {
		// 送信記録は進めない。次のティックで再評価され、再送される。
		s.logger.Warn("リマインド配信に失敗しました",
			slog.Int64("task_id", task.ID),
			slog.String("user_id", task.UserID),
			slog.String("kind", string(decision.Kind)),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordReminderFailure()
		}
		return false
	}

	if err := s.tasks.MarkReminderSent(ctx, task.ID, now, decision.ClearExplicit); err != nil {
		// 配信済みだが記録に失敗した状態。次のティックで最小送信間隔が
		// 効かず再送される恐れがあるため、エラーレベルで残す。
		s.logger.Error("リマインド送信記録の更新に失敗しました",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("リマインドを配信しました",
		slog.Int64("task_id", task.ID),
		slog.String("user_id", task.UserID),
		slog.String("kind", string(decision.Kind)),
	)
	if s.metrics != nil {
		s.metrics.RecordReminderSent(string(decision.Kind))
	}
	return true
}
