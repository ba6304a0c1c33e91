// Package cleanup は完了タスクの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超えて完了状態のままのタスクを
// 日次バッチで削除する。リマインド送信記録はタスク行ごと消えるため、
// 別途の掃除は不要。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/hisho/internal/repository"
)

// Job は保持期間を超過した完了タスクの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	tasks         repository.CleanupTaskRepository
	logger        *slog.Logger
	RetentionDays int // 完了タスクの保持日数（デフォルト: 30）
}

// NewJob は新しいJobを生成する。
// retentionDaysが0以下の場合はデフォルトの30日を使用する。
func NewJob(tasks repository.CleanupTaskRepository, logger *slog.Logger, retentionDays int) *Job {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Job{
		tasks:         tasks,
		logger:        logger,
		RetentionDays: retentionDays,
	}
}

// Run は保持期間を超過した完了タスクを削除する。
// updated_atがRetentionDays日前より古い完了タスクが対象。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.tasks.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("完了タスクのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("完了タスクのクリーンアップに失敗: %w", err)
	}

	j.logger.Info("完了タスクのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Schedule はcron式に従ってRunを定期実行するcronインスタンスを起動して返す。
// 前回の実行が終わっていないうちは次の実行を遅らせる（重複実行しない）。
// 停止は返されたcronのStopで行う。
func (j *Job) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.DelayIfStillRunning(cron.DiscardLogger),
	))

	_, err := c.AddFunc(spec, func() {
		if err := j.Run(ctx); err != nil {
			j.logger.Error("定期クリーンアップの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("クリーンアップスケジュールの登録に失敗しました: %w", err)
	}

	c.Start()
	j.logger.Info("クリーンアップジョブをスケジュールしました",
		slog.String("schedule", spec),
		slog.Int("retention_days", j.RetentionDays),
	)
	return c, nil
}
