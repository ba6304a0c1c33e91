// Package remind はタスク期限のリマインド判定と定期配信を提供する。
// 判定ロジック（ポリシー）とスケジューラを含む。
package remind

import (
	"time"

	"github.com/hitoshi/hisho/internal/model"
)

// Kind はリマインドの種別を表す。どの閾値を越えて発火したかを示し、
// 通知文面の生成に使われる。
type Kind string

const (
	// KindAdvance24h は期限24時間前の事前通知。
	KindAdvance24h Kind = "advance_24h"
	// KindAdvance1h は期限1時間前の事前通知。
	KindAdvance1h Kind = "advance_1h"
	// KindAtDeadline は期限到来時の通知。明示リマインダー時刻の到来も含む。
	KindAtDeadline Kind = "at_deadline"
	// KindOverdue は期限超過後の繰り返し通知。
	KindOverdue Kind = "overdue"
)

// Decision は1タスク1評価時点のリマインド判定結果。
type Decision struct {
	// Send は通知を送るべきかどうか。
	Send bool
	// Kind は発火した閾値の種別。Sendがfalseの場合は空。
	Kind Kind
	// TimeContext は文面生成に渡す期限状況の英語表現。
	TimeContext string
	// ClearExplicit は送信成功後に明示リマインダー（reminder_at）を
	// 消去すべきかどうか。明示リマインダーは1回だけ発火する。
	ClearExplicit bool
}

// threshold はリマインドの発火点1つを表す。
type threshold struct {
	at            time.Time
	kind          Kind
	context       string
	clearExplicit bool
}

// Decide はタスクと評価時点からリマインドの送信可否を判定する純関数。
//
// 判定順序:
//  1. 完了済み、またはリマインダー無効なら送らない。
//  2. オーナーのローカル時刻が静音時間帯なら今回は送らない（次回再評価）。
//  3. 最小送信間隔（ReminderSpacingMinutes）を空けずには送らない。
//  4. 越えた閾値のうち最も新しいものを候補とし、前回送信がその閾値以後で
//     あれば送信済みとして送らない。複数の閾値を一度に越えていても
//     候補は1つに畳まれる（最も期限超過側のKindを持つ）。
//
// 閾値は期限（due_at）に対して 24時間前・1時間前・期限時刻、以降は
// OverdueIntervalHoursごとにMaxOverdueReminders回まで。最後の超過閾値を
// 送信し終えたタスクには二度と発火しない。明示リマインダー（reminder_at）は
// due_atの閾値とは独立に、到来時に1回だけ発火する。
func Decide(task *model.Task, now time.Time, user *model.User) Decision {
	if task.Status == model.TaskStatusCompleted || !task.ReminderEnabled {
		return Decision{}
	}
	if InQuietHours(now, user) {
		return Decision{}
	}

	spacing := time.Duration(user.ReminderSpacingMinutes) * time.Minute
	if task.LastReminderSentAt != nil && now.Sub(*task.LastReminderSentAt) < spacing {
		return Decision{}
	}

	best := pendingThreshold(task, now, user)
	if best == nil {
		return Decision{}
	}

	return Decision{
		Send:          true,
		Kind:          best.kind,
		TimeContext:   best.context,
		ClearExplicit: best.clearExplicit,
	}
}

// pendingThreshold は越えたが未送信の閾値のうち最も新しいものを返す。
// 該当がなければnilを返す。
func pendingThreshold(task *model.Task, now time.Time, user *model.User) *threshold {
	var best *threshold

	if task.ReminderAt != nil && !now.Before(*task.ReminderAt) {
		candidate := &threshold{
			at:            *task.ReminderAt,
			kind:          KindAtDeadline,
			context:       "due now",
			clearExplicit: true,
		}
		if !covered(task, candidate.at) {
			best = candidate
		}
	}

	if task.DueAt != nil {
		if candidate := latestDueThreshold(*task.DueAt, now, user); candidate != nil {
			if !covered(task, candidate.at) {
				if best == nil || candidate.at.After(best.at) {
					best = candidate
				}
			}
		}
	}

	return best
}

// latestDueThreshold は期限に対する閾値のうち、評価時点までに越えた
// 最も新しいものを返す。まだどれも越えていなければnilを返す。
func latestDueThreshold(due, now time.Time, user *model.User) *threshold {
	interval := time.Duration(user.OverdueIntervalHours) * time.Hour
	if interval <= 0 {
		interval = time.Duration(model.DefaultOverdueIntervalHours) * time.Hour
	}
	maxOverdue := user.MaxOverdueReminders
	if maxOverdue < 0 {
		maxOverdue = 0
	}

	thresholds := []threshold{
		{at: due.Add(-24 * time.Hour), kind: KindAdvance24h, context: "due in 24 hours"},
		{at: due.Add(-time.Hour), kind: KindAdvance1h, context: "due in 1 hour"},
		{at: due, kind: KindAtDeadline, context: "due now"},
	}
	for k := 1; k <= maxOverdue; k++ {
		thresholds = append(thresholds, threshold{
			at:      due.Add(time.Duration(k) * interval),
			kind:    KindOverdue,
			context: "overdue",
		})
	}

	var latest *threshold
	for i := range thresholds {
		if !now.Before(thresholds[i].at) {
			latest = &thresholds[i]
		}
	}
	return latest
}

// covered は閾値が前回送信で既にカバー済みかどうかを返す。
// 閾値時刻以後に送信していればカバー済み。プロセス再起動で複数の閾値を
// 同時に越えていた場合も、最新の閾値1つだけが未カバーとして残る。
func covered(task *model.Task, at time.Time) bool {
	return task.LastReminderSentAt != nil && !task.LastReminderSentAt.Before(at)
}

// InQuietHours は評価時点がオーナーの静音時間帯に入っているかを返す。
// 時間帯はオーナーのタイムゾーンの時単位で判定し、[start, end) の半開区間。
// startがendより大きい場合は日付をまたぐ窓として扱う（デフォルトの22時→8時）。
// startとendが等しい場合は窓なしとみなす。
func InQuietHours(now time.Time, user *model.User) bool {
	start := user.QuietHoursStart
	end := user.QuietHoursEnd
	if start == end {
		return false
	}

	hour := now.In(user.Location()).Hour()
	if start < end {
		return start <= hour && hour < end
	}
	return hour >= start || hour < end
}
