// Package dispatch は会話の最終応答とリマインド通知を配信先へ送る。
// 非同期配信は有限のワーカープールで実行され、受け付けた接続を
// 応答待ちで塞がない。
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// job はキューに積まれる配信作業1件。
type job struct {
	dest Destination
	env  *Envelope
	done func(error)
}

// Dispatcher は配信を有限ワーカープールで非同期実行する。
// キューが満杯のときは新しい配信を破棄する。会話の最終応答は
// 再送しない前提のため、破棄はログに残すだけでよい。
type Dispatcher struct {
	client *PushClient
	logger *slog.Logger
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher はワーカーを起動してDispatcherを生成する。
func NewDispatcher(client *PushClient, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		client: client,
		logger: logger,
		jobs:   make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		// 配信の時間上限はクライアント側のタイムアウトに任せる。
		err := d.client.Send(context.Background(), j.dest, j.env)
		if err != nil {
			d.logger.Error("非同期配信に失敗しました",
				"url", j.dest.URL,
				"request_id", j.env.RequestID,
				"error", err,
			)
		}
		if j.done != nil {
			j.done(err)
		}
	}
}

// Deliver は配信をキューに積み、完了を待たずに戻る。doneは配信の成否を
// 受け取るコールバックで、nilでもよい。キューが満杯または停止済みの
// 場合は配信を破棄してfalseを返す（doneは呼ばれない）。
func (d *Dispatcher) Deliver(dest Destination, env *Envelope, done func(error)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("停止済みのため配信を破棄しました", "url", dest.URL, "request_id", env.RequestID)
		return false
	}
	select {
	case d.jobs <- job{dest: dest, env: env, done: done}:
		return true
	default:
		d.logger.Warn("配信キューが満杯のため破棄しました", "url", dest.URL, "request_id", env.RequestID)
		return false
	}
}

// DeliverSync はワーカープールを経由せず、呼び出し側のコンテキストで
// 配信して結果を返す。配信の成否を確認してから記録を進めたい
// 呼び出し側（リマインドスケジューラ）が使う。
func (d *Dispatcher) DeliverSync(ctx context.Context, dest Destination, env *Envelope) error {
	return d.client.Send(ctx, dest, env)
}

// Close は受付を停止し、キュー済みと実行中の配信が完了するのを猶予時間まで
// 待つ。実行中のHTTP呼び出しを中断することはない。
func (d *Dispatcher) Close(grace time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(grace):
		d.logger.Warn("配信キューの排出が猶予時間内に終わりませんでした", "grace", grace)
	}
}
