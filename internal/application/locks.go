package application

import (
	"time"

	"github.com/jinho7/concert-hub/internal/lock"
	"github.com/jinho7/concert-hub/internal/pkg/metrics"
)

// Locks はエンティティ種別ごとの排他ロック群
// 予約ワークフロー・座席操作・スイーパーの全員が同じインスタンスを共有し、
// 座席 → 予約 → イベントカウンターの順でのみ取得する（逆順は禁止）
type Locks struct {
	Seats        *lock.KeyedMutex
	Reservations *lock.KeyedMutex
	Events       *lock.KeyedMutex
}

// NewLocks は新しいロック群を作成する
func NewLocks() *Locks {
	return &Locks{
		Seats:        lock.NewKeyedMutex(),
		Reservations: lock.NewKeyedMutex(),
		Events:       lock.NewKeyedMutex(),
	}
}

// AcquireSeat は座席ロックを取得し、待機時間を記録する
func (l *Locks) AcquireSeat(id string) *lock.Handle {
	return timedAcquire(l.Seats, "seat", id)
}

// AcquireReservation は予約ロックを取得し、待機時間を記録する
func (l *Locks) AcquireReservation(id string) *lock.Handle {
	return timedAcquire(l.Reservations, "reservation", id)
}

// AcquireEvent はイベントカウンターロックを取得し、待機時間を記録する
func (l *Locks) AcquireEvent(id string) *lock.Handle {
	return timedAcquire(l.Events, "event", id)
}

func timedAcquire(km *lock.KeyedMutex, scope, key string) *lock.Handle {
	start := time.Now()
	h := km.Acquire(key)
	if m := metrics.Get(); m != nil {
		m.LockWaitDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
	}
	return h
}
