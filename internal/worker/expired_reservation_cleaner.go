package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jinho7/concert-hub/internal/pkg/logger"
	"github.com/jinho7/concert-hub/internal/pkg/metrics"
)

// ReservationSweeper は期限切れの保留予約を整理するインターフェース
type ReservationSweeper interface {
	CleanupExpiredReservations(ctx context.Context) (int, error)
}

// SeatSweeper は孤児化した仮押さえ座席を解放するインターフェース
type SeatSweeper interface {
	CleanupExpiredHolds(ctx context.Context) (int, error)
}

// ExpiredReservationCleaner は期限切れ予約と孤児座席をクリーンアップするワーカー
// ライブリクエストと同じエンティティロックを共有する独立アクターとして動く
type ExpiredReservationCleaner struct {
	reservations ReservationSweeper
	seats        SeatSweeper
	interval     time.Duration
	metrics      *metrics.Metrics
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewExpiredReservationCleaner は新しいクリーナーを作成
func NewExpiredReservationCleaner(
	rs ReservationSweeper,
	ss SeatSweeper,
	interval time.Duration,
) *ExpiredReservationCleaner {
	return &ExpiredReservationCleaner{
		reservations: rs,
		seats:        ss,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// WithMetrics はスイープ件数のメトリクス記録を有効にする
func (c *ExpiredReservationCleaner) WithMetrics(m *metrics.Metrics) *ExpiredReservationCleaner {
	c.metrics = m
	return c
}

// Start はクリーナーを開始
func (c *ExpiredReservationCleaner) Start(ctx context.Context) {
	logger.Info("期限切れ予約クリーナー開始", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約クリーナー停止（コンテキストキャンセル）")
			return
		case <-c.stopCh:
			logger.Info("期限切れ予約クリーナー停止（シグナル受信）")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// Stop はクリーナーを停止
func (c *ExpiredReservationCleaner) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// sweep は期限切れ予約と孤児座席を1回分処理する
// 一方の失敗が他方のスイープを止めることはない
func (c *ExpiredReservationCleaner) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ予約のクリーンアップ開始")

	count, err := c.reservations.CleanupExpiredReservations(ctx)
	if err != nil {
		log.Error("期限切れ予約のクリーンアップ失敗", zap.Error(err))
	} else if count > 0 {
		log.Info("期限切れ予約を整理", zap.Int("count", count))
		c.recordSwept("reservation", count)
	}

	if c.seats == nil {
		return
	}
	orphans, err := c.seats.CleanupExpiredHolds(ctx)
	if err != nil {
		log.Error("孤児座席のクリーンアップ失敗", zap.Error(err))
	} else if orphans > 0 {
		log.Info("孤児の仮押さえを解放", zap.Int("count", orphans))
		c.recordSwept("orphan_seat", orphans)
	}
}

func (c *ExpiredReservationCleaner) recordSwept(kind string, count int) {
	if c.metrics == nil {
		return
	}
	c.metrics.SweptTotal.WithLabelValues(kind).Add(float64(count))
}
