package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jinho7/concert-hub/internal/domain/event"
	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/transaction"
	redisinfra "github.com/jinho7/concert-hub/internal/infrastructure/redis"
	"github.com/jinho7/concert-hub/internal/pkg/logger"
)

const (
	availabilityCacheTTL = 30 * time.Second
)

// SeatService は座席台帳の操作を提供する
type SeatService struct {
	txManager       transaction.Manager
	seatRepo        seat.Repository
	eventRepo       event.Repository
	reservationRepo reservation.Repository
	cache           *redisinfra.AvailabilityCache
	locks           *Locks
	holdTTL         time.Duration
}

func NewSeatService(
	txManager transaction.Manager,
	sr seat.Repository,
	er event.Repository,
	rr reservation.Repository,
	locks *Locks,
	holdTTL time.Duration,
) *SeatService {
	return &SeatService{
		txManager:       txManager,
		seatRepo:        sr,
		eventRepo:       er,
		reservationRepo: rr,
		locks:           locks,
		holdTTL:         holdTTL,
	}
}

// WithAvailabilityCache は空席数キャッシュを有効にする
func (s *SeatService) WithAvailabilityCache(c *redisinfra.AvailabilityCache) *SeatService {
	s.cache = c
	return s
}

type CreateSeatsInput struct {
	EventID     string
	TotalRows   int
	SeatsPerRow int
	BasePrice   int
}

// CreateSeats はイベントの座席を A, B, C… の行で一括生成する
// 前方の行ほど高く、最大で基本価格の1.5倍になる
func (s *SeatService) CreateSeats(ctx context.Context, input CreateSeatsInput) ([]*seat.Seat, error) {
	if _, err := s.eventRepo.GetByID(ctx, input.EventID); err != nil {
		return nil, err
	}
	if input.TotalRows <= 0 || input.TotalRows > 26 {
		return nil, seat.ErrSeatRowRequired
	}

	seats := make([]*seat.Seat, 0, input.TotalRows*input.SeatsPerRow)
	for row := 1; row <= input.TotalRows; row++ {
		seatRow := string(rune('A' + row - 1))
		price := tieredPrice(input.BasePrice, row, input.TotalRows)
		for num := 1; num <= input.SeatsPerRow; num++ {
			se := seat.NewSeat(input.EventID, seatRow, fmt.Sprintf("%d", num), price)
			if err := se.Validate(); err != nil {
				return nil, err
			}
			seats = append(seats, se)
		}
	}
	if err := s.seatRepo.CreateBulk(ctx, seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// tieredPrice は行位置に応じた価格を計算する（前方ほど高い）
func tieredPrice(basePrice, row, totalRows int) int {
	multiplier := 1.0 + float64(totalRows-row)/float64(totalRows)*0.5
	return int(float64(basePrice) * multiplier)
}

func (s *SeatService) GetSeat(ctx context.Context, id string) (*seat.Seat, error) {
	return s.seatRepo.GetByID(ctx, id)
}

func (s *SeatService) GetSeatsByEvent(ctx context.Context, eventID string) ([]*seat.Seat, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seatRepo.GetByEventID(ctx, eventID)
}

func (s *SeatService) GetAvailableSeatsByEvent(ctx context.Context, eventID string) ([]*seat.Seat, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seatRepo.GetAvailableByEventID(ctx, eventID)
}

// HoldSeat は座席を直接仮押さえする（運用経路、予約は作成しない）
func (s *SeatService) HoldSeat(ctx context.Context, id string) (*seat.Seat, error) {
	h := s.locks.AcquireSeat(id)
	defer h.Release()

	se, err := s.seatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := se.Hold(); err != nil {
		return nil, err
	}
	if err := s.seatRepo.UpdateStatus(ctx, nil, se); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, se.EventID)
	return se, nil
}

// ConfirmSeat は仮押さえ中の座席を確定する
// 確定で座席が reserved に入るため、残席カウンターも同一トランザクションで減らす
func (s *SeatService) ConfirmSeat(ctx context.Context, id string) (*seat.Seat, error) {
	h := s.locks.AcquireSeat(id)
	defer h.Release()

	se, err := s.seatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := se.Confirm(); err != nil {
		return nil, err
	}

	eh := s.locks.AcquireEvent(se.EventID)
	defer eh.Release()

	ev, err := s.eventRepo.GetByID(ctx, se.EventID)
	if err != nil {
		return nil, err
	}
	if err := ev.DecreaseAvailableSeats(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return nil, err
	}
	if err := s.eventRepo.UpdateSeatCounts(ctx, tx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, se.EventID)
	return se, nil
}

// ReleaseSeat は座席を解放する
// reserved からの解放では残席カウンターを戻す。available からは no-op
func (s *SeatService) ReleaseSeat(ctx context.Context, id string) (*seat.Seat, error) {
	h := s.locks.AcquireSeat(id)
	defer h.Release()

	se, err := s.seatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if se.IsAvailable() {
		return se, nil
	}

	wasReserved := se.Status == seat.StatusReserved
	se.Release()

	var ev *event.Event
	if wasReserved {
		eh := s.locks.AcquireEvent(se.EventID)
		defer eh.Release()

		ev, err = s.eventRepo.GetByID(ctx, se.EventID)
		if err != nil {
			return nil, err
		}
		if err := ev.IncreaseAvailableSeats(); err != nil {
			return nil, err
		}
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return nil, err
	}
	if wasReserved {
		if err := s.eventRepo.UpdateSeatCounts(ctx, tx, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, se.EventID)
	return se, nil
}

// CountAvailableSeats はイベントの空席数を返す（キャッシュ優先）
func (s *SeatService) CountAvailableSeats(ctx context.Context, eventID string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, eventID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("event_id", eventID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	count, err := s.seatRepo.CountAvailableByEventID(ctx, eventID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, eventID, count, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return count, nil
}

// CleanupExpiredHolds はTTLを超過したまま held に残っている座席を解放する
// 対応する保留予約がある座席は予約側のスイープに任せる（孤児回復の防御経路）
func (s *SeatService) CleanupExpiredHolds(ctx context.Context) (int, error) {
	stale, err := s.seatRepo.GetExpiredHeld(ctx, s.holdTTL)
	if err != nil {
		return 0, fmt.Errorf("期限切れ座席の取得に失敗: %w", err)
	}

	count := 0
	for _, candidate := range stale {
		released, err := s.releaseOrphanedHold(ctx, candidate.ID)
		if err != nil {
			logger.Warn("孤児座席の解放をスキップ",
				zap.String("seat_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		if released {
			count++
		}
	}
	return count, nil
}

// releaseOrphanedHold は1席をロック下で再検証してから解放する
func (s *SeatService) releaseOrphanedHold(ctx context.Context, seatID string) (bool, error) {
	h := s.locks.AcquireSeat(seatID)
	defer h.Release()

	se, err := s.seatRepo.GetByID(ctx, seatID)
	if err != nil {
		return false, err
	}
	if !se.IsHoldExpired(s.holdTTL, time.Now()) {
		return false, nil
	}

	// 保留予約が残っている座席は予約スイープが座席ごと処理する
	if _, err := s.reservationRepo.GetActiveBySeatID(ctx, seatID); err == nil {
		return false, nil
	} else if !errors.Is(err, reservation.ErrReservationNotFound) {
		return false, err
	}

	se.Release()
	if err := s.seatRepo.UpdateStatus(ctx, nil, se); err != nil {
		return false, err
	}

	s.invalidateCache(ctx, se.EventID)

	logger.Info("孤児の仮押さえを解放", zap.String("seat_id", seatID), zap.String("seat", se.Display()))
	return true, nil
}

func (s *SeatService) invalidateCache(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}
