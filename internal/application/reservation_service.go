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
	"github.com/jinho7/concert-hub/internal/domain/user"
	redislock "github.com/jinho7/concert-hub/internal/infrastructure/redis"
	"github.com/jinho7/concert-hub/internal/pkg/logger"
	"github.com/jinho7/concert-hub/internal/pkg/metrics"
)

// trackActive はアクティブ予約数ゲージを更新する（メトリクス未初期化時は何もしない）
func trackActive(status string, delta float64) {
	if m := metrics.Get(); m != nil {
		m.ActiveReservations.WithLabelValues(status).Add(delta)
	}
}

// ReservationService は予約ワークフローを提供する
// 予約の状態遷移と、座席・残席カウンターとの整合はすべてここを通る
type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	seatRepo        seat.Repository
	eventRepo       event.Repository
	userRepo        user.Repository
	availCache      *redislock.AvailabilityCache
	lockManager     *redislock.LockManager
	locks           *Locks
	holdTTL         time.Duration
}

func NewReservationService(
	txManager transaction.Manager,
	rr reservation.Repository,
	sr seat.Repository,
	er event.Repository,
	ur user.Repository,
	locks *Locks,
	holdTTL time.Duration,
) *ReservationService {
	return &ReservationService{
		txManager:       txManager,
		reservationRepo: rr,
		seatRepo:        sr,
		eventRepo:       er,
		userRepo:        ur,
		locks:           locks,
		holdTTL:         holdTTL,
	}
}

// WithLockManager は複数インスタンス間のガードとしてRedis分散ロックを有効化する
func (s *ReservationService) WithLockManager(lm *redislock.LockManager) *ReservationService {
	s.lockManager = lm
	return s
}

// WithAvailabilityCache は空席数キャッシュの無効化を有効にする
func (s *ReservationService) WithAvailabilityCache(c *redislock.AvailabilityCache) *ReservationService {
	s.availCache = c
	return s
}

type CreateReservationInput struct {
	EventID string
	SeatID  string
	UserID  string
}

// CreateReservation は座席を仮押さえし、pending の予約を作成する
// 「有効予約の確認 → 仮押さえ」は座席ロックを保持したまま行い、競合窓を閉じる
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*reservation.Reservation, error) {
	// イベントとユーザーの存在確認
	ev, err := s.eventRepo.GetByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		return nil, err
	}

	// 分散ロック（設定時のみ）: 他インスタンスとの同時処理を防ぐ
	if s.lockManager != nil {
		dl, err := s.lockManager.AcquireLockWithRetry(ctx, "seat:"+input.SeatID, 10*time.Second, 3, 100*time.Millisecond)
		if err != nil {
			if errors.Is(err, redislock.ErrLockNotAcquired) {
				return nil, seat.ErrSeatAlreadyReserved
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		defer dl.Release(ctx)
	}

	// 座席単位の排他ロック
	h := s.locks.AcquireSeat(input.SeatID)
	defer h.Release()

	se, err := s.seatRepo.GetByID(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	if se.EventID != input.EventID {
		return nil, reservation.ErrSeatEventMismatch
	}
	if !ev.IsBookingOpen() {
		return nil, event.ErrEventNotAvailable
	}

	// 有効な予約（pending/confirmed）が既に座席を参照していないか確認
	if _, err := s.reservationRepo.GetActiveBySeatID(ctx, input.SeatID); err == nil {
		return nil, seat.ErrSeatAlreadyReserved
	} else if !errors.Is(err, reservation.ErrReservationNotFound) {
		return nil, fmt.Errorf("有効予約の確認に失敗: %w", err)
	}

	// 座席を仮押さえ
	if err := se.Hold(); err != nil {
		return nil, err
	}

	res := reservation.NewReservation(input.EventID, input.SeatID, input.UserID, se.Price, s.holdTTL)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	// 予約作成と座席状態遷移を1トランザクションで確定
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, input.EventID)
	trackActive("pending", 1)

	logger.Info("予約作成完了",
		zap.String("reservation_id", res.ID),
		zap.String("seat", se.Display()),
		zap.String("user_id", input.UserID),
		zap.Int("total_price", res.TotalPrice),
	)
	return res, nil
}

// ConfirmReservation は決済済みの予約を確定する
// 予約・座席・残席カウンターの3つの書き込みはすべて成功するか、すべて戻る
func (s *ReservationService) ConfirmReservation(ctx context.Context, id, paymentRef string) (*reservation.Reservation, error) {
	// ロック順序（座席 → 予約）を守るため、先に座席IDだけ調べる
	probe, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sh := s.locks.AcquireSeat(probe.SeatID)
	defer sh.Release()
	rh := s.locks.AcquireReservation(id)
	defer rh.Release()

	// ロック取得後に再読込（probe 以降に状態が変わっている可能性がある）
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := res.Confirm(paymentRef); err != nil {
		return nil, err
	}

	se, err := s.seatRepo.GetByID(ctx, res.SeatID)
	if err != nil {
		return nil, err
	}
	// 予約が pending なら座席は held のはず。そうでなければ整合性バグ
	if err := se.Confirm(); err != nil {
		logger.Error("予約と座席の状態が不整合",
			zap.String("reservation_id", id),
			zap.String("seat_id", se.ID),
			zap.String("seat_status", string(se.Status)),
		)
		return nil, seat.ErrInvalidSeatOperation
	}

	// 残席カウンターはイベント単位の短い臨界区間で更新する
	eh := s.locks.AcquireEvent(res.EventID)
	defer eh.Release()

	ev, err := s.eventRepo.GetByID(ctx, res.EventID)
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

	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return nil, err
	}
	if err := s.eventRepo.UpdateSeatCounts(ctx, tx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, res.EventID)
	trackActive("pending", -1)
	trackActive("confirmed", 1)

	logger.Info("予約確定完了",
		zap.String("reservation_id", id),
		zap.String("payment_ref", paymentRef),
		zap.Int("available_seats", ev.AvailableSeats),
	)
	return res, nil
}

// CancelReservation は予約をキャンセルし、座席を解放する
// confirmed からのキャンセル（返金経路）では残席カウンターを戻す
func (s *ReservationService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	probe, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sh := s.locks.AcquireSeat(probe.SeatID)
	defer sh.Release()
	rh := s.locks.AcquireReservation(id)
	defer rh.Release()

	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasConfirmed := res.IsConfirmed()

	if err := res.Cancel(); err != nil {
		return nil, err
	}

	se, err := s.seatRepo.GetByID(ctx, res.SeatID)
	if err != nil {
		return nil, err
	}
	se.Release()

	var ev *event.Event
	if wasConfirmed {
		eh := s.locks.AcquireEvent(res.EventID)
		defer eh.Release()

		ev, err = s.eventRepo.GetByID(ctx, res.EventID)
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

	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return nil, err
	}
	if wasConfirmed {
		if err := s.eventRepo.UpdateSeatCounts(ctx, tx, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, res.EventID)
	if wasConfirmed {
		trackActive("confirmed", -1)
	} else {
		trackActive("pending", -1)
	}

	logger.Info("予約キャンセル完了",
		zap.String("reservation_id", id),
		zap.Bool("was_confirmed", wasConfirmed),
	)
	return res, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservationRepo.GetByID(ctx, id)
}

func (s *ReservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	if limit <= 0 {
		limit = 20
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.reservationRepo.GetByUserID(ctx, userID, limit, offset)
}

// CleanupExpiredReservations は期限切れの保留中予約を expired にし、座席を解放する
// 個々の失敗はログに残してスキップし、スイープ全体は継続する
// 残席カウンターには触れない（pending はカウンターを減らしていない）
func (s *ReservationService) CleanupExpiredReservations(ctx context.Context) (int, error) {
	expired, err := s.reservationRepo.GetExpiredPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}

	count := 0
	for _, candidate := range expired {
		swept, err := s.expireOne(ctx, candidate.ID, candidate.SeatID)
		if err != nil {
			logger.Warn("期限切れ予約の処理をスキップ",
				zap.String("reservation_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		if swept {
			count++
		}
	}
	return count, nil
}

// expireOne は1件の予約をロック下で再検証してから期限切れにする
// 再検証で対象外になった場合は false を返す（件数に含めない）
func (s *ReservationService) expireOne(ctx context.Context, reservationID, seatID string) (bool, error) {
	sh := s.locks.AcquireSeat(seatID)
	defer sh.Release()
	rh := s.locks.AcquireReservation(reservationID)
	defer rh.Release()

	// クエリと処理の間に確定が割り込んでいないか再確認する
	res, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if !res.IsPending() || !res.IsExpired() {
		return false, nil
	}

	if err := res.Expire(); err != nil {
		return false, err
	}

	se, err := s.seatRepo.GetByID(ctx, res.SeatID)
	if err != nil {
		return false, err
	}
	se.Release()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return false, err
	}
	if err := s.seatRepo.UpdateStatus(ctx, tx, se); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateCache(ctx, res.EventID)
	trackActive("pending", -1)

	logger.Info("期限切れ予約を整理",
		zap.String("reservation_id", reservationID),
		zap.String("seat_id", res.SeatID),
	)
	return true, nil
}

func (s *ReservationService) invalidateCache(ctx context.Context, eventID string) {
	if s.availCache == nil {
		return
	}
	if err := s.availCache.Invalidate(ctx, eventID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}
