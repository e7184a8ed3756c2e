package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// DefaultExpiration は予約の有効期限（デフォルト15分）
const DefaultExpiration = 15 * time.Minute

// Reservation は予約エンティティを表す
// SeatID は作成後に変更されない
type Reservation struct {
	ID         string
	EventID    string
	SeatID     string
	UserID     string
	Status     Status
	TotalPrice int        // 作成時点の座席価格のスナップショット
	ExpiresAt  *time.Time // pending の間のみ非nil
	PaymentRef *string    // 確定時のみ設定される
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewReservation は新しい予約を pending 状態で作成する
func NewReservation(eventID, seatID, userID string, totalPrice int, ttl time.Duration) *Reservation {
	now := time.Now()
	expiresAt := now.Add(ttl)
	return &Reservation{
		EventID:    eventID,
		SeatID:     seatID,
		UserID:     userID,
		Status:     StatusPending,
		TotalPrice: totalPrice,
		ExpiresAt:  &expiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsExpired は予約が期限切れかを返す
// 保存済みフラグではなく導出述語として判定する
func (r *Reservation) IsExpired() bool {
	if r.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*r.ExpiresAt)
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsConfirmed は予約が確定済みかを返す
func (r *Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// CanBeCancelled はキャンセル可能な状態かを返す
func (r *Reservation) CanBeCancelled() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Confirm は予約を確定し、決済参照を記録する
func (r *Reservation) Confirm(paymentRef string) error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	if r.IsExpired() {
		return ErrReservationExpired
	}
	r.Status = StatusConfirmed
	r.PaymentRef = &paymentRef
	r.ExpiresAt = nil
	r.UpdatedAt = time.Now()
	return nil
}

// Cancel は予約をキャンセルする
// pending と confirmed（返金経路）からのみ許可する
func (r *Reservation) Cancel() error {
	if !r.CanBeCancelled() {
		return ErrCannotBeCancelled
	}
	r.Status = StatusCancelled
	r.ExpiresAt = nil
	r.UpdatedAt = time.Now()
	return nil
}

// Expire は保留中の予約を期限切れ状態にする
func (r *Reservation) Expire() error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	r.Status = StatusExpired
	r.ExpiresAt = nil
	r.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.EventID == "" {
		return ErrEventIDRequired
	}
	if r.SeatID == "" {
		return ErrSeatIDRequired
	}
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if r.TotalPrice < 0 {
		return ErrInvalidTotalPrice
	}
	return nil
}
