package seat

import "time"

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusHeld      Status = "held"
	StatusReserved  Status = "reserved"
)

// Seat は座席エンティティを表す
type Seat struct {
	ID            string
	EventID       string
	SeatRow       string // A, B, C など
	SeatNumber    string // 1, 2, 3 など
	Status        Status
	Price         int
	HoldStartedAt *time.Time // 仮押さえ中のみ非nil
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int // 楽観的ロック用
}

// NewSeat は新しい座席を作成する
func NewSeat(eventID, seatRow, seatNumber string, price int) *Seat {
	now := time.Now()
	return &Seat{
		EventID:    eventID,
		SeatRow:    seatRow,
		SeatNumber: seatNumber,
		Status:     StatusAvailable,
		Price:      price,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    0,
	}
}

// IsAvailable は座席が予約可能かを返す
func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// Hold は座席を仮押さえ状態にする
func (s *Seat) Hold() error {
	if s.Status != StatusAvailable {
		return ErrSeatNotAvailable
	}
	now := time.Now()
	s.Status = StatusHeld
	s.HoldStartedAt = &now
	s.UpdatedAt = now
	return nil
}

// Confirm は仮押さえ中の座席を予約確定状態にする
func (s *Seat) Confirm() error {
	if s.Status != StatusHeld {
		return ErrSeatNotHeld
	}
	s.Status = StatusReserved
	s.HoldStartedAt = nil
	s.UpdatedAt = time.Now()
	return nil
}

// Release は座席を解放する
// AVAILABLE からの呼び出しは no-op（スイーパーのリトライを許容）
func (s *Seat) Release() {
	s.Status = StatusAvailable
	s.HoldStartedAt = nil
	s.UpdatedAt = time.Now()
}

// IsHoldExpired は仮押さえがTTLを超過しているかを返す
func (s *Seat) IsHoldExpired(ttl time.Duration, now time.Time) bool {
	if s.Status != StatusHeld || s.HoldStartedAt == nil {
		return false
	}
	return now.After(s.HoldStartedAt.Add(ttl))
}

// Display は座席の表示名（例: A-12）を返す
func (s *Seat) Display() string {
	return s.SeatRow + "-" + s.SeatNumber
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.EventID == "" {
		return ErrEventIDRequired
	}
	if s.SeatRow == "" {
		return ErrSeatRowRequired
	}
	if s.SeatNumber == "" {
		return ErrSeatNumberRequired
	}
	if s.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
