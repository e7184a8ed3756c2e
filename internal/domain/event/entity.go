package event

import "time"

// Status はイベントの状態を表す
type Status string

const (
	StatusOpen      Status = "open"
	StatusSoldOut   Status = "sold_out"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Event はイベントエンティティを表す
// AvailableSeats は「確定済み座席数を total から引いた値」と常に一致させる
type Event struct {
	ID             string
	Title          string
	Description    string
	Venue          string
	EventDateTime  time.Time
	TotalSeats     int
	AvailableSeats int
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int // 楽観的ロック用
}

// NewEvent は新しいイベントを作成する
// 作成時は全座席が available
func NewEvent(title, description, venue string, eventDateTime time.Time, totalSeats int) *Event {
	now := time.Now()
	return &Event{
		Title:          title,
		Description:    description,
		Venue:          venue,
		EventDateTime:  eventDateTime,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		Status:         StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        0,
	}
}

// IsBookingOpen は予約受付中かを返す
func (e *Event) IsBookingOpen() bool {
	return e.Status == StatusOpen
}

// DecreaseAvailableSeats は残席数を1減らす
// 0になった場合は sold_out に遷移する
func (e *Event) DecreaseAvailableSeats() error {
	if e.AvailableSeats <= 0 {
		return ErrCapacityExhausted
	}
	e.AvailableSeats--
	if e.AvailableSeats == 0 {
		e.Status = StatusSoldOut
	}
	e.UpdatedAt = time.Now()
	return nil
}

// IncreaseAvailableSeats は残席数を1増やす
// total を超える増加は不変条件違反として拒否する
func (e *Event) IncreaseAvailableSeats() error {
	if e.AvailableSeats >= e.TotalSeats {
		return ErrCapacityOverflow
	}
	e.AvailableSeats++
	if e.Status == StatusSoldOut {
		e.Status = StatusOpen
	}
	e.UpdatedAt = time.Now()
	return nil
}

// Resize は総座席数を変更する
// 既に確定済みの座席数（total - available）を下回る縮小は拒否する
func (e *Event) Resize(newTotal int) error {
	reserved := e.TotalSeats - e.AvailableSeats
	if newTotal < reserved {
		return ErrInvalidCapacity
	}
	e.TotalSeats = newTotal
	e.AvailableSeats = newTotal - reserved
	if e.AvailableSeats == 0 {
		e.Status = StatusSoldOut
	} else if e.Status == StatusSoldOut {
		e.Status = StatusOpen
	}
	e.UpdatedAt = time.Now()
	return nil
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrEventTitleRequired
	}
	if e.Venue == "" {
		return ErrEventVenueRequired
	}
	if e.TotalSeats <= 0 {
		return ErrInvalidTotalSeats
	}
	if e.AvailableSeats < 0 || e.AvailableSeats > e.TotalSeats {
		return ErrInvalidCapacity
	}
	return nil
}
