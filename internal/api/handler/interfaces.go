package handler

import (
	"context"

	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/domain/event"
	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/user"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
	UpdateEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error)
	ResizeEvent(ctx context.Context, id string, newTotal int) (*event.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	CreateSeats(ctx context.Context, input application.CreateSeatsInput) ([]*seat.Seat, error)
	GetSeat(ctx context.Context, id string) (*seat.Seat, error)
	GetSeatsByEvent(ctx context.Context, eventID string) ([]*seat.Seat, error)
	GetAvailableSeatsByEvent(ctx context.Context, eventID string) ([]*seat.Seat, error)
	CountAvailableSeats(ctx context.Context, eventID string) (int, error)
	HoldSeat(ctx context.Context, id string) (*seat.Seat, error)
	ConfirmSeat(ctx context.Context, id string) (*seat.Seat, error)
	ReleaseSeat(ctx context.Context, id string) (*seat.Seat, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error)
	ConfirmReservation(ctx context.Context, id, paymentRef string) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	CleanupExpiredReservations(ctx context.Context) (int, error)
}

// UserServiceInterface はユーザーサービスのインターフェース
type UserServiceInterface interface {
	RegisterUser(ctx context.Context, input application.RegisterUserInput) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// PaymentServiceInterface は決済サービスのインターフェース
type PaymentServiceInterface interface {
	ProcessPayment(ctx context.Context, reservationID string, amount int) application.PaymentResult
	CancelPayment(ctx context.Context, paymentRef string) bool
}
