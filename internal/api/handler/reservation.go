package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/domain/event"
	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/user"
	"github.com/jinho7/concert-hub/internal/pkg/metrics"
)

type ReservationHandler struct {
	service ReservationServiceInterface
	payment PaymentServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface, p PaymentServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s, payment: p}
}

type CreateReservationRequest struct {
	EventID string `json:"event_id" validate:"required"`
	SeatID  string `json:"seat_id" validate:"required"`
}

type ReservationResponse struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	SeatID     string     `json:"seat_id"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	TotalPrice int        `json:"total_price"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	PaymentRef *string    `json:"payment_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, EventID: r.EventID, SeatID: r.SeatID, UserID: r.UserID,
		Status: string(r.Status), TotalPrice: r.TotalPrice,
		ExpiresAt: r.ExpiresAt, PaymentRef: r.PaymentRef, CreatedAt: r.CreatedAt,
	}
}

func recordReservation(status string) {
	if m := metrics.Get(); m != nil {
		m.ReservationsTotal.WithLabelValues(status).Inc()
	}
}

// createOutcome は予約作成の失敗をメトリクス用のラベルに分類する
func createOutcome(err error) string {
	switch {
	case errors.Is(err, seat.ErrSeatAlreadyReserved),
		errors.Is(err, seat.ErrSeatNotAvailable),
		errors.Is(err, seat.ErrOptimisticLockConflict),
		errors.Is(err, event.ErrCapacityExhausted):
		return "conflict"
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, seat.ErrSeatNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Create は座席を仮押さえして予約を作成する（15分間有効）
func (h *ReservationHandler) Create(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		EventID: req.EventID, SeatID: req.SeatID, UserID: userID,
	})
	if err != nil {
		recordReservation(createOutcome(err))
		return err
	}
	recordReservation("created")
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID は指定IDの予約を取得する
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// GetUserReservations はログインユーザーの予約一覧を取得する
func (h *ReservationHandler) GetUserReservations(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	reservations, err := h.service.GetUserReservations(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Confirm は決済を実行し、成功した場合のみ予約を確定する
func (h *ReservationHandler) Confirm(c echo.Context) error {
	id := c.Param("id")

	r, err := h.service.GetReservation(c.Request().Context(), id)
	if err != nil {
		return err
	}

	// 決済の成否はコアの外で決まり、成功結果だけが確定のトリガーになる
	result := h.payment.ProcessPayment(c.Request().Context(), id, r.TotalPrice)
	if !result.Success {
		recordReservation("payment_failed")
		return echo.NewHTTPError(http.StatusPaymentRequired, result.ErrorMessage)
	}

	confirmed, err := h.service.ConfirmReservation(c.Request().Context(), id, result.PaymentRef)
	if err != nil {
		// 確定に失敗した場合は決済を取り消す
		h.payment.CancelPayment(c.Request().Context(), result.PaymentRef)
		recordReservation("error")
		return err
	}
	recordReservation("confirmed")
	return c.JSON(http.StatusOK, toReservationResponse(confirmed))
}

// Cancel は予約をキャンセルし、座席を解放する
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.service.CancelReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	// 確定済みだった予約の返金
	if r.PaymentRef != nil {
		h.payment.CancelPayment(c.Request().Context(), *r.PaymentRef)
	}
	recordReservation("cancelled")
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
