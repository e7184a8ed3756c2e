package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type CreateSeatsRequest struct {
	TotalRows   int `json:"total_rows" validate:"required,min=1,max=26"`
	SeatsPerRow int `json:"seats_per_row" validate:"required,min=1,max=100"`
	BasePrice   int `json:"base_price" validate:"required,min=0"`
}

type SeatResponse struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	SeatRow       string     `json:"seat_row"`
	SeatNumber    string     `json:"seat_number"`
	Display       string     `json:"display"`
	Status        string     `json:"status"`
	Price         int        `json:"price"`
	HoldStartedAt *time.Time `json:"hold_started_at,omitempty"`
}

func toSeatResponse(s *seat.Seat) SeatResponse {
	return SeatResponse{
		ID: s.ID, EventID: s.EventID, SeatRow: s.SeatRow, SeatNumber: s.SeatNumber,
		Display: s.Display(), Status: string(s.Status), Price: s.Price,
		HoldStartedAt: s.HoldStartedAt,
	}
}

// CreateSeats はイベントの座席を行単位で一括生成する
func (h *SeatHandler) CreateSeats(c echo.Context) error {
	eventID := c.Param("event_id")
	var req CreateSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.CreateSeats(c.Request().Context(), application.CreateSeatsInput{
		EventID: eventID, TotalRows: req.TotalRows, SeatsPerRow: req.SeatsPerRow, BasePrice: req.BasePrice,
	})
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetByEvent はイベントの座席一覧を取得する ?available=true で空席のみ
func (h *SeatHandler) GetByEvent(c echo.Context) error {
	eventID := c.Param("event_id")
	availableOnly := c.QueryParam("available") == "true"
	var seats []*seat.Seat
	var err error
	if availableOnly {
		seats, err = h.service.GetAvailableSeatsByEvent(c.Request().Context(), eventID)
	} else {
		seats, err = h.service.GetSeatsByEvent(c.Request().Context(), eventID)
	}
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SeatHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(s))
}

func (h *SeatHandler) CountAvailable(c echo.Context) error {
	count, err := h.service.CountAvailableSeats(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

// Hold は座席を直接仮押さえする（運用経路）
func (h *SeatHandler) Hold(c echo.Context) error {
	s, err := h.service.HoldSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(s))
}

// Confirm は仮押さえ中の座席を確定する（運用経路）
func (h *SeatHandler) Confirm(c echo.Context) error {
	s, err := h.service.ConfirmSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(s))
}

// Release は座席を解放する（運用経路）
func (h *SeatHandler) Release(c echo.Context) error {
	s, err := h.service.ReleaseSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(s))
}
