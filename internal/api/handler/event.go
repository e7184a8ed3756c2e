package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/domain/event"
)

type EventHandler struct {
	service EventServiceInterface
}

func NewEventHandler(s EventServiceInterface) *EventHandler {
	return &EventHandler{service: s}
}

type CreateEventRequest struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	Venue         string    `json:"venue" validate:"required,max=200"`
	EventDateTime time.Time `json:"event_date_time" validate:"required"`
	TotalSeats    int       `json:"total_seats" validate:"required,min=1"`
}

type UpdateEventRequest struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	Venue         string    `json:"venue" validate:"required,max=200"`
	EventDateTime time.Time `json:"event_date_time" validate:"required"`
	TotalSeats    int       `json:"total_seats" validate:"required,min=1"`
}

type ResizeEventRequest struct {
	TotalSeats int `json:"total_seats" validate:"required,min=1"`
}

type EventResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Venue          string    `json:"venue"`
	EventDateTime  time.Time `json:"event_date_time"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID: e.ID, Title: e.Title, Description: e.Description, Venue: e.Venue,
		EventDateTime: e.EventDateTime, TotalSeats: e.TotalSeats,
		AvailableSeats: e.AvailableSeats, Status: string(e.Status), CreatedAt: e.CreatedAt,
	}
}

// Create はイベントを作成する
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.service.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Title: req.Title, Description: req.Description, Venue: req.Venue,
		EventDateTime: req.EventDateTime, TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

func (h *EventHandler) GetByID(c echo.Context) error {
	e, err := h.service.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List はイベント一覧をページングで返す
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	events, err := h.service.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]EventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update はイベント情報を更新する
func (h *EventHandler) Update(c echo.Context) error {
	var req UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.service.UpdateEvent(c.Request().Context(), application.UpdateEventInput{
		ID: c.Param("id"), Title: req.Title, Description: req.Description,
		Venue: req.Venue, EventDateTime: req.EventDateTime, TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Resize は総座席数のみを変更する
func (h *EventHandler) Resize(c echo.Context) error {
	var req ResizeEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.service.ResizeEvent(c.Request().Context(), c.Param("id"), req.TotalSeats)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
