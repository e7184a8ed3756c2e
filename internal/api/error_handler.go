package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jinho7/concert-hub/internal/domain/event"
	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/user"
	"github.com/jinho7/concert-hub/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// domainStatus はドメインエラーをHTTPステータスに対応付ける
func domainStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, seat.ErrSeatNotFound),
		errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, seat.ErrSeatAlreadyReserved),
		errors.Is(err, seat.ErrSeatNotAvailable),
		errors.Is(err, user.ErrEmailAlreadyExists):
		return http.StatusConflict, true
	case errors.Is(err, reservation.ErrReservationExpired):
		return http.StatusGone, true
	case errors.Is(err, reservation.ErrReservationNotPending),
		errors.Is(err, reservation.ErrCannotBeCancelled),
		errors.Is(err, reservation.ErrSeatEventMismatch),
		errors.Is(err, seat.ErrSeatNotHeld),
		errors.Is(err, seat.ErrInvalidSeatOperation),
		errors.Is(err, event.ErrEventNotAvailable),
		errors.Is(err, event.ErrCapacityExhausted),
		errors.Is(err, event.ErrCapacityOverflow),
		errors.Is(err, event.ErrInvalidCapacity):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインエラーはステータスコードに対応付け、それ以外は500として扱う
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = "内部サーバーエラー"
	)

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else if status, ok := domainStatus(err); ok {
		code = status
		message = err.Error()
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// JSONレスポンスを返す
	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
