package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jinho7/concert-hub/internal/application"
	"github.com/jinho7/concert-hub/internal/domain/event"
	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/user"
)

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) ConfirmReservation(ctx context.Context, id, paymentRef string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CleanupExpiredReservations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockPaymentService はPaymentServiceInterfaceのモック
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ProcessPayment(ctx context.Context, reservationID string, amount int) application.PaymentResult {
	args := m.Called(ctx, reservationID, amount)
	return args.Get(0).(application.PaymentResult)
}

func (m *MockPaymentService) CancelPayment(ctx context.Context, paymentRef string) bool {
	args := m.Called(ctx, paymentRef)
	return args.Bool(0)
}

func testReservation(id string) *reservation.Reservation {
	r := reservation.NewReservation("event-1", "seat-1", "user-1", 12000, 15*time.Minute)
	r.ID = id
	return r
}

func TestReservationHandler_Create(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	res := testReservation("res-1")
	svc.On("CreateReservation", mock.Anything, application.CreateReservationInput{
		EventID: "event-1", SeatID: "seat-1", UserID: "user-1",
	}).Return(res, nil)

	body := `{"event_id":"event-1","seat_id":"seat-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "res-1", resp.ID)
	assert.Equal(t, string(reservation.StatusPending), resp.Status)
	assert.NotNil(t, resp.ExpiresAt)
}

func TestReservationHandler_Create_MissingUser(t *testing.T) {
	e := NewTestEcho()
	h := NewReservationHandler(new(MockReservationService), new(MockPaymentService))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{"event_id":"e","seat_id":"s"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestReservationHandler_Create_ValidationError(t *testing.T) {
	e := NewTestEcho()
	h := NewReservationHandler(new(MockReservationService), new(MockPaymentService))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{"event_id":"event-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.Error(t, h.Create(c))
}

func TestReservationHandler_Confirm(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	pending := testReservation("res-1")
	confirmed := testReservation("res-1")
	require.NoError(t, confirmed.Confirm("PAY_ABCD1234EFGH5678"))

	svc.On("GetReservation", mock.Anything, "res-1").Return(pending, nil)
	pay.On("ProcessPayment", mock.Anything, "res-1", 12000).Return(application.PaymentResult{
		Success: true, PaymentRef: "PAY_ABCD1234EFGH5678", Amount: 12000,
	})
	svc.On("ConfirmReservation", mock.Anything, "res-1", "PAY_ABCD1234EFGH5678").Return(confirmed, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/confirm", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("res-1")

	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(reservation.StatusConfirmed), resp.Status)
	require.NotNil(t, resp.PaymentRef)
}

func TestReservationHandler_Confirm_PaymentDeclined(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	pending := testReservation("res-1")
	svc.On("GetReservation", mock.Anything, "res-1").Return(pending, nil)
	pay.On("ProcessPayment", mock.Anything, "res-1", 12000).Return(application.PaymentResult{
		Success: false, ErrorMessage: "決済承認が拒否されました",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/confirm", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("res-1")

	err := h.Confirm(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusPaymentRequired, he.Code)
	// 決済が通らなければ確定は呼ばれない
	svc.AssertNotCalled(t, "ConfirmReservation", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationHandler_Confirm_CompensatesOnFailure(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	pending := testReservation("res-1")
	svc.On("GetReservation", mock.Anything, "res-1").Return(pending, nil)
	pay.On("ProcessPayment", mock.Anything, "res-1", 12000).Return(application.PaymentResult{
		Success: true, PaymentRef: "PAY_ABCD1234EFGH5678", Amount: 12000,
	})
	svc.On("ConfirmReservation", mock.Anything, "res-1", "PAY_ABCD1234EFGH5678").
		Return(nil, reservation.ErrReservationExpired)
	pay.On("CancelPayment", mock.Anything, "PAY_ABCD1234EFGH5678").Return(true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/confirm", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("res-1")

	err := h.Confirm(c)
	assert.ErrorIs(t, err, reservation.ErrReservationExpired)
	// 確定に失敗した決済は取り消される
	pay.AssertCalled(t, "CancelPayment", mock.Anything, "PAY_ABCD1234EFGH5678")
}

func TestReservationHandler_Cancel_RefundsConfirmed(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	cancelled := testReservation("res-1")
	require.NoError(t, cancelled.Confirm("PAY_ABCD1234EFGH5678"))
	require.NoError(t, cancelled.Cancel())

	svc.On("CancelReservation", mock.Anything, "res-1").Return(cancelled, nil)
	pay.On("CancelPayment", mock.Anything, "PAY_ABCD1234EFGH5678").Return(true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("res-1")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	pay.AssertCalled(t, "CancelPayment", mock.Anything, "PAY_ABCD1234EFGH5678")
}

func TestReservationHandler_Cancel_PendingNoRefund(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	pay := new(MockPaymentService)
	h := NewReservationHandler(svc, pay)

	cancelled := testReservation("res-1")
	require.NoError(t, cancelled.Cancel())

	svc.On("CancelReservation", mock.Anything, "res-1").Return(cancelled, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("res-1")

	require.NoError(t, h.Cancel(c))
	// 決済参照のない予約に返金は発生しない
	pay.AssertNotCalled(t, "CancelPayment", mock.Anything, mock.Anything)
}

func TestCreateOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"座席が予約済み", seat.ErrSeatAlreadyReserved, "conflict"},
		{"座席が予約不可", seat.ErrSeatNotAvailable, "conflict"},
		{"楽観的ロック競合", seat.ErrOptimisticLockConflict, "conflict"},
		{"残席なし", event.ErrCapacityExhausted, "conflict"},
		{"イベントが存在しない", event.ErrEventNotFound, "not_found"},
		{"座席が存在しない", seat.ErrSeatNotFound, "not_found"},
		{"ユーザーが存在しない", user.ErrUserNotFound, "not_found"},
		{"ラップされた競合エラー", fmt.Errorf("有効予約の確認に失敗: %w", seat.ErrSeatAlreadyReserved), "conflict"},
		{"その他のエラー", errors.New("接続エラー"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, createOutcome(tt.err))
		})
	}
}

func TestReservationHandler_GetUserReservations(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockReservationService)
	h := NewReservationHandler(svc, new(MockPaymentService))

	svc.On("GetUserReservations", mock.Anything, "user-1", 0, 0).
		Return([]*reservation.Reservation{testReservation("res-1"), testReservation("res-2")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.GetUserReservations(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}
