package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	testServer.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type userResp struct {
	ID string `json:"id"`
}

type eventResp struct {
	ID             string `json:"id"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
}

type seatResp struct {
	ID      string `json:"id"`
	Display string `json:"display"`
	Status  string `json:"status"`
	Price   int    `json:"price"`
}

type reservationResp struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	TotalPrice int        `json:"total_price"`
	ExpiresAt  *time.Time `json:"expires_at"`
	PaymentRef *string    `json:"payment_ref"`
}

func createFixtures(t *testing.T) (userID, eventID string, seats []seatResp) {
	t.Helper()

	rec := doJSON(t, http.MethodPost, "/api/v1/users", map[string]any{
		"name":  "E2Eユーザー",
		"email": uuid.New().String() + "@example.com",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	userID = decode[userResp](t, rec).ID

	rec = doJSON(t, http.MethodPost, "/api/v1/events", map[string]any{
		"title":           "E2Eコンサート",
		"venue":           "テストホール",
		"event_date_time": time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"total_seats":     4,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	eventID = decode[eventResp](t, rec).ID

	rec = doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/events/%s/seats", eventID), map[string]any{
		"total_rows":    2,
		"seats_per_row": 2,
		"base_price":    10000,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	seats = decode[[]seatResp](t, rec)
	require.Len(t, seats, 4)
	return userID, eventID, seats
}

// TestReservationFlow は予約の作成から確定までのHTTPフローを検証する
func TestReservationFlow(t *testing.T) {
	userID, eventID, seats := createFixtures(t)
	auth := map[string]string{"X-User-ID": userID}

	// 予約作成
	rec := doJSON(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"event_id": eventID,
		"seat_id":  seats[0].ID,
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[reservationResp](t, rec)
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, seats[0].Price, res.TotalPrice)
	assert.NotNil(t, res.ExpiresAt)

	// 同じ座席への二重予約は409
	rec = doJSON(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"event_id": eventID,
		"seat_id":  seats[0].ID,
	}, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// pending の間は残席が減らない
	rec = doJSON(t, http.MethodGet, "/api/v1/events/"+eventID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[eventResp](t, rec).AvailableSeats)

	// 確定（決済込み）
	rec = doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/confirm", res.ID), nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[reservationResp](t, rec)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.NotNil(t, confirmed.PaymentRef)
	assert.Nil(t, confirmed.ExpiresAt)

	// 確定で残席が減る
	rec = doJSON(t, http.MethodGet, "/api/v1/events/"+eventID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[eventResp](t, rec).AvailableSeats)

	// 二重確定は400
	rec = doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/confirm", res.ID), nil, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestReservationCancelFlow はキャンセルによる座席と残席の復元を検証する
func TestReservationCancelFlow(t *testing.T) {
	userID, eventID, seats := createFixtures(t)
	auth := map[string]string{"X-User-ID": userID}

	rec := doJSON(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"event_id": eventID,
		"seat_id":  seats[1].ID,
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[reservationResp](t, rec)

	rec = doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/confirm", res.ID), nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// キャンセルで座席が解放され残席が戻る
	rec = doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/cancel", res.ID), nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[reservationResp](t, rec).Status)

	rec = doJSON(t, http.MethodGet, "/api/v1/events/"+eventID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[eventResp](t, rec).AvailableSeats)

	// 解放後は同じ座席を再予約できる
	rec = doJSON(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"event_id": eventID,
		"seat_id":  seats[1].ID,
	}, auth)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// TestAvailableCount は空席数エンドポイントを検証する
func TestAvailableCount(t *testing.T) {
	_, eventID, _ := createFixtures(t)

	rec := doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/seats/available-count", eventID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count := decode[map[string]int](t, rec)
	assert.Equal(t, 4, count["count"])
}

// TestReservationRequiresUser は認証ヘッダーなしの予約を拒否する
func TestReservationRequiresUser(t *testing.T) {
	_, eventID, seats := createFixtures(t)

	rec := doJSON(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"event_id": eventID,
		"seat_id":  seats[0].ID,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
