package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jinho7/concert-hub/internal/domain/reservation"
	"github.com/jinho7/concert-hub/internal/domain/transaction"
)

type reservationRow struct {
	ID         string     `db:"id"`
	EventID    string     `db:"event_id"`
	SeatID     string     `db:"seat_id"`
	UserID     string     `db:"user_id"`
	Status     string     `db:"status"`
	TotalPrice int        `db:"total_price"`
	ExpiresAt  *time.Time `db:"expires_at"`
	PaymentRef *string    `db:"payment_ref"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, EventID: r.EventID, SeatID: r.SeatID, UserID: r.UserID,
		Status: reservation.Status(r.Status), TotalPrice: r.TotalPrice,
		ExpiresAt: r.ExpiresAt, PaymentRef: r.PaymentRef,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const reservationColumns = `id, event_id, seat_id, user_id, status, total_price, expires_at, payment_ref, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("予約作成にはトランザクションが必要です")
	}
	query := `INSERT INTO reservations (event_id, seat_id, user_id, status, total_price, expires_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query, res.EventID, res.SeatID, res.UserID, string(res.Status), res.TotalPrice, res.ExpiresAt, res.CreatedAt, res.UpdatedAt).Scan(&res.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetActiveBySeatID は座席を参照する pending/confirmed の予約を取得する
// 有効な予約が無い場合は ErrReservationNotFound を返す
func (r *ReservationRepository) GetActiveBySeatID(ctx context.Context, seatID string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE seat_id = $1 AND status IN ('pending', 'confirmed') LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, seatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	query := `UPDATE reservations SET status = $1, expires_at = $2, payment_ref = $3, updated_at = $4 WHERE id = $5`

	var execer sqlx.ExecerContext = r.db
	if sqlxTx := UnwrapTx(tx); sqlxTx != nil {
		execer = sqlxTx
	}

	result, err := execer.ExecContext(ctx, query, string(res.Status), res.ExpiresAt, res.PaymentRef, res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) GetExpiredPending(ctx context.Context) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'pending' AND expires_at < NOW()`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
