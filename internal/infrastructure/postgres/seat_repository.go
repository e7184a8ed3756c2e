package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jinho7/concert-hub/internal/domain/seat"
	"github.com/jinho7/concert-hub/internal/domain/transaction"
)

type seatRow struct {
	ID            string     `db:"id"`
	EventID       string     `db:"event_id"`
	SeatRow       string     `db:"seat_row"`
	SeatNumber    string     `db:"seat_number"`
	Status        string     `db:"status"`
	Price         int        `db:"price"`
	HoldStartedAt *time.Time `db:"hold_started_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, EventID: r.EventID, SeatRow: r.SeatRow, SeatNumber: r.SeatNumber,
		Status: seat.Status(r.Status), Price: r.Price,
		HoldStartedAt: r.HoldStartedAt,
		CreatedAt:     r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

const seatColumns = `id, event_id, seat_row, seat_number, status, price, hold_started_at, created_at, updated_at, version`

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	query := `INSERT INTO seats (event_id, seat_row, seat_number, status, price, created_at, updated_at, version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.db.QueryRowContext(ctx, query, s.EventID, s.SeatRow, s.SeatNumber, string(s.Status), s.Price, s.CreatedAt, s.UpdatedAt, s.Version).Scan(&s.ID)
}

func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, seats []*seat.Seat) error {
	query := `INSERT INTO seats (event_id, seat_row, seat_number, status, price, created_at, updated_at, version) VALUES `
	args := make([]interface{}, 0, len(seats)*8)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * 8
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, s.EventID, s.SeatRow, s.SeatNumber, string(s.Status), s.Price, s.CreatedAt, s.UpdatedAt, s.Version)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`
	var row seatRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) GetByEventID(ctx context.Context, eventID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1 ORDER BY seat_row, seat_number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, err
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) GetAvailableByEventID(ctx context.Context, eventID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1 AND status = 'available' ORDER BY seat_row, seat_number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, err
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

// UpdateStatus は座席の状態遷移を楽観的ロック付きで永続化する
// tx が nil の場合はトランザクション外で実行する
func (r *SeatRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, s *seat.Seat) error {
	query := `UPDATE seats SET status = $1, hold_started_at = $2, updated_at = $3, version = version + 1 WHERE id = $4 AND version = $5`

	var execer sqlx.ExecerContext = r.db
	if sqlxTx := UnwrapTx(tx); sqlxTx != nil {
		execer = sqlxTx
	}

	result, err := execer.ExecContext(ctx, query, string(s.Status), s.HoldStartedAt, s.UpdatedAt, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("座席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return seat.ErrOptimisticLockConflict
	}
	s.Version++
	return nil
}

func (r *SeatRepository) GetExpiredHeld(ctx context.Context, ttl time.Duration) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE status = 'held' AND hold_started_at < $1`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, time.Now().Add(-ttl)); err != nil {
		return nil, fmt.Errorf("期限切れ座席取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) CountAvailableByEventID(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE event_id = $1 AND status = 'available'`, eventID)
	return count, err
}

var _ seat.Repository = (*SeatRepository)(nil)
