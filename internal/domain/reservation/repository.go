package reservation

import (
	"context"

	"github.com/jinho7/concert-hub/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetActiveBySeatID は座席を参照する有効な予約（pending/confirmed）を取得する
	GetActiveBySeatID(ctx context.Context, seatID string) (*Reservation, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Reservation, error)

	// Update は予約を更新する（トランザクション任意）
	Update(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetExpiredPending は有効期限を過ぎた保留中予約を取得する
	GetExpiredPending(ctx context.Context) ([]*Reservation, error)
}
