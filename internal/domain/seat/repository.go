package seat

import (
	"context"
	"time"

	"github.com/jinho7/concert-hub/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// Create は新しい座席を作成する
	Create(ctx context.Context, seat *Seat) error

	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, seats []*Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, id string) (*Seat, error)

	// GetByEventID はイベントIDから座席一覧を取得する
	GetByEventID(ctx context.Context, eventID string) ([]*Seat, error)

	// GetAvailableByEventID はイベントIDから利用可能な座席一覧を取得する
	GetAvailableByEventID(ctx context.Context, eventID string) ([]*Seat, error)

	// UpdateStatus は座席の状態遷移を永続化する（トランザクション任意）
	UpdateStatus(ctx context.Context, tx transaction.Tx, seat *Seat) error

	// GetExpiredHeld は仮押さえ開始からTTLを超過した座席一覧を取得する
	GetExpiredHeld(ctx context.Context, ttl time.Duration) ([]*Seat, error)

	// CountAvailableByEventID はイベントの利用可能座席数を取得する
	CountAvailableByEventID(ctx context.Context, eventID string) (int, error)
}
