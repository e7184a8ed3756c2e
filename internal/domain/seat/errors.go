package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound           = errors.New("座席が見つかりません")
	ErrSeatNotAvailable       = errors.New("座席は予約できません")
	ErrSeatNotHeld            = errors.New("座席は仮押さえされていません")
	ErrSeatAlreadyReserved    = errors.New("座席は既に予約されています")
	ErrInvalidSeatOperation   = errors.New("不正な座席操作です")
	ErrEventIDRequired        = errors.New("イベントIDは必須です")
	ErrSeatRowRequired        = errors.New("座席の列は必須です")
	ErrSeatNumberRequired     = errors.New("座席番号は必須です")
	ErrInvalidPrice           = errors.New("価格は0以上である必要があります")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
