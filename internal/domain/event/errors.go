package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = errors.New("イベントが見つかりません")
	ErrEventNotAvailable      = errors.New("イベントは予約を受け付けていません")
	ErrCapacityExhausted      = errors.New("予約可能な座席がありません")
	ErrCapacityOverflow       = errors.New("残席数が総座席数を超えています")
	ErrInvalidCapacity        = errors.New("座席数が確定済み座席数を下回っています")
	ErrEventTitleRequired     = errors.New("イベント名は必須です")
	ErrEventVenueRequired     = errors.New("会場は必須です")
	ErrInvalidTotalSeats      = errors.New("座席数は1以上である必要があります")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
