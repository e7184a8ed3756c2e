package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound   = errors.New("予約が見つかりません")
	ErrReservationNotPending = errors.New("予約は保留中ではありません")
	ErrReservationExpired    = errors.New("予約の有効期限が切れています")
	ErrCannotBeCancelled     = errors.New("キャンセルできない予約です")
	ErrSeatEventMismatch     = errors.New("座席は指定されたイベントのものではありません")
	ErrEventIDRequired       = errors.New("イベントIDは必須です")
	ErrSeatIDRequired        = errors.New("座席IDは必須です")
	ErrUserIDRequired        = errors.New("ユーザーIDは必須です")
	ErrInvalidTotalPrice     = errors.New("合計金額は0以上である必要があります")
)
