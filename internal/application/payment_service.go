package application

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jinho7/concert-hub/internal/pkg/logger"
)

// PaymentResult は外部決済の結果を表す
// コアは成功した結果を確定のトリガーとして信頼する
type PaymentResult struct {
	Success      bool
	PaymentRef   string
	Amount       int
	ErrorMessage string
}

// PaymentService は決済ゲートウェイのモック
// 実際には外部決済APIを呼び出す
type PaymentService struct {
	failureRate float64
	delay       time.Duration
}

func NewPaymentService() *PaymentService {
	return &PaymentService{failureRate: 0.05, delay: 500 * time.Millisecond}
}

// NewPaymentServiceWithOptions はテスト用に失敗率と遅延を指定する
func NewPaymentServiceWithOptions(failureRate float64, delay time.Duration) *PaymentService {
	return &PaymentService{failureRate: failureRate, delay: delay}
}

// ProcessPayment は決済処理をシミュレートする
func (s *PaymentService) ProcessPayment(ctx context.Context, reservationID string, amount int) PaymentResult {
	logger.Info("決済処理開始",
		zap.String("reservation_id", reservationID),
		zap.Int("amount", amount),
	)

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return PaymentResult{Success: false, ErrorMessage: "決済処理が中断されました"}
		case <-time.After(s.delay):
		}
	}

	if rand.Float64() < s.failureRate {
		logger.Warn("決済失敗", zap.String("reservation_id", reservationID))
		return PaymentResult{
			Success:      false,
			ErrorMessage: "決済承認が拒否されました。カード会社にお問い合わせください。",
		}
	}

	ref := "PAY_" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
	logger.Info("決済成功", zap.String("payment_ref", ref))
	return PaymentResult{Success: true, PaymentRef: ref, Amount: amount}
}

// CancelPayment は決済取消をシミュレートする
func (s *PaymentService) CancelPayment(ctx context.Context, paymentRef string) bool {
	logger.Info("決済取消処理", zap.String("payment_ref", paymentRef))

	if rand.Float64() < s.failureRate {
		logger.Warn("決済取消失敗", zap.String("payment_ref", paymentRef))
		return false
	}
	return true
}
