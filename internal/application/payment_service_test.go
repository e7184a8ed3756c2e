package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPayment_Success(t *testing.T) {
	svc := NewPaymentServiceWithOptions(0, 0)
	result := svc.ProcessPayment(context.Background(), "res-1", 12000)

	require.True(t, result.Success)
	assert.Equal(t, 12000, result.Amount)
	// 参照は PAY_ + 16桁の大文字英数字
	assert.True(t, strings.HasPrefix(result.PaymentRef, "PAY_"))
	assert.Len(t, result.PaymentRef, 20)
	assert.Equal(t, strings.ToUpper(result.PaymentRef), result.PaymentRef)
}

func TestProcessPayment_Failure(t *testing.T) {
	svc := NewPaymentServiceWithOptions(1.0, 0)
	result := svc.ProcessPayment(context.Background(), "res-1", 12000)

	require.False(t, result.Success)
	assert.Empty(t, result.PaymentRef)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestProcessPayment_ContextCancelled(t *testing.T) {
	svc := NewPaymentServiceWithOptions(0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.ProcessPayment(ctx, "res-1", 12000)
	assert.False(t, result.Success)
}

func TestCancelPayment(t *testing.T) {
	svc := NewPaymentServiceWithOptions(0, 0)
	assert.True(t, svc.CancelPayment(context.Background(), "PAY_ABCD1234EFGH5678"))

	alwaysFail := NewPaymentServiceWithOptions(1.0, 0)
	assert.False(t, alwaysFail.CancelPayment(context.Background(), "PAY_ABCD1234EFGH5678"))
}
