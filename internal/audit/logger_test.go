package audit

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	fn()
	return buf.String()
}

func TestLogger_OrderEventsCarryOrderID(t *testing.T) {
	logger := NewLogger()

	t.Run("order payment", func(t *testing.T) {
		out := captureLog(func() {
			logger.LogOrderPayment(101, 11, 5600)
		})
		assert.Contains(t, out, `"event_type":"ORDER_PAYMENT"`)
		assert.Contains(t, out, `"order_id":101`)
		assert.Contains(t, out, `"account_id":11`)
		assert.Contains(t, out, `"amount":"56.00"`)
	})

	t.Run("order refund", func(t *testing.T) {
		out := captureLog(func() {
			logger.LogOrderRefund(101, 11, 5600)
		})
		assert.Contains(t, out, `"event_type":"ORDER_REFUND"`)
		assert.Contains(t, out, `"order_id":101`)
	})

	t.Run("wallet events omit the order id", func(t *testing.T) {
		out := captureLog(func() {
			logger.LogDebit("ref-1", 11, 6000)
		})
		assert.Contains(t, out, `"event_type":"WALLET_DEBIT"`)
		assert.Contains(t, out, `"reference_id":"ref-1"`)
		assert.NotContains(t, out, "order_id")
	})
}

func TestLogger_StatusChange(t *testing.T) {
	logger := NewLogger()

	out := captureLog(func() {
		logger.LogStatusChange(101, "Pending", "Making")
	})
	assert.Contains(t, out, `"event_type":"ORDER_STATUS"`)
	assert.Contains(t, out, `"from":"Pending"`)
	assert.Contains(t, out, `"to":"Making"`)
}
