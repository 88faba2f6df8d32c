package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/lunarveil/backend/internal/models"
)

type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	ReferenceID string    `json:"reference_id"`
	AccountID   int64     `json:"account_id"`
	OrderID     int64     `json:"order_id,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	Details     any       `json:"details,omitempty"`
}

// Logger emits one structured line per balance-affecting operation so
// the wallet ledger can be reconciled against the audit stream.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogDebit(referenceID string, accountID int64, amount models.Centavos) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "WALLET_DEBIT",
		ReferenceID: referenceID,
		AccountID:   accountID,
		Amount:      amount.String(),
		Status:      "SUCCESS",
	})
}

func (a *Logger) LogCredit(referenceID string, accountID int64, amount models.Centavos) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "WALLET_CREDIT",
		ReferenceID: referenceID,
		AccountID:   accountID,
		Amount:      amount.String(),
		Status:      "SUCCESS",
	})
}

// LogOrderPayment ties a checkout debit to the order it paid for.
func (a *Logger) LogOrderPayment(orderID, accountID int64, amount models.Centavos) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ORDER_PAYMENT",
		AccountID: accountID,
		OrderID:   orderID,
		Amount:    amount.String(),
		Status:    "SUCCESS",
	})
}

// LogOrderRefund ties a cancellation credit to the cancelled order.
func (a *Logger) LogOrderRefund(orderID, accountID int64, amount models.Centavos) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ORDER_REFUND",
		AccountID: accountID,
		OrderID:   orderID,
		Amount:    amount.String(),
		Status:    "SUCCESS",
	})
}

func (a *Logger) LogStatusChange(orderID int64, from, to models.OrderStatus) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ORDER_STATUS",
		OrderID:   orderID,
		Status:    "SUCCESS",
		Details:   map[string]string{"from": string(from), "to": string(to)},
	})
}

func (a *Logger) LogError(referenceID string, accountID int64, err error) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "ERROR",
		ReferenceID: referenceID,
		AccountID:   accountID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
