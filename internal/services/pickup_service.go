package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lunarveil/backend/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrPickupUnavailable is returned when an order isn't ready for
// collection or Redis isn't around to hold the token.
var ErrPickupUnavailable = errors.New("pickup code unavailable")

// PickupService issues short-lived QR tokens the counter scans to hand
// an order over. Tokens live only in Redis, so a scanned or expired
// token cannot be replayed.
type PickupService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewPickupService(db *sql.DB, redisClient *redis.Client) *PickupService {
	return &PickupService{
		db:    db,
		redis: redisClient,
	}
}

type pickupToken struct {
	OrderID   int64  `json:"order_id"`
	AccountID int64  `json:"account_id"`
	Nonce     string `json:"nonce"`
	IssuedAt  int64  `json:"issued_at"`
}

// GeneratePickupQR returns a PNG QR code for an order that is ready
// for pickup and owned by the caller.
func (s *PickupService) GeneratePickupQR(ctx context.Context, orderID, accountID int64) ([]byte, error) {
	if s.redis == nil {
		return nil, ErrPickupUnavailable
	}

	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 AND account_id = $2`,
		orderID, accountID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, storageErr("fetch order for pickup", err)
	}
	if models.OrderStatus(status) != models.StatusReadyForPickup {
		return nil, fmt.Errorf("%w: order is %s", ErrPickupUnavailable, status)
	}

	token := pickupToken{
		OrderID:   orderID,
		AccountID: accountID,
		Nonce:     generateNonce(),
		IssuedAt:  time.Now().Unix(),
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}

	code := base64.URLEncoding.EncodeToString(payload)
	key := fmt.Sprintf("pickup:%s", code)
	if err := s.redis.Set(ctx, key, payload, 10*time.Minute).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPickupUnavailable, err)
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// VerifyPickupCode validates a scanned code and consumes it. Returns
// the order id the counter should hand over.
func (s *PickupService) VerifyPickupCode(ctx context.Context, code string) (int64, error) {
	if s.redis == nil {
		return 0, ErrPickupUnavailable
	}

	key := fmt.Sprintf("pickup:%s", code)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, fmt.Errorf("%w: invalid or expired code", ErrPickupUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPickupUnavailable, err)
	}

	var token pickupToken
	if err := json.Unmarshal(data, &token); err != nil {
		return 0, fmt.Errorf("%w: malformed code", ErrPickupUnavailable)
	}

	// One scan per code.
	s.redis.Del(ctx, key)

	return token.OrderID, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
