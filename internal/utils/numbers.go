package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber builds a human-readable order number with a timestamp
// prefix and a random suffix. Global uniqueness is enforced by the unique
// index on orders.order_number.
func GenerateOrderNumber() string {
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		suffix = big.NewInt(time.Now().UnixNano() % 10000)
	}
	return fmt.Sprintf("FLX-%s-%04d", time.Now().Format("060102150405"), suffix.Int64())
}

// GenerateTrackingNumber builds a carrier-style tracking reference.
func GenerateTrackingNumber() string {
	return "TRK-" + strings.ToUpper(uuid.NewString()[:8])
}

// GenerateOTP returns a six-digit numeric one-time passcode.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
