package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	qrCodeLength   = 12
	qrCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewQRCode returns the 12 character code a resident shows to collect a
// RAT kit.
func NewQRCode() (string, error) {
	var sb strings.Builder
	sb.Grow(qrCodeLength)

	limit := big.NewInt(int64(len(qrCodeAlphabet)))
	for range qrCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate qr code: %w", err)
		}
		sb.WriteByte(qrCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// meetingURL returns a fresh video room under base for a home test.
func meetingURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + uuid.NewString()
}

func newSMSPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate sms pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
