package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	confirmationPrefix       = "RES"
	confirmationRandomLength = 6
	confirmationAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GenerateConfirmationNumber returns a token such as RES-MJ2K9X1A-7QF3ZA:
// prefix, base-36 millisecond timestamp, random base-36 suffix.
// Uniqueness is finally enforced by the database constraint.
func GenerateConfirmationNumber() (string, error) {
	timestamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	alphabetSize := big.NewInt(int64(len(confirmationAlphabet)))
	suffix := make([]byte, confirmationRandomLength)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation number: %w", err)
		}
		suffix[i] = confirmationAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s-%s-%s", confirmationPrefix, timestamp, suffix), nil
}
