package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

// URL-safe alphabet
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

const (
	DefaultCodeLength = 5
	MaxCodeLength     = 32
)

var validCode = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// GenerateCode returns a random session code of the given length.
// A non-positive length falls back to DefaultCodeLength.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	result := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := range result {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}

// IsValidCode validates that a code only uses the session code alphabet
func IsValidCode(code string) bool {
	if len(code) == 0 || len(code) > MaxCodeLength {
		return false
	}
	return validCode.MatchString(code)
}
