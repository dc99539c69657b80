package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// EmailTokenTTL is how long an emailed verification token stays valid
	EmailTokenTTL = time.Hour
	// PhoneCodeTTL is how long a phone verification code stays valid
	PhoneCodeTTL = 10 * time.Minute
)

// HashToken returns the hex SHA-256 of a verification token. Only the hash is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newEmailToken() (token, hash string, err error) {
	token, err = randomHex(32)
	if err != nil {
		return "", "", fmt.Errorf("generate verification token: %w", err)
	}
	return token, HashToken(token), nil
}

func newPhoneCode() (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", "", fmt.Errorf("generate phone code: %w", err)
	}
	code = fmt.Sprintf("%06d", n.Int64()+100000)
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash phone code: %w", err)
	}
	return code, string(h), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func tokenHashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
