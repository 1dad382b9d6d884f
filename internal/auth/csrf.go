package auth

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"strings"

	"hypda/entry/internal/util"
)

var ErrCSRFMismatch = errors.New("csrf token mismatch")

func NewCSRFToken() (string, error) {
	token, err := util.NewToken(24)
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return token, nil
}

// CheckCSRF compares the header value against the claim in constant time.
func CheckCSRF(claims Claims, header string) error {
	header = strings.TrimSpace(header)
	if header == "" || claims.CSRF == "" {
		return ErrCSRFMismatch
	}
	if !hmac.Equal([]byte(header), []byte(claims.CSRF)) {
		return ErrCSRFMismatch
	}
	return nil
}
