package service

import (
	"net/mail"
	"strings"

	"github.com/nivello/rewards/internal/apperr"
)

// NormalizeIdentity lowercases and trims an email identity and rejects
// syntactically invalid addresses. Identities are compared case-insensitively
// everywhere, so normalization happens once, at the boundary.
func NormalizeIdentity(identity string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(identity))
	if normalized == "" {
		return "", apperr.ErrInvalidIdentity
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", apperr.ErrInvalidIdentity
	}

	return normalized, nil
}
