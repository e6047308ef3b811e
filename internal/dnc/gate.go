// Package dnc answers one question for the dialer: may this number be called?
package dnc

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidNumber = errors.New("dnc: invalid phone number")

// Gate is a do-not-call membership check. Implementations must be safe for concurrent use.
type Gate interface {
	IsBlocked(ctx context.Context, phoneNumber string) (bool, error)
}

// List is a Gate whose membership can be managed.
type List interface {
	Gate
	Add(ctx context.Context, phoneNumber, reason string) error
	Remove(ctx context.Context, phoneNumber string) error
}

// Normalize reduces a phone number to +<digits> so lookups match regardless of
// formatting. Ten-digit numbers without a country code are treated as NANP.
func Normalize(phoneNumber string) (string, error) {
	s := strings.TrimSpace(phoneNumber)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return "", ErrInvalidNumber
		}
	}
	digits := b.String()
	if !strings.HasPrefix(s, "+") && len(digits) == 10 {
		digits = "1" + digits
	}
	if len(digits) < 8 || len(digits) > 15 || digits[0] == '0' {
		return "", ErrInvalidNumber
	}
	return "+" + digits, nil
}
