// Package profile stores and serves users' saved keyword filters.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeywords is the largest keyword set a profile may hold.
const MaxKeywords = 3

// Operator combines keyword clauses.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// ErrNotFound is returned when a user has no saved keywords.
var ErrNotFound = errors.New("keyword profile not found")

// ErrInvalid is returned for profiles violating the keyword rules.
var ErrInvalid = errors.New("invalid keyword profile")

// Profile is a user's saved keyword filter.
type Profile struct {
	UserID    string    `json:"user_id"`
	Keywords  []string  `json:"keywords"`
	Operator  Operator  `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider looks up a user's keyword profile.
type Provider interface {
	GetUserKeywords(ctx context.Context, userID string) (Profile, error)
}

// ParseOperator accepts AND/OR in any case; empty means OR.
func ParseOperator(raw string) (Operator, error) {
	switch Operator(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", OperatorOr:
		return OperatorOr, nil
	case OperatorAnd:
		return OperatorAnd, nil
	default:
		return "", fmt.Errorf("%w: operator must be AND or OR, got %q", ErrInvalid, raw)
	}
}

// NormalizeKeywords trims, drops blanks and removes duplicates keeping first occurrence.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Normalize returns a cleaned copy of the profile or ErrInvalid.
func (p Profile) Normalize() (Profile, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return p, fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	p.Keywords = NormalizeKeywords(p.Keywords)
	if len(p.Keywords) == 0 {
		return p, fmt.Errorf("%w: at least one keyword is required", ErrInvalid)
	}
	if len(p.Keywords) > MaxKeywords {
		return p, fmt.Errorf("%w: at most %d keywords allowed", ErrInvalid, MaxKeywords)
	}
	op, err := ParseOperator(string(p.Operator))
	if err != nil {
		return p, err
	}
	p.Operator = op
	return p, nil
}

// Static serves fixed profiles, keyed by user id. A nil map serves nothing.
type Static map[string]Profile

// GetUserKeywords implements Provider.
func (s Static) GetUserKeywords(_ context.Context, userID string) (Profile, error) {
	p, ok := s[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Validate reports whether the profile satisfies the keyword rules.
func (p Profile) Validate() error {
	_, err := p.Normalize()
	return err
}
