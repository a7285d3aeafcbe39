package identity

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller as reported by the identity provider.
type Identity struct {
	UID         string
	PhoneNumber string
	Email       string
	Admin       bool
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AccountDeleter removes the provider-side account on user deletion.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, uid string) error
}

// AdminSet grants the admin role to a fixed list of UIDs on top of whatever
// the provider reports.
type AdminSet map[string]struct{}

func NewAdminSet(uids []string) AdminSet {
	set := make(AdminSet, len(uids))
	for _, uid := range uids {
		if uid != "" {
			set[uid] = struct{}{}
		}
	}
	return set
}

func (a AdminSet) Contains(uid string) bool {
	_, ok := a[uid]
	return ok
}

// Static verifies tokens against a fixed table.
type Static struct {
	Tokens map[string]Identity
}

func (s Static) Verify(_ context.Context, token string) (*Identity, error) {
	id, ok := s.Tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}
