package identity

import (
	"context"
	"fmt"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
)

// ClerkVerifier checks Clerk session JWTs and loads the phone number from
// the Clerk user record.
type ClerkVerifier struct {
	admins AdminSet
}

func NewClerkVerifier(secretKey string, admins AdminSet) (*ClerkVerifier, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(secretKey)
	return &ClerkVerifier{admins: admins}, nil
}

func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &Identity{UID: claims.Subject, Admin: v.admins.Contains(claims.Subject)}

	u, err := clerkuser.Get(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load clerk user: %w", err)
	}
	id.PhoneNumber = primaryPhone(u)
	id.Email = primaryEmail(u)
	return id, nil
}

func (v *ClerkVerifier) DeleteAccount(ctx context.Context, uid string) error {
	if _, err := clerkuser.Delete(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete clerk user: %w", err)
	}
	return nil
}

func primaryPhone(u *clerk.User) string {
	for _, p := range u.PhoneNumbers {
		if u.PrimaryPhoneNumberID != nil && p.ID == *u.PrimaryPhoneNumberID {
			return p.PhoneNumber
		}
	}
	if len(u.PhoneNumbers) > 0 {
		return u.PhoneNumbers[0].PhoneNumber
	}
	return ""
}

func primaryEmail(u *clerk.User) string {
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != nil && e.ID == *u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}
