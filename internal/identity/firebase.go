package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// FirebaseVerifier checks Firebase Auth ID tokens issued after phone OTP sign-in.
type FirebaseVerifier struct {
	client *auth.Client
	admins AdminSet
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App, admins AdminSet) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, admins: admins}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromClaims(tok.UID, tok.Claims, v.admins), nil
}

func (v *FirebaseVerifier) DeleteAccount(ctx context.Context, uid string) error {
	if err := v.client.DeleteUser(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return fmt.Errorf("failed to delete auth account: %w", err)
	}
	return nil
}

func identityFromClaims(uid string, claims map[string]interface{}, admins AdminSet) *Identity {
	id := &Identity{UID: uid}
	if phone, ok := claims["phone_number"].(string); ok {
		id.PhoneNumber = phone
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		id.Admin = true
	}
	if admins.Contains(uid) {
		id.Admin = true
	}
	return id
}
