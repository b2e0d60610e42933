package moderation

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"

	"uniqiita/internal/credentials"
)

// CredentialState exposes the current identity-provider client.
type CredentialState interface {
	State() credentials.State
}

// FirebaseRevoker revokes refresh tokens through the Admin SDK.
type FirebaseRevoker struct {
	creds CredentialState
}

// NewFirebaseRevoker returns a revoker bound to the credential manager.
func NewFirebaseRevoker(creds CredentialState) *FirebaseRevoker {
	return &FirebaseRevoker{creds: creds}
}

// RevokeByEmail is a no-op when no Admin client is available or the account does not exist.
func (r *FirebaseRevoker) RevokeByEmail(ctx context.Context, email string) error {
	state := r.creds.State()
	if !state.Ready || state.Client == nil || state.Client.Auth == nil {
		return nil
	}

	record, err := state.Client.Auth.GetUserByEmail(ctx, email)
	if fbauth.IsUserNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup identity account: %w", err)
	}
	if err := state.Client.Auth.RevokeRefreshTokens(ctx, record.UID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
