package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Claims contains the relevant claims from a Firebase ID token.
type Claims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier checks an ID token issued for projectID.
type Verifier interface {
	Verify(ctx context.Context, projectID, rawToken string) (*Claims, error)
}

// FirebaseVerifier verifies Firebase ID tokens against Google's signing keys.
type FirebaseVerifier struct {
	keySet    oidc.KeySet
	clockSkew time.Duration
	now       func() time.Time
}

// NewFirebaseVerifier fetches signing keys from the securetoken JWKS endpoint.
// Keys are cached by the key set and refreshed on unknown key ids.
func NewFirebaseVerifier(ctx context.Context, clockSkew time.Duration, httpClient *http.Client) *FirebaseVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, httpClient), firebaseJWKSURL)
	return NewFirebaseVerifierWithKeySet(keySet, clockSkew)
}

// NewFirebaseVerifierWithKeySet verifies with a caller-provided key set.
func NewFirebaseVerifierWithKeySet(keySet oidc.KeySet, clockSkew time.Duration) *FirebaseVerifier {
	return &FirebaseVerifier{keySet: keySet, clockSkew: clockSkew, now: time.Now}
}

// Verify checks signature, issuer, audience and expiry, tolerating clockSkew.
func (v *FirebaseVerifier) Verify(ctx context.Context, projectID, rawToken string) (*Claims, error) {
	if projectID == "" {
		return nil, fmt.Errorf("verify id token: no project id")
	}

	skew := v.clockSkew
	verifier := oidc.NewVerifier(firebaseIssuerPrefix+projectID, v.keySet, &oidc.Config{
		ClientID: projectID,
		// Shifting the clock back accepts tokens that expired less than skew ago.
		Now: func() time.Time { return v.now().Add(-skew) },
	})

	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if strings.TrimSpace(claims.Sub) == "" {
		return nil, fmt.Errorf("verify id token: empty subject")
	}

	return &claims, nil
}
