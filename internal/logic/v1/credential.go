package v1

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/duynhne/account-service/internal/core/domain"
)

// ErrSignInCancelled is the failure reported when the user dismisses federated sign-in.
//
//nolint:staticcheck // shown to the user verbatim
var ErrSignInCancelled = errors.New("Sign-in was canceled. Please try again.")

// OutcomeKind classifies a settled credential request.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// CredentialOutcome is the single settled result of a credential request.
type CredentialOutcome struct {
	Kind       OutcomeKind
	Credential domain.Credential
	Err        error
}

// newNonce returns a random nonce and its SHA-256 hex digest. The digest is
// sent to the identity provider and comes back inside the ID token.
func newNonce() (raw, hashed string) {
	raw = uuid.NewString()
	sum := sha256.Sum256([]byte(raw))
	return raw, hex.EncodeToString(sum[:])
}

// awaitCredential turns the provider's callback into one settled outcome.
// Only the first settle counts; later callbacks are dropped. If ctx ends first
// the request settles as cancelled.
func awaitCredential(ctx context.Context, provider domain.CredentialProvider, req domain.CredentialRequest) CredentialOutcome {
	result := make(chan CredentialOutcome, 1)
	var once sync.Once
	settle := func(o CredentialOutcome) {
		once.Do(func() { result <- o })
	}

	provider.RequestCredential(ctx, req, func(cred domain.Credential, err error) {
		switch {
		case errors.Is(err, domain.ErrCredentialCancelled):
			settle(CredentialOutcome{Kind: OutcomeCancelled, Err: ErrSignInCancelled})
		case err != nil:
			settle(CredentialOutcome{Kind: OutcomeFailed, Err: err})
		case cred.Type != domain.CredentialTypeGoogleIDToken || cred.Token == "":
			settle(CredentialOutcome{Kind: OutcomeFailed, Err: fmt.Errorf("credential %q: %w", cred.Type, domain.ErrInvalidCredentialType)})
		default:
			settle(CredentialOutcome{Kind: OutcomeSuccess, Credential: cred})
		}
	})

	select {
	case o := <-result:
		return o
	case <-ctx.Done():
		settle(CredentialOutcome{Kind: OutcomeCancelled, Err: fmt.Errorf("%w: %w", ErrSignInCancelled, ctx.Err())})
		return <-result
	}
}
