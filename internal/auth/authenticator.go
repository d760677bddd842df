package auth

import (
	"context"

	"github.com/splitledger/splitledger/internal/models"
)

// Authenticator abstracts how users prove who they are, so the service
// layer does not care whether the credential is a password, a passkey,
// or an OAuth token.
type Authenticator interface {
	// Register creates a new user account. The credential format
	// depends on the implementation.
	Register(ctx context.Context, email, name, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks whether the credential meets the
	// implementation's requirements before any account is touched.
	ValidateCredential(credential string) error
}
