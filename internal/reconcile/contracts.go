package reconcile

import (
	"context"

	"practice_system/internal/domain"
)

// AccountStore is the persistence contract the Reconciler depends on.
// Implementations must enforce uniqueness on username, email and
// drs_id, and must return ErrNotFound (possibly wrapped) when a lookup
// misses.
type AccountStore interface {
	// FindByID loads one account by primary key.
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByEmail loads one account by email, password hash included.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Save persists a loaded-and-mutated account.
	Save(ctx context.Context, account *domain.Account) error
	// UpsertByEmail updates the account matching the payload's email or
	// inserts a new one. The payload is server-constructed; stores must
	// not apply request-level validation to it.
	UpsertByEmail(ctx context.Context, payload *domain.Account) error
}

// CredentialIssuer mints a one-time password for a newly provisioned
// doctor account, delivers it to the doctor out-of-band, and returns
// only the hash. The plaintext never reaches the Reconciler.
type CredentialIssuer interface {
	IssueTemporaryCredential(ctx context.Context, email, lastName, drsID string) (hash string, err error)
}
