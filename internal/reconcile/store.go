package reconcile

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"practice_system/internal/domain"
)

// GormAccountStore implements AccountStore on a GORM connection.
// The connection must be opened with TranslateError so duplicate-key
// rejections surface as gorm.ErrDuplicatedKey.
type GormAccountStore struct {
	db *gorm.DB
}

// NewGormAccountStore wraps a GORM connection as an AccountStore.
func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "find account by id", Err: err}
	}
	return &account, nil
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "find account by email", Err: err}
	}
	return &account, nil
}

func (s *GormAccountStore) Save(ctx context.Context, account *domain.Account) error {
	if err := s.db.WithContext(ctx).Save(account).Error; err != nil {
		return classify("save account", err)
	}
	return nil
}

// UpsertByEmail updates the row matching the payload's email or
// inserts a new one. No request-level validation runs here: the
// payload is server-constructed. A lost insert race against a
// concurrent reconcile naming the same new email surfaces as a
// ConflictError via the unique index.
func (s *GormAccountStore) UpsertByEmail(ctx context.Context, payload *domain.Account) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Account
		err := tx.First(&existing, "email = ?", payload.Email).Error
		switch {
		case err == nil:
			payload.ID = existing.ID
			return tx.Save(payload).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(payload).Error
		default:
			return err
		}
	})
	if err != nil {
		return classify("upsert account by email", err)
	}
	return nil
}

// classify maps a store error into the reconcile taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Op: op, Err: err}
	}
	return &PersistenceError{Op: op, Err: err}
}
