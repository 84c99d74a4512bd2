// Package identity resolves authenticated users to lock-owning accounts.
package identity

import (
	"github.com/sorenby/docuvault/internal/db"
	"github.com/sorenby/docuvault/internal/errors"
	"github.com/sorenby/docuvault/internal/models"
)

// Resolver looks up users and their accounts. A user ID comes from the
// session; the account ID is what checkout rows reference. The two are
// distinct identifiers and must never be conflated.
type Resolver struct {
	repo *db.Repository
}

// NewResolver creates a new Resolver.
func NewResolver(repo *db.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveAccountForUser returns the account owned by the given user.
func (r *Resolver) ResolveAccountForUser(userID string) (*models.Account, error) {
	user, err := r.repo.GetUser(userID)
	if err != nil {
		if err == db.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "User not found.")
		}
		return nil, errors.Wrap(errors.ErrDatabase, "failed to look up user", err)
	}

	account, err := r.repo.GetAccount(user.AccountID.String())
	if err != nil {
		if err == db.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "Account not found.")
		}
		return nil, errors.Wrap(errors.ErrDatabase, "failed to look up account", err)
	}

	return account, nil
}

// AccountDisplayName returns the display name for an account, falling
// back to the raw ID when the account no longer resolves. Used to
// report "locked by X" without failing the whole operation.
func (r *Resolver) AccountDisplayName(accountID string) string {
	account, err := r.repo.GetAccount(accountID)
	if err != nil {
		return accountID
	}
	return account.DisplayName
}
