// Package locks implements the document checkout coordinator.
//
// The coordinator owns the invariant "at most one active checkout per
// file". It never serializes lock operations in process: the UNIQUE
// constraint on checkouts.file_id plus the datastore transaction is
// the mutual-exclusion primitive, so concurrent acquires on the same
// file resolve to exactly one winner regardless of how many server
// tasks race.
package locks

import (
	"database/sql"
	"strings"

	"github.com/sorenby/docuvault/internal/db"
	"github.com/sorenby/docuvault/internal/errors"
	"github.com/sorenby/docuvault/internal/identity"
	"github.com/sorenby/docuvault/internal/logging"
	"github.com/sorenby/docuvault/internal/models"
	"github.com/sorenby/docuvault/internal/notify"
)

// Coordinator performs acquire/release/override of file checkouts
// atomically against the datastore and publishes lock-state events.
// It is the sole permitted mutator of checkout rows and the files'
// checked_out flag.
type Coordinator struct {
	repo     *db.Repository
	resolver *identity.Resolver
	notifier notify.Notifier
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(repo *db.Repository, resolver *identity.Resolver, notifier notify.Notifier) *Coordinator {
	return &Coordinator{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
	}
}

// Acquire checks a file out to the requesting user's account.
//
// Fails with NOT_FOUND when the user or file does not resolve, and
// with CONFLICT when any active checkout exists, including the
// requester's own (re-acquiring is rejected, not idempotent). The
// checkout row insert and the checked_out flag update happen in one
// transaction.
func (c *Coordinator) Acquire(fileID, userID string) (*models.File, error) {
	account, err := c.resolver.ResolveAccountForUser(userID)
	if err != nil {
		return nil, c.fail("acquire", fileID, err)
	}

	file, err := c.getFile(fileID)
	if err != nil {
		return nil, c.fail("acquire", fileID, err)
	}

	// Pre-check for a friendlier conflict message. The UNIQUE
	// constraint below is the authoritative check.
	if existing, err := c.repo.GetCheckoutByFile(fileID); err == nil {
		return nil, c.conflict(existing, account)
	} else if err != db.ErrNoRows {
		return nil, c.fail("acquire", fileID, err)
	}

	err = c.repo.WithTx(func(tx *sql.Tx) error {
		co := &models.Checkout{
			FileID:    file.ID,
			AccountID: account.ID,
		}
		if err := c.repo.InsertCheckoutTx(tx, co); err != nil {
			return err
		}
		return c.repo.SetFileCheckedOutTx(tx, fileID, true)
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race to a concurrent acquire.
			if existing, lookupErr := c.repo.GetCheckoutByFile(fileID); lookupErr == nil {
				return nil, c.conflict(existing, account)
			}
			return nil, errors.New(errors.ErrConflict, "File is already checked out.")
		}
		return nil, c.fail("acquire", fileID, err)
	}

	updated, err := c.getFile(fileID)
	if err != nil {
		return nil, c.fail("acquire", fileID, err)
	}

	c.notifier.Broadcast(models.EventFileLockUpdated, models.FileLockUpdate{
		FileID:     updated.ID,
		DocumentID: updated.DocumentID,
		Locked:     true,
	})

	return updated, nil
}

// Release checks a file back in. Only the holding account may release
// through this path; anyone else gets FORBIDDEN. Releasing a file
// with no active checkout is INVALID_STATE.
func (c *Coordinator) Release(fileID, userID string) (*models.File, error) {
	account, err := c.resolver.ResolveAccountForUser(userID)
	if err != nil {
		return nil, c.fail("release", fileID, err)
	}

	if _, err := c.getFile(fileID); err != nil {
		return nil, c.fail("release", fileID, err)
	}

	existing, err := c.repo.GetCheckoutByFile(fileID)
	if err != nil {
		if err == db.ErrNoRows {
			return nil, errors.New(errors.ErrInvalidState, "File is not checked out.")
		}
		return nil, c.fail("release", fileID, err)
	}

	if existing.AccountID != account.ID {
		holder := c.resolver.AccountDisplayName(existing.AccountID.String())
		return nil, errors.Newf(errors.ErrForbidden, "File is checked out by %s.", holder)
	}

	if err := c.clearCheckout(fileID); err != nil {
		return nil, c.fail("release", fileID, err)
	}

	updated, err := c.getFile(fileID)
	if err != nil {
		return nil, c.fail("release", fileID, err)
	}

	c.notifier.Broadcast(models.EventFileLockUpdated, models.FileLockUpdate{
		FileID:     updated.ID,
		DocumentID: updated.DocumentID,
		Locked:     false,
	})

	return updated, nil
}

// Override force-releases another account's checkout. The coordinator
// performs no holder check here; callers gate this path behind an
// elevated permission before invoking it. The original holder gets a
// targeted notification in addition to the broadcast.
func (c *Coordinator) Override(fileID, userID string) (*models.File, error) {
	account, err := c.resolver.ResolveAccountForUser(userID)
	if err != nil {
		return nil, c.fail("override", fileID, err)
	}

	if _, err := c.getFile(fileID); err != nil {
		return nil, c.fail("override", fileID, err)
	}

	existing, err := c.repo.GetCheckoutByFile(fileID)
	if err != nil {
		if err == db.ErrNoRows {
			return nil, errors.New(errors.ErrInvalidState, "File is not checked out.")
		}
		return nil, c.fail("override", fileID, err)
	}

	// Capture the holder before any mutation; the row is gone after.
	originalHolder := existing.AccountID

	if err := c.clearCheckout(fileID); err != nil {
		return nil, c.fail("override", fileID, err)
	}

	updated, err := c.getFile(fileID)
	if err != nil {
		return nil, c.fail("override", fileID, err)
	}

	c.notifier.Broadcast(models.EventFileLockUpdated, models.FileLockUpdate{
		FileID:     updated.ID,
		DocumentID: updated.DocumentID,
		Locked:     false,
	})
	c.notifier.SendToAccount(originalHolder.String(), models.EventCheckoutOverridden, models.CheckoutOverride{
		FileID:       updated.ID,
		DocumentID:   updated.DocumentID,
		OverriddenBy: account.ID,
	})

	return updated, nil
}

// getFile loads a file, mapping a missing row to NOT_FOUND.
func (c *Coordinator) getFile(fileID string) (*models.File, error) {
	file, err := c.repo.GetFile(fileID)
	if err != nil {
		if err == db.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "File not found.")
		}
		return nil, errors.Wrap(errors.ErrDatabase, "failed to look up file", err)
	}
	return file, nil
}

// clearCheckout deletes the checkout row and clears the flag in one
// transaction. A vanished row means someone else released first.
func (c *Coordinator) clearCheckout(fileID string) error {
	return c.repo.WithTx(func(tx *sql.Tx) error {
		rows, err := c.repo.DeleteCheckoutTx(tx, fileID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.New(errors.ErrInvalidState, "File is not checked out.")
		}
		return c.repo.SetFileCheckedOutTx(tx, fileID, false)
	})
}

// conflict builds the CONFLICT error for an existing checkout,
// distinguishing the requester's own lock from another holder's.
func (c *Coordinator) conflict(existing *models.Checkout, requester *models.Account) error {
	if existing.AccountID == requester.ID {
		return errors.New(errors.ErrConflict, "File is already checked out by you.")
	}
	holder := c.resolver.AccountDisplayName(existing.AccountID.String())
	return errors.Newf(errors.ErrConflict, "File is already checked out by %s.", holder)
}

// fail logs the failure with operation context and normalizes it.
// Precondition errors pass through untouched; anything else surfaces
// as a generic internal failure so raw datastore errors never leak.
func (c *Coordinator) fail(op, fileID string, err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		switch appErr.Code {
		case errors.ErrNotFound, errors.ErrConflict, errors.ErrInvalidState, errors.ErrForbidden:
			return appErr
		}
	}
	logging.Error("lock operation failed", err, map[string]interface{}{
		"operation": op,
		"file_id":   fileID,
	})
	return errors.Wrap(errors.ErrInternal, "Lock operation failed.", err)
}

// isUniqueViolation reports whether err is a UNIQUE constraint
// violation from the sqlite driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
