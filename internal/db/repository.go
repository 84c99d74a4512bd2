// Package db provides CRUD repository operations for DocuVault data models.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sorenby/docuvault/internal/models"
	"github.com/sorenby/docuvault/internal/uuid"
)

// ErrNoRows is re-exported so callers don't import database/sql just
// to test lookup misses.
var ErrNoRows = sql.ErrNoRows

// Repository provides CRUD operations for all models.
// Frequently used queries go through a prepared statement cache.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
// Key is the query string, value is the prepared statement.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
// Should be called when the Repository is no longer needed.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// WithTx runs fn inside a transaction. The transaction is rolled back
// when fn returns an error and committed otherwise; a commit failure
// is returned to the caller. Partial application is never observable.
func (r *Repository) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =====================================================
// Account Operations
// =====================================================

// CreateAccount creates a new account.
func (r *Repository) CreateAccount(account *models.Account) error {
	account.ID = models.UUID(uuid.New())
	account.CreatedAt = time.Now().Unix()

	query := `
	INSERT INTO accounts (id, display_name, can_override_locks, created_at)
	VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, account.ID, account.DisplayName,
		account.CanOverrideLocks, account.CreatedAt)
	return err
}

// GetAccount retrieves an account by ID.
func (r *Repository) GetAccount(id string) (*models.Account, error) {
	query := `SELECT id, display_name, can_override_locks, created_at FROM accounts WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = stmt.QueryRow(id).Scan(&account.ID, &account.DisplayName,
		&account.CanOverrideLocks, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// =====================================================
// User Operations
// =====================================================

// CreateUser creates a new user.
func (r *Repository) CreateUser(user *models.User) error {
	user.ID = models.UUID(uuid.New())
	user.CreatedAt = time.Now().Unix()

	query := `
	INSERT INTO users (id, display_name, email, account_id, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, user.ID, user.DisplayName, user.Email,
		user.AccountID, user.CreatedAt)
	return err
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(id string) (*models.User, error) {
	query := `SELECT id, display_name, email, account_id, created_at FROM users WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = stmt.QueryRow(id).Scan(&user.ID, &user.DisplayName, &user.Email,
		&user.AccountID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT id, display_name, email, account_id, created_at FROM users WHERE email = ?`
	var user models.User
	err := r.db.QueryRow(query, email).Scan(&user.ID, &user.DisplayName,
		&user.Email, &user.AccountID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// =====================================================
// Document Operations
// =====================================================

// CreateDocument creates a new document.
func (r *Repository) CreateDocument(doc *models.Document) error {
	doc.ID = models.UUID(uuid.New())
	doc.CreatedAt = time.Now().Unix()

	query := `INSERT INTO documents (id, title, created_at) VALUES (?, ?, ?)`
	_, err := r.db.Exec(query, doc.ID, doc.Title, doc.CreatedAt)
	return err
}

// GetDocument retrieves a document by ID.
func (r *Repository) GetDocument(id string) (*models.Document, error) {
	query := `SELECT id, title, created_at FROM documents WHERE id = ?`
	var doc models.Document
	err := r.db.QueryRow(query, id).Scan(&doc.ID, &doc.Title, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// =====================================================
// File Operations
// =====================================================

// CreateFile creates a new file under a document.
func (r *Repository) CreateFile(file *models.File) error {
	now := time.Now().Unix()
	file.ID = models.UUID(uuid.New())
	file.CreatedAt = now
	file.UpdatedAt = now

	query := `
	INSERT INTO files (id, document_id, name, checked_out, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, file.ID, file.DocumentID, file.Name,
		file.CheckedOut, file.CreatedAt, file.UpdatedAt)
	return err
}

// GetFile retrieves a file by ID.
func (r *Repository) GetFile(id string) (*models.File, error) {
	query := `
	SELECT id, document_id, name, checked_out, created_at, updated_at
	FROM files WHERE id = ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var file models.File
	err = stmt.QueryRow(id).Scan(&file.ID, &file.DocumentID, &file.Name,
		&file.CheckedOut, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFilesByDocument returns all files belonging to a document.
func (r *Repository) ListFilesByDocument(documentID string) ([]*models.File, error) {
	query := `
	SELECT id, document_id, name, checked_out, created_at, updated_at
	FROM files WHERE document_id = ? ORDER BY created_at
	`
	rows, err := r.db.Query(query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		var file models.File
		err := rows.Scan(&file.ID, &file.DocumentID, &file.Name,
			&file.CheckedOut, &file.CreatedAt, &file.UpdatedAt)
		if err != nil {
			return nil, err
		}
		files = append(files, &file)
	}
	return files, rows.Err()
}

// =====================================================
// Checkout Operations
// =====================================================

// GetCheckoutByFile retrieves the active checkout for a file, if any.
// Returns sql.ErrNoRows when the file is not checked out.
func (r *Repository) GetCheckoutByFile(fileID string) (*models.Checkout, error) {
	query := `SELECT id, file_id, account_id, created_at FROM checkouts WHERE file_id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var co models.Checkout
	err = stmt.QueryRow(fileID).Scan(&co.ID, &co.FileID, &co.AccountID, &co.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &co, nil
}

// CheckoutInfo is a checkout joined with display data for listings.
type CheckoutInfo struct {
	Checkout          models.Checkout `json:"checkout"`
	HolderDisplayName string          `json:"holder_display_name"`
	FileName          string          `json:"file_name"`
	DocumentID        models.UUID     `json:"document_id"`
}

// ListCheckouts returns all active checkouts with holder and file details.
func (r *Repository) ListCheckouts() ([]*CheckoutInfo, error) {
	query := `
	SELECT c.id, c.file_id, c.account_id, c.created_at, a.display_name, f.name, f.document_id
	FROM checkouts c
	JOIN accounts a ON a.id = c.account_id
	JOIN files f ON f.id = c.file_id
	ORDER BY c.created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*CheckoutInfo
	for rows.Next() {
		var info CheckoutInfo
		err := rows.Scan(&info.Checkout.ID, &info.Checkout.FileID,
			&info.Checkout.AccountID, &info.Checkout.CreatedAt,
			&info.HolderDisplayName, &info.FileName, &info.DocumentID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// =====================================================
// Transactional lock mutations
// =====================================================
// These run inside a caller-owned transaction so the checkout row and
// the file's checked_out flag always change together.

// InsertCheckoutTx inserts a checkout row. A UNIQUE violation on
// file_id means another holder won the race for this file.
func (r *Repository) InsertCheckoutTx(tx *sql.Tx, co *models.Checkout) error {
	co.ID = models.UUID(uuid.New())
	co.CreatedAt = time.Now().Unix()

	query := `INSERT INTO checkouts (id, file_id, account_id, created_at) VALUES (?, ?, ?, ?)`
	_, err := tx.Exec(query, co.ID, co.FileID, co.AccountID, co.CreatedAt)
	return err
}

// DeleteCheckoutTx deletes the checkout row for a file and reports
// how many rows were removed.
func (r *Repository) DeleteCheckoutTx(tx *sql.Tx, fileID string) (int64, error) {
	result, err := tx.Exec(`DELETE FROM checkouts WHERE file_id = ?`, fileID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetFileCheckedOutTx updates the denormalized checked_out flag.
func (r *Repository) SetFileCheckedOutTx(tx *sql.Tx, fileID string, checkedOut bool) error {
	query := `UPDATE files SET checked_out = ?, updated_at = ? WHERE id = ?`
	result, err := tx.Exec(query, checkedOut, time.Now().Unix(), fileID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("file not found: %s", fileID)
	}
	return nil
}
