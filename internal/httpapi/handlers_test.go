// Package httpapi tests for the REST lock endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sorenby/docuvault/internal/db"
	"github.com/sorenby/docuvault/internal/identity"
	"github.com/sorenby/docuvault/internal/locks"
	"github.com/sorenby/docuvault/internal/models"
	"github.com/sorenby/docuvault/internal/notify"
)

const testSecret = "test-secret"

// testEnv bundles the API under test with its seeded identities.
type testEnv struct {
	router http.Handler
	repo   *db.Repository

	userA *models.User // plain edit rights
	userB *models.User // may override checkouts
	file  *models.File
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.NewMigrator(database.DB).Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo := db.NewRepository(database.DB)
	t.Cleanup(func() { repo.Close() })

	env := &testEnv{repo: repo}

	accountA := &models.Account{DisplayName: "Alice Anders"}
	if err := repo.CreateAccount(accountA); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	accountB := &models.Account{DisplayName: "Bob Berg", CanOverrideLocks: true}
	if err := repo.CreateAccount(accountB); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	env.userA = &models.User{DisplayName: "Alice Anders", Email: "alice@example.com", AccountID: accountA.ID}
	if err := repo.CreateUser(env.userA); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	env.userB = &models.User{DisplayName: "Bob Berg", Email: "bob@example.com", AccountID: accountB.ID}
	if err := repo.CreateUser(env.userB); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	doc := &models.Document{Title: "Quarterly Report"}
	if err := repo.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	env.file = &models.File{DocumentID: doc.ID, Name: "report.docx"}
	if err := repo.CreateFile(env.file); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	resolver := identity.NewResolver(repo)
	hub := notify.NewHub()
	coordinator := locks.NewCoordinator(repo, resolver, hub)
	handler := NewLockHandler(repo, resolver, coordinator, hub, notify.NewUpgrader(nil))
	env.router = NewRouter(handler, testSecret)

	return env
}

// tokenFor signs a session token for the given user.
func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// do issues a request and returns the recorder.
func (env *testEnv) do(t *testing.T, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func TestHealthNoAuth(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/files/"+env.file.ID.String()+"/checkout", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}
}

func TestAuthViaSessionCookie(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+env.file.ID.String(), nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: tokenFor(t, env.userA.ID.String())})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/files/"+env.file.ID.String()+"/checkout", env.userA.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var file models.File
	if err := json.NewDecoder(rec.Body).Decode(&file); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if !file.CheckedOut {
		t.Error("Expected checked_out=true in response")
	}
}

func TestCheckoutConflict(t *testing.T) {
	env := setupEnv(t)
	path := "/api/files/" + env.file.ID.String() + "/checkout"

	if rec := env.do(t, http.MethodPost, path, env.userA.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("First checkout status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, path, env.userB.ID.String())
	if rec.Code != http.StatusConflict {
		t.Fatalf("Status = %d, want 409", rec.Code)
	}
	resp := decodeError(t, rec)
	if !strings.Contains(resp.Error, "Alice Anders") {
		t.Errorf("Error = %q, want holder display name", resp.Error)
	}
}

func TestCheckinForbiddenForNonHolder(t *testing.T) {
	env := setupEnv(t)
	fileID := env.file.ID.String()

	if rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout", env.userA.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("Checkout status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkin", env.userB.ID.String())
	if rec.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", rec.Code)
	}
}

func TestCheckinNotCheckedOut(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/files/"+env.file.ID.String()+"/checkin", env.userA.ID.String())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestOverrideRequiresPermission(t *testing.T) {
	env := setupEnv(t)
	fileID := env.file.ID.String()

	if rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout", env.userB.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("Checkout status = %d", rec.Code)
	}

	// User A lacks can_override_locks.
	rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout/override", env.userA.ID.String())
	if rec.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", rec.Code)
	}
}

func TestOverrideSuccess(t *testing.T) {
	env := setupEnv(t)
	fileID := env.file.ID.String()

	if rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout", env.userA.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("Checkout status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout/override", env.userB.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var file models.File
	if err := json.NewDecoder(rec.Body).Decode(&file); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if file.CheckedOut {
		t.Error("Expected checked_out=false after override")
	}
}

func TestGetFileShowsHolder(t *testing.T) {
	env := setupEnv(t)
	fileID := env.file.ID.String()

	if rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout", env.userA.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("Checkout status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/files/"+fileID, env.userB.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var status fileStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.LockedBy != "Alice Anders" {
		t.Errorf("LockedBy = %q, want Alice Anders", status.LockedBy)
	}
	if !status.File.CheckedOut {
		t.Error("Expected checked_out=true")
	}
}

func TestGetFileNotFound(t *testing.T) {
	env := setupEnv(t)

	// Well-formed but unknown ID.
	rec := env.do(t, http.MethodGet, "/api/files/9b2c6a3f-0c4f-4f6e-8a2b-1d2e3f4a5b6c", env.userA.ID.String())
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

func TestInvalidFileID(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/files/not-a-uuid/checkout", env.userA.ID.String())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestListCheckouts(t *testing.T) {
	env := setupEnv(t)
	fileID := env.file.ID.String()

	rec := env.do(t, http.MethodGet, "/api/checkouts", env.userA.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	var empty struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&empty); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if empty.Total != 0 {
		t.Errorf("Total = %d, want 0", empty.Total)
	}

	if rec := env.do(t, http.MethodPost, "/api/files/"+fileID+"/checkout", env.userA.ID.String()); rec.Code != http.StatusOK {
		t.Fatalf("Checkout status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/checkouts", env.userA.ID.String())
	var listing struct {
		Checkouts []*db.CheckoutInfo `json:"checkouts"`
		Total     int                `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if listing.Total != 1 || len(listing.Checkouts) != 1 {
		t.Fatalf("Total = %d, len = %d, want 1/1", listing.Total, len(listing.Checkouts))
	}
	if listing.Checkouts[0].HolderDisplayName != "Alice Anders" {
		t.Errorf("HolderDisplayName = %q", listing.Checkouts[0].HolderDisplayName)
	}
}
