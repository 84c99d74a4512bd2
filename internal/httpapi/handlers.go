package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sorenby/docuvault/internal/db"
	"github.com/sorenby/docuvault/internal/errors"
	"github.com/sorenby/docuvault/internal/identity"
	"github.com/sorenby/docuvault/internal/locks"
	"github.com/sorenby/docuvault/internal/models"
	"github.com/sorenby/docuvault/internal/notify"
	"github.com/sorenby/docuvault/internal/uuid"
)

// LockHandler handles file checkout operations.
type LockHandler struct {
	repo        *db.Repository
	resolver    *identity.Resolver
	coordinator *locks.Coordinator
	hub         *notify.Hub
	upgrader    websocket.Upgrader
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(repo *db.Repository, resolver *identity.Resolver, coordinator *locks.Coordinator, hub *notify.Hub, upgrader websocket.Upgrader) *LockHandler {
	return &LockHandler{
		repo:        repo,
		resolver:    resolver,
		coordinator: coordinator,
		hub:         hub,
		upgrader:    upgrader,
	}
}

// fileID pulls and validates the file ID path parameter.
func fileID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "fileID")
	if err := uuid.Validate(id); err != nil {
		return "", errors.New(errors.ErrValidation, "Invalid file ID.")
	}
	return id, nil
}

// Checkout handles POST /api/files/{fileID}/checkout
func (h *LockHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	file, err := h.coordinator.Acquire(id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Checkin handles POST /api/files/{fileID}/checkin
func (h *LockHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	file, err := h.coordinator.Release(id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// OverrideCheckout handles POST /api/files/{fileID}/checkout/override
//
// The coordinator itself performs no holder check on override, so the
// elevated permission is enforced here before it is invoked.
func (h *LockHandler) OverrideCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	account, err := h.resolver.ResolveAccountForUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !account.CanOverrideLocks {
		writeError(w, errors.New(errors.ErrForbidden, "You are not allowed to override checkouts."))
		return
	}

	file, err := h.coordinator.Override(id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// fileStatus is the response body for GET /api/files/{fileID}.
type fileStatus struct {
	File     *models.File `json:"file"`
	LockedBy string       `json:"locked_by,omitempty"`
}

// GetFile handles GET /api/files/{fileID}
func (h *LockHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := h.repo.GetFile(id)
	if err != nil {
		if err == db.ErrNoRows {
			writeError(w, errors.New(errors.ErrNotFound, "File not found."))
			return
		}
		writeError(w, err)
		return
	}

	status := fileStatus{File: file}
	if co, err := h.repo.GetCheckoutByFile(id); err == nil {
		status.LockedBy = h.resolver.AccountDisplayName(co.AccountID.String())
	} else if err != db.ErrNoRows {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// ListCheckouts handles GET /api/checkouts
func (h *LockHandler) ListCheckouts(w http.ResponseWriter, r *http.Request) {
	infos, err := h.repo.ListCheckouts()
	if err != nil {
		writeError(w, err)
		return
	}
	if infos == nil {
		infos = []*db.CheckoutInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"checkouts": infos,
		"total":     len(infos),
	})
}

// ServeWS handles GET /ws — websocket upgrade bound to the caller's account.
func (h *LockHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	account, err := h.resolver.ResolveAccountForUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.ServeWS(h.upgrader, account.ID.String(), w, r)
}

// Health handles GET /api/health
func (h *LockHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "docuvault",
	})
}
