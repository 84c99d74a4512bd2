package models

// Event names published on the realtime channel.
const (
	// EventFileLockUpdated is broadcast to every connected client when
	// a file is checked out or checked in.
	EventFileLockUpdated = "file-lock-updated"

	// EventCheckoutOverridden is sent only to the account whose
	// checkout was force-released by an administrator.
	EventCheckoutOverridden = "file-checkout-overridden"
)

// FileLockUpdate is the payload for EventFileLockUpdated.
type FileLockUpdate struct {
	FileID     UUID `json:"fileId"`
	DocumentID UUID `json:"documentId"`
	Locked     bool `json:"locked"`
}

// CheckoutOverride is the payload for EventCheckoutOverridden.
type CheckoutOverride struct {
	FileID       UUID `json:"fileId"`
	DocumentID   UUID `json:"documentId"`
	OverriddenBy UUID `json:"overriddenBy"`
}
