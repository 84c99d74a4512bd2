// Package notify provides the realtime fan-out channel for lock events.
package notify

// Notifier delivers lock-state events to connected clients. Delivery
// is best-effort and happens after the datastore transaction commits;
// a failed delivery never rolls anything back.
type Notifier interface {
	// Broadcast sends an event to every connected client.
	Broadcast(event string, data interface{})

	// SendToAccount sends an event only to the clients authenticated
	// as the given account.
	SendToAccount(accountID string, event string, data interface{})
}

// Nop is a Notifier that drops everything. Used when the server runs
// without the websocket endpoint enabled.
type Nop struct{}

// Broadcast implements Notifier.
func (Nop) Broadcast(event string, data interface{}) {}

// SendToAccount implements Notifier.
func (Nop) SendToAccount(accountID string, event string, data interface{}) {}
