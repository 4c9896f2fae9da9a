// Package broadcast pushes live audit updates to the real-time channel the
// dashboard subscribes to. Delivery is fire-and-forget: the inventory core
// never depends on a subscriber having seen an event.
package broadcast

import "context"

// Event names emitted by the inventory core.
const (
	EventScanUpdate  = "scan_update"
	EventAuditClosed = "audit_closed"
)

// Broadcaster publishes a named event with a JSON-encodable payload to a
// room. Implementations must be safe for concurrent use.
type Broadcaster interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// Noop discards every publish. Used in tests and when no broker is
// configured.
type Noop struct{}

// NewNoop returns a Broadcaster that drops everything.
func NewNoop() Noop { return Noop{} }

// Publish implements Broadcaster.
func (Noop) Publish(context.Context, string, string, any) error { return nil }

// SessionRoom names the pub/sub room for one audit session.
func SessionRoom(sessionID string) string {
	return "audit:" + sessionID
}
