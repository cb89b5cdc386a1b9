package push

import "time"

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Emitter fans events out to live connections. Delivery is best-effort:
// implementations never block callers and never return errors.
type Emitter interface {
	// EmitToUser reports whether the owner had a live connection.
	EmitToUser(ownerID, event string, data any) bool
	EmitToRole(role, event string, data any)
	EmitToAll(event string, data any)
	IsConnected(ownerID string) bool
}

// NopEmitter drops every event. Used when no hub is wired.
type NopEmitter struct{}

func (NopEmitter) EmitToUser(string, string, any) bool { return false }
func (NopEmitter) EmitToRole(string, string, any)      {}
func (NopEmitter) EmitToAll(string, any)               {}
func (NopEmitter) IsConnected(string) bool             { return false }
