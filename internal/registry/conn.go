// Package registry provides the process-wide cache of live folders and the
// broadcast fanout over their connections.
package registry

import "github.com/yndnr/snapfold-go/internal/core/domain"

// Event is the structured message pushed to live connections.
type Event struct {
	// Action discriminates the event: "connect", "send", or "error".
	Action string `json:"action"`

	// Info carries the folder summary on connect events.
	Info map[string]any `json:"info,omitempty"`

	// Msgs carries message views on send events.
	Msgs []domain.MessageView `json:"msgs,omitempty"`
}

// Close reasons handed to Conn.Close.
const (
	ReasonDeleted      = "Deleted"
	ReasonExpired      = "Expired!"
	ReasonShutdown     = "Server shutting down"
	ReasonUnauthorized = "You may have logged out"
)

// Conn is the transport connection handle the registry fans out to.
//
// The registry treats it purely through this capability set; the concrete
// type lives in the transport layer.
type Conn interface {
	// Send delivers one event. An error marks the connection half-open.
	Send(event Event) error

	// Close closes the connection with a client-visible reason.
	Close(reason string) error

	// IsClosed reports whether the connection is already gone.
	IsClosed() bool
}
