// Package channel owns the live protocol connections. The registry replaces
// the ad-hoc process-wide singleton of older builds: every call path gets a
// handle through Registry.Get and mutates connection state only through Conn
// methods.
package channel

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotRegistered is returned when no live handle exists for a
	// connection id.
	ErrNotRegistered = errors.New("channel connection not registered")

	// ErrDisconnected is returned by operations that need a live socket.
	ErrDisconnected = errors.New("channel connection is not connected")
)

// ChatMessage is one message as known to the external source (the channel
// connection's cache). It is the unit the gap synchronizer compares and
// replays.
type ChatMessage struct {
	ID        string
	ChatJID   string
	Sender    string
	FromMe    bool
	Body      string
	MediaType string
	Timestamp time.Time
	Raw       []byte // opaque protocol payload, stored verbatim
}

// Conn is one live channel connection. Implementations must be safe for
// concurrent use; cache mutation goes through ClearCache rather than external
// pokes at internal state.
type Conn interface {
	// IsConnected reports whether the underlying socket is usable.
	IsConnected() bool

	// SendText sends a plain text message to the given chat JID and returns
	// the message as it went out on the wire.
	SendText(ctx context.Context, jid string, body string) (ChatMessage, error)

	// CachedMessages returns up to limit messages known for the chat,
	// oldest first.
	CachedMessages(ctx context.Context, jid string, limit int) ([]ChatMessage, error)

	// ClearCache drops cached messages for the chat.
	ClearCache(jid string)
}
