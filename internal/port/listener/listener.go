// Package listener defines the port for receiving raw database notification
// payloads.
package listener

import "context"

// Handler processes one raw channel payload. It is invoked from the
// listener's own loop; the relay performs no queueing in between.
type Handler func(ctx context.Context, payload []byte)

// Listener is the port interface for a database notification stream.
type Listener interface {
	// Listen blocks, delivering each payload to handler until ctx is
	// cancelled or the underlying connection dies. Cancellation returns
	// ctx.Err(); anything else is the client library's error verbatim.
	Listen(ctx context.Context, handler Handler) error
}
