package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edupulse/notify-relay/internal/port/listener"
)

// Listener implements listener.Listener over a dedicated pgx connection.
// LISTEN requires a session of its own: notifications are delivered on the
// connection that issued the command, so the shared pool cannot be used.
type Listener struct {
	dsn     string
	channel string
}

// NewListener creates a Listener for the given DSN and channel name.
func NewListener(dsn, channel string) *Listener {
	return &Listener{dsn: dsn, channel: channel}
}

// Listen opens the connection, issues LISTEN, and blocks delivering payloads
// to handler. It returns ctx.Err() on cancellation, otherwise the first
// connection error. There is no reconnect; supervision restarts the process.
func (l *Listener) Listen(ctx context.Context, handler listener.Handler) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("listener connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}

	slog.Info("listening for notifications", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		handler(ctx, []byte(n.Payload))
	}
}
