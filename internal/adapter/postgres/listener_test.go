package postgres

import (
	"context"
	"testing"
	"time"
)

func TestListenerInvalidDSN(t *testing.T) {
	lst := NewListener("not a dsn", "student_notifications")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := lst.Listen(ctx, func(context.Context, []byte) {
		t.Error("handler must not be invoked without a connection")
	})
	if err == nil {
		t.Fatal("expected connect error for invalid DSN")
	}
}
