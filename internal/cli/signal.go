package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalContext cancels on SIGINT/SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
