package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// signalContext returns a child context that is cancelled when SIGINT or
// SIGTERM is received.
//
// Only the first signal is captured. After cancelling, the handler is
// removed so a second interrupt terminates the process immediately.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)
		select {
		case s := <-sig:
			fmt.Fprintf(os.Stderr, "\n%s received, stopping. Interrupt again to exit immediately.\n", s)
			cancel()
		case <-parent.Done():
		}
	}()

	return ctx
}
