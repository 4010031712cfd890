package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context that is canceled on SIGINT or SIGTERM.
// stop releases the signal registration.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ReloadSignals delivers SIGHUP, which the serve command treats as a request
// to reload configuration. stop releases the registration.
func ReloadSignals() (ch <-chan os.Signal, stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	return sigChan, func() { signal.Stop(sigChan) }
}
