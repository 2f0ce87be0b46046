package grace

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitCanceled = 130
)

// usageError is implemented by errors caused by the user input rather than by the environment
type usageError interface {
	UsageError() bool
}

// SetupSignalHandler returns a context that is cancelled on the first SIGINT or SIGTERM.
// A second signal terminates the process immediately.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(ExitCanceled)
	}()

	return ctx
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}

	var ue usageError
	if errors.As(err, &ue) && ue.UsageError() {
		return ExitUsage
	}

	return ExitFailure
}

// ExitOrLog logs a non-nil error and terminates the process with the matching exit code.
func ExitOrLog(logger log.Logger, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		level.Warn(logger).Log("msg", "interrupted", "err", err)
	} else {
		level.Error(logger).Log("msg", "run failed", "err", err)
	}

	os.Exit(ExitCode(err))
}
