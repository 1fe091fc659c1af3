package utils

import (
	"context"
	"fmt"
	"log/slog"
)

// GoForever starts fn in a goroutine, expected to block for the process's
// lifetime; the controller role supervises the manager loop with it.
//
// Panics are recovered into errors, and a nil return is replaced with
// [ErrUnexpectedReturnWithoutError]. Whatever error results is handed to
// cancel so the parent context unwinds.
func GoForever(
	goroutineName string,
	cancel context.CancelCauseFunc,
	log *slog.Logger,
	fn func() error,
) {
	log = log.With("goroutine", goroutineName)
	log.Info("starting")

	go func() {
		var err error

		defer func() {
			log.Info("stopped", "err", err)
		}()

		defer func() {
			cancel(fmt.Errorf("%s: %w", goroutineName, err))
		}()

		defer RecoverPanicToErr(&err)

		log.Info("started")

		err = fn()

		if err == nil {
			err = ErrUnexpectedReturnWithoutError
		}
	}()
}
