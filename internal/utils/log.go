package utils

import "log/slog"

// LogError logs err and passes it through, so cmd-level call sites can both
// report a failure and decide the process exit code from it.
func LogError(log *slog.Logger, err error) error {
	log.Error(err.Error())
	return err
}
