package main

import (
	"errors"
	"os"

	"github.com/ritzau/crystal-bonds/pkg/logging"
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}
