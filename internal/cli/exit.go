package cli

import (
	"errors"
	"fmt"

	"github.com/rshade/scorelookup/internal/config"
	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/ingest"
)

// Process exit codes.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitConfig           = 2
	ExitUnexpectedStatus = 3
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// classify wraps err in an ExitError whose code reflects its cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code := ExitFailure
	switch {
	case errors.Is(err, engine.ErrUnexpectedStatus):
		code = ExitUnexpectedStatus
	case errors.Is(err, ingest.ErrSourceUnavailable),
		errors.Is(err, config.ErrInvalid):
		code = ExitConfig
	}
	return &ExitError{Code: code, Err: err}
}
