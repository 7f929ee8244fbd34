package cmd

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ExitCode is a process exit status with a sysexits-style meaning.
type ExitCode int

const (
	ExitSuccess       ExitCode = 0
	ExitFailure       ExitCode = 1
	ExitUsage         ExitCode = 64
	ExitConfigInvalid ExitCode = 78
)

var exitNames = map[ExitCode]string{
	ExitSuccess:       "success",
	ExitFailure:       "failure",
	ExitUsage:         "usage",
	ExitConfigInvalid: "config_invalid",
}

// Name returns the symbolic name of the code.
func (c ExitCode) Name() string {
	if name, ok := exitNames[c]; ok {
		return name
	}
	return "unknown"
}

// ExitError carries the exit code a failed command should terminate with.
type ExitError struct {
	Code ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Code.Name()
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func withExitCode(code ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCodeOf returns the code attached to err, ExitFailure for other errors
// and ExitSuccess for nil.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ExitWithCode logs the error with exit code metadata and exits.
//
// Parameters:
//   - logger: The logger to use for error output (can be nil for early failures)
//   - exitCode: The exit code (e.g., ExitConfigInvalid)
//   - msg: Human-readable error message
//   - err: The underlying error (can be nil)
func ExitWithCode(logger *zap.Logger, exitCode ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	logger.Error(msg,
		zap.Int("exit_code", int(exitCode)),
		zap.String("exit_name", exitCode.Name()),
		zap.Error(err),
	)
	_ = logger.Sync()
	os.Exit(int(exitCode))
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
// Use this for early failures before logger initialization.
func ExitWithCodeStderr(exitCode ExitCode, msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s)\n", int(exitCode), exitCode.Name())

	os.Exit(int(exitCode))
}
