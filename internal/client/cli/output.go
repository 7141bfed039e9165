package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/atinyakov/journalon/internal/common"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation failed (not found, conflict, store unreachable, ...)
	ExitCommandError = 2 // Bad usage or configuration
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric    = "E_GENERIC"
	ErrCodeValidation = "E_VALIDATION"
	ErrCodeNotFound   = "E_NOT_FOUND"
	ErrCodeConflict   = "E_CONFLICT"
	ErrCodeNetwork    = "E_NETWORK"
	ErrCodeRejected   = "E_REJECTED"
	ErrCodeInvalidKey = "E_INVALID_KEY"
	ErrCodeStorage    = "E_STORAGE"
	ErrCodeConfig     = "E_CONFIG"
)

// ExitError represents an error with a specific exit code.
// The error has already been reported to the user when it reaches main.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode classifies err for output.
func errorCode(err error) string {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.Is(err, common.ErrConflict):
		return ErrCodeConflict
	case errors.Is(err, common.ErrNetwork):
		return ErrCodeNetwork
	case errors.Is(err, common.ErrRejected):
		return ErrCodeRejected
	case errors.Is(err, common.ErrInvalidKey):
		return ErrCodeInvalidKey
	case errors.Is(err, common.ErrStorage):
		return ErrCodeStorage
	case errors.Is(err, common.ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Text mode errors go here (defaults to Writer)
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs data. In text mode text is printed instead, when it is
// not empty.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", code, message)
	return err
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(exitCode int, err error) error {
	_ = f.Error(errorCode(err), err.Error())
	return &ExitError{Code: exitCode, Message: "command failed", Err: err}
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
