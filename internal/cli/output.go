package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/normativ/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected request or failed check (conflict, not found, invalid catalog, failed scenario)
	ExitCommandError = 2 // Command error (bad config, database unavailable, unreadable input)
)

// CLI error codes.
const (
	ErrCodeConfig     = "E201" // configuration invalid
	ErrCodeDatabase   = "E202" // database open or query failed
	ErrCodeInput      = "E203" // request file or argument unreadable
	ErrCodeValidation = "E210" // engine VALIDATION
	ErrCodeConflict   = "E211" // engine CONFLICT
	ErrCodeNotFound   = "E212" // engine NOT_FOUND or missing row
	ErrCodeScenario   = "E220" // scenario failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
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

// engineErrorCode maps an engine error to a CLI error code and exit code.
// Storage failures are command errors; everything else is a rejected request.
func engineErrorCode(err error) (string, int) {
	switch engine.CodeOf(err) {
	case engine.ErrCodeValidation:
		return ErrCodeValidation, ExitFailure
	case engine.ErrCodeConflict:
		return ErrCodeConflict, ExitFailure
	case engine.ErrCodeNotFound:
		return ErrCodeNotFound, ExitFailure
	default:
		return ErrCodeDatabase, ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string    `json:"status"`               // "ok" or "error"
	Data      any       `json:"data,omitempty"`       // success payload
	Error     *CLIError `json:"error,omitempty"`      // error details
	RequestID string    `json:"request_id,omitempty"` // engine request correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E201", "E211", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// text is printed as-is for the text format.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprint(f.Writer, text)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

// Fail outputs an error and returns the matching ExitError.
func (f *OutputFormatter) Fail(exitCode int, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// EngineError outputs an engine failure with its structured fields as
// details and the request id for correlation.
func (f *OutputFormatter) EngineError(err error) error {
	code, exit := engineErrorCode(err)

	var ee *engine.Error
	if !errors.As(err, &ee) {
		return f.Fail(exit, code, err.Error(), nil)
	}

	message := fmt.Sprintf("%s: %s", ee.Code, ee.Message)
	if ee.Field != "" {
		message = fmt.Sprintf("%s (field=%s)", message, ee.Field)
	}
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:    "error",
			RequestID: ee.RequestID,
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: ee,
			},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
		fmt.Fprintf(f.Writer, "  request: %s\n", ee.RequestID)
	}
	return WrapExitError(exit, code, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
