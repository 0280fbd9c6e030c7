package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normativ/internal/engine"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "inner: cause", errors.Unwrap(wrapped).Error())
}

func TestEngineErrorCodes(t *testing.T) {
	tests := []struct {
		code     engine.ErrorCode
		wantCode string
		wantExit int
	}{
		{engine.ErrCodeValidation, ErrCodeValidation, ExitFailure},
		{engine.ErrCodeConflict, ErrCodeConflict, ExitFailure},
		{engine.ErrCodeNotFound, ErrCodeNotFound, ExitFailure},
		{engine.ErrCodeDatabase, ErrCodeDatabase, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			code, exit := engineErrorCode(&engine.Error{Code: tt.code})
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestEngineErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.EngineError(&engine.Error{
		Code:      engine.ErrCodeValidation,
		Message:   "discipline 9 does not exist",
		Field:     "discipline_id",
		RequestID: "req-7",
	})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E210]: VALIDATION: discipline 9 does not exist (field=discipline_id)\n  request: req-7\n", buf.String())
}

func TestEngineErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.EngineError(&engine.Error{
		Code:        engine.ErrCodeConflict,
		Message:     "normative 3 is still referenced",
		RequestID:   "req-2",
		NormativeID: 3,
		Err:         errors.New("FOREIGN KEY constraint failed"),
	})
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "req-2", resp.RequestID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConflict, resp.Error.Code)
	assert.NotContains(t, buf.String(), "FOREIGN KEY")

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), details["normative_id"])
}

func TestEngineErrorPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.EngineError(errors.New("connection refused"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E202]: connection refused\n", buf.String())
}

func TestVerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("loaded %d", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("hidden")
	assert.Equal(t, "loaded 3\n", errOut.String())
}
