package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorCodes(t *testing.T) {
	plain := NewExitError(ExitCommandError, "bad path")
	assert.Equal(t, "bad path", plain.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(plain))

	cause := errors.New("boom")
	wrapped := WrapExitError(ExitFailure, "dispatch failed", cause)
	assert.Equal(t, "dispatch failed: boom", wrapped.Error())
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	// Wrapping through fmt still resolves the code.
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", plain)))

	// Non-exit errors default to failure.
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("other")))
}

func TestFormatterSuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Success(map[string]int{"n": 1}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestFormatterErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("E_PARSE", "bad input", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_PARSE", resp.Error.Code)
	assert.Equal(t, "bad input", resp.Error.Message)
}

func TestFormatterErrorText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Error("E_PARSE", "bad input", nil))
	assert.Equal(t, "Error [E_PARSE]: bad input\n", buf.String())
}

func TestVerboseLogTargetsErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}
	f.VerboseLog("loaded %d", 3)

	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("quiet")
	assert.Equal(t, "loaded 3\n", errOut.String())
}
