package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProgram(t *testing.T) {
	path := writeTempFile(t, "prog.json", `{
		"name": "tasks",
		"on": {
			"UI:SAVE": [{"do": [["persist", "update"]]}]
		}
	}`)

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid")
}

func TestValidateProgramUnknownOperator(t *testing.T) {
	path := writeTempFile(t, "prog.json", `{
		"name": "tasks",
		"on": {
			"UI:SAVE": [["frobnicate", 1]]
		}
	}`)

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `unknown operator "frobnicate"`)
}

func TestValidateProgramJSONOutput(t *testing.T) {
	path := writeTempFile(t, "prog.json", `{
		"name": "tasks",
		"on": {"UI:SAVE": [["frobnicate", 1]]}
	}`)

	out, _, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_VALIDATE", resp.Error.Code)
}

func TestValidateMissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", "/no/such/prog.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateSlotContent(t *testing.T) {
	valid := writeTempFile(t, "slot.json", `{
		"pattern": "card",
		"props": {"title": "hi", "children": [{"type": "badge"}]}
	}`)

	out, _, err := execute(t, "validate", valid, "--slot")
	require.NoError(t, err)
	assert.Contains(t, out, "Valid")
}

func TestValidateSlotContentInvalid(t *testing.T) {
	invalid := writeTempFile(t, "slot.json", `{"props": {}}`)

	out, _, err := execute(t, "validate", invalid, "--slot")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
}
