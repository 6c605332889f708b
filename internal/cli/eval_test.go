package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvalArithmetic(t *testing.T) {
	out, _, err := execute(t, "eval", `["add", 1, 2, 3]`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestEvalJSONOutput(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "eval", `["multiply", 2, 3]`)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(6), resp.Data)
}

func TestEvalWithContextFile(t *testing.T) {
	ctxPath := writeTempFile(t, "ctx.json", `{
		"entity": {"count": 7},
		"user": {"name": "ali"},
		"payload": {"delta": 2}
	}`)

	out, _, err := execute(t, "eval", `["add", "@entity.count", "@payload.delta"]`, "--context", ctxPath)
	require.NoError(t, err)
	assert.Equal(t, "9\n", out)

	out, _, err = execute(t, "eval", `"@user.name"`, "--context", ctxPath)
	require.NoError(t, err)
	assert.Equal(t, "\"ali\"\n", out)
}

func TestEvalParseError(t *testing.T) {
	out, _, err := execute(t, "eval", `["add", 1,`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E_PARSE")
}

func TestEvalUnknownOperator(t *testing.T) {
	out, _, err := execute(t, "eval", `["frobnicate", 1]`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E_EVAL")
}

func TestEvalMissingContextFile(t *testing.T) {
	_, _, err := execute(t, "eval", "1", "--context", "/no/such/ctx.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
