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

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(MutationResult{Op: "add", Length: 3})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"op": "add", "length": float64(3)}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeNotFound, `nothing at path "9"`, nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
	assert.Equal(t, `nothing at path "9"`, resp.Error.Message)
}

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(MutationResult{Op: "remove", Path: "0.staff.1", Length: 2}))
	assert.Equal(t, "remove 0.staff.1: 2 records\n", buf.String())
}

func TestOutputFormatter_TextValueIsCanonical(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	v := map[string]any{"z": 1.0, "a": "<b>", "m": []any{int64(2)}}
	require.NoError(t, formatter.Value(v))
	assert.Equal(t, `{"a":"<b>","m":[2],"z":1}`+"\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(CodeConfig, "failed to open queue", map[string]string{"backend": "badger"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]: failed to open queue")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error(CodeConfig, "failed", "hidden"))
	assert.NotContains(t, buf.String(), "hidden")
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, CodeConfig, "failed to open queue", cause)

	assert.Equal(t, "failed to open queue: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, CodeConfig, errorCode(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, ExitFailure, GetExitCode(plain))
	assert.Equal(t, CodeQueue, errorCode(plain))
}
