package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_TypedVariants(t *testing.T) {
	args, err := ParseArgs(NameExecuteCommand, json.RawMessage(`{"command":"ls -la","timeout":45}`))
	require.NoError(t, err)
	assert.Equal(t, ExecuteCommandArgs{Command: "ls -la", Timeout: 45}, args)

	args, err = ParseArgs(NameEditFile, json.RawMessage(`{"path":"a.go","operations":[{"before":"x","after":"y","expected_replacements":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, EditFileArgs{
		Path:       "a.go",
		Operations: []EditOperation{{Before: "x", After: "y", ExpectedReplacements: 2}},
	}, args)
}

func TestParseArgs_WeakTyping(t *testing.T) {
	args, err := ParseArgs(NameReadFile, json.RawMessage(`{"path":"main.go","offset":"10","limit":5}`))

	require.NoError(t, err)
	assert.Equal(t, ReadFileArgs{Path: "main.go", Offset: 10, Limit: 5}, args)
}

func TestParseArgs_DoubleEncodedString(t *testing.T) {
	raw, _ := json.Marshal(`{"path":"README.md"}`)

	args, err := ParseArgs(NameReadFile, raw)

	require.NoError(t, err)
	assert.Equal(t, ReadFileArgs{Path: "README.md"}, args)
}

func TestParseArgs_BareStringCommand(t *testing.T) {
	raw, _ := json.Marshal("git status")

	args, err := ParseArgs(NameExecuteCommand, raw)

	require.NoError(t, err)
	assert.Equal(t, ExecuteCommandArgs{Command: "git status"}, args)
}

func TestParseArgs_TruncatedStringIsNotACommand(t *testing.T) {
	raw, _ := json.Marshal(`{"command":"rm -r build`)

	args, err := ParseArgs(NameExecuteCommand, raw)

	assert.Nil(t, args)
	assert.ErrorContains(t, err, "malformed JSON")
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		raw     string
		wantErr error
	}{
		{"truncated json", NameReadFile, `{"path":"a`, nil},
		{"truncated encoded object", NameExecuteCommand, `"{\"command\":\"rm -r build"`, nil},
		{"truncated encoded array", NameExecuteCommand, `"  [\"ls\""`, nil},
		{"array instead of object", NameReadFile, `["a"]`, ErrArgumentsNotObject},
		{"missing path", NameWriteFile, `{"content":"x"}`, ErrPathRequired},
		{"missing command", NameExecuteCommand, `{}`, ErrCommandRequired},
		{"negative timeout", NameExecuteCommand, `{"command":"ls","timeout":-1}`, ErrInvalidTimeout},
		{"no operations", NameEditFile, `{"path":"a"}`, ErrOperationsRequired},
		{"no-op edit", NameEditFile, `{"path":"a","operations":[{"before":"x","after":"x"}]}`, ErrEmptyEditOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.tool, json.RawMessage(tt.raw))

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.tool, argErr.Tool)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseArgs_UnknownTool(t *testing.T) {
	_, err := ParseArgs("launch_rockets", json.RawMessage(`{}`))

	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierSafe, TierOf(NameReadFile))
	assert.Equal(t, TierSafe, TierOf(NameSearchFiles))
	assert.Equal(t, TierApprovalRequired, TierOf(NameExecuteCommand))
	assert.Equal(t, TierApprovalRequired, TierOf(NameEditFile))
	assert.Equal(t, TierDangerous, TierOf(NameDeleteFile))
	assert.Equal(t, TierDangerous, TierOf("unregistered"))
}

func TestResult_LLMContent(t *testing.T) {
	r := Result{Success: false, Error: "boom", ExitCode: IntPtr(2), TimedOut: true}

	assert.JSONEq(t, `{"success":false,"error":"boom","exitCode":2,"timedOut":true}`, r.LLMContent())
	assert.JSONEq(t, `{"success":true,"content":"hi"}`, OK("hi").LLMContent())
	assert.JSONEq(t, `{"success":false,"error":"no","userRejected":true}`, Rejected("no").LLMContent())
}
