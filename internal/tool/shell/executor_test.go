package shell

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecutor_Run(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(1024, 100*time.Millisecond)
	dir := t.TempDir()

	t.Run("stdout and stderr", func(t *testing.T) {
		out, err := e.Run(context.Background(), "echo out; echo err >&2", dir, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "out\n", out.Stdout)
		assert.Equal(t, "err\n", out.Stderr)
		assert.Equal(t, 0, out.ExitCode)
		assert.Empty(t, out.Signal)
	})

	t.Run("exit code", func(t *testing.T) {
		out, err := e.Run(context.Background(), "exit 3", dir, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, out.ExitCode)
		assert.False(t, out.TimedOut)
	})

	t.Run("working directory", func(t *testing.T) {
		out, err := e.Run(context.Background(), "pwd", dir, 5*time.Second)
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(out.Stdout))
	})

	t.Run("output capped", func(t *testing.T) {
		small := NewExecutor(10, 100*time.Millisecond)
		out, err := small.Run(context.Background(), "printf '%s' 0123456789abcdef", dir, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", out.Stdout)
		assert.True(t, out.Truncated)
	})

	t.Run("binary output", func(t *testing.T) {
		out, err := e.Run(context.Background(), `printf 'a\000b'`, dir, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, binaryPlaceholder, out.Stdout)
	})
}

func TestExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(1024, 100*time.Millisecond)

	start := time.Now()
	out, err := e.Run(context.Background(), "echo starting; sleep 10", t.TempDir(), 300*time.Millisecond)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, out.TimedOut)
	assert.Equal(t, TimeoutExitCode, out.ExitCode)
	assert.Equal(t, "starting\n", out.Stdout)
}

func TestExecutor_InterruptKillsProcess(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(1024, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	out, err := e.Run(ctx, "echo running; sleep 10; echo never", t.TempDir(), 30*time.Second)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, out.Interrupted)
	assert.False(t, out.TimedOut)
	assert.Equal(t, "SIGKILL", out.Signal)
	assert.Equal(t, "running\n", out.Stdout)
}

func TestCollector(t *testing.T) {
	t.Run("under limit", func(t *testing.T) {
		c := newCollector(10)
		n, err := c.Write([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, "abc", c.String())
		assert.False(t, c.Truncated())
	})

	t.Run("over limit", func(t *testing.T) {
		c := newCollector(5)
		n, _ := c.Write([]byte("abcdef"))
		assert.Equal(t, 6, n)
		_, _ = c.Write([]byte("gh"))
		assert.Equal(t, "abcde", c.String())
		assert.True(t, c.Truncated())
	})

	t.Run("binary", func(t *testing.T) {
		c := newCollector(10)
		_, _ = c.Write([]byte("ok"))
		_, _ = c.Write([]byte{'a', 0, 'b'})
		assert.Equal(t, binaryPlaceholder, c.String())
		assert.True(t, c.Truncated())
	})
}

func TestFormatCommandResult(t *testing.T) {
	tests := []struct {
		name string
		out  Output
		want string
	}{
		{"stdout only", Output{Stdout: "a\nb\n"}, "[command] ls\n[stdout]\na\nb"},
		{"all sections", Output{Stdout: "x\n", Stderr: "boom\n", ExitCode: 2}, "[command] ls\n[stdout]\nx\n[stderr]\nboom\n[exit_code] 2"},
		{"nothing", Output{Stdout: "  \n"}, "[command] ls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCommandResult("ls", &tt.out))
		})
	}
}
