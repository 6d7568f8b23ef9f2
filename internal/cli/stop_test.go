package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()

		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == "stop" {
				found = true
				break
			}
		}
		assert.True(t, found, "stop command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"stop", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Stop the mnema daemon")
		assert.Contains(t, helpText, "timeout")
	})
}

func TestReadPIDFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := readPIDFile(filepath.Join(t.TempDir(), "nope.pid"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("invalid content", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "bad.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))

		_, err := readPIDFile(pidFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid PID file")
	})

	t.Run("valid content with trailing newline", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "ok.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("1234\n"), 0644))

		pid, err := readPIDFile(pidFile)
		require.NoError(t, err)
		assert.Equal(t, 1234, pid)
	})
}

func TestPidAlive(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		assert.False(t, pidAlive(filepath.Join(t.TempDir(), "nope.pid")))
	})

	t.Run("invalid pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "bad.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("garbage"), 0644))
		assert.False(t, pidAlive(pidFile))
	})

	t.Run("live process", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "self.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644))
		assert.True(t, pidAlive(pidFile))
	})

	t.Run("dead process", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "dead.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("99999999"), 0644))
		assert.False(t, pidAlive(pidFile))
	})
}
