package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLifecycleManager(t *testing.T) {
	daemon, _ := createTestDaemon(t)

	lm := NewLifecycleManager(daemon)
	assert.NotNil(t, lm)
	assert.Equal(t, daemon, lm.daemon)
	assert.Equal(t, filepath.Join(daemon.config.DataDir, "mnema.pid"), lm.pidFile)
}

func TestLifecycleManagerStartStop(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	err := lm.Start()
	require.NoError(t, err)

	data, err := os.ReadFile(lm.pidFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	err = lm.Stop()
	require.NoError(t, err)

	_, err = os.Stat(lm.pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLifecycleManagerStopWithoutPIDFile(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	// Removing a PID file that never existed is not an error
	err := lm.Stop()
	assert.NoError(t, err)
}

func TestLifecycleManagerGetPID(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	_, err := lm.GetPID()
	require.Error(t, err, "no PID file yet")

	require.NoError(t, lm.Start())
	defer lm.Stop()

	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, lm.IsRunning())
}

func TestLifecycleManagerStalePIDFile(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	// A PID beyond the kernel's pid range never maps to a live process
	require.NoError(t, os.WriteFile(lm.pidFile, []byte("99999999"), 0644))

	err := lm.Start()
	require.NoError(t, err)
	defer lm.Stop()

	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestLifecycleManagerRefusesLiveInstance(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	// The test process itself is certainly alive
	require.NoError(t, os.WriteFile(lm.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644))

	err := lm.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance is already running")
}

func TestLifecycleManagerInvalidPIDFile(t *testing.T) {
	daemon, _ := createTestDaemon(t)
	lm := NewLifecycleManager(daemon)

	require.NoError(t, os.WriteFile(lm.pidFile, []byte("not-a-pid"), 0644))

	_, err := lm.GetPID()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID file")
	assert.False(t, lm.IsRunning())

	// A corrupt PID file cannot prove a live instance; start over it
	require.NoError(t, lm.Start())
	defer lm.Stop()
}