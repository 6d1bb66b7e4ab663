package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := map[string]interface{}{
		"version":      "1.0",
		"version_date": "2026-01-01",
		"pipelines": []map[string]interface{}{
			{
				"name":              "p1",
				"class":             "Generic",
				"source_broker":     map[string]interface{}{"class": "Void"},
				"destination_broker": map[string]interface{}{"class": "Void"},
			},
		},
		"metrics": map[string]interface{}{"listen": "127.0.0.1:0", "path": "/metrics"},
		"log":     map[string]interface{}{"level": "debug", "format": "text"},
		"control": map[string]interface{}{
			"socket":   filepath.Join(dir, "zeppelin.sock"),
			"pid_file": filepath.Join(dir, "zeppelin.pid"),
		},
		"object_store": map[string]interface{}{"backend": "fs", "base_dir": filepath.Join(dir, "photos")},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, "zeppelin.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDaemon_StartStopIntegration(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	d, err := New(configPath)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	socketPath := d.config.Control.Socket
	pidFile := d.config.Control.PIDFile

	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = os.Stat(pidFile)
	require.NoError(t, err)

	status := d.Status()
	require.Equal(t, []string{"p1"}, status.Pipelines)

	d.Stop()

	_, err = os.Stat(pidFile)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(socketPath)
	require.True(t, os.IsNotExist(err))
}

func TestDaemon_RunStopsOnShutdownTrigger(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	d, err := New(configPath)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	runDone := make(chan error, 1)
	go func() { runDone <- d.Run() }()

	time.Sleep(50 * time.Millisecond)
	d.TriggerShutdown()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop within timeout")
	}
}
