package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDaemon_ReloadLogLevel(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	d, err := New(configPath)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, "debug", d.config.Log.Level)

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &cfg))
	cfg["log"].(map[string]interface{})["level"] = "warn"
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0o644))

	require.NoError(t, d.Reload())
	require.Equal(t, "warn", d.config.Log.Level)
}

func TestDaemon_ReloadRebuildsPipelineSet(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	d, err := New(configPath)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, []string{"p1"}, d.Status().Pipelines)

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &cfg))
	pipelines := cfg["pipelines"].([]interface{})
	second := map[string]interface{}{
		"name":                "p2",
		"class":               "Generic",
		"source_broker":       map[string]interface{}{"class": "Void"},
		"destination_broker":  map[string]interface{}{"class": "Void"},
	}
	cfg["pipelines"] = append(pipelines, second)
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0o644))

	require.NoError(t, d.Reload())
	require.ElementsMatch(t, []string{"p1", "p2"}, d.Status().Pipelines)
}

func TestDaemon_ReloadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	d, err := New(configPath)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`{"pipelines":[]}`), 0o644))

	err = d.Reload()
	require.Error(t, err)
	require.Equal(t, []string{"p1"}, d.Status().Pipelines, "a failed reload must leave the running pipeline set untouched")
}
