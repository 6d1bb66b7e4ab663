package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "zeppelin.json", `{
		"version": "1.0.0",
		"version_date": "2026-01-01",
		"pipelines": [
			{"name": "p1", "class": "generic",
			 "source_broker": {"class": "Void"},
			 "destination_broker": {"class": "Void"}}
		]
	}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)
	require.Len(t, cfg.Pipelines, 1)
	assert.Equal(t, "p1", cfg.Pipelines[0].Name)
	assert.Equal(t, 10, cfg.Pipelines[0].SourceBroker.ThrottleMaxMessageSec)
	assert.Equal(t, 1.0, cfg.Pipelines[0].ThreadIntervalSec)
}

func TestLoad_LegacySourcesKey(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "zeppelin.json", `{
		"version": "1.0.0",
		"sources": [
			{"name": "p1", "class": "generic",
			 "source_broker": {"class": "Void"},
			 "destination_broker": {"class": "Void"}}
		]
	}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Len(t, cfg.Pipelines, 1)
}

func TestLoad_MissingPipelinesFails(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "zeppelin.json", `{"version": "1.0.0"}`)
	_, err := Load(p)
	assert.Error(t, err)
}

func TestManager_IsModified(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "zeppelin.json", `{
		"version": "1.0.0",
		"pipelines": [{"name": "p1", "class": "generic",
			"source_broker": {"class": "Void"}, "destination_broker": {"class": "Void"}}]
	}`)
	cfg, err := Load(p)
	require.NoError(t, err)

	m := NewManager(p, cfg)
	assert.False(t, m.IsModified())

	writeFile(t, dir, "zeppelin.json", `{
		"version": "1.0.1",
		"pipelines": [{"name": "p1", "class": "generic",
			"source_broker": {"class": "Void"}, "destination_broker": {"class": "Void"}}]
	}`)
	assert.True(t, m.IsModified())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	set := &PersistedPipelineSet{States: map[string]PipelineRunState{"p1": RunStateRunning}}
	require.NoError(t, s.Save(set))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, RunStateRunning, loaded.States["p1"])
}

func TestStore_DisabledWhenNoDir(t *testing.T) {
	s := NewStore("")
	require.NoError(t, s.Save(&PersistedPipelineSet{States: map[string]PipelineRunState{"p1": RunStateStopped}}))
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.States)
}
