package config

import (
	"os"
	"sync"
)

type fileStamp struct {
	path  string
	size  int64
	mtime int64
}

// Manager tracks the main config file plus every pipeline's json_schema and
// config file (when present) by (size, mtime), per C9. IsModified re-stats
// every tracked path; the outer supervisor polls it every 10s and, on a
// change, reloads and reconstructs every pipeline (stop-all -> reconstruct-all).
type Manager struct {
	mu     sync.Mutex
	path   string
	files  []fileStamp
}

// NewManager builds a Manager watching path plus every file referenced by
// cfg's pipelines.
func NewManager(path string, cfg *GlobalConfig) *Manager {
	m := &Manager{path: path}
	m.trackAll(cfg)
	return m
}

func (m *Manager) trackAll(cfg *GlobalConfig) {
	paths := []string{m.path}
	for _, p := range cfg.Pipelines {
		if p.JSONSchema != "" {
			paths = append(paths, p.JSONSchema)
		}
		if cfgFile, ok := p.Config["file"].(string); ok && cfgFile != "" {
			paths = append(paths, cfgFile)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make([]fileStamp, 0, len(paths))
	for _, p := range paths {
		m.files = append(m.files, stat(p))
	}
}

func stat(path string) fileStamp {
	fs := fileStamp{path: path}
	if info, err := os.Stat(path); err == nil {
		fs.size = info.Size()
		fs.mtime = info.ModTime().UnixNano()
	}
	return fs
}

// IsModified re-stats every tracked path and reports whether any file's
// (size, mtime) pair changed since the last call (or construction).
func (m *Manager) IsModified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for i, f := range m.files {
		fresh := stat(f.path)
		if fresh.size != f.size || fresh.mtime != f.mtime {
			changed = true
		}
		m.files[i] = fresh
	}
	return changed
}

// Reload reloads the main config file and re-tracks every file it
// references (pipeline schema/config files may change across reloads).
func (m *Manager) Reload() (*GlobalConfig, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.trackAll(cfg)
	return cfg, nil
}
