// Package objectstore defines the Store contract the reassembly engine
// persists completed photo blobs through, plus a config-driven constructor
// for its two backends (spec.md §9 A6).
package objectstore

import (
	"context"
	"fmt"

	"github.com/edgeiot/zeppelin/internal/objectstore/fsstore"
	"github.com/edgeiot/zeppelin/internal/objectstore/s3store"
	"github.com/edgeiot/zeppelin/internal/reassembly"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend string `mapstructure:"backend"` // "s3" | "fs"
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	BaseDir string `mapstructure:"base_dir"`
	Region  string `mapstructure:"region"`
}

// New constructs the reassembly.ObjectStore implementation named by cfg.Backend.
// An empty backend or "fs" selects the filesystem store (default directory
// ./data/photos), which requires no credentials and is safe for tests and
// examples; any other unrecognized backend returns an error.
func New(ctx context.Context, cfg Config) (reassembly.ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
			Region: cfg.Region,
		})
	case "", "fs":
		dir := cfg.BaseDir
		if dir == "" {
			dir = "./data/photos"
		}
		return fsstore.New(dir), nil
	default:
		return nil, fmt.Errorf("objectstore: unknown backend %q", cfg.Backend)
	}
}
