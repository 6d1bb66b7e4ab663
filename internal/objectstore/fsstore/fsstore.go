// Package fsstore is the credential-free default ObjectStore backend: it
// writes completed blobs under a local base directory using the same
// "{device_id}/{YYYY}/{MM}/{DD}/{name}" layout the S3 backend uses as a key
// prefix, so swapping backends never changes a blob's addressing scheme.
package fsstore

import (
	"os"
	"path/filepath"

	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/reassembly"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Put(blobName string, data []byte, meta reassembly.BlobMetadata) (string, bool) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(blobName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.GetLogger().WithError(err).WithField("path", path).Error("fsstore: mkdir failed")
		return "", false
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.GetLogger().WithError(err).WithField("path", path).Error("fsstore: write failed")
		return "", false
	}
	return "file://" + path, true
}
