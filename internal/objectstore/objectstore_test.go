package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/objectstore/fsstore"
)

func TestNew_DefaultsToFilesystem(t *testing.T) {
	store, err := New(context.Background(), Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := store.(*fsstore.Store)
	assert.True(t, ok)
}

func TestNew_UnknownBackendErrors(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "nonsense"})
	assert.Error(t, err)
}
