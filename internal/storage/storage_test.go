package storage

import (
	"context"
	"testing"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/config"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, config.Config{Storage: "file", DataDir: t.TempDir()})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &snapshot.FileStore{}, s)

	s, closeFn, err = Open(ctx, config.Config{Storage: "memory"})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &snapshot.Memory{}, s)

	_, _, err = Open(ctx, config.Config{Storage: "s3"})
	assert.Error(t, err)
}
