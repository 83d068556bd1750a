package directory_test

import (
	"testing"

	"github.com/marmos91/peertrack/internal/bytesize"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		typ     string
		backend string
	}{
		{"", directory.BackendMemory},
		{"memory", directory.BackendMemory},
		{"BADGER", directory.BackendBadger},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			dir, err := directory.New(directory.Config{Type: tt.typ})
			require.NoError(t, err)
			t.Cleanup(func() { _ = dir.Close() })

			require.NoError(t, dir.RegisterFile(t.Context(), wire.FileRecord{ID: 9, Name: "x"}))
			stats, err := dir.Stats(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.backend, stats.Backend)
			assert.Equal(t, 1, stats.Files)
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := directory.New(directory.Config{Type: "postgres"})
	assert.ErrorIs(t, err, directory.ErrUnknownBackend)
}

func TestNew_BadgerCacheSizes(t *testing.T) {
	tests := []struct {
		name  string
		cache bytesize.ByteSize
	}{
		{"unset", 0},
		{"explicit", 8 * bytesize.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				dir directory.Directory
				err error
			)
			require.NotPanics(t, func() {
				dir, err = directory.New(directory.Config{
					Type:   "badger",
					Badger: directory.BadgerConfig{MemTableSize: 64 * bytesize.MiB, BlockCacheSize: tt.cache},
				})
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = dir.Close() })

			require.NoError(t, dir.RegisterFile(t.Context(), wire.FileRecord{ID: 1, Name: "a"}))
			require.NoError(t, dir.Healthcheck(t.Context()))
		})
	}
}
