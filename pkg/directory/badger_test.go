package directory_test

import (
	"testing"

	"github.com/marmos91/peertrack/internal/bytesize"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/marmos91/peertrack/pkg/directory/directorytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadger(t *testing.T) *directory.BadgerDirectory {
	t.Helper()
	dir, err := directory.NewBadgerDirectory(directory.BadgerConfig{MemTableSize: 16 * bytesize.MiB})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return dir
}

func TestBadgerConformance(t *testing.T) {
	directorytest.RunConformanceSuite(t, func(t *testing.T) directory.Directory {
		return newBadger(t)
	})
}

func TestBadger_TruncatesToWireWidth(t *testing.T) {
	dir := newBadger(t)

	long := wire.FileRecord{ID: 1, Name: "0123456789abcdef0123456789abcdef-overflow", Description: "d"}
	require.NoError(t, dir.RegisterFile(t.Context(), long))

	files, err := dir.ListFiles(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Len(t, files[0].Name, wire.MaxFileNameLength)
}

func TestBadger_ClosedIsUnhealthy(t *testing.T) {
	dir, err := directory.NewBadgerDirectory(directory.BadgerConfig{})
	require.NoError(t, err)
	require.NoError(t, dir.Close())

	assert.Error(t, dir.Healthcheck(t.Context()))
}

func TestBadger_RejectsTinyMemTable(t *testing.T) {
	_, err := directory.NewBadgerDirectory(directory.BadgerConfig{MemTableSize: bytesize.MiB})
	assert.Error(t, err)
}
