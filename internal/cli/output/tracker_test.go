package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/api/handlers"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileList(t *testing.T) {
	files := FileList{{ID: 7, Name: "ubuntu.iso", Description: "installer"}}

	assert.Equal(t, []string{"ID", "Name", "Description"}, files.Headers())
	assert.Equal(t, [][]string{{"7", "ubuntu.iso", "installer"}}, files.Rows())

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(files))
	assert.Contains(t, buf.String(), "DESCRIPTION")
	assert.Contains(t, buf.String(), "ubuntu.iso")
}

func TestPeerList(t *testing.T) {
	peers := PeerList{{IP: 0x0A000005, Port: 6881}}
	assert.Equal(t, [][]string{{"10.0.0.5:6881", "10.0.0.5", "6881"}}, peers.Rows())

	fromAPI := PeersFromResponses([]handlers.PeerResponse{{Address: "10.0.0.5:6881", IP: 0x0A000005, Port: 6881}})
	assert.Equal(t, peers, fromAPI)
}

func TestPrint_EmptyTableMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(PeerList{}))
	assert.Equal(t, "No peers seed this file.\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(PeerList{}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestSessionList(t *testing.T) {
	sessions := SessionList{{
		Client:       "10.0.0.1:4000",
		State:        "PEERS_CHUNK",
		FileCursor:   8,
		PeerCursor:   19,
		WantedFileID: 3,
		LastActive:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}}

	rows := sessions.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"10.0.0.1:4000", "PEERS_CHUNK", "8", "19", "3"}, rows[0][:5])
	assert.NotEmpty(t, rows[0][5])
}

func TestStatsView_YAML(t *testing.T) {
	var buf bytes.Buffer
	stats := directory.Stats{Backend: "badger", Files: 2, Peers: 5}

	require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(stats))
	assert.Contains(t, buf.String(), "backend: badger")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(StatsView(stats)))
	assert.Contains(t, buf.String(), "badger")
	assert.Contains(t, buf.String(), "5")
}

func TestFileList_JSONUsesWireTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, FileList{wire.FileRecord{ID: 1, Name: "a"}}))
	assert.Contains(t, buf.String(), `"id": 1`)
	assert.Contains(t, buf.String(), `"name": "a"`)
	assert.Contains(t, buf.String(), `"description": ""`)
}
