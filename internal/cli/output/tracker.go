package output

import (
	"strconv"
	"time"

	"github.com/marmos91/peertrack/internal/cli/timeutil"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/api/handlers"
	"github.com/marmos91/peertrack/pkg/directory"
)

// FileList renders catalog files.
type FileList []wire.FileRecord

func (l FileList) Headers() []string { return []string{"ID", "Name", "Description"} }

func (l FileList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, f := range l {
		rows = append(rows, []string{strconv.FormatUint(uint64(f.ID), 10), f.Name, f.Description})
	}
	return rows
}

func (l FileList) EmptyMessage() string { return "No files in the catalog." }

// PeerList renders seeders.
type PeerList []wire.PeerRecord

func (l PeerList) Headers() []string { return []string{"Address", "IP", "Port"} }

func (l PeerList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		ap := p.AddrPort()
		rows = append(rows, []string{ap.String(), ap.Addr().String(), strconv.Itoa(int(p.Port))})
	}
	return rows
}

func (l PeerList) EmptyMessage() string { return "No peers seed this file." }

// PeersFromResponses converts admin API peers to records.
func PeersFromResponses(in []handlers.PeerResponse) PeerList {
	out := make(PeerList, 0, len(in))
	for _, p := range in {
		out = append(out, wire.PeerRecord{IP: p.IP, Port: p.Port})
	}
	return out
}

// SessionList renders the live tracker sessions.
type SessionList []handlers.SessionResponse

func (l SessionList) Headers() []string {
	return []string{"Client", "State", "File Cursor", "Peer Cursor", "Wanted File", "Last Active"}
}

func (l SessionList) Rows() [][]string {
	now := time.Now()
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.Client,
			s.State,
			strconv.FormatUint(uint64(s.FileCursor), 10),
			strconv.FormatUint(uint64(s.PeerCursor), 10),
			strconv.FormatUint(uint64(s.WantedFileID), 10),
			timeutil.FormatAge(s.LastActive, now),
		})
	}
	return rows
}

func (l SessionList) EmptyMessage() string { return "No active sessions." }

// StatsView renders directory counts as key-value rows.
type StatsView directory.Stats

func (v StatsView) Headers() []string { return []string{"Field", "Value"} }

func (v StatsView) Rows() [][]string {
	return [][]string{
		{"Backend", v.Backend},
		{"Files", strconv.Itoa(v.Files)},
		{"Peers", strconv.Itoa(v.Peers)},
	}
}
