// Package directorytest provides a conformance suite every directory backend
// must pass.
package directorytest

import (
	"errors"
	"sync"
	"testing"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
)

// Factory creates a fresh Directory for each test. It should register cleanup
// with t.Cleanup.
type Factory func(t *testing.T) directory.Directory

// RunConformanceSuite runs the full suite against factory. Each subtest gets
// a fresh directory.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("Empty", func(t *testing.T) { testEmpty(t, factory(t)) })
	t.Run("FilesKeepInsertionOrder", func(t *testing.T) { testFileOrder(t, factory(t)) })
	t.Run("DuplicateFileRejected", func(t *testing.T) { testDuplicateFile(t, factory(t)) })
	t.Run("PeerUpsertByIP", func(t *testing.T) { testPeerUpsert(t, factory(t)) })
	t.Run("PeersForUnknownFile", func(t *testing.T) { testPeersUnknownFile(t, factory(t)) })
	t.Run("AppendKeepsIndices", func(t *testing.T) { testAppendStable(t, factory(t)) })
	t.Run("ConcurrentRegistration", func(t *testing.T) { testConcurrent(t, factory(t)) })
	t.Run("Healthcheck", func(t *testing.T) { testHealthcheck(t, factory(t)) })
}

func file(id uint32, name string) wire.FileRecord {
	return wire.FileRecord{ID: id, Name: name, Description: name + " description"}
}

func mustRegisterFile(t *testing.T, dir directory.Directory, f wire.FileRecord) {
	t.Helper()
	if err := dir.RegisterFile(t.Context(), f); err != nil {
		t.Fatalf("RegisterFile(%d) failed: %v", f.ID, err)
	}
}

func mustRegisterPeer(t *testing.T, dir directory.Directory, p wire.PeerRecord) bool {
	t.Helper()
	created, err := dir.RegisterPeer(t.Context(), p)
	if err != nil {
		t.Fatalf("RegisterPeer(%s) failed: %v", p, err)
	}
	return created
}

func testEmpty(t *testing.T, dir directory.Directory) {
	files, err := dir.ListFiles(t.Context())
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ListFiles on empty directory = %d entries, want 0", len(files))
	}

	stats, err := dir.Stats(t.Context())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Files != 0 || stats.Peers != 0 {
		t.Errorf("Stats = %+v, want zero counts", stats)
	}
}

func testFileOrder(t *testing.T, dir directory.Directory) {
	ids := []uint32{42, 7, 1000, 3, 256}
	for _, id := range ids {
		mustRegisterFile(t, dir, file(id, "f"))
	}

	files, err := dir.ListFiles(t.Context())
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != len(ids) {
		t.Fatalf("ListFiles = %d entries, want %d", len(files), len(ids))
	}
	for i, id := range ids {
		if files[i].ID != id {
			t.Errorf("files[%d].ID = %d, want %d", i, files[i].ID, id)
		}
		if files[i].Name != "f" || files[i].Description != "f description" {
			t.Errorf("files[%d] = %+v", i, files[i])
		}
	}
}

func testDuplicateFile(t *testing.T, dir directory.Directory) {
	mustRegisterFile(t, dir, file(1, "original"))

	err := dir.RegisterFile(t.Context(), file(1, "replacement"))
	if !errors.Is(err, directory.ErrFileExists) {
		t.Fatalf("duplicate RegisterFile error = %v, want ErrFileExists", err)
	}

	files, _ := dir.ListFiles(t.Context())
	if len(files) != 1 || files[0].Name != "original" {
		t.Errorf("catalog after duplicate = %+v", files)
	}
}

func testPeerUpsert(t *testing.T, dir directory.Directory) {
	mustRegisterFile(t, dir, file(3, "movie"))

	if !mustRegisterPeer(t, dir, wire.PeerRecord{IP: 0x7F000001, Port: 9000}) {
		t.Error("first registration should create an entry")
	}
	mustRegisterPeer(t, dir, wire.PeerRecord{IP: 0x0A000001, Port: 6881})
	if mustRegisterPeer(t, dir, wire.PeerRecord{IP: 0x7F000001, Port: 9100}) {
		t.Error("re-registration of a known ip should not create an entry")
	}

	peers, err := dir.ListPeers(t.Context(), 3)
	if err != nil {
		t.Fatalf("ListPeers failed: %v", err)
	}
	want := []wire.PeerRecord{{IP: 0x7F000001, Port: 9100}, {IP: 0x0A000001, Port: 6881}}
	if len(peers) != len(want) {
		t.Fatalf("ListPeers = %v, want %v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Errorf("peers[%d] = %s, want %s", i, peers[i], want[i])
		}
	}

	stats, _ := dir.Stats(t.Context())
	if stats.Peers != 2 || stats.Files != 1 {
		t.Errorf("Stats = %+v, want 1 file and 2 peers", stats)
	}
}

func testPeersUnknownFile(t *testing.T, dir directory.Directory) {
	mustRegisterPeer(t, dir, wire.PeerRecord{IP: 1, Port: 1})

	peers, err := dir.ListPeers(t.Context(), 99)
	if err != nil {
		t.Fatalf("ListPeers(unknown) error = %v, want nil", err)
	}
	if len(peers) != 0 {
		t.Errorf("ListPeers(unknown) = %v, want empty", peers)
	}
}

func testAppendStable(t *testing.T, dir directory.Directory) {
	for id := uint32(1); id <= 3; id++ {
		mustRegisterFile(t, dir, file(id, "a"))
	}
	before, _ := dir.ListFiles(t.Context())

	mustRegisterFile(t, dir, file(0, "late"))
	after, _ := dir.ListFiles(t.Context())

	if len(after) != len(before)+1 {
		t.Fatalf("len after append = %d, want %d", len(after), len(before)+1)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("index %d moved: %+v -> %+v", i, before[i], after[i])
		}
	}
	if after[len(after)-1].ID != 0 {
		t.Errorf("appended file landed at %+v", after[len(after)-1])
	}
}

func testConcurrent(t *testing.T, dir directory.Directory) {
	mustRegisterFile(t, dir, file(1, "shared"))

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ip := uint32(w*perWorker + i + 1)
				if _, err := dir.RegisterPeer(t.Context(), wire.PeerRecord{IP: ip, Port: uint16(i)}); err != nil {
					errs <- err
				}
				if _, err := dir.ListPeers(t.Context(), 1); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}

	peers, _ := dir.ListPeers(t.Context(), 1)
	if len(peers) != workers*perWorker {
		t.Errorf("ListPeers = %d entries, want %d", len(peers), workers*perWorker)
	}
}

func testHealthcheck(t *testing.T, dir directory.Directory) {
	if err := dir.Healthcheck(t.Context()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}
