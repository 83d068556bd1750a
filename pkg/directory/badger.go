package directory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/peertrack/internal/bytesize"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// BackendBadger is the type name of the BadgerDB-backed directory.
const BackendBadger = "badger"

// Key layout. Record keys end in a big-endian insertion sequence so a prefix
// scan returns entries in registration order.
//
//	f:<seq>  -> wire-encoded FileRecord
//	fi:<id>  -> <seq>
//	p:<seq>  -> wire-encoded PeerRecord
//	pi:<ip>  -> <seq>
const (
	prefixFile      = "f:"
	prefixFileIndex = "fi:"
	prefixPeer      = "p:"
	prefixPeerIndex = "pi:"

	keySeqFiles = "seq:files"
	keySeqPeers = "seq:peers"

	// seqBandwidth is how many sequence numbers are leased per round trip.
	seqBandwidth = 64

	// MinMemTableSize is the smallest accepted BadgerConfig.MemTableSize.
	MinMemTableSize = 8 * bytesize.MiB
)

// BadgerConfig tunes the embedded database. The directory always runs in
// BadgerDB's in-memory mode; nothing is written to disk.
type BadgerConfig struct {
	// MemTableSize is the size of each memtable. Values below
	// MinMemTableSize are rejected because BadgerDB derives its maximum batch
	// size from it.
	MemTableSize bytesize.ByteSize `mapstructure:"mem_table_size" yaml:"mem_table_size"`

	// BlockCacheSize is the size of the block cache. Zero keeps the BadgerDB
	// default.
	BlockCacheSize bytesize.ByteSize `mapstructure:"block_cache_size" yaml:"block_cache_size"`
}

// BadgerDirectory stores the catalog in an in-memory BadgerDB instance.
type BadgerDirectory struct {
	db *badgerdb.DB

	// writeMu serializes writers so the read-then-write upserts never conflict.
	writeMu sync.Mutex

	fileSeq *badgerdb.Sequence
	peerSeq *badgerdb.Sequence
}

// NewBadgerDirectory opens an in-memory BadgerDB directory.
func NewBadgerDirectory(cfg BadgerConfig) (*BadgerDirectory, error) {
	opts := badgerdb.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	if cfg.MemTableSize > 0 {
		if cfg.MemTableSize < MinMemTableSize {
			return nil, fmt.Errorf("badger mem_table_size %s is below the minimum %s", cfg.MemTableSize, MinMemTableSize)
		}
		opts = opts.WithMemTableSize(cfg.MemTableSize.Int64())
	}
	// Zero keeps badger's default cache; compression requires one.
	if cfg.BlockCacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.BlockCacheSize.Int64())
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger directory: %w", err)
	}

	fileSeq, err := db.GetSequence([]byte(keySeqFiles), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to lease file sequence: %w", err)
	}
	peerSeq, err := db.GetSequence([]byte(keySeqPeers), seqBandwidth)
	if err != nil {
		_ = fileSeq.Release()
		_ = db.Close()
		return nil, fmt.Errorf("failed to lease peer sequence: %w", err)
	}

	return &BadgerDirectory{db: db, fileSeq: fileSeq, peerSeq: peerSeq}, nil
}

func uint32Key(prefix string, v uint32) []byte {
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], v)
	return key
}

func seqKey(prefix string, seq uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

func (d *BadgerDirectory) ListFiles(ctx context.Context) ([]wire.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]wire.FileRecord, 0)
	err := d.scan(prefixFile, func(val []byte) error {
		rec, err := wire.DecodeFileRecord(val)
		if err != nil {
			return err
		}
		files = append(files, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (d *BadgerDirectory) ListPeers(ctx context.Context, fileID uint32) ([]wire.PeerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exists, err := d.exists(uint32Key(prefixFileIndex, fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to look up file %d: %w", fileID, err)
	}

	peers := make([]wire.PeerRecord, 0)
	if !exists {
		return peers, nil
	}

	err = d.scan(prefixPeer, func(val []byte) error {
		rec, err := wire.DecodePeerRecord(val)
		if err != nil {
			return err
		}
		peers = append(peers, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	return peers, nil
}

func (d *BadgerDirectory) RegisterPeer(ctx context.Context, peer wire.PeerRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	created := false
	err := d.db.Update(func(txn *badgerdb.Txn) error {
		indexKey := uint32Key(prefixPeerIndex, peer.IP)

		item, err := txn.Get(indexKey)
		switch {
		case err == nil:
			seqBytes, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			recordKey := append([]byte(prefixPeer), seqBytes...)
			return txn.Set(recordKey, wire.EncodePeerRecord(peer))

		case errors.Is(err, badgerdb.ErrKeyNotFound):
			seq, err := d.peerSeq.Next()
			if err != nil {
				return err
			}
			recordKey := seqKey(prefixPeer, seq)
			if err := txn.Set(recordKey, wire.EncodePeerRecord(peer)); err != nil {
				return err
			}
			created = true
			return txn.Set(indexKey, recordKey[len(prefixPeer):])

		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to register peer %s: %w", peer, err)
	}
	return created, nil
}

func (d *BadgerDirectory) RegisterFile(ctx context.Context, file wire.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	return d.db.Update(func(txn *badgerdb.Txn) error {
		indexKey := uint32Key(prefixFileIndex, file.ID)

		_, err := txn.Get(indexKey)
		if err == nil {
			return fmt.Errorf("file %d: %w", file.ID, ErrFileExists)
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("failed to look up file %d: %w", file.ID, err)
		}

		seq, err := d.fileSeq.Next()
		if err != nil {
			return fmt.Errorf("failed to allocate file sequence: %w", err)
		}
		recordKey := seqKey(prefixFile, seq)
		if err := txn.Set(recordKey, wire.EncodeFileRecord(file)); err != nil {
			return err
		}
		return txn.Set(indexKey, recordKey[len(prefixFile):])
	})
}

func (d *BadgerDirectory) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Backend: BackendBadger}
	err := d.db.View(func(txn *badgerdb.Txn) error {
		stats.Files = countPrefix(txn, prefixFileIndex)
		stats.Peers = countPrefix(txn, prefixPeerIndex)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute directory stats: %w", err)
	}
	return stats, nil
}

func (d *BadgerDirectory) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.db.IsClosed() {
		return badgerdb.ErrDBClosed
	}
	return d.db.View(func(*badgerdb.Txn) error { return nil })
}

func (d *BadgerDirectory) Close() error {
	var errs []error
	if err := d.fileSeq.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := d.peerSeq.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// scan calls fn with the value of every key under prefix, in key order.
func (d *BadgerDirectory) scan(prefix string, fn func(val []byte) error) error {
	return d.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *BadgerDirectory) exists(key []byte) (bool, error) {
	found := false
	err := d.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func countPrefix(txn *badgerdb.Txn, prefix string) int {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false // Only need keys

	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

var _ Directory = (*BadgerDirectory)(nil)
