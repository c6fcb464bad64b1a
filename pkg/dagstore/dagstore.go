// Package dagstore persists causal-DAG entries in badger. Records cross a
// storage boundary, so nothing read back is trusted as pre-verified: every
// Load recomputes the digest and compares it against the key before the
// entry is handed out.
//
// Payloads above a compression floor are lzma-compressed; payloads above
// the chunk threshold are split with boxo's size splitter into separate
// chunk records keyed by their own SHA-512, so one huge payload does not
// become one huge value log entry.
package dagstore

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	boxochunker "github.com/ipfs/boxo/chunker"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz/lzma"

	"github.com/cimkit/contextgraph/pkg/ciddag"
	"github.com/cimkit/contextgraph/pkg/workerpool"
)

var log *logrus.Logger

var (
	// ErrNotFound is returned when no record exists for a digest.
	ErrNotFound = errors.New("dagstore: entry not found")

	// ErrCorruptEntry is returned when a stored record does not hash back
	// to its own key. Tamper signal, never retried.
	ErrCorruptEntry = errors.New("dagstore: corrupt entry")
)

const (
	entryPrefix = "entry:"
	chunkPrefix = "chunk:"

	defaultCompressionMin = 256
	defaultChunkThreshold = 1 << 20 // 1MB
	chunkSize             = 256 * 1024
)

// Config configures a Store. Only Paths[0] is used at the moment.
type Config struct {
	// Paths contains data directories.
	Paths []string
	// MinimumFreeGB refuses to open the store when the volume has less
	// free space than this. Zero disables the check.
	MinimumFreeGB uint
	// CompressionMinBytes is the smallest payload worth compressing.
	CompressionMinBytes int
	// ChunkThresholdBytes is the payload size above which the payload is
	// stored as separate chunk records.
	ChunkThresholdBytes int
	// Logger is optional; nil gets a default logrus logger.
	Logger *logrus.Logger
}

// Store is a badger-backed persistence layer for ciddag entries.
type Store struct {
	config Config
	db     *badger.DB
}

// Record is one persisted entry, reassembled and digest-verified.
type Record struct {
	CID         ciddag.Digest
	Predecessor ciddag.Digest
	Payload     []byte
	Sequence    uint64
	Timestamp   time.Time
}

type entryRecord struct {
	Cid         string `json:"cid"`
	Predecessor string `json:"predecessor,omitempty"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   int64  `json:"timestamp"`
	Payload     []byte `json:"payload,omitempty"`
	Compressed  bool   `json:"compressed,omitempty"`
	// Chunks lists SHA-512 keys of chunk records when the payload is
	// stored out of line. Mutually exclusive with Payload.
	Chunks []string `json:"chunks,omitempty"`
}

// New opens (or creates) the store at Paths[0].
func New(config Config) (*Store, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	log = config.Logger

	if len(config.Paths) == 0 {
		return nil, fmt.Errorf("dagstore: at least one path must be provided")
	}
	if config.CompressionMinBytes <= 0 {
		config.CompressionMinBytes = defaultCompressionMin
	}
	if config.ChunkThresholdBytes <= 0 {
		config.ChunkThresholdBytes = defaultChunkThreshold
	}

	path := config.Paths[0]
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", path, err)
	}
	if err := checkFreeSpace(path, config.MinimumFreeGB); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	return &Store{config: config, db: db}, nil
}

func checkFreeSpace(path string, minimumFreeGB uint) error {
	if minimumFreeGB == 0 {
		return nil
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("disk usage for %s: %w", path, err)
	}
	required := uint64(minimumFreeGB) * 1024 * 1024 * 1024
	if usage.Free < required {
		return fmt.Errorf("dagstore: %s has %d bytes free, need %d", path, usage.Free, required)
	}
	log.WithFields(logrus.Fields{
		"path": path,
		"free": usage.Free,
	}).Info("disk space check passed")
	return nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put persists one entry. Re-putting the same entry overwrites the
// identical record and is harmless.
func (s *Store) Put(e *ciddag.Entry) error {
	rec := entryRecord{
		Cid:       e.CID().String(),
		Sequence:  e.Sequence(),
		Timestamp: e.Timestamp().UnixNano(),
	}
	if e.HasPredecessor() {
		rec.Predecessor = e.Predecessor().String()
	}

	payload := e.Payload()
	var chunks [][2][]byte // key, value pairs written alongside the record

	switch {
	case len(payload) > s.config.ChunkThresholdBytes:
		splitter := boxochunker.NewSizeSplitter(bytes.NewReader(payload), chunkSize)
		for {
			chunk, err := splitter.NextBytes()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("chunk payload for %s: %w", rec.Cid, err)
			}
			sum := sha512.Sum512(chunk)
			key := chunkPrefix + hex.EncodeToString(sum[:])
			compressed, err := compressWithLzma(chunk)
			if err != nil {
				return fmt.Errorf("compress chunk for %s: %w", rec.Cid, err)
			}
			chunks = append(chunks, [2][]byte{[]byte(key), compressed})
			rec.Chunks = append(rec.Chunks, hex.EncodeToString(sum[:]))
		}
	case len(payload) >= s.config.CompressionMinBytes:
		compressed, err := compressWithLzma(payload)
		if err != nil {
			return fmt.Errorf("compress payload for %s: %w", rec.Cid, err)
		}
		rec.Payload = compressed
		rec.Compressed = true
	default:
		rec.Payload = payload
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", rec.Cid, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, kv := range chunks {
			if err := txn.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return txn.Set([]byte(entryPrefix+rec.Cid), value)
	})
}

// PutDag persists every entry of d.
func (s *Store) PutDag(d *ciddag.Dag) error {
	for _, e := range d.Entries() {
		if err := s.Put(e); err != nil {
			return err
		}
	}
	return nil
}

// Load reads, reassembles and verifies the record for digest. The digest
// is recomputed with hasher over the reassembled payload; a mismatch is
// ErrCorruptEntry.
func (s *Store) Load(digest ciddag.Digest, hasher ciddag.Hasher) (Record, error) {
	if hasher == nil {
		hasher = ciddag.SHA512{}
	}

	var rec entryRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryPrefix + digest.String()))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(value, &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("load %s: %w", digest.Short(), ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", digest.Short(), err)
	}

	payload, err := s.assemblePayload(&rec)
	if err != nil {
		return Record{}, err
	}

	var predecessor ciddag.Digest
	if rec.Predecessor != "" {
		predecessor, err = ciddag.ParseDigest(rec.Predecessor)
		if err != nil {
			return Record{}, fmt.Errorf("load %s: predecessor: %w", digest.Short(), ErrCorruptEntry)
		}
	}

	recomputed := ciddag.ComputeDigest(hasher, payload, predecessor, rec.Sequence)
	if !recomputed.Equal(digest) {
		log.WithFields(logrus.Fields{
			"want": digest.Short(),
			"got":  recomputed.Short(),
		}).Error("stored entry failed digest verification")
		return Record{}, fmt.Errorf("load %s: recomputed %s: %w", digest.Short(), recomputed.Short(), ErrCorruptEntry)
	}

	return Record{
		CID:         digest,
		Predecessor: predecessor,
		Payload:     payload,
		Sequence:    rec.Sequence,
		Timestamp:   time.Unix(0, rec.Timestamp),
	}, nil
}

func (s *Store) assemblePayload(rec *entryRecord) ([]byte, error) {
	if len(rec.Chunks) == 0 {
		if rec.Compressed {
			return decompressWithLzma(rec.Payload)
		}
		return rec.Payload, nil
	}

	var payload bytes.Buffer
	for _, chunkHex := range rec.Chunks {
		var compressed []byte
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(chunkPrefix + chunkHex))
			if err != nil {
				return err
			}
			compressed, err = item.ValueCopy(nil)
			return err
		})
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("entry %s: chunk %s missing: %w", rec.Cid, chunkHex, ErrCorruptEntry)
		}
		if err != nil {
			return nil, fmt.Errorf("entry %s: chunk %s: %w", rec.Cid, chunkHex, err)
		}
		chunk, err := decompressWithLzma(compressed)
		if err != nil {
			return nil, fmt.Errorf("entry %s: chunk %s: %w", rec.Cid, chunkHex, err)
		}
		// Chunks are addressed by their own hash; verify before use.
		sum := sha512.Sum512(chunk)
		if hex.EncodeToString(sum[:]) != chunkHex {
			return nil, fmt.Errorf("entry %s: chunk %s hash mismatch: %w", rec.Cid, chunkHex, ErrCorruptEntry)
		}
		payload.Write(chunk)
	}
	return payload.Bytes(), nil
}

// Digests lists every persisted entry digest.
func (s *Store) Digests() ([]ciddag.Digest, error) {
	var digests []ciddag.Digest
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			d, err := ciddag.ParseDigest(key[len(entryPrefix):])
			if err != nil {
				return fmt.Errorf("malformed key %q: %w", key, ErrCorruptEntry)
			}
			digests = append(digests, d)
		}
		return nil
	})
	return digests, err
}

// LoadDag rebuilds the full DAG from disk, verifying every record. Records
// are replayed in sequence order so predecessors restore first.
func (s *Store) LoadDag(hasher ciddag.Hasher) (*ciddag.Dag, error) {
	digests, err := s.Digests()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(digests))
	for _, digest := range digests {
		rec, err := s.Load(digest, hasher)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Sequence < records[j].Sequence
	})

	d := ciddag.New(hasher)
	for _, rec := range records {
		if err := d.Restore(rec.CID, rec.Predecessor, rec.Payload, rec.Sequence, rec.Timestamp); err != nil {
			return nil, fmt.Errorf("replay %s: %w", rec.CID.Short(), err)
		}
	}
	log.WithField("entries", d.Len()).Info("dag restored from disk")
	return d, nil
}

// VerifyAll re-verifies every persisted record, fanning the work out over
// the pool. A nil pool gets a temporary one.
func (s *Store) VerifyAll(hasher ciddag.Hasher, pool *workerpool.Pool) error {
	digests, err := s.Digests()
	if err != nil {
		return err
	}

	if pool == nil {
		pool = workerpool.New(workerpool.Config{})
		defer pool.Close()
	}

	room := pool.NewRoom()
	for _, digest := range digests {
		digest := digest
		room.Submit(func() error {
			_, err := s.Load(digest, hasher)
			return err
		})
	}
	return room.Wait()
}

func compressWithLzma(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressWithLzma(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
