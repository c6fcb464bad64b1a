// Package ciddag implements an append-only, content-addressed causal DAG.
// Every entry's identifier is a digest over (payload, predecessor digest,
// sequence), so each entry cryptographically commits to its whole history.
// Chain verification recomputes the digests along the predecessor links and
// proves an unbroken, tamper-evident lineage back to a root.
//
// The DAG is in-memory and single-writer; the sequence counter is the one
// piece of shared mutable state and needs the same external serialization
// as every other mutation.
package ciddag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"
)

// Entry is one immutable record of the DAG.
type Entry struct {
	cid         Digest
	predecessor Digest // zero digest = root
	payload     []byte
	sequence    uint64
	timestamp   time.Time
}

// CID returns the entry's content identifier.
func (e *Entry) CID() Digest { return e.cid }

// Predecessor returns the predecessor digest; zero for a root.
func (e *Entry) Predecessor() Digest { return e.predecessor }

// HasPredecessor reports whether the entry cites a predecessor.
func (e *Entry) HasPredecessor() bool { return !e.predecessor.IsZero() }

// Payload returns a copy of the opaque payload bytes.
func (e *Entry) Payload() []byte {
	return append([]byte(nil), e.payload...)
}

// Sequence returns the store-assigned sequence number.
func (e *Entry) Sequence() uint64 { return e.sequence }

// Timestamp returns the insertion time.
func (e *Entry) Timestamp() time.Time { return e.timestamp }

// Dag is the append-only store. Entries are created once and never mutated
// or deleted.
type Dag struct {
	hasher   Hasher
	entries  map[Digest]*Entry
	children map[Digest][]Digest
	roots    []Digest
	leaves   map[Digest]struct{}

	// byContent maps hash(payload ‖ predecessor) to the digest of the
	// first insertion, making identical re-inserts idempotent.
	byContent map[Digest]Digest

	nextSeq uint64
}

// New returns an empty DAG using the given hash provider. A nil hasher
// falls back to SHA-512.
func New(hasher Hasher) *Dag {
	if hasher == nil {
		hasher = SHA512{}
	}
	return &Dag{
		hasher:    hasher,
		entries:   make(map[Digest]*Entry),
		children:  make(map[Digest][]Digest),
		leaves:    make(map[Digest]struct{}),
		byContent: make(map[Digest]Digest),
	}
}

// ComputeDigest derives an entry's content identifier:
// Hash(payload ‖ predecessor ‖ little-endian sequence). Anything holding
// entry fields from an untrusted boundary must recompute and compare.
func ComputeDigest(h Hasher, payload []byte, predecessor Digest, sequence uint64) Digest {
	var buf bytes.Buffer
	buf.Grow(len(payload) + DigestSize + 8)
	buf.Write(payload)
	buf.Write(predecessor[:])
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	buf.Write(seq[:])
	return h.Sum(buf.Bytes())
}

func (d *Dag) computeDigest(payload []byte, predecessor Digest, sequence uint64) Digest {
	return ComputeDigest(d.hasher, payload, predecessor, sequence)
}

func (d *Dag) contentKey(payload []byte, predecessor Digest) Digest {
	var buf bytes.Buffer
	buf.Grow(len(payload) + DigestSize)
	buf.Write(payload)
	buf.Write(predecessor[:])
	return d.hasher.Sum(buf.Bytes())
}

// Insert appends a new entry and returns its digest. The sequence number is
// store-assigned, monotonic and not client-suppliable. A zero predecessor
// creates a root; a non-zero predecessor must already be stored or Insert
// fails with ErrUnknownPredecessor and the store is unchanged. Re-inserting
// identical (payload, predecessor) succeeds idempotently, returning the
// digest of the first insertion.
func (d *Dag) Insert(payload []byte, predecessor Digest) (Digest, error) {
	ck := d.contentKey(payload, predecessor)
	if existing, ok := d.byContent[ck]; ok {
		return existing, nil
	}

	if !predecessor.IsZero() {
		if _, ok := d.entries[predecessor]; !ok {
			return Digest{}, fmt.Errorf("insert with predecessor %s: %w", predecessor.Short(), ErrUnknownPredecessor)
		}
	}

	sequence := d.nextSeq
	cid := d.computeDigest(payload, predecessor, sequence)
	if prev, ok := d.entries[cid]; ok {
		// The content-key check above already handled identical content,
		// so anything landing here is a genuine collision.
		return Digest{}, fmt.Errorf("digest %s already bound to sequence %d: %w",
			cid.Short(), prev.sequence, ErrDigestCollision)
	}

	d.insertEntry(&Entry{
		cid:         cid,
		predecessor: predecessor,
		payload:     append([]byte(nil), payload...),
		sequence:    sequence,
		timestamp:   time.Now(),
	}, ck)
	d.nextSeq = sequence + 1
	return cid, nil
}

// Restore re-inserts a previously persisted entry, recomputing its digest
// and refusing anything that does not hash to the claimed cid. Entries must
// be restored in an order that satisfies the predecessor relation.
func (d *Dag) Restore(cid Digest, predecessor Digest, payload []byte, sequence uint64, timestamp time.Time) error {
	recomputed := d.computeDigest(payload, predecessor, sequence)
	if !recomputed.Equal(cid) {
		return fmt.Errorf("restore %s: recomputed %s: %w", cid.Short(), recomputed.Short(), ErrBrokenLink)
	}
	if existing, ok := d.entries[cid]; ok {
		if existing.sequence == sequence && existing.predecessor.Equal(predecessor) && bytes.Equal(existing.payload, payload) {
			return nil
		}
		return fmt.Errorf("restore %s: %w", cid.Short(), ErrDigestCollision)
	}
	if !predecessor.IsZero() {
		if _, ok := d.entries[predecessor]; !ok {
			return fmt.Errorf("restore %s cites %s: %w", cid.Short(), predecessor.Short(), ErrUnknownPredecessor)
		}
	}

	d.insertEntry(&Entry{
		cid:         cid,
		predecessor: predecessor,
		payload:     append([]byte(nil), payload...),
		sequence:    sequence,
		timestamp:   timestamp,
	}, d.contentKey(payload, predecessor))
	if sequence >= d.nextSeq {
		d.nextSeq = sequence + 1
	}
	return nil
}

func (d *Dag) insertEntry(e *Entry, contentKey Digest) {
	d.entries[e.cid] = e
	d.byContent[contentKey] = e.cid
	d.leaves[e.cid] = struct{}{}
	if e.predecessor.IsZero() {
		d.roots = append(d.roots, e.cid)
	} else {
		d.children[e.predecessor] = append(d.children[e.predecessor], e.cid)
		delete(d.leaves, e.predecessor)
	}
}

// Get returns the entry for digest.
func (d *Dag) Get(digest Digest) (*Entry, bool) {
	e, ok := d.entries[digest]
	return e, ok
}

// Contains reports whether digest identifies a stored entry.
func (d *Dag) Contains(digest Digest) bool {
	_, ok := d.entries[digest]
	return ok
}

// Len returns the number of stored entries.
func (d *Dag) Len() int { return len(d.entries) }

// Entries returns all stored entries ordered by sequence.
func (d *Dag) Entries() []*Entry {
	entries := make([]*Entry, 0, len(d.entries))
	for _, e := range d.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sequence < entries[j].sequence
	})
	return entries
}

// Roots returns the digests of all root entries, in insertion order.
func (d *Dag) Roots() []Digest {
	return append([]Digest(nil), d.roots...)
}

// Leaves returns the digests of all entries that no other entry cites as
// predecessor. Order is unspecified.
func (d *Dag) Leaves() []Digest {
	leaves := make([]Digest, 0, len(d.leaves))
	for l := range d.leaves {
		leaves = append(leaves, l)
	}
	return leaves
}

// VerifyChain walks the predecessor links from `from` toward `to`,
// recomputing and comparing every digest on the way, and returns the chain
// in root-to-`from` order. A zero `to` means "walk to a root". Failures:
// ErrUnknownDigest when `from` is absent, ErrBrokenLink when a stored entry
// does not hash to its claimed digest, ErrDisconnected when a root or a
// missing entry is reached without meeting `to`, ErrCycleDetected when a
// digest repeats mid-walk. The walk never materializes more of the
// structure than the chain itself, so partial verification of a long
// history is cheap.
func (d *Dag) VerifyChain(from, to Digest) ([]Digest, error) {
	if _, ok := d.entries[from]; !ok {
		return nil, fmt.Errorf("verify from %s: %w", from.Short(), ErrUnknownDigest)
	}

	var chain []Digest
	visited := make(map[Digest]struct{})
	current := from

	for {
		if _, seen := visited[current]; seen {
			return nil, fmt.Errorf("verify: revisited %s: %w", current.Short(), ErrCycleDetected)
		}
		visited[current] = struct{}{}

		e, ok := d.entries[current]
		if !ok {
			// A predecessor cited mid-chain is missing: the lineage cannot
			// be proven until it is fetched.
			return nil, fmt.Errorf("verify: missing entry %s: %w", current.Short(), ErrDisconnected)
		}

		recomputed := d.computeDigest(e.payload, e.predecessor, e.sequence)
		if !recomputed.Equal(e.cid) {
			return nil, fmt.Errorf("verify: entry %s recomputed to %s: %w",
				e.cid.Short(), recomputed.Short(), ErrBrokenLink)
		}

		chain = append(chain, current)

		if !to.IsZero() && current.Equal(to) {
			break
		}
		if !e.HasPredecessor() {
			if !to.IsZero() {
				return nil, fmt.Errorf("verify: reached root %s without meeting %s: %w",
					current.Short(), to.Short(), ErrDisconnected)
			}
			break
		}
		current = e.predecessor
	}

	// Walked leaf-to-root; callers get root-to-leaf.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Ancestors returns every entry reachable from digest through predecessor
// links, nearest first. Missing links truncate the walk.
func (d *Dag) Ancestors(digest Digest) []Digest {
	var ancestors []Digest
	visited := map[Digest]struct{}{digest: {}}
	current := digest
	for {
		e, ok := d.entries[current]
		if !ok || !e.HasPredecessor() {
			return ancestors
		}
		current = e.predecessor
		if _, seen := visited[current]; seen {
			return ancestors
		}
		visited[current] = struct{}{}
		ancestors = append(ancestors, current)
	}
}

// Descendants returns every entry that transitively cites digest as a
// predecessor. Order is unspecified.
func (d *Dag) Descendants(digest Digest) []Digest {
	var descendants []Digest
	visited := make(map[Digest]struct{})
	queue := append([]Digest(nil), d.children[digest]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		descendants = append(descendants, current)
		queue = append(queue, d.children[current]...)
	}
	return descendants
}

// CommonAncestor returns the nearest entry that both digests descend from.
func (d *Dag) CommonAncestor(a, b Digest) (Digest, bool) {
	inA := make(map[Digest]struct{})
	for _, anc := range d.Ancestors(a) {
		inA[anc] = struct{}{}
	}
	for _, anc := range d.Ancestors(b) {
		if _, ok := inA[anc]; ok {
			return anc, true
		}
	}
	return Digest{}, false
}
