// Package arena provides a generation-tagged slot allocator for stable
// identifiers. A freed slot can be reused, but its generation counter is
// bumped first, so handles held from before the release read as dead
// instead of aliasing the new occupant.
package arena

// Handle addresses one slot of an Arena. The zero Handle is never live;
// generations start at 1.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero returns true for the zero Handle.
func (h Handle) IsZero() bool {
	return h.Index == 0 && h.Gen == 0
}

type slot struct {
	gen  uint32
	live bool
}

// Arena hands out generation-tagged handles in amortized O(1).
// It is not safe for concurrent use.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Allocate returns a fresh live handle, reusing a freed slot if one exists.
func (a *Arena) Allocate() Handle {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].live = true
		return Handle{Index: idx, Gen: a.slots[idx].gen}
	}
	a.slots = append(a.slots, slot{gen: 1, live: true})
	return Handle{Index: uint32(len(a.slots) - 1), Gen: 1}
}

// IsLive reports whether h refers to a currently allocated slot. Stale
// generations and out-of-range indices are simply not live.
func (a *Arena) IsLive(h Handle) bool {
	if int(h.Index) >= len(a.slots) {
		return false
	}
	s := a.slots[h.Index]
	return s.live && s.gen == h.Gen
}

// Release frees the slot addressed by h and bumps its generation so the
// slot can be reused without resurrecting old handles. Releasing a dead or
// stale handle is a no-op.
func (a *Arena) Release(h Handle) {
	if !a.IsLive(h) {
		return
	}
	a.slots[h.Index].live = false
	a.slots[h.Index].gen++
	a.free = append(a.free, h.Index)
	a.live--
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	return a.live
}

// Cap returns the number of slots ever allocated, live or not.
func (a *Arena) Cap() int {
	return len(a.slots)
}
