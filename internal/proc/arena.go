package proc

// Handle refers to an entry slot. A handle whose slot has since been
// released (and possibly reused) no longer resolves.
type Handle struct {
	idx uint32
	gen uint32
}

type slot struct {
	entry Entry
	gen   uint32
	used  bool
}

// arena stores entries in reusable slots so handles, not pointers, survive
// between ticks.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) alloc() (Handle, *Entry) {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.used = true
	a.live++
	return Handle{idx: idx, gen: s.gen}, &s.entry
}

func (a *arena) get(h Handle) (*Entry, bool) {
	if int(h.idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.idx]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return &s.entry, true
}

// release frees the slot. The entry's buffers stay with the slot for reuse.
func (a *arena) release(h Handle) {
	if int(h.idx) >= len(a.slots) {
		return
	}
	s := &a.slots[h.idx]
	if !s.used || s.gen != h.gen {
		return
	}
	s.used = false
	s.gen++
	a.live--
	a.free = append(a.free, h.idx)
}

func (a *arena) len() int { return a.live }
