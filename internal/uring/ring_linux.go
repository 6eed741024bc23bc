//go:build linux

package uring

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Ring is an owned io_uring instance. It is not safe for concurrent use; the
// process table drives it from a single goroutine.
type Ring struct {
	fd      int
	entries uint32

	sqRing []byte
	cqRing []byte // aliases sqRing when sharedCQ
	sqeMem []byte

	sharedCQ bool

	sqHead  *uint32
	sqTail  *uint32
	sqMask  uint32
	sqArray []uint32
	sqes    []sqe

	cqHead *uint32
	cqTail *uint32
	cqMask uint32
	cqes   []cqe

	pending   uint32
	submitted uint64
	completed uint64
	closed    bool
}

// Open creates a ring with at least capacity submission entries.
func Open(capacity int) (*Ring, error) {
	entries := clampEntries(capacity)

	var p params
	fd, err := setup(uint32(entries), &p)
	if err != nil {
		return nil, &SetupError{Entries: entries, Err: err}
	}

	if p.Features&featNoDrop == 0 {
		unix.Close(fd)
		return nil, &SetupError{Entries: entries, Err: ErrFeatureMissing}
	}

	r := &Ring{fd: fd, entries: p.SQEntries}
	if err := r.mmap(&p); err != nil {
		r.Close()
		return nil, &SetupError{Entries: entries, Err: err}
	}
	return r, nil
}

func (r *Ring) mmap(p *params) error {
	sqSize := int(p.SQOff.Array) + int(p.SQEntries)*4
	cqSize := int(p.CQOff.CQEs) + int(p.CQEntries)*int(unsafe.Sizeof(cqe{}))
	single := p.Features&featSingleMmap != 0
	if single {
		if cqSize > sqSize {
			sqSize = cqSize
		}
		cqSize = sqSize
	}

	var err error
	r.sqRing, err = unix.Mmap(r.fd, offSQRing, sqSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return err
	}

	if single {
		r.cqRing = r.sqRing
		r.sharedCQ = true
	} else {
		r.cqRing, err = unix.Mmap(r.fd, offCQRing, cqSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return err
		}
	}

	sqeSize := int(p.SQEntries) * int(unsafe.Sizeof(sqe{}))
	r.sqeMem, err = unix.Mmap(r.fd, offSQEs, sqeSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return err
	}

	r.sqHead = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Tail]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingMask]))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Array])), p.SQEntries)
	r.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&r.sqeMem[0])), p.SQEntries)

	r.cqHead = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Tail]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.RingMask]))
	r.cqes = unsafe.Slice((*cqe)(unsafe.Pointer(&r.cqRing[p.CQOff.CQEs])), p.CQEntries)
	return nil
}

// Capacity is the number of submission entries the kernel granted.
func (r *Ring) Capacity() int { return int(r.entries) }

// Reset zeroes the per-tick counters. Queued entries that were never
// submitted are withdrawn.
func (r *Ring) Reset() {
	if r.pending > 0 {
		atomic.StoreUint32(r.sqTail, atomic.LoadUint32(r.sqTail)-r.pending)
	}
	r.pending = 0
	r.submitted = 0
	r.completed = 0
}

// Enqueue queues a read of len(buf) bytes at offset 0 of fd. The caller keeps
// buf alive and untouched until the completion for tag has been polled, and
// never queues more than Capacity entries between submits.
func (r *Ring) Enqueue(tag uint64, buf []byte, fd int) {
	tail := atomic.LoadUint32(r.sqTail)
	idx := tail & r.sqMask

	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	r.sqes[idx] = sqe{
		Opcode:   opRead,
		Fd:       int32(fd),
		Addr:     addr,
		Len:      uint32(len(buf)),
		UserData: tag,
	}
	r.sqArray[idx] = idx

	atomic.StoreUint32(r.sqTail, tail+1)
	r.pending++
}

// SubmitAll hands every queued entry to the kernel in one io_uring_enter call
// and waits until that many completions are available.
func (r *Ring) SubmitAll() error {
	if r.pending == 0 {
		return nil
	}
	n, err := enter(r.fd, r.pending, r.pending, enterGetEvents)
	if err != nil {
		code := 0
		if errno, ok := err.(unix.Errno); ok {
			code = int(errno)
		}
		return &SubmitError{Code: code, Queued: int(r.pending)}
	}
	if uint32(n) != r.pending {
		return &SubmitError{Submitted: n, Queued: int(r.pending)}
	}
	r.submitted += uint64(n)
	r.pending = 0
	return nil
}

// PollNext returns the next completion without blocking.
func (r *Ring) PollNext() (Completion, PollState) {
	if r.completed == r.submitted {
		return Completion{}, PollDrained
	}

	head := atomic.LoadUint32(r.cqHead)
	if head == atomic.LoadUint32(r.cqTail) {
		return Completion{}, PollPending
	}

	c := r.cqes[head&r.cqMask]
	atomic.StoreUint32(r.cqHead, head+1)
	r.completed++
	return Completion{Tag: c.UserData, Result: c.Res}, PollReady
}

// Close unmaps the shared regions and closes the ring fd. It is idempotent.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.sqHead, r.sqTail, r.cqHead, r.cqTail = nil, nil, nil, nil
	r.sqArray, r.sqes, r.cqes = nil, nil, nil

	if r.sqeMem != nil {
		unix.Munmap(r.sqeMem)
		r.sqeMem = nil
	}
	if r.cqRing != nil && !r.sharedCQ {
		unix.Munmap(r.cqRing)
	}
	r.cqRing = nil
	if r.sqRing != nil {
		unix.Munmap(r.sqRing)
		r.sqRing = nil
	}
	return unix.Close(r.fd)
}
