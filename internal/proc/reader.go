package proc

import (
	"github.com/rileyhilliard/rtop/internal/uring"
	"golang.org/x/sys/unix"
)

// BatchReader queues tagged reads, submits them together and hands back
// completions. *uring.Ring is the production implementation.
type BatchReader interface {
	Reset()
	Enqueue(tag uint64, buf []byte, fd int)
	SubmitAll() error
	PollNext() (uring.Completion, uring.PollState)
	Capacity() int
	Close() error
}

// ReaderFactory opens a BatchReader with room for at least capacity requests.
type ReaderFactory func(capacity int) (BatchReader, error)

// RingReader opens an io_uring-backed reader.
func RingReader(capacity int) (BatchReader, error) {
	r, err := uring.Open(capacity)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SyncReader opens the blocking reader: SubmitAll issues one pread per
// queued request.
func SyncReader(capacity int) (BatchReader, error) {
	if capacity < 1 {
		capacity = 1
	}
	return &syncReader{
		capacity: capacity,
		queue:    make([]syncRequest, 0, capacity),
		results:  make([]uring.Completion, 0, capacity),
	}, nil
}

type syncRequest struct {
	tag uint64
	buf []byte
	fd  int
}

type syncReader struct {
	capacity  int
	queue     []syncRequest
	results   []uring.Completion
	submitted int
	completed int
}

func (r *syncReader) Capacity() int { return r.capacity }

func (r *syncReader) Reset() {
	r.queue = r.queue[:0]
	r.results = r.results[:0]
	r.submitted = 0
	r.completed = 0
}

func (r *syncReader) Enqueue(tag uint64, buf []byte, fd int) {
	r.queue = append(r.queue, syncRequest{tag: tag, buf: buf, fd: fd})
}

func (r *syncReader) SubmitAll() error {
	for _, req := range r.queue {
		res := int32(0)
		for {
			n, err := unix.Pread(req.fd, req.buf, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				res = -int32(errnoOf(err))
			} else {
				res = int32(n)
			}
			break
		}
		r.results = append(r.results, uring.Completion{Tag: req.tag, Result: res})
	}
	r.submitted += len(r.queue)
	r.queue = r.queue[:0]
	return nil
}

func (r *syncReader) PollNext() (uring.Completion, uring.PollState) {
	if r.completed == r.submitted {
		return uring.Completion{}, uring.PollDrained
	}
	c := r.results[r.completed]
	r.completed++
	return c, uring.PollReady
}

func (r *syncReader) Close() error {
	r.Reset()
	return nil
}

func errnoOf(err error) unix.Errno {
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	return unix.EIO
}
