package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/logger"
	"github.com/rileyhilliard/rtop/internal/procfs"
	"github.com/rileyhilliard/rtop/internal/uring"
	"github.com/stretchr/testify/require"
)

// fakeProcFS lays out a procfs-like tree under a temp dir.
type fakeProcFS struct {
	t    *testing.T
	root string
}

func newFakeProcFS(t *testing.T) *fakeProcFS {
	t.Helper()
	return &fakeProcFS{t: t, root: t.TempDir()}
}

func (f *fakeProcFS) dir(pid int) string {
	return filepath.Join(f.root, strconv.Itoa(pid))
}

func (f *fakeProcFS) write(pid int, name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(f.dir(pid), 0o755))
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir(pid), name), []byte(content), 0o644))
}

// add creates a process. argv may be empty for kernel-thread-like entries.
func (f *fakeProcFS) add(pid int, comm string, argv []string, ticks uint64, rssPages uint64) {
	f.t.Helper()
	cmdline := ""
	if len(argv) > 0 {
		cmdline = strings.Join(argv, "\x00") + "\x00"
	}
	f.write(pid, "cmdline", cmdline)
	f.write(pid, "status", fmt.Sprintf("Name:\t%s\nUmask:\t0022\nState:\tS (sleeping)\n", comm))
	f.setStat(pid, comm, ticks, rssPages)
}

func (f *fakeProcFS) setStat(pid int, comm string, ticks uint64, rssPages uint64) {
	f.t.Helper()
	f.write(pid, "stat", statLine(pid, comm, 'S', 1, ticks, 0, 0, 0, 3, rssPages))
}

func (f *fakeProcFS) setSmaps(pid int, pssKB uint64) {
	f.t.Helper()
	f.write(pid, "smaps_rollup", fmt.Sprintf(
		"55d0c0a00000-7ffd4e1f5000 ---p 00000000 00:00 0                          [rollup]\n"+
			"Rss:                5120 kB\n"+
			"Pss:                %d kB\n"+
			"Pss_Anon:            900 kB\n"+
			"Pss_File:            100 kB\n", pssKB))
}

func (f *fakeProcFS) setCmdline(pid int, argv ...string) {
	f.t.Helper()
	f.write(pid, "cmdline", strings.Join(argv, "\x00")+"\x00")
}

// statLine renders a /proc/[pid]/stat line with the given values in their
// kernel positions.
func statLine(pid int, comm string, state byte, ppid int, utime, stime uint64, cutime, cstime int64, threads int, rssPages uint64) string {
	return fmt.Sprintf("%d (%s) %c %d %d %d 0 -1 4194560 100 0 0 0 %d %d %d %d 20 0 %d 0 12345 1000000 %d 18446744073709551615 1 1 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0\n",
		pid, comm, state, ppid, pid, pid, utime, stime, cutime, cstime, threads, rssPages)
}

type fakeCPU struct {
	totald uint64
	cores  int
}

func (c *fakeCPU) TotalDelta() (uint64, int) { return c.totald, c.cores }

// scriptedReader wraps the blocking reader, overriding results for chosen
// tags and counting what each tick queued and drained.
type scriptedReader struct {
	BatchReader
	fail map[uint64]int32

	enqueued    []uint64
	completions int
	pending     int
	maxPending  int
	submits     int
}

func (r *scriptedReader) Reset() {
	r.enqueued = r.enqueued[:0]
	r.completions = 0
	r.pending = 0
	r.BatchReader.Reset()
}

func (r *scriptedReader) Enqueue(tag uint64, buf []byte, fd int) {
	r.enqueued = append(r.enqueued, tag)
	r.pending++
	if r.pending > r.maxPending {
		r.maxPending = r.pending
	}
	r.BatchReader.Enqueue(tag, buf, fd)
}

func (r *scriptedReader) SubmitAll() error {
	r.submits++
	r.pending = 0
	return r.BatchReader.SubmitAll()
}

func (r *scriptedReader) PollNext() (uring.Completion, uring.PollState) {
	c, state := r.BatchReader.PollNext()
	if state == uring.PollReady {
		r.completions++
		if res, ok := r.fail[c.Tag]; ok {
			c.Result = res
		}
	}
	return c, state
}

func (r *scriptedReader) countTag(tag uint64) int {
	n := 0
	for _, t := range r.enqueued {
		if t == tag {
			n++
		}
	}
	return n
}

// readerLog records every reader the table opens.
type readerLog struct {
	fail    map[uint64]int32
	sizes   []int
	readers []*scriptedReader
}

func newReaderLog() *readerLog {
	return &readerLog{fail: make(map[uint64]int32)}
}

func (l *readerLog) factory(capacity int) (BatchReader, error) {
	inner, err := SyncReader(capacity)
	if err != nil {
		return nil, err
	}
	r := &scriptedReader{BatchReader: inner, fail: l.fail}
	l.sizes = append(l.sizes, capacity)
	l.readers = append(l.readers, r)
	return r, nil
}

func (l *readerLog) current() *scriptedReader {
	return l.readers[len(l.readers)-1]
}

type tableFixture struct {
	fs       *fakeProcFS
	cpu      *fakeCPU
	live     *config.Live
	readers  *readerLog
	table    *Table
	log      *logger.BufferLogger
	recorder *countingRecorder
}

type countingRecorder struct {
	entries   int
	removed   int
	resizes   []int
	submitted int
}

func (r *countingRecorder) ProcEntries(n int)        { r.entries = n }
func (r *countingRecorder) ProcRemoved(n int)        { r.removed += n }
func (r *countingRecorder) RingResized(capacity int) { r.resizes = append(r.resizes, capacity) }
func (r *countingRecorder) RingSubmitted()           { r.submitted++ }

func smallPolicy() RingPolicy {
	return RingPolicy{Initial: 64, Min: 64, Max: uring.MaxEntries, GrowFactor: 2, ShrinkDivisor: 4}
}

func newFixture(t *testing.T, fs *fakeProcFS, settings config.Settings, policy RingPolicy) *tableFixture {
	t.Helper()
	if settings.Interval == 0 {
		settings.Interval = config.MinInterval
	}
	if settings.Sort == "" {
		settings.Sort = config.SortPID
	}

	scanner, err := procfs.OpenDir(fs.root)
	require.NoError(t, err)

	f := &tableFixture{
		fs:       fs,
		cpu:      &fakeCPU{totald: 2000, cores: 4},
		live:     config.NewLive(settings),
		readers:  newReaderLog(),
		log:      logger.NewBufferLogger(),
		recorder: &countingRecorder{},
	}
	f.table, err = NewTable(Options{
		Root:      fs.root,
		Scanner:   scanner,
		NewReader: f.readers.factory,
		CPU:       f.cpu,
		Settings:  f.live,
		Policy:    policy,
		Logger:    f.log,
		Recorder:  f.recorder,
		PageSize:  4096,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.table.Close() })
	return f
}

func (f *tableFixture) tick(t *testing.T) {
	t.Helper()
	f.table.Lock()
	defer f.table.Unlock()
	require.NoError(t, f.table.Update())
}

func (f *tableFixture) pids() []uint32 {
	f.table.RLock()
	defer f.table.RUnlock()
	var out []uint32
	f.table.Visit(func(_ int, e *Entry) bool {
		out = append(out, e.PID)
		return true
	})
	return out
}
