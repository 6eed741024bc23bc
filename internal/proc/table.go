// Package proc maintains the process table: discovery, batched reads of
// /proc/[pid]/stat and smaps_rollup, and the per-process derived metrics.
package proc

import (
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/logger"
	"github.com/rileyhilliard/rtop/internal/procfs"
	"github.com/rileyhilliard/rtop/internal/uring"
	"golang.org/x/sys/unix"
)

// Options configures a Table.
type Options struct {
	// Root is the procfs mount, normally /proc.
	Root string

	// Scanner enumerates Root. Nil opens procfs.Open(Root).
	Scanner procfs.Scanner

	// NewReader opens the batch reader. Nil means RingReader.
	NewReader ReaderFactory

	// AllowFallback switches to SyncReader when NewReader fails at startup.
	AllowFallback bool

	CPU      CPUSource
	Settings *config.Live
	Policy   RingPolicy
	Logger   logger.Logger
	Recorder Recorder

	// PageSize converts stat rss pages to bytes. Zero means os.Getpagesize().
	PageSize int
}

// Table is the process table. Update runs with the write lock held (the
// sampler harness takes it); readers hold the read lock while visiting.
//
// A PID whose cmdline is empty while ShowAll is off goes into the ignore-set
// and is not read again until ShowAll changes, even if it later execs into a
// process with arguments. PID 1 is never ignored.
type Table struct {
	sync.RWMutex

	root      string
	scanner   procfs.Scanner
	reader    BatchReader
	newReader ReaderFactory
	degraded  bool

	cpu      CPUSource
	settings *config.Live
	policy   RingPolicy
	log      logger.Logger
	rec      Recorder
	pageSize uint64

	arena   arena
	byPID   map[uint32]Handle
	ignored map[uint32]struct{}
	sorted  []Handle
	doomed  []Handle

	started   bool
	showAll   bool
	smaps     bool
	maxDigits int

	pending  int
	pathBuf  []byte
	identBuf []byte
}

// NewTable opens the scanner and batch reader and returns an empty table.
// The first Update discovers processes.
func NewTable(opts Options) (*Table, error) {
	if opts.Root == "" {
		opts.Root = "/proc"
	}
	if opts.Settings == nil {
		opts.Settings = config.NewLive(config.DefaultConfig().Settings())
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[proc]")
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.NewReader == nil {
		opts.NewReader = RingReader
	}
	if opts.Policy == (RingPolicy{}) {
		opts.Policy = DefaultRingPolicy()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = os.Getpagesize()
	}

	t := &Table{
		root:      strings.TrimRight(opts.Root, "/"),
		scanner:   opts.Scanner,
		newReader: opts.NewReader,
		cpu:       opts.CPU,
		settings:  opts.Settings,
		policy:    opts.Policy.normalized(),
		log:       opts.Logger,
		rec:       opts.Recorder,
		pageSize:  uint64(pageSize),
		byPID:     make(map[uint32]Handle),
		ignored:   make(map[uint32]struct{}),
		identBuf:  make([]byte, identBufSize),
	}

	if t.scanner == nil {
		s, err := procfs.Open(t.root)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrProcfs,
				"Cannot open "+t.root,
				"Check that procfs is mounted, or point --procfs at it")
		}
		t.scanner = s
	}

	reader, err := t.newReader(t.policy.Initial)
	if err != nil {
		if !opts.AllowFallback {
			t.scanner.Close()
			return nil, errors.WrapWithCode(err, errors.ErrRing,
				"io_uring is unavailable",
				"Run 'rtop doctor' to check kernel support, or enable fallback_io")
		}
		t.log.Warn("io_uring unavailable, using blocking reads: %v", err)
		t.newReader = SyncReader
		t.degraded = true
		reader, _ = SyncReader(t.policy.Initial)
	}
	t.reader = reader
	t.rec.RingResized(reader.Capacity())

	return t, nil
}

// Update runs one tick: discovery, batched reads and derived metrics.
func (t *Table) Update() error {
	s := t.settings.Load()

	if !t.started || s.ShowAll != t.showAll {
		if t.started {
			t.log.Debug("show-all changed to %v, rebuilding table", s.ShowAll)
		}
		t.clear()
		t.showAll = s.ShowAll
		t.started = true
	}
	if t.smaps && !s.Smaps {
		t.dropSmaps()
	}
	t.smaps = s.Smaps

	if err := t.discover(s.ShowAll); err != nil {
		return err
	}

	if err := t.resize(s.Smaps); err != nil {
		return err
	}

	var totald uint64
	var cores int
	if t.cpu != nil {
		totald, cores = t.cpu.TotalDelta()
	}

	err := t.readAll(s, totald, cores)

	removed := len(t.doomed)
	t.releaseDoomed()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrRing,
			"Process table read failed",
			"The io_uring instance is in an unknown state; restart rtop")
	}

	t.rebuild(s.Sort, s.Reverse)
	t.rec.ProcEntries(len(t.byPID))
	if removed > 0 {
		t.rec.ProcRemoved(removed)
	}
	return nil
}

// discover adds every new qualifying PID under the procfs root.
func (t *Table) discover(showAll bool) error {
	err := t.scanner.Scan(func(pid uint32) {
		if _, ok := t.byPID[pid]; ok {
			return
		}
		if _, ok := t.ignored[pid]; ok {
			return
		}
		t.add(pid, showAll)
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrProcfs,
			"Cannot scan "+t.root,
			"Check that procfs is still mounted")
	}
	return nil
}

// add resolves a PID's identity and inserts it. Processes that vanish
// meanwhile are skipped silently.
func (t *Table) add(pid uint32, showAll bool) {
	cmdline, name, err := t.readCmdline(pid)
	if err != nil {
		return
	}
	if cmdline == "" {
		if !showAll && pid != 1 {
			t.ignored[pid] = struct{}{}
			return
		}
		name, err = t.readStatusName(pid)
		if err != nil && pid != 1 {
			return
		}
	}

	fd, err := t.openStat(pid)
	if err != nil {
		return
	}

	h, e := t.arena.alloc()
	e.init(pid, name, cmdline, fd)
	t.byPID[pid] = h
}

// resize recreates the reader when the request count crossed a threshold.
// Nothing is in flight between ticks.
func (t *Table) resize(smaps bool) error {
	capacity := t.reader.Capacity()
	target, ok := t.policy.Target(len(t.byPID), smaps, capacity)
	if !ok {
		return nil
	}

	t.log.Debug("resizing reader from %d to %d entries for %d processes", capacity, target, len(t.byPID))
	t.reader.Close()
	reader, err := t.newReader(target)
	if err != nil {
		// Keep a usable reader so Close and later ticks stay safe.
		t.reader, _ = SyncReader(capacity)
		return errors.WrapWithCode(err, errors.ErrRing,
			"Cannot resize io_uring",
			"Lower ring.max_entries or enable fallback_io")
	}
	t.reader = reader
	t.rec.RingResized(reader.Capacity())
	return nil
}

// readAll queues the primary (and optional secondary) read of every entry,
// flushing whenever the reader is full, then drains the remainder.
func (t *Table) readAll(s config.Settings, totald uint64, cores int) error {
	t.reader.Reset()
	t.pending = 0
	capacity := t.reader.Capacity()

	for pid, h := range t.byPID {
		e, ok := t.arena.get(h)
		if !ok {
			continue
		}

		if t.pending >= capacity {
			if err := t.flush(s, totald, cores); err != nil {
				return err
			}
		}
		t.reader.Enqueue(primaryTag(pid), e.statBuf, e.statFD)
		t.pending++

		if !s.Smaps || e.smapsFD == fdDisabled {
			continue
		}
		if e.smapsFD == fdUnopened {
			fd, err := t.openSmaps(pid)
			if err != nil {
				e.smapsFD = fdDisabled
				e.HasPSS = false
				continue
			}
			e.smapsFD = fd
			if len(e.smapsBuf) == 0 {
				e.smapsBuf = make([]byte, smapsBufSize)
			}
		}

		if t.pending >= capacity {
			if err := t.flush(s, totald, cores); err != nil {
				return err
			}
			if _, ok := t.byPID[pid]; !ok {
				continue
			}
		}
		t.reader.Enqueue(secondaryTag(pid), e.smapsBuf, e.smapsFD)
		t.pending++
	}

	return t.flush(s, totald, cores)
}

// flush submits the queued reads and handles completions until drained.
func (t *Table) flush(s config.Settings, totald uint64, cores int) error {
	if t.pending == 0 {
		return nil
	}
	if err := t.reader.SubmitAll(); err != nil {
		return err
	}
	t.rec.RingSubmitted()
	t.pending = 0

	for {
		c, state := t.reader.PollNext()
		switch state {
		case uring.PollReady:
			t.complete(c, s.TopPercent, totald, cores)
		case uring.PollPending:
			runtime.Gosched()
		case uring.PollDrained:
			return nil
		}
	}
}

// complete applies one finished read.
func (t *Table) complete(c uring.Completion, topMode bool, totald uint64, cores int) {
	pid, secondary := splitTag(c.Tag)
	h, ok := t.byPID[pid]
	if !ok {
		return
	}
	e, ok := t.arena.get(h)
	if !ok {
		return
	}

	if secondary {
		if c.Result < 0 {
			unix.Close(e.smapsFD)
			e.smapsFD = fdDisabled
			e.HasPSS = false
			return
		}
		n := int(c.Result)
		e.PSS, e.HasPSS = decodeSmaps(e.smapsBuf[:n])
		if !e.HasPSS && n == len(e.smapsBuf) {
			e.smapsBuf = grow(e.smapsBuf)
		}
		return
	}

	if c.Result < 0 {
		// The process is gone. Its fds and buffers stay valid until the
		// batch has drained.
		delete(t.byPID, pid)
		e.Alive = false
		t.doomed = append(t.doomed, h)
		return
	}

	n := int(c.Result)
	work, err := e.applyStat(e.statBuf[:n], t.pageSize)
	if err != nil {
		if n == len(e.statBuf) {
			e.statBuf = grow(e.statBuf)
		}
		return
	}
	e.CPUPercent = cpuPercent(work, totald, cores, topMode)
	e.Alive = true
}

func (t *Table) releaseDoomed() {
	for _, h := range t.doomed {
		t.free(h)
	}
	t.doomed = t.doomed[:0]
}

// free closes an entry's fds and returns its slot to the arena.
func (t *Table) free(h Handle) {
	e, ok := t.arena.get(h)
	if !ok {
		return
	}
	if e.statFD >= 0 {
		unix.Close(e.statFD)
	}
	if e.smapsFD >= 0 {
		unix.Close(e.smapsFD)
	}
	e.statFD, e.smapsFD = -1, fdUnopened
	t.arena.release(h)
}

// clear drops every entry and the ignore-set.
func (t *Table) clear() {
	for _, h := range t.byPID {
		t.free(h)
	}
	clear(t.byPID)
	clear(t.ignored)
	t.sorted = t.sorted[:0]
}

// dropSmaps closes smaps fds when PSS mode is switched off. Entries that
// had been disabled stay disabled.
func (t *Table) dropSmaps() {
	for _, h := range t.byPID {
		e, ok := t.arena.get(h)
		if !ok {
			continue
		}
		if e.smapsFD >= 0 {
			unix.Close(e.smapsFD)
			e.smapsFD = fdUnopened
		}
		e.HasPSS = false
		e.PSS = 0
	}
}

// rebuild refreshes the display order and the PID column width from the
// entries that survived this tick.
func (t *Table) rebuild(key config.SortKey, reverse bool) {
	t.sorted = t.sorted[:0]
	t.maxDigits = 1
	for pid, h := range t.byPID {
		t.sorted = append(t.sorted, h)
		if d := procfs.Digits(pid); d > t.maxDigits {
			t.maxDigits = d
		}
	}
	cmp := t.compare(key)
	slices.SortFunc(t.sorted, func(a, b Handle) int {
		ea, _ := t.arena.get(a)
		eb, _ := t.arena.get(b)
		c := cmp(ea, eb)
		if c == 0 {
			c = cmpUint(ea.PID, eb.PID)
		}
		if reverse {
			return -c
		}
		return c
	})
}

func (t *Table) compare(key config.SortKey) func(a, b *Entry) int {
	switch key {
	case config.SortMem:
		return func(a, b *Entry) int { return cmpUint(b.Memory(), a.Memory()) }
	case config.SortPID:
		return func(a, b *Entry) int { return cmpUint(a.PID, b.PID) }
	case config.SortName:
		return func(a, b *Entry) int { return strings.Compare(a.DisplayName(), b.DisplayName()) }
	default:
		return func(a, b *Entry) int {
			switch {
			case a.CPUPercent > b.CPUPercent:
				return -1
			case a.CPUPercent < b.CPUPercent:
				return 1
			}
			return 0
		}
	}
}

func cmpUint[T uint32 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Visit calls fn for each entry in display order until fn returns false.
// The caller holds the read lock.
func (t *Table) Visit(fn func(rank int, e *Entry) bool) {
	for i, h := range t.sorted {
		e, ok := t.arena.get(h)
		if !ok {
			continue
		}
		if !fn(i, e) {
			return
		}
	}
}

// Len is the number of live entries.
func (t *Table) Len() int { return len(t.byPID) }

// MaxDigits is the widest PID seen by the last scan, for column alignment.
func (t *Table) MaxDigits() int { return t.maxDigits }

// Capacity is the current batch reader capacity.
func (t *Table) Capacity() int { return t.reader.Capacity() }

// Degraded reports whether the table fell back to blocking reads.
func (t *Table) Degraded() bool { return t.degraded }

// Get resolves a handle from the sorted list.
func (t *Table) Get(h Handle) (*Entry, bool) { return t.arena.get(h) }

// Lookup finds the entry for pid.
func (t *Table) Lookup(pid uint32) (*Entry, bool) {
	h, ok := t.byPID[pid]
	if !ok {
		return nil, false
	}
	return t.arena.get(h)
}

// Ignored reports whether pid is in the ignore-set.
func (t *Table) Ignored(pid uint32) bool {
	_, ok := t.ignored[pid]
	return ok
}

// Close releases every entry, the reader and the scanner.
func (t *Table) Close() error {
	t.clear()
	var err error
	if t.reader != nil {
		err = t.reader.Close()
	}
	if t.scanner != nil {
		if cerr := t.scanner.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
