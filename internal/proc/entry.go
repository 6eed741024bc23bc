package proc

import (
	"bytes"
	"errors"
)

// ErrMalformedStat is returned when a stat buffer cannot be decoded. The
// entry keeps its previous values.
var ErrMalformedStat = errors.New("malformed /proc/[pid]/stat")

// smapsFD sentinels.
const (
	fdUnopened = -2 // smaps_rollup not opened yet
	fdDisabled = -1 // open or read failed; never retried for this entry
)

const (
	statBufSize  = 512
	smapsBufSize = 1024
	maxBufSize   = 64 * 1024
)

// Entry is one process as seen by the table. Entries are owned by the table
// and valid only while its read lock is held.
type Entry struct {
	PID     uint32
	Name    string // executable basename, or status Name when there is no cmdline
	Cmdline string // argv joined by spaces; empty for kernel threads
	Comm    string // from stat, refreshed every tick

	State   byte
	PPID    uint32
	Threads uint32

	// Ticks is utime+stime+cutime+cstime from the latest read.
	Ticks uint64
	// PrevTicks is the previous read's Ticks; zero until a second sample exists.
	PrevTicks  uint64
	CPUPercent float64

	RSS    uint64 // bytes
	PSS    uint64 // bytes; valid when HasPSS
	HasPSS bool

	Alive bool

	statFD   int
	smapsFD  int
	statBuf  []byte
	smapsBuf []byte
}

// Memory is PSS when available, RSS otherwise.
func (e *Entry) Memory() uint64 {
	if e.HasPSS {
		return e.PSS
	}
	return e.RSS
}

// DisplayName is Name, falling back to Comm.
func (e *Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Comm
}

// init prepares a recycled entry for a new process, keeping its buffers.
func (e *Entry) init(pid uint32, name, cmdline string, statFD int) {
	statBuf, smapsBuf := e.statBuf, e.smapsBuf
	*e = Entry{
		PID:      pid,
		Name:     name,
		Cmdline:  cmdline,
		Alive:    true,
		statFD:   statFD,
		smapsFD:  fdUnopened,
		statBuf:  statBuf,
		smapsBuf: smapsBuf,
	}
	if len(e.statBuf) == 0 {
		e.statBuf = make([]byte, statBufSize)
	}
}

// statFields holds the values decoded from one stat line.
type statFields struct {
	comm    []byte
	state   byte
	ppid    uint64
	utime   uint64
	stime   uint64
	cutime  uint64
	cstime  uint64
	threads uint64
	rss     uint64 // pages
}

var commEnd = []byte(") ")

// decodeStat parses a /proc/[pid]/stat line without allocating. Fields are
// counted from the one after the last ") ", since comm may contain spaces and
// parentheses.
func decodeStat(buf []byte) (statFields, error) {
	var f statFields

	end := bytes.LastIndex(buf, commEnd)
	if end < 0 {
		return f, ErrMalformedStat
	}
	if start := bytes.IndexByte(buf[:end], '('); start >= 0 {
		f.comm = buf[start+1 : end]
	}

	rest := buf[end+len(commEnd):]
	idx := 0
	for ; idx <= 21 && len(rest) > 0; idx++ {
		var field []byte
		if sp := bytes.IndexByte(rest, ' '); sp >= 0 {
			field, rest = rest[:sp], rest[sp+1:]
		} else {
			field, rest = bytes.TrimRight(rest, "\n"), nil
		}

		var ok bool
		switch idx {
		case 0:
			if len(field) != 1 {
				return f, ErrMalformedStat
			}
			f.state, ok = field[0], true
		case 1:
			f.ppid, ok = parseUint(field)
		case 11:
			f.utime, ok = parseUint(field)
		case 12:
			f.stime, ok = parseUint(field)
		case 13:
			f.cutime, ok = parseClamped(field)
		case 14:
			f.cstime, ok = parseClamped(field)
		case 17:
			f.threads, ok = parseUint(field)
		case 21:
			f.rss, ok = parseClamped(field)
		default:
			ok = true
		}
		if !ok {
			return f, ErrMalformedStat
		}
	}
	if idx <= 21 {
		return f, ErrMalformedStat
	}
	return f, nil
}

// applyStat decodes buf into the entry and returns the CPU ticks consumed
// since the previous sample.
func (e *Entry) applyStat(buf []byte, pageSize uint64) (uint64, error) {
	f, err := decodeStat(buf)
	if err != nil {
		return 0, err
	}

	if string(f.comm) != e.Comm {
		e.Comm = string(f.comm)
	}
	e.State = f.state
	e.PPID = uint32(f.ppid)
	e.Threads = uint32(f.threads)
	e.RSS = f.rss * pageSize

	prev := e.Ticks
	e.Ticks = f.utime + f.stime + f.cutime + f.cstime
	e.PrevTicks = prev
	return workDelta(e.Ticks, prev), nil
}

var pssLabel = []byte("Pss:")

// decodeSmaps finds the Pss row of smaps_rollup and returns it in bytes.
// ok is false when the row is missing or unparseable.
func decodeSmaps(buf []byte) (pss uint64, ok bool) {
	for len(buf) > 0 {
		line := buf
		if nl := bytes.IndexByte(buf, '\n'); nl >= 0 {
			line, buf = buf[:nl], buf[nl+1:]
		} else {
			buf = nil
		}
		if !bytes.HasPrefix(line, pssLabel) {
			continue
		}

		v := bytes.TrimLeft(line[len(pssLabel):], " \t")
		sp := bytes.IndexAny(v, " \t")
		if sp < 0 {
			return 0, false
		}
		kb, ok := parseUint(v[:sp])
		if !ok {
			return 0, false
		}
		if !bytes.Equal(bytes.TrimSpace(v[sp:]), []byte("kB")) {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}

// grow doubles a read buffer up to maxBufSize.
func grow(buf []byte) []byte {
	n := 2 * len(buf)
	if n > maxBufSize {
		n = maxBufSize
	}
	if n <= len(buf) {
		return buf
	}
	return make([]byte, n)
}

// parseUint parses an unsigned decimal without allocating.
func parseUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if v > (1<<64-1-d)/10 {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}

// parseClamped parses a signed decimal, clamping negatives to zero.
func parseClamped(b []byte) (uint64, bool) {
	if len(b) > 0 && b[0] == '-' {
		if _, ok := parseUint(b[1:]); !ok {
			return 0, false
		}
		return 0, true
	}
	return parseUint(b)
}
