package doctor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/metrics"
	"github.com/rileyhilliard/rtop/internal/procfs"
	"github.com/rileyhilliard/rtop/internal/uring"
)

// ProcfsCheck verifies the process root can be enumerated.
type ProcfsCheck struct {
	Root string
}

func (c *ProcfsCheck) Name() string     { return "procfs" }
func (c *ProcfsCheck) Category() string { return "PROCFS" }

func (c *ProcfsCheck) Run() CheckResult {
	scanner, err := procfs.Open(c.Root)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot open %s: %v", c.Root, err),
			Suggestion: "Mount procfs (mount -t proc proc /proc) or set 'procfs' in your config",
		}
	}
	defer scanner.Close()

	count := 0
	if err := scanner.Scan(func(uint32) { count++ }); err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot list %s: %v", c.Root, err),
		}
	}
	if count == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("No processes under %s", c.Root),
			Suggestion: "Check that 'procfs' points at a procfs mount",
		}
	}

	if _, err := os.Stat(filepath.Join(c.Root, "stat")); err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d processes, but %s/stat is missing so CPU percentages will read zero", count, c.Root),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %d processes", c.Root, count),
	}
}

// UringCheck creates a small ring to verify io_uring setup and the NODROP
// feature.
type UringCheck struct {
	Entries    int
	FallbackIO bool

	open func(entries int) error
}

func (c *UringCheck) Name() string     { return "io_uring" }
func (c *UringCheck) Category() string { return "IO_URING" }

func (c *UringCheck) Run() CheckResult {
	open := c.open
	if open == nil {
		open = openRing
	}

	err := open(c.Entries)
	if err == nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("io_uring ready (%d entries, NODROP)", c.Entries),
		}
	}

	msg := fmt.Sprintf("io_uring unavailable: %v", err)
	if errors.Is(err, uring.ErrFeatureMissing) {
		msg = "io_uring present but the kernel lacks IORING_FEAT_NODROP (needs 5.5+)"
	}

	if c.FallbackIO {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    msg + ", using blocking reads",
			Suggestion: "Check sysctl kernel.io_uring_disabled and any seccomp profile if running in a container",
		}
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    msg,
		Suggestion: "Set fallback_io: true (or drop --no-fallback) to use blocking reads",
	}
}

func openRing(entries int) error {
	r, err := uring.Open(entries)
	if err != nil {
		return err
	}
	return r.Close()
}

// SmapsCheck verifies smaps_rollup is readable for PID 1, which tells whether
// PSS mode will cover other users' processes.
type SmapsCheck struct {
	Root string
}

func (c *SmapsCheck) Name() string     { return "smaps_rollup" }
func (c *SmapsCheck) Category() string { return "PROCFS" }

func (c *SmapsCheck) Run() CheckResult {
	path := filepath.Join(c.Root, "1", "smaps_rollup")
	_, err := os.ReadFile(path)
	switch {
	case err == nil:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "smaps_rollup readable for PID 1, PSS covers every process",
		}
	case errors.Is(err, fs.ErrPermission):
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "smaps_rollup not readable for PID 1, PSS only covers your own processes",
			Suggestion: "Run as root or grant CAP_SYS_PTRACE to see PSS for everything",
		}
	case errors.Is(err, fs.ErrNotExist):
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s not found, PSS mode unavailable", path),
			Suggestion: "smaps_rollup needs Linux 4.14 or newer",
		}
	default:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("Cannot read %s: %v", path, err),
		}
	}
}

// GPUCheck reports whether nvidia-smi is available. Hosts without it simply
// show no GPU card.
type GPUCheck struct {
	Enabled bool

	lookPath func(string) (string, error)
}

func (c *GPUCheck) Name() string     { return "nvidia_smi" }
func (c *GPUCheck) Category() string { return "HARDWARE" }

func (c *GPUCheck) Run() CheckResult {
	if !c.Enabled {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "GPU polling disabled",
		}
	}

	lookPath := c.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath("nvidia-smi")
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "nvidia-smi not found, GPU card hidden",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("nvidia-smi: %s", path),
	}
}

// SensorsCheck reads the temperature sensors once.
type SensorsCheck struct {
	read func() ([]metrics.Temperature, error)
}

func (c *SensorsCheck) Name() string     { return "sensors" }
func (c *SensorsCheck) Category() string { return "HARDWARE" }

func (c *SensorsCheck) Run() CheckResult {
	read := c.read
	if read == nil {
		read = readSensors
	}

	temps, err := read()
	switch {
	case len(temps) == 0 && err != nil:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("Cannot read sensors: %v", err),
		}
	case len(temps) == 0:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No temperature sensors (common in VMs)",
		}
	case err != nil:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d sensors, some failed: %v", len(temps), err),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d temperature sensors", len(temps)),
	}
}

func readSensors() ([]metrics.Temperature, error) {
	s := metrics.NewSensors()
	s.Lock()
	err := s.Update()
	s.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), s.Err()
}

// NewSystemChecks creates the host capability checks for cfg.
func NewSystemChecks(cfg *config.Config) []Check {
	return []Check{
		&ProcfsCheck{Root: cfg.Procfs},
		&UringCheck{Entries: cfg.Ring.MinEntries, FallbackIO: cfg.FallbackIO},
		&SmapsCheck{Root: cfg.Procfs},
		&GPUCheck{Enabled: cfg.GPU.Enabled},
		&SensorsCheck{},
	}
}
