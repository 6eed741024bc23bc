package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProc(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCPU_Update(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "stat", `cpu  1000 0 0 3000 0 0 0 0 0 0
cpu0 500 0 0 1500 0 0 0 0 0 0
cpu1 500 0 0 1500 0 0 0 0 0 0
`)
	c := NewCPU(root)
	require.NoError(t, c.Update())

	snap := c.Snapshot()
	assert.Zero(t, snap.Percent, "first sample only sets the baseline")
	assert.Equal(t, 2, snap.Cores)
	totald, cores := c.TotalDelta()
	assert.Zero(t, totald)
	assert.Equal(t, 2, cores)

	// +2000 jiffies, 500 busy: 25%. cpu0 fully busy, cpu1 idle.
	writeProc(t, root, "stat", `cpu  1500 0 0 4500 0 0 0 0 0 0
cpu0 1000 0 0 1500 0 0 0 0 0 0
cpu1 500 0 0 2500 0 0 0 0 0 0
`)
	require.NoError(t, c.Update())

	snap = c.Snapshot()
	assert.InDelta(t, 25.0, snap.Percent, 1e-9)
	require.Len(t, snap.PerCore, 2)
	assert.InDelta(t, 100.0, snap.PerCore[0], 1e-9)
	assert.InDelta(t, 0.0, snap.PerCore[1], 1e-9)

	totald, cores = c.TotalDelta()
	assert.Equal(t, uint64(2000), totald)
	assert.Equal(t, 2, cores)
}

func TestCPU_SnapshotIsACopy(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "stat", "cpu  1 0 0 1 0\ncpu0 1 0 0 1 0\n")
	c := NewCPU(root)
	require.NoError(t, c.Update())

	snap := c.Snapshot()
	snap.PerCore[0] = 99
	assert.Zero(t, c.Snapshot().PerCore[0])
}

func TestCPU_CoreHotplug(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "stat", "cpu  10 0 0 10 0\ncpu0 10 0 0 10 0\n")
	c := NewCPU(root)
	require.NoError(t, c.Update())

	writeProc(t, root, "stat", "cpu  30 0 0 30 0\ncpu0 20 0 0 20 0\ncpu1 10 0 0 10 0\n")
	require.NoError(t, c.Update())

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Cores)
	require.Len(t, snap.PerCore, 2)
	assert.InDelta(t, 50.0, snap.PerCore[0], 1e-9)
	assert.Zero(t, snap.PerCore[1], "a new core has no baseline")
}

func TestCPU_MissingFile(t *testing.T) {
	c := NewCPU(t.TempDir())
	assert.Error(t, c.Update())
}

const meminfo = `MemTotal:       16000000 kB
MemFree:         4000000 kB
MemAvailable:    9000000 kB
Buffers:          500000 kB
Cached:          3000000 kB
SwapCached:            0 kB
SReclaimable:     500000 kB
SwapTotal:       2000000 kB
SwapFree:        1500000 kB
`

func TestMemory_Update(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "meminfo", meminfo)

	m, err := NewMemory(root)
	require.NoError(t, err)
	require.NoError(t, m.Update())

	snap := m.Snapshot()
	assert.Equal(t, uint64(16000000*1024), snap.TotalBytes)
	assert.Equal(t, uint64(9000000*1024), snap.Available)
	assert.Equal(t, uint64(4000000*1024), snap.Cached)
	assert.Equal(t, uint64(8000000*1024), snap.UsedBytes)
	assert.Equal(t, uint64(2000000*1024), snap.SwapTotal)
	assert.Equal(t, uint64(500000*1024), snap.SwapUsed)
}

func TestMemory_MissingAvailable(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "meminfo", "MemTotal: 1000 kB\nMemFree: 200 kB\nCached: 300 kB\n")

	m, err := NewMemory(root)
	require.NoError(t, err)
	require.NoError(t, m.Update())

	snap := m.Snapshot()
	assert.Equal(t, uint64(500*1024), snap.Available)
	assert.Equal(t, uint64(500*1024), snap.UsedBytes)
	assert.Zero(t, snap.SwapTotal)
	assert.Zero(t, snap.SwapUsed)
}

func TestNewMemory_BadRoot(t *testing.T) {
	_, err := NewMemory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoad_Update(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "loadavg", "0.50 1.25 2.00 2/345 6789\n")

	l, err := NewLoad(root)
	require.NoError(t, err)
	require.NoError(t, l.Update())
	assert.Equal(t, LoadMetrics{0.50, 1.25, 2.00}, l.Snapshot())
}

func TestLoad_Malformed(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "loadavg", "garbage\n")

	l, err := NewLoad(root)
	require.NoError(t, err)
	assert.Error(t, l.Update())
}

func netDev(loRx, loTx, ethRx, ethTx uint64) string {
	return "Inter-|   Receive                                                |  Transmit\n" +
		" face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed\n" +
		"    lo: " + itoa(loRx) + " 10 0 0 0 0 0 0 " + itoa(loTx) + " 10 0 0 0 0 0 0\n" +
		"  eth0: " + itoa(ethRx) + " 20 0 0 0 0 0 0 " + itoa(ethTx) + " 30 0 0 0 0 0 0\n"
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func TestNetwork_Rates(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "net/dev", netDev(1000, 1000, 5000, 2000))

	n, err := NewNetwork(root)
	require.NoError(t, err)
	clock := time.Unix(1000, 0)
	n.now = func() time.Time { return clock }

	require.NoError(t, n.Update())
	snap := n.Snapshot()
	require.Len(t, snap.Interfaces, 2)
	assert.Equal(t, "eth0", snap.Interfaces[0].Name)
	assert.Equal(t, "lo", snap.Interfaces[1].Name)
	assert.Zero(t, snap.RateIn, "no rate without a previous sample")
	assert.Equal(t, uint64(5000), snap.TotalIn, "loopback is excluded from totals")
	assert.Equal(t, uint64(2000), snap.TotalOut)

	clock = clock.Add(2 * time.Second)
	writeProc(t, root, "net/dev", netDev(9000, 9000, 7000, 3000))
	require.NoError(t, n.Update())

	snap = n.Snapshot()
	assert.InDelta(t, 1000.0, snap.RateIn, 1e-9)
	assert.InDelta(t, 500.0, snap.RateOut, 1e-9)
	assert.InDelta(t, 4000.0, snap.Interfaces[1].RateIn, 1e-9, "loopback keeps its own rate")
	assert.Equal(t, uint64(20), snap.Interfaces[0].PacketsIn)
	assert.Equal(t, uint64(30), snap.Interfaces[0].PacketsOut)
}

func TestNetwork_CounterReset(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "net/dev", netDev(0, 0, 5000, 5000))

	n, err := NewNetwork(root)
	require.NoError(t, err)
	clock := time.Unix(1000, 0)
	n.now = func() time.Time { return clock }
	require.NoError(t, n.Update())

	clock = clock.Add(time.Second)
	writeProc(t, root, "net/dev", netDev(0, 0, 100, 6000))
	require.NoError(t, n.Update())

	snap := n.Snapshot()
	assert.Zero(t, snap.RateIn)
	assert.InDelta(t, 1000.0, snap.RateOut, 1e-9)
}

func TestSensors_Update(t *testing.T) {
	tests := []struct {
		name    string
		stats   []host.TemperatureStat
		err     error
		want    []Temperature
		wantErr bool
	}{
		{
			name: "sorted readings",
			stats: []host.TemperatureStat{
				{SensorKey: "nvme_composite", Temperature: 38.9, High: 84.8, Critical: 84.8},
				{SensorKey: "coretemp_package_id_0", Temperature: 52, High: 100, Critical: 100},
			},
			want: []Temperature{
				{Sensor: "coretemp_package_id_0", Celsius: 52, High: 100, Critical: 100},
				{Sensor: "nvme_composite", Celsius: 38.9, High: 84.8, Critical: 84.8},
			},
		},
		{
			name:    "partial results with warnings",
			stats:   []host.TemperatureStat{{SensorKey: "acpitz", Temperature: 27.8}},
			err:     errors.New("Number of warnings: 1"),
			want:    []Temperature{{Sensor: "acpitz", Celsius: 27.8}},
			wantErr: true,
		},
		{
			name:  "unpopulated sensors dropped",
			stats: []host.TemperatureStat{{SensorKey: "fake", Temperature: 0}},
			want:  []Temperature{},
		},
		{
			name:    "no sensors",
			err:     errors.New("no such file or directory"),
			want:    []Temperature{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSensors()
			s.read = func(context.Context) ([]host.TemperatureStat, error) { return tt.stats, tt.err }

			require.NoError(t, s.Update())
			got := s.Snapshot()
			assert.ElementsMatch(t, tt.want, got)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
			if tt.wantErr {
				assert.Error(t, s.Err())
			} else {
				assert.NoError(t, s.Err())
			}
		})
	}
}

func TestGPU_Update(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	missing := func(string) (string, error) { return "", errors.New("executable file not found in $PATH") }

	tests := []struct {
		name      string
		lookup    func(string) (string, error)
		out       string
		runErr    error
		wantGPUs  int
		wantErr   bool
		available bool
	}{
		{"no binary", missing, "", nil, 0, false, false},
		{"one gpu", found, "0, NVIDIA L4, 12, 300, 23034, 44, 27.5\n", nil, 1, false, true},
		{"command fails", found, "", errors.New("exit status 9"), 0, true, true},
		{"garbage", found, "0, x\n", nil, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGPU()
			g.lookup = tt.lookup
			var gotArgs []string
			g.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
				gotArgs = append([]string{name}, args...)
				return []byte(tt.out), tt.runErr
			}

			require.NoError(t, g.Update())
			assert.Len(t, g.Snapshot(), tt.wantGPUs)
			assert.Equal(t, tt.available, g.Available())
			if tt.wantErr {
				assert.Error(t, g.Err())
			} else {
				assert.NoError(t, g.Err())
			}
			if tt.available {
				assert.Equal(t, "/usr/bin/nvidia-smi", gotArgs[0])
				assert.Contains(t, gotArgs, "--format=csv,noheader,nounits")
			}
		})
	}
}

func TestGPU_Timeout(t *testing.T) {
	g := NewGPU()
	g.lookup = func(string) (string, error) { return "nvidia-smi", nil }
	g.timeout = 10 * time.Millisecond
	g.run = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, errors.New("signal: killed")
	}

	require.NoError(t, g.Update())
	assert.ErrorIs(t, g.Err(), context.DeadlineExceeded)
	assert.Empty(t, g.Snapshot())
}

func TestSystemFromHost(t *testing.T) {
	info := &host.InfoStat{
		Hostname:        "build01",
		OS:              "linux",
		Platform:        "ubuntu",
		PlatformVersion: "24.04",
		KernelVersion:   "6.8.0-45-generic",
		BootTime:        1700000000,
	}
	s := systemFromHost(info)
	assert.Equal(t, "build01", s.Hostname)
	assert.Equal(t, "ubuntu 24.04", s.OS)
	assert.Equal(t, "6.8.0-45-generic", s.Kernel)
	assert.Equal(t, time.Unix(1700000000, 0), s.BootTime)
	assert.Equal(t, time.Hour, s.Uptime(s.BootTime.Add(time.Hour)))

	bare := systemFromHost(&host.InfoStat{OS: "linux"})
	assert.Equal(t, "linux", bare.OS)
	assert.True(t, bare.BootTime.IsZero())
	assert.Zero(t, bare.Uptime(time.Now()))
}
