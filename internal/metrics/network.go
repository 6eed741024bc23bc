package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// Network samples /proc/net/dev and derives per-interface rates.
type Network struct {
	sync.RWMutex

	fs   procfs.FS
	now  func() time.Time
	prev map[string]procfs.NetDevLine
	at   time.Time
	snap NetworkMetrics
}

func NewNetwork(root string) (*Network, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, err
	}
	return &Network{fs: fs, now: time.Now}, nil
}

// Update reads the interface counters. Rates are zero on the first sample
// and when a counter went backwards (interface reset).
func (n *Network) Update() error {
	dev, err := n.fs.NetDev()
	if err != nil {
		return err
	}
	now := n.now()
	elapsed := now.Sub(n.at).Seconds()

	snap := NetworkMetrics{Interfaces: make([]NetworkInterface, 0, len(dev))}
	for name, line := range dev {
		iface := NetworkInterface{
			Name:       name,
			BytesIn:    line.RxBytes,
			BytesOut:   line.TxBytes,
			PacketsIn:  line.RxPackets,
			PacketsOut: line.TxPackets,
		}
		if prev, ok := n.prev[name]; ok && elapsed > 0 {
			iface.RateIn = rate(line.RxBytes, prev.RxBytes, elapsed)
			iface.RateOut = rate(line.TxBytes, prev.TxBytes, elapsed)
		}
		snap.Interfaces = append(snap.Interfaces, iface)

		if name == "lo" {
			continue
		}
		snap.RateIn += iface.RateIn
		snap.RateOut += iface.RateOut
		snap.TotalIn += iface.BytesIn
		snap.TotalOut += iface.BytesOut
	}
	sort.Slice(snap.Interfaces, func(i, j int) bool {
		return snap.Interfaces[i].Name < snap.Interfaces[j].Name
	})

	n.prev = dev
	n.at = now
	n.snap = snap
	return nil
}

// Snapshot returns a copy of the latest network state.
func (n *Network) Snapshot() NetworkMetrics {
	n.RLock()
	defer n.RUnlock()
	out := n.snap
	out.Interfaces = append([]NetworkInterface(nil), n.snap.Interfaces...)
	return out
}

func rate(cur, prev uint64, seconds float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / seconds
}
