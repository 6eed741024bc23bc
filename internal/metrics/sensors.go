package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// sensorTimeout bounds one hwmon sweep; some drivers block on read.
const sensorTimeout = 2 * time.Second

// Sensors samples hardware temperatures through gopsutil.
type Sensors struct {
	sync.RWMutex

	read func(ctx context.Context) ([]host.TemperatureStat, error)
	snap []Temperature
	err  error
}

func NewSensors() *Sensors {
	return &Sensors{read: host.SensorsTemperaturesWithContext}
}

// Update reads every sensor. Partial results are kept even when some
// sensors failed, and a host without sensors is not an error.
func (s *Sensors) Update() error {
	ctx, cancel := context.WithTimeout(context.Background(), sensorTimeout)
	defer cancel()

	stats, err := s.read(ctx)
	s.err = err
	if len(stats) == 0 {
		s.snap = s.snap[:0]
		return nil
	}

	temps := make([]Temperature, 0, len(stats))
	for _, st := range stats {
		if st.Temperature <= 0 {
			continue
		}
		temps = append(temps, Temperature{
			Sensor:   st.SensorKey,
			Celsius:  st.Temperature,
			High:     st.High,
			Critical: st.Critical,
		})
	}
	sort.Slice(temps, func(i, j int) bool { return temps[i].Sensor < temps[j].Sensor })
	s.snap = temps
	return nil
}

// Snapshot returns a copy of the latest readings.
func (s *Sensors) Snapshot() []Temperature {
	s.RLock()
	defer s.RUnlock()
	return append([]Temperature(nil), s.snap...)
}

// Err is the warning from the last read, if any. It never stops sampling.
func (s *Sensors) Err() error {
	s.RLock()
	defer s.RUnlock()
	return s.err
}
