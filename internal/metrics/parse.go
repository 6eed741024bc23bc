package metrics

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// jiffies is one cpu line of /proc/stat.
type jiffies struct {
	total uint64
	idle  uint64 // idle + iowait
}

// parseProcStat parses the aggregate and per-core cpu lines of /proc/stat.
func parseProcStat(procStat string) (jiffies, []jiffies, error) {
	var agg jiffies
	var cores []jiffies
	found := false

	scanner := bufio.NewScanner(strings.NewReader(procStat))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return jiffies{}, nil, fmt.Errorf("invalid /proc/stat cpu line: %s", line)
		}

		// Fields: cpu user nice system idle iowait irq softirq steal guest guest_nice.
		// guest and guest_nice are already counted in user and nice.
		var j jiffies
		for i := 1; i < len(fields) && i <= 8; i++ {
			val, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return jiffies{}, nil, fmt.Errorf("failed to parse cpu field %d: %w", i, err)
			}
			j.total += val
			if i == 4 || i == 5 {
				j.idle += val
			}
		}

		if fields[0] == "cpu" {
			agg = j
			found = true
			continue
		}
		cores = append(cores, j)
	}

	if err := scanner.Err(); err != nil {
		return jiffies{}, nil, fmt.Errorf("error scanning /proc/stat: %w", err)
	}
	if !found {
		return jiffies{}, nil, fmt.Errorf("no aggregate cpu line in /proc/stat")
	}
	return agg, cores, nil
}

// usage is the busy percentage between two samples of the same cpu line.
func usage(cur, prev jiffies) (percent float64, totald uint64) {
	if cur.total <= prev.total {
		return 0, 0
	}
	totald = cur.total - prev.total
	var idled uint64
	if cur.idle > prev.idle {
		idled = cur.idle - prev.idle
	}
	if idled > totald {
		idled = totald
	}
	return float64(totald-idled) / float64(totald) * 100, totald
}

// nvidiaQuery is the field list ParseNvidiaSMI expects, in order.
const nvidiaQuery = "index,name,utilization.gpu,memory.used,memory.total,temperature.gpu,power.draw"

// ParseNvidiaSMI parses nvidia-smi CSV output, one GPU per line.
// Expected input is from: nvidia-smi --query-gpu=index,name,utilization.gpu,memory.used,memory.total,temperature.gpu,power.draw --format=csv,noheader,nounits
//
// Returns nil, nil if no GPU is available.
func ParseNvidiaSMI(output string) ([]GPUMetrics, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	lowerOutput := strings.ToLower(output)
	if strings.Contains(lowerOutput, "no devices") ||
		strings.Contains(lowerOutput, "not found") ||
		strings.Contains(lowerOutput, "failed") ||
		strings.Contains(lowerOutput, "error") {
		return nil, nil
	}

	var gpus []GPUMetrics
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		gpu, err := parseNvidiaLine(line)
		if err != nil {
			return nil, err
		}
		gpus = append(gpus, gpu)
	}
	return gpus, scanner.Err()
}

// Example: "0, NVIDIA GeForce RTX 3080, 45, 2048, 10240, 65, 220.5"
func parseNvidiaLine(line string) (GPUMetrics, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return GPUMetrics{}, fmt.Errorf("nvidia-smi output has insufficient fields: expected 7, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var m GPUMetrics
	var err error

	if m.Index, err = strconv.Atoi(fields[0]); err != nil {
		return GPUMetrics{}, fmt.Errorf("failed to parse GPU index '%s': %w", fields[0], err)
	}
	m.Name = fields[1]

	if available(fields[2]) {
		if m.Percent, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return GPUMetrics{}, fmt.Errorf("failed to parse GPU utilization '%s': %w", fields[2], err)
		}
	}

	// Memory is reported in MiB.
	if available(fields[3]) {
		used, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return GPUMetrics{}, fmt.Errorf("failed to parse GPU memory used '%s': %w", fields[3], err)
		}
		m.MemoryUsed = used * 1024 * 1024
	}
	if available(fields[4]) {
		total, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return GPUMetrics{}, fmt.Errorf("failed to parse GPU memory total '%s': %w", fields[4], err)
		}
		m.MemoryTotal = total * 1024 * 1024
	}

	if available(fields[5]) {
		if m.Temperature, err = strconv.Atoi(fields[5]); err != nil {
			return GPUMetrics{}, fmt.Errorf("failed to parse GPU temperature '%s': %w", fields[5], err)
		}
	}

	if available(fields[6]) {
		power, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			return GPUMetrics{}, fmt.Errorf("failed to parse GPU power '%s': %w", fields[6], err)
		}
		m.PowerWatts = int(power)
	}

	return m, nil
}

func available(field string) bool {
	return field != "" && field != "[N/A]" && field != "[Not Supported]"
}
