package metrics

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// HostInfo reads the static host facts shown in the dashboard header.
// Fields gopsutil cannot determine stay empty.
func HostInfo(ctx context.Context) SystemInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		name, _ := os.Hostname()
		return SystemInfo{Hostname: name, OS: "linux"}
	}
	return systemFromHost(info)
}

func systemFromHost(info *host.InfoStat) SystemInfo {
	s := SystemInfo{
		Hostname: info.Hostname,
		OS:       strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
		Kernel:   info.KernelVersion,
	}
	if s.OS == "" {
		s.OS = info.OS
	}
	if info.BootTime > 0 {
		s.BootTime = time.Unix(int64(info.BootTime), 0)
	}
	return s
}
