package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Bytes(tt.in))
		})
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, "0 B/s", Rate(0))
	assert.Equal(t, "0 B/s", Rate(-5))
	assert.Equal(t, "100 B/s", Rate(100))
	assert.Equal(t, "2.0 KiB/s", Rate(2048))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "25.0%", Percent(25))
	assert.Equal(t, "100.0%", Percent(100))
	assert.Equal(t, "312.5%", Percent(312.5))
	assert.Equal(t, "0.1%", Percent(0.06))
}

func TestCount(t *testing.T) {
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "1,234,567", Count(1234567))
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "00:00:00", Uptime(-time.Second))
	assert.Equal(t, "01:02:03", Uptime(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "2d 00:00:05", Uptime(48*time.Hour+5*time.Second))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"fits", "bash", 10, "bash"},
		{"exact", "bash", 4, "bash"},
		{"cut with ellipsis", "/usr/bin/python3 -m http.server", 12, "/usr/bin/..."},
		{"tiny width no ellipsis", "systemd", 2, "sy"},
		{"zero width", "systemd", 0, ""},
		{"multibyte", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, "   42", PadLeft("42", 5))
	assert.Equal(t, "12345", PadLeft("12345", 3))
	assert.Equal(t, "42   ", PadRight("42", 5))
	assert.Equal(t, "abc", PadRight("abc", 2))
}

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "(none)", JoinOrNone(nil))
	assert.Equal(t, "(none)", JoinOrNone([]string{}))
	assert.Equal(t, "eth0", JoinOrNone([]string{"eth0"}))
	assert.Equal(t, "eth0, wlan0", JoinOrNone([]string{"eth0", "wlan0"}))
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "process", Pluralize(1, "process", "processes"))
	assert.Equal(t, "processes", Pluralize(0, "process", "processes"))
	assert.Equal(t, "processes", Pluralize(2, "process", "processes"))
}
