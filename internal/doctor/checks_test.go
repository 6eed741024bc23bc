package doctor

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheck struct {
	name     string
	category string
	result   CheckResult
	run      func() CheckResult
}

func (f *fakeCheck) Name() string     { return f.name }
func (f *fakeCheck) Category() string { return f.category }
func (f *fakeCheck) Run() CheckResult {
	if f.run != nil {
		return f.run()
	}
	return f.result
}

func result(name string, status CheckStatus, fixable bool) CheckResult {
	return CheckResult{Name: name, Status: status, Message: name, Fixable: fixable}
}

func TestCheckStatus_Text(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "pass"},
		{StatusWarn, "warn"},
		{StatusFail, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())

			data, err := json.Marshal(CheckResult{Name: "x", Status: tt.status})
			require.NoError(t, err)
			assert.Contains(t, string(data), `"status":"`+tt.want+`"`)

			var back CheckResult
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.status, back.Status)
		})
	}

	assert.Equal(t, "unknown", CheckStatus(42).String())

	var s CheckStatus
	assert.Error(t, s.UnmarshalText([]byte("maybe")))
}

func TestRunAll_KeepsOrder(t *testing.T) {
	checks := []Check{
		&fakeCheck{name: "procfs", result: result("procfs", StatusPass, false)},
		&fakeCheck{name: "io_uring", result: result("io_uring", StatusFail, false)},
	}

	results := RunAll(checks)

	require.Len(t, results, 2)
	assert.Equal(t, "procfs", results[0].Name)
	assert.Equal(t, StatusFail, results[1].Status)
}

func TestRunParallel_RespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(name string) *fakeCheck {
		return &fakeCheck{name: name, run: func() CheckResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return result(name, StatusPass, false)
		}}
	}

	checks := []Check{slow("a"), slow("b"), slow("c"), slow("d"), slow("e")}
	results := RunParallel(checks, 2)

	require.Len(t, results, 5)
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, name, results[i].Name, "results keep check order")
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunParallel_RecoversPanic(t *testing.T) {
	checks := []Check{
		&fakeCheck{name: "sensors", run: func() CheckResult { panic("sysfs vanished") }},
		&fakeCheck{name: "procfs", result: result("procfs", StatusPass, false)},
	}

	results := RunParallel(checks, 0)

	assert.Equal(t, "sensors", results[0].Name)
	assert.Equal(t, StatusFail, results[0].Status)
	assert.Contains(t, results[0].Message, "sysfs vanished")
	assert.Equal(t, StatusPass, results[1].Status)
}

func TestCategorize(t *testing.T) {
	checks := []Check{
		&fakeCheck{name: "config_file", category: "CONFIG"},
		&fakeCheck{name: "procfs", category: "PROCFS"},
		&fakeCheck{name: "config_schema", category: "CONFIG"},
		&fakeCheck{name: "io_uring", category: "IO_URING"},
	}
	results := []CheckResult{
		result("config_file", StatusPass, false),
		result("procfs", StatusPass, false),
		result("config_schema", StatusWarn, false),
		result("io_uring", StatusPass, false),
	}

	cats := Categorize(checks, results)

	require.Len(t, cats, 3)
	assert.Equal(t, []string{"CONFIG", "PROCFS", "IO_URING"}, []string{cats[0].Name, cats[1].Name, cats[2].Name})
	require.Len(t, cats[0].Results, 2)
	assert.Equal(t, "config_schema", cats[0].Results[1].Name)
}

func TestCount(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    Counts
	}{
		{
			name: "empty",
			want: Counts{},
		},
		{
			name: "mixed",
			results: []CheckResult{
				result("a", StatusPass, true),
				result("b", StatusWarn, true),
				result("c", StatusFail, false),
				result("d", StatusFail, true),
			},
			want: Counts{Pass: 1, Warn: 1, Fail: 2, Fixable: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.results)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Warn+tt.want.Fail, got.Issues())
			assert.Equal(t, tt.want.Fail > 0, HasFailures(tt.results))
		})
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{"all pass", []CheckResult{result("a", StatusPass, false)}, "Everything looks good"},
		{"one warning", []CheckResult{result("a", StatusWarn, false)}, "1 issue found"},
		{"several", []CheckResult{result("a", StatusWarn, false), result("b", StatusFail, false)}, "2 issues found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.results))
		})
	}
}
