package doctor

import (
	"fmt"

	"github.com/rileyhilliard/rtop/internal/format"
	"golang.org/x/sync/errgroup"
)

// CheckStatus is the outcome of one check. It encodes as "pass", "warn" or
// "fail" in JSON.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CheckStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", b)
	}
	return nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Fixable    bool        `json:"fixable,omitempty"` // 'rtop init' addresses it
}

// Check is one diagnostic. Category groups checks in the report
// ("CONFIG", "PROCFS", "IO_URING", "HARDWARE").
type Check interface {
	Name() string
	Category() string
	Run() CheckResult
}

// RunAll runs checks one after another.
func RunAll(checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, c := range checks {
		results[i] = run(c)
	}
	return results
}

// RunParallel runs at most limit checks at a time. Results keep the order of
// checks. A limit below 1 means no limit.
func RunParallel(checks []Check, limit int) []CheckResult {
	results := make([]CheckResult, len(checks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = run(c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// run converts a panic in c into a failed result.
func run(c Check) (res CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			res = CheckResult{
				Name:    c.Name(),
				Status:  StatusFail,
				Message: fmt.Sprintf("check panicked: %v", r),
			}
		}
	}()
	return c.Run()
}

// Category is one report section.
type Category struct {
	Name    string
	Results []CheckResult
}

// Categorize groups results under their check's category, in the order each
// category first appears.
func Categorize(checks []Check, results []CheckResult) []Category {
	var cats []Category
	index := make(map[string]int)

	for i, c := range checks {
		name := c.Category()
		n, ok := index[name]
		if !ok {
			n = len(cats)
			index[name] = n
			cats = append(cats, Category{Name: name})
		}
		cats[n].Results = append(cats[n].Results, results[i])
	}
	return cats
}

// Counts tallies results.
type Counts struct {
	Pass, Warn, Fail int
	Fixable          int
}

// Count tallies results by status. Fixable counts only warnings and failures.
func Count(results []CheckResult) Counts {
	var c Counts
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			c.Pass++
		case StatusWarn:
			c.Warn++
		case StatusFail:
			c.Fail++
		}
		if r.Fixable && r.Status != StatusPass {
			c.Fixable++
		}
	}
	return c
}

func (c Counts) Issues() int { return c.Warn + c.Fail }

// HasFailures reports whether any result failed.
func HasFailures(results []CheckResult) bool {
	return Count(results).Fail > 0
}

// Summary is the one-line verdict printed under the report.
func Summary(results []CheckResult) string {
	n := Count(results).Issues()
	if n == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d %s found", n, format.Pluralize(n, "issue", "issues"))
}
