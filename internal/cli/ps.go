package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/format"
	"github.com/rileyhilliard/rtop/internal/logger"
	"github.com/rileyhilliard/rtop/internal/metrics"
	"github.com/rileyhilliard/rtop/internal/proc"
	"github.com/rileyhilliard/rtop/internal/sampler"
	"github.com/rileyhilliard/rtop/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	psCount int
	psJSON  bool
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "Print the top processes once",
	Long: `Sample the process table twice, one interval apart, and print the
top rows. The first sample only establishes CPU baselines.

Sorting and filtering follow the same flags as the dashboard.

Examples:
  rtop ps                     # top 20 by CPU
  rtop ps -n 5 --sort mem     # five largest by memory
  rtop ps --smaps --json      # PSS figures as JSON`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = psJSON
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		progress := io.Discard
		if !psJSON && term.IsTerminal(int(os.Stderr.Fd())) {
			progress = cmd.ErrOrStderr()
		}

		return psCommand(cmd.Context(), cfg, psOptions{
			Count:    psCount,
			JSON:     psJSON,
			Out:      cmd.OutOrStdout(),
			Progress: progress,
		})
	},
}

func init() {
	psCmd.Flags().IntVarP(&psCount, "count", "n", 20, "number of processes to print")
	psCmd.Flags().BoolVar(&psJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(psCmd)
}

// psOptions configures psCommand.
type psOptions struct {
	Count    int
	JSON     bool
	Out      io.Writer
	Progress io.Writer // spinner output; io.Discard hides it
}

// ProcessRow is one process in 'rtop ps' output.
type ProcessRow struct {
	PID        uint32  `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	Memory     uint64  `json:"memory_bytes"`
	PSS        bool    `json:"pss"`
	Threads    uint32  `json:"threads"`
	State      string  `json:"state"`
	Command    string  `json:"command,omitempty"`
}

// PSOutput is the JSON payload of 'rtop ps --json'.
type PSOutput struct {
	Total     int          `json:"total"`
	Processes []ProcessRow `json:"processes"`
}

func psCommand(ctx context.Context, cfg *config.Config, opts psOptions) error {
	if opts.Count <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid process count: %d", opts.Count),
			"Pass a positive number with -n")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	settings := config.NewLive(cfg.Settings())
	cpu := metrics.NewCPU(cfg.Procfs)
	table, err := openTable(cfg, settings, cpu, logger.NewEnvLogger("[ps]"), nil)
	if err != nil {
		return err
	}
	defer table.Close()

	spinner := ui.NewSpinner("Sampling processes", opts.Progress)
	spinner.Start()
	if err := sampleTwice(ctx, cpu, table, settings.Interval()); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()

	out := PSOutput{Total: table.Len(), Processes: topProcesses(table, opts.Count)}
	if opts.JSON {
		return WriteJSONSuccess(opts.Out, out)
	}

	fmt.Fprint(opts.Out, renderProcesses(out.Processes, table.MaxDigits()))
	return nil
}

// sampleTwice updates cpu then table, waits one interval and repeats, so
// the second pass has CPU deltas.
func sampleTwice(ctx context.Context, cpu, table sampler.Updater, interval time.Duration) error {
	for pass := 0; pass < 2; pass++ {
		if pass > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := update(cpu); err != nil {
			return errors.WrapWithCode(err, errors.ErrProcfs,
				"Cannot read CPU counters",
				"Check that procfs is mounted, or point --procfs at it")
		}
		if err := update(table); err != nil {
			return err
		}
	}
	return nil
}

func update(u sampler.Updater) error {
	u.Lock()
	defer u.Unlock()
	return u.Update()
}

// topProcesses copies the first n entries in display order.
func topProcesses(table *proc.Table, n int) []ProcessRow {
	table.RLock()
	defer table.RUnlock()

	rows := make([]ProcessRow, 0, min(n, table.Len()))
	table.Visit(func(rank int, e *proc.Entry) bool {
		if rank >= n {
			return false
		}
		rows = append(rows, ProcessRow{
			PID:        e.PID,
			Name:       e.DisplayName(),
			CPUPercent: e.CPUPercent,
			Memory:     e.Memory(),
			PSS:        e.HasPSS,
			Threads:    e.Threads,
			State:      string(e.State),
			Command:    e.Cmdline,
		})
		return true
	})
	return rows
}

// renderProcesses prints rows as a plain table.
func renderProcesses(rows []ProcessRow, pidDigits int) string {
	if len(rows) == 0 {
		return "No processes\n"
	}

	memTitle := "RSS"
	for _, r := range rows {
		if r.PSS {
			memTitle = "MEM"
			break
		}
	}

	columns := []ui.TableColumn{
		{Title: "PID", Width: max(pidDigits, 3)},
		{Title: "NAME", Width: 16},
		{Title: "CPU%", Width: 6},
		{Title: memTitle, Width: 10},
		{Title: "THR", Width: 4},
		{Title: "S", Width: 1},
		{Title: "COMMAND", Width: 40},
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			strconv.FormatUint(uint64(r.PID), 10),
			format.Truncate(r.Name, 16),
			format.Percent(r.CPUPercent),
			format.Bytes(r.Memory),
			strconv.FormatUint(uint64(r.Threads), 10),
			r.State,
			format.Truncate(r.Command, 40),
		}
	}
	return ui.RenderSimpleTable(columns, cells) + "\n"
}
