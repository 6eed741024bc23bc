package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/doctor"
	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/ui"
	"github.com/spf13/cobra"
)

var doctorJSON bool

// nvidia-smi and the sensor walk are the slow checks; the rest return at once.
const doctorParallelism = 4

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose procfs, io_uring and config issues",
	Long: `Run diagnostic checks and report what rtop can use on this host.

Checks:
  - Config file location and schema (including RTOP_* overrides)
  - procfs mount and process count
  - io_uring setup and the IORING_FEAT_NODROP feature
  - smaps_rollup readability (PSS mode)
  - nvidia-smi and temperature sensors

Exits 1 when any check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = doctorJSON
		return doctorCommand(cmd, cmd.OutOrStdout())
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// doctorCommand implements the doctor command logic.
func doctorCommand(cmd *cobra.Command, w io.Writer) error {
	// A broken config is reported by the config checks; the system checks
	// still run against defaults plus flags.
	cfg, _, err := loadConfig(cmd)
	var loaded *config.Config
	if err == nil {
		loaded = cfg
	} else {
		cfg = config.DefaultConfig()
		applyFlags(cmd, cfg, &globalFlags)
	}

	checks := collectChecks(globalFlags.ConfigPath, loaded, cfg)
	results := doctor.RunParallel(checks, doctorParallelism)

	if doctorJSON {
		if err := outputDoctorJSON(w, checks, results); err != nil {
			return err
		}
	} else {
		outputDoctorText(w, checks, results)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// collectChecks gathers the config checks and the host capability checks.
// loaded is nil when the config failed to load.
func collectChecks(configPath string, loaded, effective *config.Config) []doctor.Check {
	var checks []doctor.Check
	checks = append(checks, doctor.NewConfigChecks(configPath, loaded)...)
	checks = append(checks, doctor.NewSystemChecks(effective)...)
	return checks
}

// outputDoctorJSON writes results grouped by category inside the JSON envelope.
func outputDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	cats := doctor.Categorize(checks, results)
	output := DoctorOutput{
		Categories: make([]CategoryOutput, len(cats)),
	}
	for i, cat := range cats {
		output.Categories[i] = CategoryOutput{Name: cat.Name, Results: cat.Results}
	}

	counts := doctor.Count(results)
	output.Summary = SummaryOutput{
		Pass:     counts.Pass,
		Warn:     counts.Warn,
		Fail:     counts.Fail,
		Fixable:  counts.Fixable,
		AllClear: counts.Issues() == 0,
	}

	return WriteJSONSuccess(w, output)
}

// outputDoctorText writes the human-readable report.
func outputDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("rtop Diagnostic Report"))
	fmt.Fprintln(w)

	rows := make([]ui.DoctorCheckRow, len(results))
	for i, result := range results {
		rows[i] = ui.DoctorCheckRow{
			Status:     result.Status.String(),
			Category:   checks[i].Category(),
			Message:    result.Message,
			Suggestion: result.Suggestion,
		}
	}
	fmt.Fprint(w, ui.RenderDoctorTable(rows))

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	counts := doctor.Count(results)
	if counts.Issues() == 0 {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	} else {
		symbol := ui.WarningStyle().Render(ui.SymbolWarning)
		if counts.Fail > 0 {
			symbol = ui.ErrorStyle().Render(ui.SymbolFail)
		}
		fmt.Fprintf(w, "%s %s\n", symbol, doctor.Summary(results))

		if counts.Fixable > 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Run %s to write a config file to %s.\n",
				ui.MutedStyle().Render("rtop init"), config.DefaultPath())
		}
	}
	fmt.Fprintln(w)
}
