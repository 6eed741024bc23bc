package cli

import (
	"fmt"
	"os"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/ui"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by the dashboard and ps.
var globalFlags rootFlags

// rootCmd runs the dashboard when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "rtop",
	Short: "Terminal process and system monitor",
	Long: `rtop is a terminal dashboard for Linux: a live process table read in
batches through io_uring, alongside CPU, memory, load, network, sensor and
GPU cards.

Settings come from ~/.config/rtop/config.yaml (see 'rtop init'), RTOP_*
environment variables, and the flags below, in increasing priority.

Examples:
  rtop                      # open the dashboard
  rtop --smaps --sort mem   # rank by proportional set size
  rtop --interval 500ms     # sample twice a second
  rtop ps -n 5              # print the five busiest processes and exit
  rtop doctor               # check io_uring, procfs and config`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cfgPath, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runDashboard(cmd.Context(), cfg, cfgPath)
	},
}

func init() {
	addRootFlags(rootCmd, &globalFlags)

	_ = rootCmd.RegisterFlagCompletionFunc("sort", fixedCompletions("cpu", "mem", "pid", "name"))
	_ = rootCmd.RegisterFlagCompletionFunc("color", fixedCompletions("auto", "always", "never"))
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if MachineMode() {
		_ = WriteJSONFromError(os.Stdout, err)
	} else {
		fmt.Fprint(os.Stderr, formatError(err))
	}
	os.Exit(1)
}

// formatError renders err for the terminal. Structured errors already carry
// their own layout.
func formatError(err error) string {
	msg := err.Error()
	if len(msg) > 0 && msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	if _, ok := err.(*errors.Error); ok {
		return msg
	}
	return ui.ErrorStyle().Render(ui.SymbolFail) + " " + msg
}

// loadConfig resolves the config file, applies flag overrides and validates
// the result. It also applies the color mode.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, cfgPath, err := config.LoadOrDefault(globalFlags.ConfigPath)
	if err != nil {
		return nil, "", err
	}

	applyFlags(cmd, cfg, &globalFlags)

	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	if err := ui.SetColorMode(cfg.Color); err != nil {
		return nil, "", errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid color mode",
			"Use auto, always, or never")
	}

	return cfg, cfgPath, nil
}
