// Package cli implements the rtop command-line interface.
//
// The package is organized around Cobra commands. Each command loads the
// config, applies flag overrides, and hands off to the packages that do the
// work (proc, sampler, monitor, doctor).
//
// # Command Structure
//
//	rtop               - Interactive dashboard
//	rtop ps            - Print the top processes once
//	rtop doctor        - Diagnose procfs, io_uring and config
//	rtop init          - Write a default config file
//	rtop version       - Print version information
//	rtop completion    - Generate shell completion scripts
//
// # Dashboard Lifecycle
//
// The root command:
//
//  1. Requires a terminal on stdin and stdout
//  2. Opens the pollers and the process table (falling back to blocking
//     reads when io_uring is unavailable and fallback_io is set)
//  3. Starts one sampler per source in a sampler.Group
//  4. Runs the Bubble Tea program on the alternate screen
//  5. Stops and joins the samplers, then returns any fatal sampler error so
//     it prints after the terminal is restored
//
// SIGINT and SIGTERM quit the program the same way the q key does.
//
// # Flag Handling
//
// Persistent flags (--interval, --all, --smaps, --top, --sort, --procfs,
// --no-fallback, --log-file, --metrics-addr, --color) are defined on the
// root command. Only flags set on the command line override the config
// file; the result is validated before any command runs.
//
// # Machine Output
//
// Commands with --json write a JSONEnvelope. When such a command fails,
// Execute reports the error as an envelope on stdout instead of text on
// stderr.
package cli
