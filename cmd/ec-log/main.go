// Command ec-log views and analyzes Easy Connect protocol captures.
//
// Captures are written by ec-node when protocol_log is set in its
// configuration (or EC_PROTOCOL_LOG in the environment).
//
// Usage:
//
//	ec-log <command> [flags] <file.eclog>
//
// Commands:
//
//	view     View a capture in human-readable format
//	export   Export a capture to JSONL or CSV
//	filter   Filter a capture and write a new one
//	stats    Show statistics about a capture
//
// Examples:
//
//	# Show only frames the controller received
//	ec-log view -role controller -direction in controller.eclog
//
//	# Everything that happened with one enrollee
//	ec-log filter -peer-id 3f2a... -o enrollee.eclog controller.eclog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meshonboard/ec-go/cmd/ec-log/commands"
)

const usage = `ec-log - Easy Connect Capture Analyzer

Usage:
  ec-log <command> [flags] <file.eclog>

Commands:
  view     View a capture in human-readable format
  export   Export a capture to JSONL or CSV
  filter   Filter a capture and write a new one
  stats    Show statistics about a capture

Use "ec-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newFlagSet returns a flag set with a usage line and the filter flags
// shared by view and filter.
func newFlagSet(name, summary string, opts *commands.FilterOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "ec-log %s - %s\n\nUsage:\n  ec-log %s [flags] <file.eclog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	if opts != nil {
		fs.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
		fs.StringVar(&opts.PeerMAC, "peer-mac", "", "Filter by peer MAC address")
		fs.StringVar(&opts.PeerID, "peer-id", "", "Filter by peer bootstrapping key hash")
		fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
		fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
		fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
		fs.StringVar(&opts.Carrier, "carrier", "", "Filter by carrier (none, action, gas, encap, chirp)")
		fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
		fs.StringVar(&opts.Role, "role", "", "Filter by local role (controller, agent, enrollee)")
	}
	return fs
}

func capturePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("view", "View a capture in human-readable format", &opts)
	path := capturePath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export a capture to JSONL or CSV", nil)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := capturePath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("filter", "Filter a capture and write a new one", &opts)
	output := fs.String("o", "", "Output file (required)")
	path := capturePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}
	if err := commands.RunFilter(path, *output, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about a capture", nil)
	path := capturePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
