// Command lwm2m-log views and analyzes LwM2M protocol trace files.
//
// Trace files are written by lwm2m-client when started with -protocol-log
// (or log.protocol_file in the configuration file).
//
// Usage:
//
//	lwm2m-log <command> [flags] <trace.cbor>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSONL or CSV
//	filter   Filter trace and write to new file
//	stats    Show statistics about the trace
//
// Examples:
//
//	# View all events
//	lwm2m-log view client.cbor
//
//	# View only failed exchanges and errors
//	lwm2m-log view -failures client.cbor
//
//	# Keep the DELETE requests of one endpoint
//	lwm2m-log filter -endpoint dev1 -method delete -o dereg.cbor client.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mikegpl/lwm2m-go/cmd/lwm2m-log/commands"
)

const usage = `lwm2m-log - LwM2M Protocol Trace Analyzer

Usage:
  lwm2m-log <command> [flags] <trace.cbor>

Commands:
  view     View trace in human-readable format
  export   Export trace to JSONL or CSV
  filter   Filter trace and write to new file
  stats    Show statistics about the trace

Use "lwm2m-log <command> -help" for more information about a command.
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

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseWithPath parses flags and returns the single positional trace path.
func parseWithPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func usageFor(fs *flag.FlagSet, text string) func() {
	return func() {
		fmt.Fprint(os.Stderr, text)
		fs.PrintDefaults()
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = usageFor(fs, "lwm2m-log view - View trace in human-readable format\n\nUsage:\n  lwm2m-log view [flags] <trace.cbor>\n\nFlags:\n")

	layer := fs.String("layer", "", "Filter by layer (transport, registration, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (exchange, state, error)")
	failures := fs.Bool("failures", false, "Show only errors and exchanges without a 2.xx reply")

	path := parseWithPath(fs, args)

	filter := commands.ViewFilter{FailuresOnly: *failures}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fatal(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fatal(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = usageFor(fs, "lwm2m-log export - Export trace to JSONL or CSV\n\nUsage:\n  lwm2m-log export [flags] <trace.cbor>\n\nFlags:\n")

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := parseWithPath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = usageFor(fs, "lwm2m-log filter - Filter trace and write to new file\n\nUsage:\n  lwm2m-log filter [flags] <trace.cbor>\n\nFlags:\n")

	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "Filter by endpoint name")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, registration, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (exchange, state, error)")
	fs.StringVar(&opts.Method, "method", "", "Filter exchanges by method (get, post, put, delete)")
	fs.BoolVar(&opts.FailuresOnly, "failures", false, "Keep only errors and exchanges without a 2.xx reply")

	path := parseWithPath(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = usageFor(fs, "lwm2m-log stats - Show statistics about the trace\n\nUsage:\n  lwm2m-log stats <trace.cbor>\n\n")

	path := parseWithPath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}
