package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/toyz/axonroute/internal/cli"
)

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		module  = fs.String("module", "", "Custom module name for import paths (defaults to go.mod module)")
		verbose = fs.Bool("verbose", false, "List the routes declared by every package")
		quiet   = fs.Bool("quiet", false, "Only show errors")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: axon check [options] <directory-paths...>\n\n")
		fmt.Fprintf(stderr, "Patterns ending in /... are scanned recursively.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	patterns := fs.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	report, err := cli.NewChecker(cli.NewModuleResolver(*module)).Check(patterns)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	cli.NewReporter(stdout, *verbose, *quiet).Report(report)
	if report.Errors() > 0 {
		return 1
	}
	return 0
}
