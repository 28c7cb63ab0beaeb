package main

import (
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "serve":
		return runServe(args[1:], stdout, stderr)
	case "check":
		return runCheck(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "axon %s\n", version)
		return 0
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: axon <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  serve      Run the notes service\n")
	fmt.Fprintf(w, "  check      Validate //axon:: annotations in Go source\n")
	fmt.Fprintf(w, "  version    Print the version\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  axon serve -config axon.yaml -adapter echo\n")
	fmt.Fprintf(w, "  axon check ./...                       # Check everything recursively\n")
	fmt.Fprintf(w, "  axon check -verbose ./internal/...      # Also list the declared routes\n")
	fmt.Fprintf(w, "  axon check -module example.com/app ./... # Override the go.mod module path\n")
}
