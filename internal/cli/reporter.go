package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// Reporter prints check results
type Reporter struct {
	out     io.Writer
	verbose bool
	quiet   bool
	base    string
}

// NewReporter writes to out, os.Stdout when nil. Positions are printed
// relative to the working directory.
func NewReporter(out io.Writer, verbose, quiet bool) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	base, _ := os.Getwd()
	return &Reporter{out: out, verbose: verbose, quiet: quiet, base: base}
}

func (r *Reporter) rel(path string) string {
	if r.base == "" {
		return path
	}
	if rel, err := filepath.Rel(r.base, path); err == nil {
		return rel
	}
	return path
}

// Report prints every finding, the routes in verbose mode and a summary
func (r *Reporter) Report(report *Report) {
	red := color.New(color.FgRed, color.Bold)
	orange := color.New(color.FgYellow, color.Bold)

	for _, pkg := range report.Packages {
		for _, f := range pkg.Findings {
			if r.quiet && f.Severity == SeverityWarning {
				continue
			}
			pos := r.rel(f.Pos.Filename)
			if f.Pos.Line > 0 {
				pos = fmt.Sprintf("%s:%d:%d", pos, f.Pos.Line, f.Pos.Column)
			}
			fmt.Fprintf(r.out, "%s: ", pos)
			if f.Severity == SeverityError {
				red.Fprint(r.out, "error")
			} else {
				orange.Fprint(r.out, "warning")
			}
			fmt.Fprintf(r.out, ": %s\n", f.Message)
		}
	}

	if r.verbose {
		for _, pkg := range report.Packages {
			if len(pkg.Routes) == 0 {
				continue
			}
			name := pkg.ImportPath
			if name == "" {
				name = r.rel(pkg.Dir)
			}
			color.New(color.FgBlue).Fprintf(r.out, "%s\n", name)
			for _, route := range pkg.Routes {
				fmt.Fprintf(r.out, "  %-7s %s  %s.%s\n", route.Verb, route.Path, route.Controller, route.Method)
			}
		}
	}

	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "Packages: %d  Controllers: %d  Routes: %d  Errors: %d  Warnings: %d\n",
		len(report.Packages), report.Controllers(), report.Routes(), report.Errors(), report.Warnings())
	if report.Errors() == 0 {
		color.New(color.FgGreen).Fprintln(r.out, "All annotations are valid")
	}
}
