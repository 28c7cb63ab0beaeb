// Package console prints the startup banner and the mounted route table.
package console

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/axonroute/pkg/axon"
)

// AppInfo names the application in the startup banner
type AppInfo struct {
	AppName    string
	AppVersion string
}

// Console writes colored startup output
type Console struct {
	out   io.Writer
	quiet bool
}

// New creates a console writing to out, os.Stdout when nil
func New(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// SetQuiet suppresses everything but warnings
func (c *Console) SetQuiet(quiet bool) {
	c.quiet = quiet
}

// Banner prints the application name, version, address and environment
func (c *Console) Banner(info *AppInfo, addr, environment, adapter string) {
	if c.quiet {
		return
	}
	name := "Application"
	version := ""
	if info != nil {
		if info.AppName != "" {
			name = info.AppName
		}
		version = info.AppVersion
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(c.out, "%s", name)
	if version != "" {
		fmt.Fprintf(c.out, " %s", version)
	}
	fmt.Fprintf(c.out, " is running on ")
	color.New(color.FgGreen).Fprintf(c.out, "%s", addr)

	env := color.New(color.FgYellow)
	if environment == "production" {
		env = color.New(color.FgRed)
	}
	fmt.Fprint(c.out, " [")
	env.Fprint(c.out, environment)
	fmt.Fprintf(c.out, "] via %s\n", adapter)
}

// Routes prints the mounted routes sorted by path then method
func (c *Console) Routes(routes []axon.RouteInfo) {
	if c.quiet || len(routes) == 0 {
		return
	}
	sorted := append([]axon.RouteInfo(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Method < sorted[j].Method
	})

	width := 0
	for _, r := range sorted {
		if len(r.Path) > width {
			width = len(r.Path)
		}
	}

	blue := color.New(color.FgBlue)
	blue.Fprintf(c.out, "Routes:\n")
	for _, r := range sorted {
		methodColor(r.Method).Fprintf(c.out, "  %-7s", r.Method)
		fmt.Fprintf(c.out, " %-*s  %d", width, r.Path, r.StatusCode)
		if r.ControllerName != "" {
			fmt.Fprintf(c.out, "  %s.%s", r.ControllerName, r.HandlerName)
		}
		if len(r.Middlewares) > 0 {
			fmt.Fprintf(c.out, "  [%s]", strings.Join(r.Middlewares, ", "))
		}
		fmt.Fprintln(c.out)
	}
}

// Warning prints message with a marker, even when quiet
func (c *Console) Warning(message string) {
	orange := color.New(color.FgYellow, color.Bold)
	orange.Fprint(c.out, "! ")
	fmt.Fprintf(c.out, "%s\n", message)
}

func methodColor(method string) *color.Color {
	switch method {
	case "GET", "HEAD":
		return color.New(color.FgGreen)
	case "POST":
		return color.New(color.FgYellow)
	case "PUT", "PATCH":
		return color.New(color.FgBlue)
	case "DELETE":
		return color.New(color.FgRed)
	}
	return color.New(color.FgMagenta)
}
