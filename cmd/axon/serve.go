package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/toyz/axonroute/internal/console"
	"github.com/toyz/axonroute/pkg/app"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/axon/adapters"
	"github.com/toyz/axonroute/pkg/metadata"
)

var webServers = map[string]func() axon.WebServerInterface{
	"chi":   func() axon.WebServerInterface { return adapters.NewDefaultChiAdapter() },
	"echo":  func() axon.WebServerInterface { return adapters.NewDefaultEchoAdapter() },
	"gin":   func() axon.WebServerInterface { return adapters.NewDefaultGinAdapter() },
	"fiber": func() axon.WebServerInterface { return adapters.NewDefaultFiberAdapter() },
}

func adapterNames() string {
	names := make([]string, 0, len(webServers))
	for name := range webServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		adapter    = fs.String("adapter", "chi", "Web server adapter ("+adapterNames()+")")
		port       = fs.String("port", "", "Port to listen on (overrides the configuration)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := app.DefaultConfig()
	if *configPath != "" {
		loaded, err := app.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if cfg.Name == "" {
		cfg.Name = "notes"
		cfg.Version = version
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	a, err := newApplication(cfg, *adapter, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := a.Listen(context.Background(), *port, nil); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

// newApplication wires the notes service onto the named adapter
func newApplication(cfg *app.Config, adapter string, out io.Writer, logger *zap.Logger) (*app.App, error) {
	factory, ok := webServers[adapter]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q, expected one of %s", adapter, adapterNames())
	}

	reg := metadata.NewRegistry()
	if err := declareNotes(reg); err != nil {
		return nil, err
	}

	store := NewNoteStore()
	a := app.New(factory(),
		app.WithConfig(cfg),
		app.WithLogger(logger),
		app.WithConsole(console.New(out)),
		app.WithRegistry(reg),
		app.WithRouteRegistry(axon.NewInMemoryRouteRegistry()),
		app.WithHooks(app.Hooks{
			ServerShutdown: func(_ context.Context, a *app.App) error {
				a.Logger().Info("notes service stopped", zap.Int("notes", store.Len()))
				return nil
			},
		}),
	)
	if _, err := a.ConfigContainer(notesModule(store)); err != nil {
		return nil, err
	}
	return a, nil
}
