package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/petasbytes/toolagent/internal/config"
	"github.com/petasbytes/toolagent/internal/provider"
	"github.com/petasbytes/toolagent/internal/runner"
	"github.com/petasbytes/toolagent/internal/telemetry"
	"github.com/petasbytes/toolagent/internal/weather"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a TOML config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, `usage: agent [-config file] "<message>"`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	telemetry.Configure(telemetry.Config{
		Observe:         cfg.Telemetry.Observe,
		PersistPayloads: cfg.Telemetry.PersistPayloads,
		ArtifactsDir:    cfg.Telemetry.ArtifactsDir,
	})

	// Ctrl-C cancels the in-flight model or tool call.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	registry, err := tools.NewRegistry(
		tools.NewWeatherTool(weather.New(cfg.Weather.APIKey)),
		tools.NewCalendarTool(&lazyCalendar{credentialsPath: cfg.Calendar.CredentialsPath, tokenPath: cfg.Calendar.TokenPath}, time.Now),
	)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	client := newClient(cfg)
	logger.Debug("starting turn", slog.String("provider", cfg.Provider), slog.String("model", client.Model()), slog.String("store", cfg.Store.Kind))

	obs := newTerminalObserver(stdout)
	r := runner.New(store, client, registry,
		runner.WithObserver(obs),
		runner.WithLogger(logger),
		runner.WithTokenBudget(cfg.TokenBudget),
	)
	if _, err := r.Run(ctx, message, registry.Specs()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func openStore(ctx context.Context, sc config.StoreConfig) (memory.Store, error) {
	switch sc.Kind {
	case config.StoreFile:
		return memory.OpenFile(sc.Path)
	case config.StoreMemory:
		return memory.NewInMemoryStore(), nil
	default:
		return memory.OpenSQLite(ctx, sc.Path)
	}
}

func newClient(cfg *config.Config) provider.Client {
	if cfg.Provider == config.ProviderAnthropic {
		return provider.NewAnthropicClient("", provider.WithModel(cfg.Model))
	}
	return provider.NewOpenAIClient("", provider.WithModel(cfg.Model))
}
