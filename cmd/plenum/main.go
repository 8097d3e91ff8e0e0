// Command plenum runs a simulated multi-agent deliberation meeting and
// streams its transcript to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/plenum-ai/plenum/internal/config"
	"github.com/plenum-ai/plenum/internal/meeting"
	"github.com/plenum-ai/plenum/internal/observe"
	"github.com/plenum-ai/plenum/internal/prompt"
	"github.com/plenum-ai/plenum/internal/resilience"
	"github.com/plenum-ai/plenum/internal/roster"
	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/provider/llm/anyllm"
	"github.com/plenum-ai/plenum/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	issue := flag.String("issue", "", "issue to deliberate (overrides the config)")
	seed := flag.Uint64("seed", 0, "random seed for a reproducible run (overrides the config)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "plenum: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "plenum: %v\n", err)
		}
		return 1
	}
	if *issue != "" {
		cfg.Meeting.Issue = *issue
	}
	if *seed != 0 {
		cfg.Meeting.Seed = *seed
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("plenum starting",
		"config", *configPath,
		"provider", cfg.Providers.Primary.Name,
		"fallbacks", len(cfg.Providers.Fallbacks),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "plenum",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Backend chain ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	backend, err := buildBackend(cfg, reg)
	if err != nil {
		slog.Error("failed to build LLM backend", "err", err)
		return 1
	}

	// ── Roster ────────────────────────────────────────────────────────────────
	ros := roster.Default()
	if cfg.Meeting.RosterFile != "" {
		loaded, err := roster.Load(cfg.Meeting.RosterFile)
		if err != nil {
			slog.Error("failed to load roster", "file", cfg.Meeting.RosterFile, "err", err)
			return 1
		}
		ros = loaded
	}

	// ── Run the meeting ───────────────────────────────────────────────────────
	metrics := observe.DefaultMetrics()
	adapter := prompt.NewLLM(backend, prompt.WithMetrics(metrics, cfg.Providers.Primary.Name))
	engine := meeting.NewEngine(adapter, meeting.EngineConfig{
		Metrics: metrics,
	})

	cancelHandle := meeting.NewCancelHandle()
	go func() {
		<-ctx.Done()
		cancelHandle.Cancel()
	}()

	events, err := engine.Run(ctx, meeting.Request{
		Issue:      cfg.Meeting.Issue,
		Roster:     ros,
		Conditions: cfg.Meeting.Conditions,
		Seed:       cfg.Meeting.Seed,
		Cancel:     cancelHandle,
	})
	if err != nil {
		slog.Error("failed to start meeting", "err", err)
		return 1
	}

	for ev := range events {
		switch ev.Kind {
		case meeting.EventDialogue:
			fmt.Println(ev.Line)
		case meeting.EventFinal:
			printFinal(ev)
			if ev.Cancelled {
				return 130
			}
		}
	}
	return 0
}

// buildBackend assembles the resilient provider chain: every configured
// backend gets its own circuit breaker inside a failover group, and the whole
// group is wrapped with the timeout-and-retry layer.
func buildBackend(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	primary, err := reg.CreateLLM(cfg.Providers.Primary)
	if err != nil {
		return nil, fmt.Errorf("create primary %q: %w", cfg.Providers.Primary.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.Primary.Name)

	failover := resilience.NewLLMFailover(
		cfg.Providers.Primary.Name,
		primary,
		cfg.Resilience.Breaker.BreakerConfig(cfg.Providers.Primary.Name),
	)
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback %q: %w", entry.Name, err)
		}
		failover.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "role", "fallback")
	}

	return resilience.NewRetry(failover, cfg.Resilience.Retry.RetryConfig()), nil
}

// registerBuiltinProviders wires the provider factories that ship with
// plenum into reg. "openai" uses the native SDK backend; the remaining names
// go through the any-llm multiplexer.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// printFinal renders the terminal event after the transcript.
func printFinal(ev meeting.Event) {
	fmt.Println()
	if ev.Cancelled {
		fmt.Println("Meeting cancelled.")
	}
	fmt.Printf("Decision: %s\n", ev.Decision)
	if ev.Summary != "" {
		fmt.Printf("\nSummary:\n%s\n", ev.Summary)
	}
	fmt.Printf("\nOptions:\n%s\n", ev.OptionsSummary)
	if m := ev.Metrics; m != nil {
		fmt.Printf("\nTurns by stage: %v\n", m.TurnsPerStage)
		fmt.Printf("Interruptions: %d, actions: %d, options: %d, votes: %d\n",
			m.Interruptions, m.ActionsRaised, m.OptionsProposed, m.VotesCast)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
