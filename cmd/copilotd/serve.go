package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/copilot/internal/actions"
	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/agent/providers"
	"github.com/haasonsaas/copilot/internal/agents"
	"github.com/haasonsaas/copilot/internal/audit"
	"github.com/haasonsaas/copilot/internal/config"
	"github.com/haasonsaas/copilot/internal/gateway"
	"github.com/haasonsaas/copilot/internal/observability"
	"github.com/haasonsaas/copilot/internal/rag"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/internal/tools/calc"
	"github.com/haasonsaas/copilot/internal/tools/clock"
	"github.com/haasonsaas/copilot/internal/tools/docsearch"
	"github.com/haasonsaas/copilot/internal/tools/tickets"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the copilot server",
		Long: `Start the copilot HTTP server.

The server loads configuration, registers the built-in tools and agents,
applies per-agent tool allowlists, and serves the run, streaming, and
confirmation endpoints. Shutdown is graceful on SIGINT/SIGTERM.`,
		Example: `  # Start with defaults
  copilotd serve

  # Start with a config file
  copilotd serve --config /etc/copilot/copilot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics()

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "copilot",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		EnableInsecure: cfg.Tracing.Insecure,
	})

	auditor, err := audit.NewLogger(audit.Config{
		Enabled: cfg.Audit.Enabled,
		Level:   audit.Level(cfg.Audit.Level),
		Format:  audit.OutputFormat(cfg.Audit.Format),
		Output:  cfg.Audit.Output,
	})
	if err != nil {
		return fmt.Errorf("audit logger: %w", err)
	}

	store, err := rag.NewStore(rag.StoreConfig{Path: cfg.RAG.DBPath})
	if err != nil {
		return fmt.Errorf("rag store: %w", err)
	}

	validator := schema.NewValidator()
	toolReg, err := buildToolRegistry(store)
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}
	for agentID, toolIDs := range cfg.Tools.Allowlists {
		if err := toolReg.SetAllowlist(agentID, toolIDs); err != nil {
			return fmt.Errorf("allowlist for %s: %w", agentID, err)
		}
	}

	invoker := agent.NewInvoker(toolReg, validator, auditor, metrics, tracer, agent.InvokerConfig{
		Timeout: cfg.Tools.Timeout.Std(),
	})

	client, err := providers.New(providers.Config{
		Provider:   cfg.Provider.Name,
		APIKey:     resolveAPIKey(cfg.Provider),
		BaseURL:    cfg.Provider.BaseURL,
		MaxRetries: cfg.Provider.MaxRetries,
		RetryDelay: cfg.Provider.RetryDelay.Std(),
	})
	if err != nil {
		return fmt.Errorf("model provider: %w", err)
	}

	runner := agent.NewRunner(client, invoker, validator)
	loop := agent.LoopConfig{
		Model:       cfg.Provider.Model,
		MaxSteps:    cfg.Agent.MaxSteps,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
	}

	agentReg, err := buildAgentRegistry(runner, loop)
	if err != nil {
		return fmt.Errorf("agent registry: %w", err)
	}

	ledger := actions.NewLedger(auditor, metrics, actions.Config{TTL: cfg.Actions.TTL.Std()})

	service := gateway.NewService(gateway.ServiceConfig{
		Agents:        agentReg,
		Tools:         toolReg,
		Invoker:       invoker,
		Ledger:        ledger,
		Validator:     validator,
		Auditor:       auditor,
		Metrics:       metrics,
		Tracer:        tracer,
		Logger:        logger,
		FallbackToAll: cfg.Tools.FallbackToAll,
	})

	server := gateway.NewServer(gateway.ServerConfig{
		Addr:    cfg.Server.Addr(),
		Service: service,
		Metrics: metrics,
		Logger:  logger,
	})
	if err := server.Start(ctx); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server.Stop(shutdownCtx)
	if err := auditor.Close(); err != nil {
		logger.Warn(shutdownCtx, "audit logger close", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Warn(shutdownCtx, "rag store close", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "tracer shutdown", "error", err)
	}
	return nil
}

// buildToolRegistry registers the built-in tools.
func buildToolRegistry(searcher rag.Searcher) (*agent.ToolRegistry, error) {
	reg := agent.NewToolRegistry()
	defs := []*agent.ToolDefinition{
		clock.Definition(nil),
		calc.Definition(),
		docsearch.Definition(searcher),
		tickets.Definition(tickets.NewMemoryStore()),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// buildAgentRegistry registers the built-in agents.
func buildAgentRegistry(runner *agent.Runner, loop agent.LoopConfig) (*agent.AgentRegistry, error) {
	reg := agent.NewAgentRegistry()
	defs := []*agent.AgentDefinition{
		agents.NewProductQA(runner, loop),
		agents.NewDocsCopilot(runner, loop),
		agents.NewTicketHandler(runner, loop),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// resolveAPIKey falls back to the provider's conventional environment
// variable when the config leaves the key empty.
func resolveAPIKey(p config.ProviderConfig) string {
	if p.APIKey != "" {
		return p.APIKey
	}
	switch p.Name {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
