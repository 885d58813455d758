// Command chroniclerd runs the document-analysis agent as an HTTP
// service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/chronicler-ai/chronicler"
	"github.com/chronicler-ai/chronicler/completion"
	"github.com/chronicler-ai/chronicler/completion/anthropic"
	"github.com/chronicler-ai/chronicler/completion/openai"
	"github.com/chronicler-ai/chronicler/config"
	"github.com/chronicler-ai/chronicler/logging"
	"github.com/chronicler-ai/chronicler/monitor"
	"github.com/chronicler-ai/chronicler/server"
	"github.com/chronicler-ai/chronicler/tool"
	"github.com/chronicler-ai/chronicler/tools/calculator"
	"github.com/chronicler-ai/chronicler/tools/historical"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "chroniclerd",
		Short:         "Historical document analysis agent service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chroniclerd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logLevel(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		Output:    os.Stdout,
		Component: "chroniclerd",
	})

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	store := historical.NewMemoryStore(historical.SampleLibrary()...)
	toolset := historical.NewToolset(store)
	registry, err := tool.NewRegistry(append(toolset.Tools(), calculator.New())...)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	agent := chronicler.New(client, registry, func(o *chronicler.Options) {
		o.MaxIterations = cfg.Agent.MaxIterations
		o.Temperature = cfg.Agent.Temperature
		o.ToolFailureLimit = cfg.Agent.ToolFailureLimit
		o.ToolTimeout = cfg.Agent.ToolTimeout
		o.MaxConcurrentTools = cfg.Agent.MaxConcurrentTools
		o.SessionIdleTTL = cfg.Agent.SessionIdleTTL
		o.StreamBuffer = cfg.Agent.StreamBuffer
		o.Logger = logger
		if cfg.Telemetry.MetricsEnabled {
			o.Metrics = &monitor.MetricsOptions{}
		}
	})
	defer agent.Close()

	srv := server.New(agent, func(o *server.Options) {
		o.Addr = cfg.Server.Addr
		o.Logger = logger.WithComponent("server")
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func buildClient(cfg *config.Config) (completion.Client, error) {
	switch cfg.Provider.Name {
	case "openai":
		return openai.New(func(o *openai.Options) {
			o.APIKey = cfg.Provider.APIKey
			if cfg.Provider.Model != "" {
				o.Model = cfg.Provider.Model
			}
		}), nil
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.Provider.APIKey
			if cfg.Provider.Model != "" {
				o.Model = sdkanthropic.Model(cfg.Provider.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

func logLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
