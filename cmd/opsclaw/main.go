package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/opsclaw/opsclaw/agent"
	"github.com/opsclaw/opsclaw/bot"
	"github.com/opsclaw/opsclaw/config"
	"github.com/opsclaw/opsclaw/llm"
	"github.com/opsclaw/opsclaw/session"
	"github.com/opsclaw/opsclaw/tools"
	"github.com/opsclaw/opsclaw/tools/mcp"
)

func main() {
	configFlag := flag.String("c", "", "Path to an explicit config file")
	messageFlag := flag.String("m", "", "One-shot mode: answer this message on stdout and exit")
	verboseFlag := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if *configFlag != "" {
		cfg, err = config.LoadConfigFile(*configFlag)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := tools.NewRegistry(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building tool registry: %+v\n", err)
		os.Exit(1)
	}

	// External MCP tool servers are optional; one failing to start should not
	// take the whole assistant down.
	var mcpClients []*mcp.Client
	for _, srv := range cfg.MCPServers {
		client, err := mcp.NewClient(ctx, srv.Name, srv.Command, srv.Args, logger)
		if err != nil {
			logger.Error("mcp server unavailable, skipping", "name", srv.Name, "error", err)
			continue
		}
		mcpClients = append(mcpClients, client)
		for _, t := range client.Tools() {
			if err := registry.Register(t); err != nil {
				logger.Warn("skipping mcp tool", "server", srv.Name, "tool", t.Name(), "error", err)
			}
		}
	}
	defer func() {
		for _, c := range mcpClients {
			if err := c.Stop(); err != nil {
				logger.Warn("mcp server shutdown failed", "error", err)
			}
		}
	}()

	invoker := llm.NewCLIInvoker(
		cfg.Backend.Binary,
		cfg.Backend.Model,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		logger,
	)
	composer := agent.NewComposer(cfg.Prompt, logger)
	ag := agent.New(invoker, registry, registry, composer, cfg.Agent, logger)

	if *messageFlag != "" {
		if err := runOnce(ctx, ag, *messageFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runBot(ctx, cfg, ag, registry, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// runOnce answers a single question without history and prints the answer.
func runOnce(ctx context.Context, ag *agent.Agent, question string) error {
	res, err := ag.Ask(ctx, question, nil, config.UserConfig{}, agent.Options{})
	if err != nil {
		return err
	}
	fmt.Println(res.Response)
	return nil
}

// runBot starts the Discord front end and blocks until interrupted.
func runBot(ctx context.Context, cfg *config.Config, ag *agent.Agent, registry *tools.Registry, logger *slog.Logger) error {
	store, err := session.NewStore(sessionDir())
	if err != nil {
		return err
	}

	tracker, err := bot.NewTracker(cfg.Tracker.DBPath, logger)
	if err != nil {
		return err
	}

	b := bot.New(cfg, ag, registry, store, tracker, logger)
	if err := b.Start(ctx); err != nil {
		tracker.Close()
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return b.Stop()
}

func sessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".opsclaw", "sessions")
	}
	return filepath.Join(home, ".opsclaw", "sessions")
}
