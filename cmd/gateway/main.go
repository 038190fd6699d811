package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfadb/openclaw/internal/agent"
	"github.com/alfadb/openclaw/internal/announce"
	"github.com/alfadb/openclaw/internal/config"
	"github.com/alfadb/openclaw/internal/coordinator"
	"github.com/alfadb/openclaw/internal/inbound"
	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/platform/logging"
	"github.com/alfadb/openclaw/internal/provider/lark"
	"github.com/alfadb/openclaw/internal/session"
	"github.com/alfadb/openclaw/internal/statusreactor"
	"github.com/alfadb/openclaw/internal/toolguard"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "gateway",
		Short: "Lark/Feishu chat-bot gateway control plane",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env OPENCLAW_* overrides apply to keys set in that file)")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newReconcileCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// newRunCommand starts the gateway: connects the Lark WebSocket listener
// and serves inbound events until interrupted, grounded on the teacher's
// cmd/alex-server/main.go (config load, dependency wiring, signal-driven
// graceful shutdown).
func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Lark and start serving inbound events",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.NewFileLogger("gateway")
			defer logger.Close()

			coord, larkClient, err := buildCoordinator(opts, logger)
			if err != nil {
				return err
			}

			accountID := opts.Lark.AccountID
			if accountID == "" {
				accountID = "default"
			}
			if err := coord.Reconcile(context.Background(), accountID, 0); err != nil {
				logger.Warn("gateway: boot reconciliation failed: %v", err)
			}
			listener := lark.NewListener(accountID, opts.LarkConfig(), coord, logger)
			_ = larkClient // retained for reconcile/future multi-command reuse

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- listener.Start(ctx) }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case <-quit:
				logger.Info("gateway: shutdown signal received")
				cancel()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				select {
				case <-errCh:
				case <-shutdownCtx.Done():
					logger.Warn("gateway: listener did not stop within shutdown window")
				}
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
}

// newReconcileCommand runs Coordinator.Reconcile once against the persisted
// ledger without connecting the WebSocket listener: recent queued, working
// or waiting tasks not yet handled are painted ERROR, told they were
// interrupted, and marked interrupted; other tasks are left as they are.
func newReconcileCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run startup reconciliation against the persisted in-flight ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.NewFileLogger("gateway-reconcile")
			defer logger.Close()

			coord, _, err := buildCoordinator(opts, logger)
			if err != nil {
				return err
			}
			accountID := opts.Lark.AccountID
			if accountID == "" {
				accountID = "default"
			}
			return coord.Reconcile(context.Background(), accountID, 0)
		},
	}
}

// buildCoordinator wires every component (A-F) into a Coordinator, per
// spec.md §2's component list. It returns the Lark client too, since run
// and reconcile both need it constructed but only run needs the listener.
func buildCoordinator(opts config.Options, logger logging.Logger) (*coordinator.Coordinator, *lark.Client, error) {
	accountID := opts.Lark.AccountID
	if accountID == "" {
		accountID = "default"
	}

	if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create state dir %s: %w", opts.StateDir, err)
	}

	toolguard.HardMaxToolResultChars = opts.ToolResult.HardMaxChars

	larkClient := lark.New(accountID, opts.LarkConfig())

	store := inflight.NewStore(opts.StateDir)
	inboundStore := inbound.NewStore(opts.StateDir)
	gate := inbound.New(inboundStore, opts.InboundConfig(), larkClient, logger)
	reactor := statusreactor.New(larkClient, logger)
	announceMgr := announce.NewManager(context.Background(), opts.Announce.MaxDrainers, logger)

	sessions := func(sessionKey string) session.Manager {
		inner := session.NewFileManager(opts.StateDir, sessionKey)
		return toolguard.New(inner, nil, nil, nil)
	}

	var dispatcher agent.Dispatcher = unconfiguredDispatcher{logger: logging.OrNop(logger)}

	coord := coordinator.New(coordinator.Deps{
		Store:          store,
		Gate:           gate,
		Reactor:        reactor,
		Sender:         larkClient,
		Dispatcher:     dispatcher,
		Sessions:       sessions,
		Announce:       announceMgr,
		Policy:         opts.PolicyConfig(),
		BotMentionKeys: opts.Policy.BotMentionKeys,
		Logger:         logger,
		AgentRoute:     agent.Config{Route: opts.Agent.Route, Model: opts.Agent.Model},
	})
	return coord, larkClient, nil
}
