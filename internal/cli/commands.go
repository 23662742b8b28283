package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/backtest"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/internal/server"
)

const version = "0.3.0"

const defaultInterval = 5 * time.Minute

// NewRootCmd builds the command tree. Running without a subcommand starts the
// interactive menu.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradecouncil",
		Short: "Multi-agent trading decision pipeline",
		Long: `TradeCouncil screens a configured instrument universe, runs technical,
fundamental and sentiment analysts over the best candidate, aggregates their
votes, gates the result through a risk manager and executes approved trades
on paper or through the live bridge. Every step lands in the audit journal.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newLoopCmd())
	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command with signal-aware context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		DisplayError(err)
		return 1
	}
	return 0
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single decision cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, false)
		},
	}
}

func newLoopCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run decision cycles continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runLoop(cmd.Context(), cfg, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultInterval, "time between cycles")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run one cycle and a crossover backtest on simulated data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check configuration, data sources and the log directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runHealth(cmd.Context(), cfg)
		},
	}
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only journal API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runDashboard(cmd.Context(), cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tradecouncil v%s\n", version)
		},
	}
}

func runInteractive(ctx context.Context) error {
	DisplayBanner()
	for {
		choice, err := promptForMode()
		if err != nil {
			return err
		}

		switch choice {
		case choiceRunOnce:
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := runOnce(ctx, cfg, true); err != nil {
				DisplayError(err)
			}
		case choiceLoop:
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			interval, err := promptForInterval(defaultInterval)
			if err != nil {
				return err
			}
			if err := runLoop(ctx, cfg, interval); err != nil {
				DisplayError(err)
			}
			return nil
		case choiceDemo:
			if err := runDemo(ctx); err != nil {
				DisplayError(err)
			}
		case choiceDashboard:
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runDashboard(ctx, cfg)
		case choiceExit:
			return nil
		}
		fmt.Println()
	}
}

func runOnce(ctx context.Context, cfg *config.Config, interactive bool) error {
	if interactive && !cfg.PaperTrading {
		ok, err := promptConfirmLive()
		if err != nil {
			return err
		}
		if !ok {
			DisplayInfo("aborted")
			return nil
		}
	}

	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.runner.Once(ctx)
	if err != nil {
		return err
	}
	DisplayDecision(state)
	return nil
}

func runLoop(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	DisplayInfo(fmt.Sprintf("running every %s, Ctrl-C to stop", interval))
	if err := a.runner.Loop(ctx, interval); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runDemo(ctx context.Context) error {
	cfg := demoConfig()
	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	DisplayInfo("demo cycle on simulated data (paper trading)")
	state, err := a.runner.Once(ctx)
	if err != nil {
		return err
	}
	DisplayDecision(state)

	engine := backtest.NewEngine(dataflows.NewSimSource(), a.log)
	report, err := engine.Run(ctx, "EURUSD", models.TFH1, 500)
	if err != nil {
		return err
	}
	DisplayBacktest(report)
	return nil
}

// runHealth exercises each dependency the pipeline needs and fails the
// command on the first hard problem.
func runHealth(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.LogLevel)
	failed := false

	check := func(name string, err error) {
		if err != nil {
			failed = true
			DisplayError(fmt.Errorf("%s: %w", name, err))
			return
		}
		DisplayInfo(name + ": ok")
	}

	// Log directory must be writable; the journal lives there.
	check("log directory", func() error {
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		probe := filepath.Join(cfg.LogDir, ".health")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return err
		}
		return os.Remove(probe)
	}())

	check("reasoning provider key", func() error {
		if cfg.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is not set")
		}
		return nil
	}())

	check("market data bridge", func() error {
		bridge := dataflows.NewBridgeClient(cfg.BridgeBaseURL, cfg.BridgeAPIKey, cfg.BridgeTimeout, log)
		_, err := bridge.Account(ctx)
		return err
	}())

	check("instruments", func() error {
		if len(cfg.EnabledInstruments()) == 0 {
			return fmt.Errorf("no enabled instruments configured")
		}
		return nil
	}())

	if failed {
		return fmt.Errorf("health check failed")
	}
	DisplayInfo("all checks passed")
	return nil
}

func runDashboard(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.LogLevel)
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	auditor, err := audit.New(cfg.LogDir, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg, auditor, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	DisplayInfo("dashboard on " + cfg.DashboardAddr + ", Ctrl-C to stop")
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
