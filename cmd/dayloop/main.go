package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"daily_loop/internal/ai"
	"daily_loop/internal/config"
	"daily_loop/internal/engine"
	"daily_loop/internal/logger"
	"daily_loop/internal/loop"
	"daily_loop/internal/market"
	"daily_loop/internal/notify"
	"daily_loop/internal/recorder"
	"daily_loop/internal/storage"
)

const version = "1.2.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "dayloop",
		Short:         "Daily single-asset trading decision loop",
		Long:          "dayloop pulls daily market data, computes indicators, asks an AI decision-maker for BUY/SELL/HOLD, and executes the decision under risk guardrails.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newScheduleCmd(&configPath))
	rootCmd.AddCommand(newATRReportCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newRunCmd(configPath *string) *cobra.Command {
	var dryRun, ignoreMarketCheck bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one trading cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, closeFn, err := buildLoop(*configPath, dryRun)
			if err != nil {
				return err
			}
			defer closeFn()

			installSignalLogging()
			if err := l.Run(dryRun, ignoreMarketCheck); err != nil {
				log.Printf("ERROR: %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate the decision without placing orders or writing state files")
	cmd.Flags().BoolVar(&ignoreMarketCheck, "ignore-market-check", false, "Bypass the market open/holiday check")
	return cmd
}

func newScheduleCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the trading cycle on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cfg, closeFn, err := buildLoop(*configPath, dryRun)
			if err != nil {
				return err
			}
			defer closeFn()

			c := cron.New()
			if _, err := c.AddFunc(cfg.Schedule.DailyCron, func() {
				if err := l.Run(dryRun, false); err != nil {
					log.Printf("ERROR: scheduled cycle failed: %v", err)
				}
			}); err != nil {
				return fmt.Errorf("register daily schedule %q: %w", cfg.Schedule.DailyCron, err)
			}
			c.Start()
			log.Printf("Scheduler started, daily cycle at %q", cfg.Schedule.DailyCron)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Printf("Signal received: %v, stopping scheduler", sig)

			// Let an in-flight cycle finish before exiting.
			<-c.Stop().Done()
			log.Println("Scheduler stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate every scheduled cycle without placing orders")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dayloop v%s\n", version)
		},
	}
}

// buildLoop assembles the full cycle from configuration. The returned
// close function releases the recorder.
func buildLoop(configPath string, dryRun bool) (*loop.Loop, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Setup(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)

	if err := cfg.Validate(!dryRun); err != nil {
		return nil, nil, nil, err
	}

	provider, calendar, broker := buildMarket(cfg)

	var rec recorder.Recorder
	if cfg.Files.SQLitePath != "" {
		sq, err := recorder.NewSQLiteRecorder(cfg.Files.SQLitePath)
		if err != nil {
			log.Printf("WARNING: sqlite recorder unavailable, trade events only go to the JSON ledger: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sq
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	store := storage.NewPortfolioStore(cfg.Files.Portfolio)
	ledger := storage.NewTradeLedger(cfg.Files.TradeHistory)
	notifier := notify.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	eng := engine.New(cfg.Symbol, broker, store, ledger, rec, notifier)
	decider := ai.NewClient(cfg)

	l := loop.New(cfg, provider, calendar, decider, eng, store, notifier)
	return l, cfg, func() { rec.Close() }, nil
}

// buildMarket picks the data provider from configuration. The Alpaca
// calendar and broker are only available with credentials; without them
// the calendar degrades to weekday checks and live orders are refused
// at validation time.
func buildMarket(cfg *config.Config) (market.DataProvider, market.Calendar, market.Broker) {
	var alpacaProvider *market.AlpacaProvider
	if alpacaCredsPresent(cfg) {
		alpacaProvider = market.NewAlpacaProvider(cfg)
	}

	var provider market.DataProvider
	switch {
	case cfg.DataSource == "yahoo":
		provider = market.NewYahooProvider()
	case alpacaProvider != nil:
		provider = alpacaProvider
	default:
		log.Println("WARNING: no Alpaca credentials, falling back to the Yahoo data provider")
		provider = market.NewYahooProvider()
	}

	if alpacaProvider != nil {
		return provider, alpacaProvider, alpacaProvider
	}
	return provider, market.WeekdayCalendar{}, nil
}

// alpacaCredsPresent reports whether both Alpaca credentials are set.
// A key without its secret cannot authenticate and counts as absent.
func alpacaCredsPresent(cfg *config.Config) bool {
	return cfg.Alpaca.APIKey != "" && cfg.Alpaca.SecretKey != ""
}

// installSignalLogging logs termination signals so an unexpected exit in
// the middle of a cycle can be traced back to its cause.
func installSignalLogging() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		log.Printf("WARNING: signal received: %v (pid=%d ppid=%d), exiting", sig, os.Getpid(), os.Getppid())
		os.Exit(1)
	}()
}
