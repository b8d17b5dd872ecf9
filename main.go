package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/notify"
	"listing-tracker/scraper"
	"listing-tracker/services"
	"listing-tracker/storage"
	"listing-tracker/utils"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	recipes  []config.Recipe
	store    storage.ListingStore
	orch     *services.Orchestrator
	summary  *services.SummaryService
	writer   storage.RunWriter
	telegram *notify.Telegram
}

var sitesPath string

var rootCmd = &cobra.Command{
	Use:          "listing-tracker",
	Short:        "Scrapes rental listing sites and reports new and delisted listings.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sitesPath, "sites", "", "path to the sites YAML file (overrides SITES_PATH)")

	runCmd.Flags().String("site", "", "scrape only the named site")
	serveCmd.Flags().Bool("now", false, "run one scrape immediately before waiting for the schedule")
	statusCmd.Flags().Bool("listings", false, "also print every tracked listing grouped by site")
	statusCmd.Flags().Bool("send", false, "send the status to Telegram as well")

	rootCmd.AddCommand(runCmd, serveCmd, statusCmd, sitesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [--site <name>]",
	Short: "Scrape all configured sites (or one) once and report changes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		recipes := a.recipes
		if name, _ := cmd.Flags().GetString("site"); name != "" {
			recipe, ok := config.FindSite(a.recipes, name)
			if !ok {
				return fmt.Errorf("unknown site %q", name)
			}
			recipes = []config.Recipe{recipe}
		}

		run := a.orch.ScrapeAll(cmd.Context(), recipes)
		a.afterRun(cmd.Context(), run)
		if len(run.Failed()) == len(recipes) {
			return fmt.Errorf("all %d sites failed", len(recipes))
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve [--now]",
	Short: "Scrape on the configured schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		sched := services.NewScheduler(a.orch, a.recipes, a.logger, a.afterRun)
		if err := sched.Schedule(a.cfg.ScrapeSchedule); err != nil {
			return err
		}
		if now, _ := cmd.Flags().GetBool("now"); now {
			sched.RunOnce(ctx)
		}

		sched.Start()
		a.logger.Info("=== Listing tracker serving, Ctrl+C to stop ===")
		<-ctx.Done()

		a.logger.Info("Shutting down, waiting for any running scrape...")
		<-sched.Stop().Done()
		if last := sched.Last(); last != nil {
			a.logger.Info("Last run finished at %s", last.FinishedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [--listings] [--send]",
	Short: "Show configured sites and tracked listing totals.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		total, err := a.store.Count(ctx)
		if err != nil {
			return err
		}
		var lastSeen time.Time
		recent, err := a.store.Recent(ctx, 7*24*time.Hour)
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			lastSeen = recent[0].ObservedAt.Local()
		}

		msg := notify.FormatStatus(len(a.recipes), total, lastSeen)
		fmt.Println(msg)

		if all, _ := cmd.Flags().GetBool("listings"); all {
			var listings []models.Listing
			for _, r := range a.recipes {
				ls, err := a.store.BySite(ctx, r.Name)
				if err != nil {
					return err
				}
				listings = append(listings, ls...)
			}
			fmt.Println()
			fmt.Println(notify.FormatListingsBySite(listings))
		}

		if send, _ := cmd.Flags().GetBool("send"); send {
			if a.telegram == nil {
				return fmt.Errorf("telegram is not configured")
			}
			return a.telegram.Send(ctx, msg)
		}
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the configured sites.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		recipes, err := config.LoadSites(resolveSitesPath(cfg))
		if err != nil {
			return err
		}
		for _, r := range recipes {
			fmt.Printf("%-30s %-12s %s\n", r.Name, r.Strategy, r.URL)
		}
		return nil
	},
}

func resolveSitesPath(cfg *config.Config) string {
	if sitesPath != "" {
		return sitesPath
	}
	return cfg.SitesPath
}

// newApp loads configuration and opens the store. withOutputs also opens the
// CSV writer and Telegram client when they are configured.
func newApp(ctx context.Context, withOutputs bool) (*app, error) {
	cfg := config.Load()
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	recipes, err := config.LoadSites(resolveSitesPath(cfg))
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		recipes: recipes,
		store:   store,
		summary: services.NewSummaryService(logger),
	}
	factory := scraper.NewFactory(scraper.OptionsFromConfig(cfg), logger)
	a.orch = services.NewOrchestrator(store, factory, cfg.MaxConcurrency, logger)

	if cfg.NotificationsEnabled() {
		a.telegram = notify.NewTelegram(notify.DefaultBaseURL, cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	}

	if withOutputs && cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.writer = w
	}

	logger.Info("=== Listing tracker: %d sites | store: %s | concurrency: %d ===",
		len(recipes), cfg.DBDriver, cfg.MaxConcurrency)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.ListingStore, error) {
	switch cfg.DBDriver {
	case "postgres", "postgresql":
		retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
		store, err := storage.NewPostgresStore(ctx, cfg.DSN(), retry, logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Check the POSTGRES_* settings and that the server is reachable")
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		return storage.NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
}

// afterRun reports a finished run: terminal summary, CSV export and
// Telegram notification. Failures here are logged, never fatal.
func (a *app) afterRun(ctx context.Context, run *models.RunResult) {
	total, err := a.store.Count(ctx)
	if err != nil {
		a.logger.Warn("Failed to count tracked listings: %v", err)
	}
	a.summary.Print(os.Stdout, a.summary.Generate(run, total))

	if a.writer != nil {
		if err := a.writer.WriteRun(run); err != nil {
			a.logger.Error("CSV write failed: %v", err)
		} else {
			a.logger.Info("Run changes appended to %s", a.cfg.CSVOutputPath)
		}
	}

	if a.telegram != nil {
		if _, err := a.telegram.NotifyRun(ctx, run); err != nil {
			a.logger.Error("Telegram notification failed: %v", err)
		}
	}
}

func (a *app) close() {
	if a.writer != nil {
		_ = a.writer.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Closing store: %v", err)
	}
}
