package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/utils"
)

// RunHook receives every completed run.
type RunHook func(ctx context.Context, run *models.RunResult)

// Scheduler triggers ScrapeAll on a cron schedule and keeps the most recent
// RunResult. A tick that fires while a run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	orch    *Orchestrator
	recipes []config.Recipe
	hooks   []RunHook
	logger  *utils.Logger

	mu   sync.RWMutex
	last *models.RunResult
}

// NewScheduler creates a stopped Scheduler over recipes.
func NewScheduler(orch *Orchestrator, recipes []config.Recipe, logger *utils.Logger, hooks ...RunHook) *Scheduler {
	cl := cronLogger{logger: logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{cron: c, orch: orch, recipes: recipes, hooks: hooks, logger: logger}
}

// Schedule registers the scrape job under a five-field cron spec.
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	s.logger.Info("[scheduler] Scraping %d sites on schedule %q", len(s.recipes), spec)
	return nil
}

// RunOnce scrapes every site now, records the result and runs the hooks.
func (s *Scheduler) RunOnce(ctx context.Context) *models.RunResult {
	run := s.orch.ScrapeAll(ctx, s.recipes)

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()

	for _, hook := range s.hooks {
		hook(ctx, run)
	}
	return run
}

// Last returns the most recent run, or nil before the first one.
func (s *Scheduler) Last() *models.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// running scrape has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's key/value logging through utils.Logger.
type cronLogger struct {
	logger *utils.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("[cron] %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("[cron] %s: %v %v", msg, err, keysAndValues)
}
