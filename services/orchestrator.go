package services

import (
	"context"
	"fmt"
	"time"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/scraper"
	"listing-tracker/storage"
	"listing-tracker/utils"
)

// Orchestrator runs extraction for configured sites and reconciles the
// results against the store: unseen fingerprints are reported as new and
// stored fingerprints missing from a pass are removed as delisted.
type Orchestrator struct {
	store          storage.ListingStore
	factory        scraper.Factory
	logger         *utils.Logger
	maxConcurrency int
	now            func() time.Time
}

// NewOrchestrator wires an Orchestrator. maxConcurrency bounds how many sites
// are scraped at once.
func NewOrchestrator(store storage.ListingStore, factory scraper.Factory, maxConcurrency int, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		store:          store,
		factory:        factory,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// ScrapeSite runs one extraction pass for recipe and updates the store.
// Extraction and store errors are returned; nothing is retried.
func (o *Orchestrator) ScrapeSite(ctx context.Context, recipe config.Recipe) (models.SiteResult, error) {
	result := models.SiteResult{SiteName: recipe.Name}

	s, err := o.factory(recipe)
	if err != nil {
		return result, fmt.Errorf("orchestrator: %s: %w", recipe.Name, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			o.logger.Warn("[orchestrator] %s: close scraper: %v", recipe.Name, cerr)
		}
	}()

	o.logger.Info("[orchestrator] Scraping %s (%s)", recipe.Name, recipe.Strategy)
	listings, err := s.Scrape(ctx)
	if err != nil {
		return result, err
	}
	result.Scraped = len(listings)

	current := make([]string, 0, len(listings))
	for _, l := range listings {
		known, err := o.store.IsKnown(ctx, l.Fingerprint)
		if err != nil {
			return result, fmt.Errorf("orchestrator: %s: %w", recipe.Name, err)
		}
		if !known {
			result.New = append(result.New, l)
		}
		if err := o.store.Upsert(ctx, l); err != nil {
			return result, fmt.Errorf("orchestrator: %s: %w", recipe.Name, err)
		}
		current = append(current, l.Fingerprint)
	}

	removed, err := o.removeStale(ctx, recipe.Name, current)
	if err != nil {
		return result, fmt.Errorf("orchestrator: %s: %w", recipe.Name, err)
	}
	result.Removed = removed

	o.logger.Info("[orchestrator] %s: %d scraped, %d new, %d delisted",
		recipe.Name, result.Scraped, len(result.New), len(result.Removed))
	return result, nil
}

// removeStale deletes the site's stored listings absent from current and
// returns their values as they were before removal.
func (o *Orchestrator) removeStale(ctx context.Context, site string, current []string) ([]models.Listing, error) {
	if len(current) == 0 {
		o.logger.Warn("[orchestrator] %s: pass returned no listings, skipping delisting", site)
		return nil, nil
	}

	stale, err := o.store.StaleFingerprints(ctx, site, current)
	if err != nil || len(stale) == 0 {
		return nil, err
	}

	removed, err := o.store.Get(ctx, stale)
	if err != nil {
		return nil, err
	}
	n, err := o.store.Remove(ctx, stale)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("[orchestrator] %s: removed %d stale listings", site, n)
	return removed, nil
}

// ScrapeAll scrapes every recipe on a bounded worker pool. A failing site is
// logged and recorded in the result with its error; it never stops the
// other sites. New and Removed aggregate the successful sites in recipe
// order.
func (o *Orchestrator) ScrapeAll(ctx context.Context, recipes []config.Recipe) *models.RunResult {
	run := &models.RunResult{
		StartedAt: o.now(),
		Sites:     make([]models.SiteResult, len(recipes)),
	}

	pool := utils.NewWorkerPool(o.maxConcurrency, 0)
	for i, recipe := range recipes {
		i, recipe := i, recipe
		err := pool.Submit(ctx, func() {
			res, err := o.scrapeSiteSafe(ctx, recipe)
			if err != nil {
				o.logger.Error("[orchestrator] %s failed: %v", recipe.Name, err)
				res = models.SiteResult{SiteName: recipe.Name, Err: err}
			}
			run.Sites[i] = res
		})
		if err != nil {
			o.logger.Warn("[orchestrator] %s not started: %v", recipe.Name, err)
			run.Sites[i] = models.SiteResult{SiteName: recipe.Name, Err: err}
		}
	}
	pool.Wait()

	for _, res := range run.Sites {
		if res.Err != nil {
			continue
		}
		run.New = append(run.New, res.New...)
		run.Removed = append(run.Removed, res.Removed...)
	}
	run.FinishedAt = o.now()

	o.logger.Info("[orchestrator] Run finished in %v: %d sites, %d failed, %d new, %d delisted",
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		len(recipes), len(run.Failed()), len(run.New), len(run.Removed))
	return run
}

// scrapeSiteSafe turns a panic inside one site's pass into an error.
func (o *Orchestrator) scrapeSiteSafe(ctx context.Context, recipe config.Recipe) (res models.SiteResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator: %s: panic: %v", recipe.Name, r)
		}
	}()
	return o.ScrapeSite(ctx, recipe)
}
