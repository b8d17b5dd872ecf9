// Package scraper extracts listings from configured sites. Each site is
// handled by one of two strategies: Static fetches the page markup once,
// Interactive renders it in headless Chrome and optionally clicks through
// tabs or "show more" controls. Both feed the same selector-driven extractor.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/utils"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrClosed is returned by Scrape after Close.
var ErrClosed = errors.New("scraper: closed")

// Scraper extracts the current listings of one site. Implementations are not
// safe for concurrent Scrape calls; use one instance per site.
type Scraper interface {
	Scrape(ctx context.Context) ([]models.Listing, error)
	Close() error
}

// Options tunes network and rendering bounds.
type Options struct {
	HTTPTimeout     time.Duration
	PageLoadTimeout time.Duration
	WaitForTimeout  time.Duration
	SettleDelay     time.Duration
	ChromeBin       string
	UserAgent       string
}

// DefaultOptions returns the bounds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HTTPTimeout:     30 * time.Second,
		PageLoadTimeout: 60 * time.Second,
		WaitForTimeout:  30 * time.Second,
		SettleDelay:     2 * time.Second,
		UserAgent:       defaultUserAgent,
	}
}

// OptionsFromConfig maps application config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.HTTPTimeout > 0 {
		opts.HTTPTimeout = cfg.HTTPTimeout
	}
	if cfg.PageLoadTimeout > 0 {
		opts.PageLoadTimeout = cfg.PageLoadTimeout
	}
	if cfg.WaitForTimeout > 0 {
		opts.WaitForTimeout = cfg.WaitForTimeout
	}
	opts.SettleDelay = cfg.SettleDelay
	opts.ChromeBin = cfg.ChromeBin
	return opts
}

// Factory builds the Scraper for a recipe.
type Factory func(recipe config.Recipe) (Scraper, error)

// NewFactory returns a Factory that dispatches on the recipe's strategy.
func NewFactory(opts Options, logger *utils.Logger) Factory {
	return func(recipe config.Recipe) (Scraper, error) {
		return New(recipe, opts, logger)
	}
}

// New builds the Scraper matching recipe.Strategy.
func New(recipe config.Recipe, opts Options, logger *utils.Logger) (Scraper, error) {
	switch recipe.Strategy {
	case config.StrategyStatic:
		return NewStatic(recipe, opts, logger), nil
	case config.StrategyInteractive:
		return NewInteractive(recipe, opts, logger), nil
	default:
		return nil, fmt.Errorf("scraper: %q: %w", recipe.Strategy, config.ErrUnknownStrategy)
	}
}

// FetchError reports a failure to retrieve or navigate to a site's page.
type FetchError struct {
	Site       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): HTTP %d", e.Site, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Site, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TimeoutError reports a readiness condition that was not met in time.
type TimeoutError struct {
	Site      string
	Condition string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout %s: waiting for %s: %v", e.Site, e.Condition, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
