package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/utils"
)

// Interactive scrapes client-rendered sites in headless Chrome. An instance
// owns one browser process for its lifetime and opens a fresh tab per
// Scrape. Close must be called to release the browser.
type Interactive struct {
	recipe config.Recipe
	opts   Options
	logger *utils.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closed        bool
}

// NewInteractive creates an Interactive scraper. The browser is started
// lazily by the first Scrape.
func NewInteractive(recipe config.Recipe, opts Options, logger *utils.Logger) *Interactive {
	return &Interactive{recipe: recipe, opts: opts, logger: logger}
}

// Scrape loads the page, waits for it to settle and extracts listings. With
// a click_each directive it clicks each matching element in order and
// extracts after every click, keeping the first occurrence of each listing.
func (s *Interactive) Scrape(ctx context.Context) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := s.start(ctx); err != nil {
		return nil, err
	}

	tabCtx, closeTab := chromedp.NewContext(s.browserCtx)
	defer closeTab()
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	// Attach the tab before deriving timeouts so an expired timeout aborts
	// only the action, not the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("interactive: open tab for %s: %w", s.recipe.Name, err)
	}

	if err := s.load(tabCtx); err != nil {
		return nil, err
	}

	if s.recipe.ClickEach == nil {
		return s.snapshot(tabCtx)
	}
	return s.clickThrough(tabCtx)
}

// Close shuts the browser down. It is safe to call more than once and on an
// instance that never started a browser.
func (s *Interactive) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	var err error
	if s.browserCtx != nil {
		err = chromedp.Cancel(s.browserCtx)
		s.browserCtx = nil
	}
	if s.cancelBrowser != nil {
		s.cancelBrowser()
		s.cancelBrowser = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("interactive: close browser: %w", err)
	}
	return nil
}

func (s *Interactive) start(ctx context.Context) error {
	if s.browserCtx != nil {
		return nil
	}

	chromeBin := resolveChromeBinary(s.opts.ChromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.opts.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// First Run on the browser context launches the process. A context
	// derived from browserCtx would kill the browser when it expires, so the
	// launch is bounded by a timer instead.
	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(browserCtx) }()

	timer := time.NewTimer(s.opts.PageLoadTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-launched:
		if err != nil {
			err = fmt.Errorf("interactive: start browser: %w", err)
		}
	case <-timer.C:
		err = &TimeoutError{Site: s.recipe.Name, Condition: "browser start", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		err = fmt.Errorf("interactive: start browser: %w", ctx.Err())
	}
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return err
	}

	s.logger.Debug("[interactive] %s: browser started (%s)", s.recipe.Name, chromeBin)
	s.browserCtx, s.cancelAlloc, s.cancelBrowser = browserCtx, cancelAlloc, cancelBrowser
	return nil
}

// load navigates, waits for the readiness selector and lets async content settle.
func (s *Interactive) load(tabCtx context.Context) error {
	s.logger.Debug("[interactive] %s: navigating to %s", s.recipe.Name, s.recipe.URL)

	if err := s.runBounded(tabCtx, s.opts.PageLoadTimeout, "page load", chromedp.Navigate(s.recipe.URL)); err != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			return err
		}
		return &FetchError{Site: s.recipe.Name, URL: s.recipe.URL, Err: err}
	}

	if s.recipe.WaitFor != "" {
		cond := "selector " + s.recipe.WaitFor
		if err := s.runBounded(tabCtx, s.opts.WaitForTimeout, cond, chromedp.WaitReady(s.recipe.WaitFor, chromedp.ByQuery)); err != nil {
			return err
		}
	}

	return sleep(tabCtx, s.opts.SettleDelay)
}

func (s *Interactive) clickThrough(tabCtx context.Context) ([]models.Listing, error) {
	sel := s.recipe.ClickEach.Selector
	wait := time.Duration(s.recipe.ClickEach.WaitAfterMs) * time.Millisecond

	var nodes []*cdp.Node
	if err := s.runBounded(tabCtx, s.opts.WaitForTimeout, "click targets "+sel,
		chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	s.logger.Debug("[interactive] %s: %d click targets for %q", s.recipe.Name, len(nodes), sel)

	click := func(i int) error {
		cond := fmt.Sprintf("click %d/%d on %s", i+1, len(nodes), sel)
		if err := s.runBounded(tabCtx, s.opts.WaitForTimeout, cond, chromedp.MouseClickNode(nodes[i])); err != nil {
			var te *TimeoutError
			if errors.As(err, &te) {
				return err
			}
			return fmt.Errorf("interactive: %s: %s: %w", s.recipe.Name, cond, err)
		}
		return nil
	}
	snap := func() ([]models.Listing, error) { return s.snapshot(tabCtx) }

	return clickEach(tabCtx, len(nodes), wait, click, snap)
}

// clickEach clicks targets 0..n-1 in order, waits after each click and
// snapshots the page, merging the snapshots with mergeUnique. A failed
// click fails the whole pass.
func clickEach(ctx context.Context, n int, wait time.Duration, click func(i int) error, snap func() ([]models.Listing, error)) ([]models.Listing, error) {
	batches := make([][]models.Listing, 0, n)
	for i := 0; i < n; i++ {
		if err := click(i); err != nil {
			return nil, err
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		batch, err := snap()
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return mergeUnique(batches...), nil
}

// snapshot serialises the current DOM and runs the extractor over it.
func (s *Interactive) snapshot(tabCtx context.Context) ([]models.Listing, error) {
	var html string
	if err := s.runBounded(tabCtx, s.opts.WaitForTimeout, "document", chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("interactive: parse %s: %w", s.recipe.Name, err)
	}
	return Extract(doc, s.recipe, time.Now()), nil
}

// runBounded runs actions under timeout, reporting an expired bound as a TimeoutError.
func (s *Interactive) runBounded(tabCtx context.Context, timeout time.Duration, cond string, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && tabCtx.Err() == nil {
		return &TimeoutError{Site: s.recipe.Name, Condition: cond, Err: err}
	}
	return err
}

// mergeUnique concatenates batches, keeping the first listing seen for each fingerprint.
func mergeUnique(batches ...[]models.Listing) []models.Listing {
	seen := utils.NewFingerprintSet()
	var out []models.Listing
	for _, batch := range batches {
		for _, l := range batch {
			if seen.Add(l.Fingerprint) {
				out = append(out, l)
			}
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
