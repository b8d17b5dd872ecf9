package scraper

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/utils"
)

// Static scrapes sites whose listings are present in the served markup.
// No JavaScript is executed.
type Static struct {
	recipe config.Recipe
	client *resty.Client
	logger *utils.Logger
}

// NewStatic creates a Static scraper with its own HTTP client.
func NewStatic(recipe config.Recipe, opts Options, logger *utils.Logger) *Static {
	client := resty.New().
		SetTimeout(opts.HTTPTimeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Static{recipe: recipe, client: client, logger: logger}
}

// Scrape fetches the page once and extracts its listings.
func (s *Static) Scrape(ctx context.Context) ([]models.Listing, error) {
	s.logger.Debug("[static] %s: GET %s", s.recipe.Name, s.recipe.URL)

	resp, err := s.client.R().SetContext(ctx).Get(s.recipe.URL)
	if err != nil {
		return nil, &FetchError{Site: s.recipe.Name, URL: s.recipe.URL, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{Site: s.recipe.Name, URL: s.recipe.URL, StatusCode: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("static: parse %s: %w", s.recipe.Name, err)
	}

	listings := Extract(doc, s.recipe, time.Now())
	s.logger.Debug("[static] %s: extracted %d listings", s.recipe.Name, len(listings))
	return listings, nil
}

// Close releases idle HTTP connections.
func (s *Static) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}
