package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy names the extraction approach a site needs.
type Strategy string

const (
	StrategyStatic      Strategy = "static"
	StrategyInteractive Strategy = "interactive"
)

const defaultClickWaitMs = 2000

// Recipe validation errors.
var (
	ErrNoSites              = errors.New("at least one site is required")
	ErrSiteMissingName      = errors.New("site name is required")
	ErrSiteMissingURL       = errors.New("site url is required")
	ErrDuplicateSite        = errors.New("site names must be unique")
	ErrUnknownStrategy      = errors.New("strategy must be 'static' or 'interactive'")
	ErrClickMissingSelector = errors.New("click_each.selector is required")
	ErrStaticInteraction    = errors.New("wait_for and click_each require the interactive strategy")
)

// ClickEach clicks every element matching Selector in turn, waiting
// WaitAfterMs after each click before extracting.
type ClickEach struct {
	Selector    string `yaml:"selector"`
	WaitAfterMs int    `yaml:"wait_after_ms"`
}

// Recipe describes how to extract listings from one site.
type Recipe struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	Strategy  Strategy          `yaml:"strategy"`
	Selectors map[string]string `yaml:"selectors"`
	WaitFor   string            `yaml:"wait_for"`
	ClickEach *ClickEach        `yaml:"click_each"`

	// LegacyType accepts the older "scraper_type: playwright|static" key.
	LegacyType string `yaml:"scraper_type"`
}

// SitesFile is the on-disk layout of the recipes file.
type SitesFile struct {
	Sites []Recipe `yaml:"sites"`
}

// LoadSites reads and validates the recipes file at path.
func LoadSites(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read sites %q: %w", path, err)
	}
	return ParseSites(data)
}

// ParseSites decodes recipes from YAML, applies defaults and validates them.
func ParseSites(data []byte) ([]Recipe, error) {
	var file SitesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse sites: %w", err)
	}

	for i := range file.Sites {
		file.Sites[i].applyDefaults()
	}

	if err := ValidateSites(file.Sites); err != nil {
		return nil, err
	}
	return file.Sites, nil
}

func (r *Recipe) applyDefaults() {
	if r.Strategy == "" {
		switch strings.ToLower(r.LegacyType) {
		case "playwright", "interactive":
			r.Strategy = StrategyInteractive
		default:
			r.Strategy = StrategyStatic
		}
	}
	r.Strategy = Strategy(strings.ToLower(string(r.Strategy)))
	if r.Selectors == nil {
		r.Selectors = map[string]string{}
	}
	if r.ClickEach != nil && r.ClickEach.WaitAfterMs <= 0 {
		r.ClickEach.WaitAfterMs = defaultClickWaitMs
	}
}

// ValidateSites checks every recipe and the set as a whole.
func ValidateSites(sites []Recipe) error {
	if len(sites) == 0 {
		return ErrNoSites
	}

	seen := make(map[string]struct{}, len(sites))
	for i, s := range sites {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sites[%d]: %w", i, err)
		}
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sites[%d] %q: %w", i, s.Name, ErrDuplicateSite)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Validate checks a single recipe.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrSiteMissingName
	}
	if strings.TrimSpace(r.URL) == "" {
		return ErrSiteMissingURL
	}
	switch r.Strategy {
	case StrategyStatic:
		if r.WaitFor != "" || r.ClickEach != nil {
			return ErrStaticInteraction
		}
	case StrategyInteractive:
	default:
		return ErrUnknownStrategy
	}
	if r.ClickEach != nil && strings.TrimSpace(r.ClickEach.Selector) == "" {
		return ErrClickMissingSelector
	}
	return nil
}

// FindSite looks a recipe up by name, case-insensitively.
func FindSite(sites []Recipe, name string) (Recipe, bool) {
	for _, s := range sites {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Recipe{}, false
}
