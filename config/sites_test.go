package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSites = `
sites:
  - name: Oak Park Lofts
    url: https://oakpark.example.com/floorplans
    strategy: static
    selectors:
      listing_container: .unit
      title: .unit-name
      price: .rent
      details: .unit-details
  - name: Harbor View
    url: https://harborview.example.com/availability
    scraper_type: playwright
    wait_for: .floorplan-card
    selectors:
      listing_container: .floorplan-card
    click_each:
      selector: .tab-button
`

func TestParseSites(t *testing.T) {
	sites, err := ParseSites([]byte(sampleSites))
	require.NoError(t, err)
	require.Len(t, sites, 2)

	assert.Equal(t, StrategyStatic, sites[0].Strategy)
	assert.Equal(t, ".unit-details", sites[0].Selectors["details"])
	assert.Nil(t, sites[0].ClickEach)

	assert.Equal(t, StrategyInteractive, sites[1].Strategy)
	assert.Equal(t, ".floorplan-card", sites[1].WaitFor)
	require.NotNil(t, sites[1].ClickEach)
	assert.Equal(t, ".tab-button", sites[1].ClickEach.Selector)
	assert.Equal(t, 2000, sites[1].ClickEach.WaitAfterMs)
}

func TestParseSitesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"empty", "sites: []", ErrNoSites},
		{"missing name", "sites:\n  - url: https://a.example\n", ErrSiteMissingName},
		{"missing url", "sites:\n  - name: a\n", ErrSiteMissingURL},
		{"bad strategy", "sites:\n  - name: a\n    url: https://a.example\n    strategy: ftp\n", ErrUnknownStrategy},
		{"duplicate", "sites:\n  - name: a\n    url: https://a.example\n  - name: A\n    url: https://b.example\n", ErrDuplicateSite},
		{"static wait", "sites:\n  - name: a\n    url: https://a.example\n    wait_for: .x\n", ErrStaticInteraction},
		{"click without selector", "sites:\n  - name: a\n    url: https://a.example\n    strategy: interactive\n    click_each:\n      wait_after_ms: 10\n", ErrClickMissingSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSites([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadSitesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSites), 0o644))

	sites, err := LoadSites(path)
	require.NoError(t, err)

	r, ok := FindSite(sites, "harbor view")
	require.True(t, ok)
	assert.Equal(t, "Harbor View", r.Name)

	_, ok = FindSite(sites, "nowhere")
	assert.False(t, ok)
}

func TestDailyCron(t *testing.T) {
	expr, err := DailyCron("09:30")
	require.NoError(t, err)
	assert.Equal(t, "30 9 * * *", expr)

	for _, bad := range []string{"9", "24:00", "12:60", "aa:bb"} {
		_, err := DailyCron(bad)
		assert.Error(t, err, bad)
	}
}
