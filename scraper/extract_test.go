package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-tracker/config"
	"listing-tracker/models"
)

const unitsPage = `<html><body>
<div class="unit">
  <h3 class="name">Unit 101</h3>
  <a class="link" href="/units/101">View</a>
  <span class="rent">$1,500/mo</span>
  <span class="details">1 bed 1 bath 803 sq. ft.</span>
  <span class="avail">Available 01/28/25</span>
</div>
<div class="unit">
  <h3 class="name">  Unit
     202 </h3>
  <a class="link" href="https://other.example.com/202">View</a>
  <span class="rent">Call for pricing</span>
  <span class="avail">Not Available</span>
</div>
<div class="unit">
  <span class="rent">$900</span>
</div>
<div class="unit">
  <h3 class="name">Unit 303</h3>
  <span class="beds">3 beds</span>
  <span class="baths">2.5 baths</span>
  <span class="sqft">1240 sqft</span>
</div>
</body></html>`

func unitsRecipe() config.Recipe {
	return config.Recipe{
		Name:     "Oak Park",
		URL:      "https://oakpark.example.com/floorplans/",
		Strategy: config.StrategyStatic,
		Selectors: map[string]string{
			SelContainer:    ".unit",
			SelTitle:        ".name",
			SelURL:          "a.link",
			SelPrice:        ".rent",
			SelDetails:      ".details",
			SelAvailability: ".avail",
		},
	}
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract(t *testing.T) {
	observed := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	listings := Extract(parseDoc(t, unitsPage), unitsRecipe(), observed)

	// the title-less container is dropped
	require.Len(t, listings, 3)

	first := listings[0]
	assert.Equal(t, "Unit 101", first.Title)
	assert.Equal(t, "https://oakpark.example.com/units/101", first.URL)
	assert.Equal(t, models.Fingerprint("Oak Park", "Unit 101", first.URL), first.Fingerprint)
	require.NotNil(t, first.Price)
	assert.Equal(t, 1500.0, *first.Price)
	require.NotNil(t, first.Bedrooms)
	assert.Equal(t, 1, *first.Bedrooms)
	require.NotNil(t, first.Bathrooms)
	assert.Equal(t, 1.0, *first.Bathrooms)
	require.NotNil(t, first.Sqft)
	assert.Equal(t, 803, *first.Sqft)
	assert.True(t, first.Available)
	require.NotNil(t, first.MoveInDate)
	assert.Equal(t, "2025-01-28", first.MoveInDate.Format("2006-01-02"))
	assert.Equal(t, observed, first.ObservedAt)

	second := listings[1]
	assert.Equal(t, "Unit 202", second.Title)
	assert.Equal(t, "https://other.example.com/202", second.URL)
	assert.Nil(t, second.Price)
	assert.False(t, second.Available)
	assert.Nil(t, second.MoveInDate)
	assert.Nil(t, second.Bedrooms)

	// no details text, so the individual selectors are used; no link falls back to the page URL
	third := listings[2]
	assert.Equal(t, "https://oakpark.example.com/floorplans/", third.URL)
	require.NotNil(t, third.Bedrooms)
	assert.Equal(t, 3, *third.Bedrooms)
	require.NotNil(t, third.Bathrooms)
	assert.Equal(t, 2.5, *third.Bathrooms)
	require.NotNil(t, third.Sqft)
	assert.Equal(t, 1240, *third.Sqft)
}

func TestExtractDefaultSelectors(t *testing.T) {
	html := `<div class="listing"><h2>Loft A</h2><a href="loft-a">x</a><p class="price">$2,000</p>
<p class="availability">Available now</p></div>`

	recipe := config.Recipe{Name: "Lofts", URL: "https://lofts.example.com/list/index.html"}
	observed := time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC)
	listings := Extract(parseDoc(t, html), recipe, observed)

	require.Len(t, listings, 1)
	assert.Equal(t, "https://lofts.example.com/list/loft-a", listings[0].URL)
	require.NotNil(t, listings[0].Price)
	assert.Equal(t, 2000.0, *listings[0].Price)
	require.NotNil(t, listings[0].MoveInDate)
	assert.Equal(t, "2026-05-02", listings[0].MoveInDate.Format("2006-01-02"))
}

func TestExtractNoContainers(t *testing.T) {
	listings := Extract(parseDoc(t, "<html><body><p>Nothing here</p></body></html>"), unitsRecipe(), time.Now())
	assert.Empty(t, listings)
}
