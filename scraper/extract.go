package scraper

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"listing-tracker/config"
	"listing-tracker/models"
	"listing-tracker/parser"
)

// Selector keys understood in a recipe's selector map.
const (
	SelContainer    = "listing_container"
	SelTitle        = "title"
	SelURL          = "url"
	SelPrice        = "price"
	SelBedrooms     = "bedrooms"
	SelBathrooms    = "bathrooms"
	SelSqft         = "sqft"
	SelAvailability = "availability"
	SelDetails      = "details"
)

// defaultSelectors fill in keys a recipe leaves out. SelDetails has no default.
var defaultSelectors = map[string]string{
	SelContainer:    ".listing",
	SelTitle:        "h2",
	SelURL:          "a",
	SelPrice:        ".price",
	SelBedrooms:     ".beds",
	SelBathrooms:    ".baths",
	SelSqft:         ".sqft",
	SelAvailability: ".availability",
}

// Extract runs the selector recipe over a parsed document and returns one
// listing per container that has a title. Missing or unparseable fields are
// left nil; they never drop the listing.
func Extract(doc *goquery.Document, recipe config.Recipe, observedAt time.Time) []models.Listing {
	base, _ := url.Parse(recipe.URL)

	var listings []models.Listing
	doc.Find(selector(recipe, SelContainer)).Each(func(_ int, container *goquery.Selection) {
		if l, ok := extractListing(container, recipe, base, observedAt); ok {
			listings = append(listings, l)
		}
	})
	return listings
}

func extractListing(c *goquery.Selection, recipe config.Recipe, base *url.URL, observedAt time.Time) (models.Listing, bool) {
	title := text(c, selector(recipe, SelTitle))
	if title == "" {
		return models.Listing{}, false
	}

	l := models.NewListing(recipe.Name, title, resolveURL(c, selector(recipe, SelURL), recipe.URL, base), observedAt)

	if raw := text(c, selector(recipe, SelPrice)); raw != "" {
		l.Price = parser.FloatPtr(parser.ParsePrice(raw))
	}

	details := ""
	if sel := recipe.Selectors[SelDetails]; sel != "" {
		details = text(c, sel)
	}
	if details != "" {
		d := parser.ParseCombinedDetails(details)
		l.Bedrooms, l.Bathrooms, l.Sqft = d.Bedrooms, d.Bathrooms, d.Sqft
	} else {
		if raw := text(c, selector(recipe, SelBedrooms)); raw != "" {
			l.Bedrooms = parser.IntPtr(parser.ParseInt(raw))
		}
		if raw := text(c, selector(recipe, SelBathrooms)); raw != "" {
			l.Bathrooms = parser.FloatPtr(parser.ParseFloat(raw))
		}
		if raw := text(c, selector(recipe, SelSqft)); raw != "" {
			l.Sqft = parser.IntPtr(parser.ParseInt(raw))
		}
	}

	if raw := text(c, selector(recipe, SelAvailability)); raw != "" {
		lower := strings.ToLower(raw)
		l.Available = !strings.Contains(lower, "unavailable") && !strings.Contains(lower, "not available")
		if d, ok := parser.ParseMoveInDate(raw, observedAt); ok {
			l.MoveInDate = &d
		}
	}

	return l, true
}

func selector(recipe config.Recipe, key string) string {
	if sel := recipe.Selectors[key]; sel != "" {
		return sel
	}
	return defaultSelectors[key]
}

// text returns the whitespace-collapsed text of the first match of sel
// within c, or "" when nothing matches.
func text(c *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	match := c.Find(sel).First()
	if match.Length() == 0 {
		return ""
	}
	return normaliseText(match.Text())
}

// resolveURL returns the link target of sel, made absolute against base.
// Listings without a link fall back to the page URL.
func resolveURL(c *goquery.Selection, sel, pageURL string, base *url.URL) string {
	href, ok := c.Find(sel).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return pageURL
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
