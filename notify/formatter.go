// Package notify formats scrape outcomes as Telegram HTML messages and
// delivers them through the Bot API.
package notify

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"listing-tracker/models"
)

// FormatListing renders one listing as a multi-line block.
func FormatListing(l models.Listing) string {
	lines := []string{"<b>" + html.EscapeString(l.Title) + "</b>"}

	if p := price(l); p != "" {
		lines = append(lines, "Price: "+p)
	}
	if d := details(l); d != "" {
		lines = append(lines, d)
	}
	if l.MoveInDate != nil {
		lines = append(lines, "Available: "+l.MoveInDate.Format("2006-01-02"))
	}
	if !l.Available {
		lines = append(lines, "<i>Currently unavailable</i>")
	}
	lines = append(lines, html.EscapeString(l.URL))

	return strings.Join(lines, "\n")
}

// FormatScrapeSummary renders new and delisted listings. site may be empty
// for a run over all sites.
func FormatScrapeSummary(added, removed []models.Listing, site string) string {
	var lines []string

	if site != "" {
		lines = append(lines, "<b>Scrape Complete - "+html.EscapeString(site)+"</b>", "")
	} else {
		lines = append(lines, "<b>Scrape Complete</b>", "")
	}

	if len(added) > 0 {
		lines = append(lines, fmt.Sprintf("<b>%d New Listing(s):</b>", len(added)), "")
		for i, l := range added {
			lines = append(lines, fmt.Sprintf("<b>%d.</b> %s", i+1, FormatListing(l)), "")
		}
	} else {
		lines = append(lines, "<i>No new listings found.</i>", "")
	}

	if len(removed) > 0 {
		lines = append(lines, fmt.Sprintf("<b>%d Delisted (no longer available):</b>", len(removed)), "")
		for _, l := range removed {
			lines = append(lines, "• [DELISTED] "+html.EscapeString(l.Title))
			if p := price(l); p != "" {
				lines = append(lines, "  Was: "+p)
			}
			if d := details(l); d != "" {
				lines = append(lines, "  "+d)
			}
			if l.MoveInDate != nil {
				lines = append(lines, "  Was available: "+l.MoveInDate.Format("2006-01-02"))
			}
			lines = append(lines, "  "+html.EscapeString(l.URL), "")
		}
	}

	return strings.Join(lines, "\n")
}

// FormatListingsBySite groups listings under their site, keeping the order
// in which sites first appear.
func FormatListingsBySite(listings []models.Listing) string {
	if len(listings) == 0 {
		return "No listings tracked yet. Run a scrape first."
	}

	var order []string
	bySite := make(map[string][]models.Listing)
	for _, l := range listings {
		if _, ok := bySite[l.SiteName]; !ok {
			order = append(order, l.SiteName)
		}
		bySite[l.SiteName] = append(bySite[l.SiteName], l)
	}

	lines := []string{fmt.Sprintf("<b>%d Total Listing(s)</b>", len(listings)), ""}
	for _, site := range order {
		ls := bySite[site]
		lines = append(lines, fmt.Sprintf("<b>From %s:</b> (%d)", html.EscapeString(site), len(ls)), "")
		for i, l := range ls {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, FormatListing(l)), "")
		}
	}
	return strings.Join(lines, "\n")
}

// FormatSiteList renders the configured site names.
func FormatSiteList(names []string) string {
	if len(names) == 0 {
		return "No sites configured."
	}

	lines := []string{"<b>Configured Sites:</b>", ""}
	for _, n := range names {
		lines = append(lines, "- "+html.EscapeString(n))
	}
	return strings.Join(lines, "\n")
}

// FormatStatus renders tracker totals. lastRun is omitted when zero.
func FormatStatus(totalSites, totalListings int, lastRun time.Time) string {
	lines := []string{
		"<b>Listing Tracker Status</b>",
		"",
		fmt.Sprintf("Sites configured: %d", totalSites),
		fmt.Sprintf("Total listings tracked: %d", totalListings),
	}
	if !lastRun.IsZero() {
		lines = append(lines, "Last scrape: "+lastRun.Format("2006-01-02 15:04:05"))
	}
	return strings.Join(lines, "\n")
}

func price(l models.Listing) string {
	if l.Price == nil || *l.Price == 0 {
		return ""
	}
	return "$" + humanize.Comma(int64(math.Round(*l.Price))) + "/mo"
}

func details(l models.Listing) string {
	var parts []string
	if l.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d bed", *l.Bedrooms))
	}
	if l.Bathrooms != nil {
		parts = append(parts, fmt.Sprintf("%.1f bath", *l.Bathrooms))
	}
	if l.Sqft != nil && *l.Sqft > 0 {
		parts = append(parts, humanize.Comma(int64(*l.Sqft))+" sqft")
	}
	return strings.Join(parts, " | ")
}
