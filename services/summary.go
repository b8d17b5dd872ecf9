package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"listing-tracker/models"
	"listing-tracker/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate computes a RunReport for run. totalTracked is the store's
// listing count after the run.
func (s *SummaryService) Generate(run *models.RunResult, totalTracked int) *models.RunReport {
	report := &models.RunReport{
		NewBySite:     make(map[string]int),
		RemovedBySite: make(map[string]int),
		TotalTracked:  totalTracked,
	}
	if run == nil {
		return report
	}

	report.Duration = run.FinishedAt.Sub(run.StartedAt)
	for _, site := range run.Sites {
		if site.Err != nil {
			report.SitesFailed++
			continue
		}
		report.SitesScraped++
	}

	report.NewListings = len(run.New)
	report.Removed = len(run.Removed)
	for _, l := range run.Removed {
		report.RemovedBySite[l.SiteName]++
	}

	// Price stats over new listings with a known price
	var total float64
	var priced int
	for i := range run.New {
		l := &run.New[i]
		report.NewBySite[l.SiteName]++
		if l.Price == nil || *l.Price <= 0 {
			continue
		}
		price := *l.Price
		if priced == 0 || price < report.MinPrice {
			report.MinPrice = price
			report.Cheapest = l
		}
		if price > report.MaxPrice {
			report.MaxPrice = price
		}
		total += price
		priced++
	}
	if priced > 0 {
		report.AveragePrice = round2(total / float64(priced))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[summary] %d sites ok, %d failed, %d new, %d delisted",
		report.SitesScraped, report.SitesFailed, report.NewListings, report.Removed)
	return report
}

// Print renders r to w as a terminal report.
func (s *SummaryService) Print(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  SCRAPE RUN SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Sites scraped          : \033[1m%d\033[0m\n", r.SitesScraped)
	fmt.Fprintf(w, "  Sites failed           : \033[1m%d\033[0m\n", r.SitesFailed)
	fmt.Fprintf(w, "  New listings           : \033[1;32m%d\033[0m\n", r.NewListings)
	fmt.Fprintf(w, "  Delisted               : \033[1;31m%d\033[0m\n", r.Removed)
	fmt.Fprintf(w, "  Total listings tracked : \033[1m%d\033[0m\n", r.TotalTracked)
	fmt.Fprintf(w, "  Duration               : %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  New Listing Prices (per month)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest New Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Cheapest.Title, 50))
		fmt.Fprintf(w, "  Site  : %s\n", r.Cheapest.SiteName)
		fmt.Fprintf(w, "  Price : \033[1;32m$%.2f/mo\033[0m\n", *r.Cheapest.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Changes by Site\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	sites := changedSites(r)
	if len(sites) == 0 {
		fmt.Fprintf(w, "  No changes\n")
	}
	for _, site := range sites {
		fmt.Fprintf(w, "  %-30s \033[32m+%d\033[0m \033[31m-%d\033[0m\n",
			truncate(site, 28), r.NewBySite[site], r.RemovedBySite[site])
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// changedSites lists sites with any change, most new listings first.
func changedSites(r *models.RunReport) []string {
	seen := make(map[string]struct{})
	var sites []string
	for _, m := range []map[string]int{r.NewBySite, r.RemovedBySite} {
		for site := range m {
			if _, ok := seen[site]; !ok {
				seen[site] = struct{}{}
				sites = append(sites, site)
			}
		}
	}
	sort.Slice(sites, func(i, j int) bool {
		if r.NewBySite[sites[i]] != r.NewBySite[sites[j]] {
			return r.NewBySite[sites[i]] > r.NewBySite[sites[j]]
		}
		return sites[i] < sites[j]
	})
	return sites
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
