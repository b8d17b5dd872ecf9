package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	nowRegexp          = regexp.MustCompile(`(?i)\b(?:now|today)\b`)
	numericDateRegexp  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	monthDayYearRegexp = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	monthOrdinalRegexp = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// dateRule attempts one recognition pattern. It reports ok == false when the
// pattern does not match or matches an impossible calendar date.
type dateRule func(text string, now time.Time) (time.Time, bool)

// moveInRules are tried in order; the first match wins.
var moveInRules = []dateRule{
	matchNow,
	matchNumericDate,
	matchMonthDayYear,
	matchMonthOrdinal,
}

// ParseMoveInDate recognises a move-in date in availability text such as
// "Available Now", "Available 01/28/25" or "Available February 7th".
// now supplies both "today" and the default year.
func ParseMoveInDate(text string, now time.Time) (time.Time, bool) {
	for _, rule := range moveInRules {
		if d, ok := rule(text, now); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func matchNow(text string, now time.Time) (time.Time, bool) {
	if !nowRegexp.MatchString(text) {
		return time.Time{}, false
	}
	return dateOf(now.Year(), now.Month(), now.Day(), now.Location())
}

func matchNumericDate(text string, now time.Time) (time.Time, bool) {
	for _, m := range numericDateRegexp.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if d, ok := dateOf(year, time.Month(month), day, now.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func matchMonthDayYear(text string, now time.Time) (time.Time, bool) {
	for _, m := range monthDayYearRegexp.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := dateOf(year, monthOf(m[1]), day, now.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func matchMonthOrdinal(text string, now time.Time) (time.Time, bool) {
	for _, m := range monthOrdinalRegexp.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[2])
		if d, ok := dateOf(now.Year(), monthOf(m[1]), day, now.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func monthOf(name string) time.Month {
	return months[strings.ToLower(name)[:3]]
}

// dateOf builds midnight of the given day, rejecting dates that time.Date
// would normalise (month 13, Feb 30, ...).
func dateOf(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
