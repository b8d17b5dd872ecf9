// Package parser turns noisy text fragments scraped from listing pages into
// typed values. Every function is best-effort: malformed input yields
// ok == false (or nil), never an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// nonPriceChars matches everything except digits and the decimal point
	nonPriceChars = regexp.MustCompile(`[^\d.]`)
	intRegexp     = regexp.MustCompile(`\d+`)
	floatRegexp   = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

	// Units end at a non-letter or end of text, so glued forms such as
	// "2beds1bath" still match.
	bedsRegexp  = regexp.MustCompile(`(?i)(\d+)\s*(?:bedrooms?|beds?|br)(?:[^a-z]|$)`)
	bathsRegexp = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bathrooms?|baths?|ba)(?:[^a-z]|$)`)
	sqftRegexp  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+)\s*(?:sq\.?\s*f(?:ee)?t|sqft|sf)(?:[^a-z]|$)`)
)

// ParsePrice strips every character that is not a digit or '.', then parses
// the remainder: "$1,500/mo" → 1500.
func ParsePrice(text string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseInt returns the first run of digits in text.
func ParseInt(text string) (int, bool) {
	match := intRegexp.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloat returns the first run of digits with at most one decimal point.
func ParseFloat(text string) (float64, bool) {
	match := floatRegexp.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Details is the result of ParseCombinedDetails. Each field is nil when its
// pattern was not found.
type Details struct {
	Bedrooms  *int
	Bathrooms *float64
	Sqft      *int
}

// ParseCombinedDetails pulls bedrooms, bathrooms and square footage out of a
// single summary line such as "1 bed 1 bath 803 sq. ft.".
func ParseCombinedDetails(text string) Details {
	var d Details

	if m := bedsRegexp.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			d.Bedrooms = &v
		}
	}

	if m := bathsRegexp.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.Bathrooms = &v
		}
	}

	if m := sqftRegexp.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d.Sqft = &v
		}
	}

	return d
}

// IntPtr converts an (int, ok) pair into an optional value.
func IntPtr(v int, ok bool) *int {
	if !ok {
		return nil
	}
	return &v
}

// FloatPtr converts a (float64, ok) pair into an optional value.
func FloatPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
