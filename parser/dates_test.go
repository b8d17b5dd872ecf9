package parser

import (
	"testing"
	"time"
)

var refNow = time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseMoveInDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   time.Time
		wantOK bool
	}{
		{"Available Now", day(2026, time.March, 14), true},
		{"available today!", day(2026, time.March, 14), true},
		{"Available 01/28/25", day(2025, time.January, 28), true},
		{"Available 3-1-2027", day(2027, time.March, 1), true},
		{"Move in Feb 3, 2027", day(2027, time.February, 3), true},
		{"Available September 15th 2026", day(2026, time.September, 15), true},
		{"Available February 7th", day(2026, time.February, 7), true},
		{"available aug 1st", day(2026, time.August, 1), true},
		{"no info", time.Time{}, false},
		{"", time.Time{}, false},
		{"Known for its snowy weather", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseMoveInDate(tt.raw, refNow)
		if ok != tt.wantOK || !got.Equal(tt.want) {
			t.Errorf("ParseMoveInDate(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseMoveInDateRulePrecedence(t *testing.T) {
	// "now" outranks an explicit date appearing in the same text.
	got, ok := ParseMoveInDate("Available now (listed 01/02/2026)", refNow)
	if !ok || !got.Equal(day(2026, time.March, 14)) {
		t.Errorf("got %v, %v; want today", got, ok)
	}

	// numeric beats month-name
	got, ok = ParseMoveInDate("June 1st or 07/04/2026", refNow)
	if !ok || !got.Equal(day(2026, time.July, 4)) {
		t.Errorf("got %v, %v; want 2026-07-04", got, ok)
	}
}

func TestParseMoveInDateInvalidFallsThrough(t *testing.T) {
	// month 13 is rejected, so the month-name rule gets a chance
	got, ok := ParseMoveInDate("13/45/2026 or April 2nd", refNow)
	if !ok || !got.Equal(day(2026, time.April, 2)) {
		t.Errorf("got %v, %v; want 2026-04-02", got, ok)
	}

	if _, ok := ParseMoveInDate("02/30/2026", refNow); ok {
		t.Error("Feb 30 should not parse")
	}
}
