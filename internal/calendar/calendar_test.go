package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestLogicalDate(t *testing.T) {
	c := Calendar{Location: time.UTC, CutoffHour: 6}
	tests := []struct {
		t    time.Time
		want string
	}{
		{at(2024, 3, 5, 2, 0), "2024-03-04"},
		{at(2024, 3, 5, 5, 59), "2024-03-04"},
		{at(2024, 3, 5, 6, 0), "2024-03-05"},
		{at(2024, 3, 5, 23, 59), "2024-03-05"},
		{at(2024, 3, 1, 0, 30), "2024-02-29"},
	}
	for _, tt := range tests {
		if got := c.LogicalDate(tt.t); got != tt.want {
			t.Errorf("LogicalDate(%v) = %s, want %s", tt.t, got, tt.want)
		}
	}
}

func TestCutoffAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	c := Calendar{Location: ny, CutoffHour: 6}
	local := func(m time.Month, d, h, min int) time.Time {
		return time.Date(2026, m, d, h, min, 0, 0, ny)
	}

	tests := []struct {
		name    string
		t       time.Time
		cutoff  time.Time
		logical string
	}{
		// Clocks jump from 02:00 EST to 03:00 EDT.
		{"spring forward before", local(3, 8, 5, 59), local(3, 8, 6, 0), "2026-03-07"},
		{"spring forward after", local(3, 8, 6, 30), local(3, 8, 6, 0), "2026-03-08"},
		// Clocks fall back from 02:00 EDT to 01:00 EST.
		{"fall back before", local(11, 1, 5, 30), local(11, 1, 6, 0), "2026-10-31"},
		{"fall back after", local(11, 1, 6, 0), local(11, 1, 6, 0), "2026-11-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Cutoff(tt.t)
			if !got.Equal(tt.cutoff) || got.Hour() != 6 {
				t.Errorf("Cutoff = %v, want %v", got, tt.cutoff)
			}
			if got := c.LogicalDate(tt.t); got != tt.logical {
				t.Errorf("LogicalDate = %s, want %s", got, tt.logical)
			}
		})
	}
}

func TestStartOfWeek(t *testing.T) {
	c := Calendar{Location: time.UTC}
	tests := []struct {
		t    time.Time
		want time.Time
	}{
		{at(2024, 3, 4, 12, 0), at(2024, 3, 4, 0, 0)},  // Monday
		{at(2024, 3, 10, 23, 0), at(2024, 3, 4, 0, 0)}, // Sunday
		{at(2024, 3, 6, 1, 0), at(2024, 3, 4, 0, 0)},   // Wednesday
	}
	for _, tt := range tests {
		if got := c.StartOfWeek(tt.t); !got.Equal(tt.want) {
			t.Errorf("StartOfWeek(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestDateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	c := Calendar{Location: loc}
	// 22:30 UTC is already the next day at UTC+3.
	if got := c.Date(at(2024, 3, 4, 22, 30)); got != "2024-03-05" {
		t.Fatalf("got %s", got)
	}
}

func TestFixedClock(t *testing.T) {
	now := at(2024, 3, 4, 9, 0)
	c := Fixed(now)
	if !c.Now().Equal(now) {
		t.Fatalf("expected %v, got %v", now, c.Now())
	}
	if c.Today() != "2024-03-04" {
		t.Fatalf("unexpected today %s", c.Today())
	}
}

func TestDays(t *testing.T) {
	c := Calendar{Location: time.UTC}
	got := c.Days(at(2024, 3, 2, 10, 0), 3)
	want := []string{"2024-02-29", "2024-03-01", "2024-03-02"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Days = %v, want %v", got, want)
		}
	}
}

func TestZeroValueDefaults(t *testing.T) {
	var c Calendar
	if c.cutoff() != DefaultCutoffHour {
		t.Fatalf("expected default cutoff, got %d", c.cutoff())
	}
	if c.Now().IsZero() {
		t.Fatal("expected wall clock")
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	c := Calendar{Location: loc}
	got, err := c.ParseDate("2024-03-05")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)) {
		t.Fatalf("ParseDate = %v", got)
	}
	if c.Date(got) != "2024-03-05" {
		t.Fatalf("round trip = %q", c.Date(got))
	}
	if _, err := c.ParseDate("03/05/2024"); err == nil {
		t.Fatal("expected error for bad layout")
	}
}
