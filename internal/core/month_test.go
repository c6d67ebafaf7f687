package core

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want Month
		ok   bool
	}{
		{"2025-06", Month{2025, time.June}, true},
		{"1999-12", Month{1999, time.December}, true},
		{"2025-6", Month{}, false},
		{"13-2025", Month{}, false},
		{"2025-13", Month{}, false},
		{"2025-00", Month{}, false},
		{"2025-06-01", Month{}, false},
		{" 2025-06", Month{}, false},
		{"", Month{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseMonth(%q) unexpected error: %v", tt.in, err)
				}
				if got != tt.want {
					t.Fatalf("ParseMonth(%q) = %v, want %v", tt.in, got, tt.want)
				}
				if got.String() != tt.in {
					t.Fatalf("String() = %q, want %q", got.String(), tt.in)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseMonth(%q) expected error", tt.in)
			}
			if !IsValidation(err) {
				t.Fatalf("ParseMonth(%q) error %v is not a validation error", tt.in, err)
			}
		})
	}
}

func TestMonthDayInClamps(t *testing.T) {
	tests := []struct {
		name   string
		month  string
		anchor int
		want   string
	}{
		{"31 in february", "2025-02", 31, "2025-02-28"},
		{"30 in february", "2025-02", 30, "2025-02-28"},
		{"31 in leap february", "2024-02", 31, "2024-02-29"},
		{"31 in april", "2025-04", 31, "2025-04-30"},
		{"31 in january", "2025-01", 31, "2025-01-31"},
		{"15 anywhere", "2025-11", 15, "2025-11-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseMonth(tt.month).DayIn(tt.anchor).Format("2006-01-02")
			if got != tt.want {
				t.Errorf("DayIn(%d) = %s, want %s", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestMonthOrderingAndNavigation(t *testing.T) {
	may, jun := MustParseMonth("2025-05"), MustParseMonth("2025-06")
	if !may.Before(jun) || !jun.After(may) || may.Equal(jun) {
		t.Fatalf("ordering broken for %v and %v", may, jun)
	}
	if may.Next() != jun || jun.Prev() != may {
		t.Fatalf("navigation broken: next=%v prev=%v", may.Next(), jun.Prev())
	}
	dec := MustParseMonth("2024-12")
	if dec.Next() != MustParseMonth("2025-01") {
		t.Fatalf("year rollover broken: %v", dec.Next())
	}
	if got := CurrentMonth(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)); got != MustParseMonth("2025-03") {
		t.Fatalf("CurrentMonth = %v", got)
	}
}
