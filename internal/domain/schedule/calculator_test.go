package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestDeriveEnd(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		quota    float64
		rate     float64
		end      string
		duration string
	}{
		{"gasoline two hours", "2024-10-01 08:00", 1000, 500, "2024-10-01 10:00", "02:00"},
		{"privileged diesel", "2024-10-01 06:00", 1200, 1200, "2024-10-01 07:00", "01:00"},
		{"regular diesel", "2024-10-01 06:00", 1200, 600, "2024-10-01 08:00", "02:00"},
		{"crosses midnight", "2024-10-01 23:00", 300, 240, "2024-10-02 00:15", "01:15"},
		{"crosses month end", "2024-10-31 22:30", 1000, 500, "2024-11-01 00:30", "02:00"},
		{"zero quota", "2024-10-01 08:00", 0, 500, "2024-10-01 08:00", "00:00"},
		{"fractional minutes", "2024-10-01 08:00", 1000, 600, "2024-10-01 09:40", "01:40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveEnd(at(t, tt.start), tt.quota, tt.rate)
			if err != nil {
				t.Fatalf("DeriveEnd: %v", err)
			}
			if want := at(t, tt.end); !got.End.Equal(want) {
				t.Errorf("end = %s, want %s", got.End, want)
			}
			if got.Duration != tt.duration {
				t.Errorf("duration = %q, want %q", got.Duration, tt.duration)
			}
		})
	}
}

func TestDeriveEndRejectsNonPositiveRate(t *testing.T) {
	for _, rate := range []float64{0, -240} {
		_, err := DeriveEnd(at(t, "2024-10-01 08:00"), 100, rate)
		if !errors.Is(err, models.ErrDivision) {
			t.Fatalf("rate %v: expected ErrDivision, got %v", rate, err)
		}
	}
}

func TestDeriveEndRejectsNegativeQuota(t *testing.T) {
	_, err := DeriveEnd(at(t, "2024-10-01 08:00"), -1, 500)
	if !errors.Is(err, models.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestDeriveEndIsDeterministic(t *testing.T) {
	start := at(t, "2024-10-01 07:13")
	first, err := DeriveEnd(start, 777, 560)
	if err != nil {
		t.Fatalf("DeriveEnd: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := DeriveEnd(start, 777, 560)
		if err != nil {
			t.Fatalf("DeriveEnd: %v", err)
		}
		if again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestDeriveDurationRoundTrip(t *testing.T) {
	start := at(t, "2024-10-01 21:47")
	for _, quota := range []float64{0, 1, 59, 333, 1000, 1234.5, 9999} {
		for _, rate := range []float64{240, 300, 500, 560, 600, 1200} {
			d, err := DeriveEnd(start, quota, rate)
			if err != nil {
				t.Fatalf("DeriveEnd(%v, %v): %v", quota, rate, err)
			}
			got, err := DeriveDuration(start, d.End)
			if err != nil {
				t.Fatalf("DeriveDuration: %v", err)
			}
			if got != d.Duration {
				t.Errorf("quota %v rate %v: round trip %q != %q", quota, rate, got, d.Duration)
			}
		}
	}
}

func TestDeriveDurationRejectsEndBeforeStart(t *testing.T) {
	_, err := DeriveDuration(at(t, "2024-10-01 23:00"), at(t, "2024-10-01 01:00"))
	if !errors.Is(err, models.ErrOrdering) {
		t.Fatalf("expected ErrOrdering, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{90 * time.Minute, "01:30"},
		{59*time.Minute + 29*time.Second, "00:59"},
		{59*time.Minute + 30*time.Second, "01:00"},
		{time.Hour + 30*time.Second, "01:01"},
		{time.Hour + 29*time.Second, "01:00"},
		{time.Hour + 59*time.Minute + 40*time.Second, "02:00"},
		{26 * time.Hour, "26:00"},
		{-time.Minute, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
