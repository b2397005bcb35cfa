// Package schedule derives the end instant and duration of a pumping run.
package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

var (
	secondsPerHour = decimal.NewFromInt(3600)
	// maxElapsedSeconds keeps start.Add within time.Duration range.
	maxElapsedSeconds = decimal.NewFromInt(math.MaxInt64 / int64(time.Second))
)

// Derivation is the outcome of a forward derivation.
type Derivation struct {
	End      time.Time
	Elapsed  time.Duration
	Duration string
}

// DeriveEnd computes when pumping quota at rate units per hour finishes when
// started at start. Elapsed time is quota/rate hours rounded to the nearest
// second, so the same inputs always give the same end.
func DeriveEnd(start time.Time, quota, rate float64) (Derivation, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return Derivation{}, fmt.Errorf("rate %v: %w", rate, models.ErrDivision)
	}
	if math.IsNaN(quota) || math.IsInf(quota, 0) || quota < 0 {
		return Derivation{}, &models.ValidationError{Field: "quota", Err: models.ErrInvalidEntry}
	}

	hours := decimal.NewFromFloat(quota).Div(decimal.NewFromFloat(rate))
	seconds := hours.Mul(secondsPerHour).Round(0)
	if seconds.GreaterThan(maxElapsedSeconds) {
		return Derivation{}, &models.ValidationError{Field: "quota", Err: models.ErrInvalidEntry}
	}

	elapsed := time.Duration(seconds.IntPart()) * time.Second
	return Derivation{
		End:      start.Add(elapsed),
		Elapsed:  elapsed,
		Duration: FormatDuration(elapsed),
	}, nil
}

// DeriveDuration renders the span between two user-supplied instants. An end
// before start is reported rather than assumed to fall on the next day.
func DeriveDuration(start, end time.Time) (string, error) {
	if end.Before(start) {
		return "", fmt.Errorf("start %s, end %s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), models.ErrOrdering)
	}
	return FormatDuration(end.Sub(start)), nil
}

// FormatDuration renders d as zero-padded HH:MM. The hour part is the whole
// hours of d and the minute part the remainder rounded to the nearest minute,
// half a minute rounding up; a remainder that rounds to 60 carries into the
// hour, so 1h59m40s renders "02:00", never "01:60". Hours are not capped
// at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
