package models

import (
	"strings"
	"time"
)

// ScheduleEntry is one scheduled pumping operation.
//
// Duration and FlowRate are derived by the scheduling service on every write.
// End is derived too, unless SpanExplicit records that the caller supplied it.
type ScheduleEntry struct {
	ID       string    `bson:"_id" json:"id"`
	Company  string    `bson:"company" json:"company"`
	Product  string    `bson:"product" json:"product"`
	Quota    float64   `bson:"quota" json:"quota"`
	Start    time.Time `bson:"start" json:"start"`
	End      time.Time `bson:"end" json:"end"`
	Duration string    `bson:"duration" json:"duration"`
	FlowRate float64   `bson:"flow_rate" json:"flow_rate"`

	SpanExplicit bool `bson:"span_explicit" json:"span_explicit"`
}

// EntryInput carries the user-editable fields of an entry. End is optional and
// only set when the caller supplies an explicit span.
type EntryInput struct {
	Company string     `json:"company"`
	Product string     `json:"product"`
	Quota   float64    `json:"quota"`
	Start   time.Time  `json:"start"`
	End     *time.Time `json:"end,omitempty"`
}

// Normalize trims and upper-cases the company and product codes.
func (in EntryInput) Normalize() EntryInput {
	in.Company = NormalizeCode(in.Company)
	in.Product = NormalizeCode(in.Product)
	return in
}

// NormalizeCode is the stored spelling of a company or product code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InRange reports whether t can be stored and rendered as RFC3339 by every
// backend (years 1 through 9999).
func InRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 1 && y <= 9999
}

// Validate checks the fields that do not depend on the rate table.
func (in EntryInput) Validate() error {
	switch {
	case in.Company == "":
		return &ValidationError{Field: "company", Err: ErrInvalidEntry}
	case in.Product == "":
		return &ValidationError{Field: "product", Err: ErrInvalidEntry}
	case in.Quota < 0:
		return &ValidationError{Field: "quota", Err: ErrInvalidEntry}
	case in.Start.IsZero(), !InRange(in.Start):
		return &ValidationError{Field: "start", Err: ErrInvalidEntry}
	case in.End != nil && !InRange(*in.End):
		return &ValidationError{Field: "end", Err: ErrInvalidEntry}
	}
	return nil
}

// Input returns the editable fields of a stored entry, so that re-submitting an
// entry unchanged yields the same derived values. An explicit span keeps its end.
func (e ScheduleEntry) Input() EntryInput {
	in := EntryInput{
		Company: e.Company,
		Product: e.Product,
		Quota:   e.Quota,
		Start:   e.Start,
	}
	if e.SpanExplicit {
		end := e.End
		in.End = &end
	}
	return in
}

// DayBounds returns the [start, end) instants of the calendar day containing t
// in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}
