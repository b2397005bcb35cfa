package models

import "time"

// TimelineBar is the read-only projection of an entry used by chart and
// export collaborators.
type TimelineBar struct {
	EntryID  string          `json:"entry_id"`
	Label    string          `json:"label"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Category string          `json:"category"`
	Tooltip  TimelineTooltip `json:"tooltip"`
}

// TimelineTooltip lists the fields shown when hovering a bar.
type TimelineTooltip struct {
	Company  string    `json:"company"`
	Product  string    `json:"product"`
	Quota    float64   `json:"quota"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration string    `json:"duration"`
}
