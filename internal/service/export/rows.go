package export

import (
	"fmt"
	"time"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Header names the columns produced by Rows.
var Header = []interface{}{"date", "company", "product", "quota", "start", "end", "duration", "label"}

// Rows flattens timeline bars into spreadsheet rows matching Header.
func Rows(bars []models.TimelineBar) [][]interface{} {
	rows := make([][]interface{}, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []interface{}{
			b.Start.Format(dateLayout),
			b.Tooltip.Company,
			b.Category,
			b.Tooltip.Quota,
			b.Start.Format(clockLayout),
			endClock(b.Start, b.End),
			b.Tooltip.Duration,
			b.Label,
		})
	}
	return rows
}

// endClock marks ends that fall on a later day, e.g. "00:15 (+1)".
func endClock(start, end time.Time) string {
	end = end.In(start.Location())
	clock := end.Format(clockLayout)

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	days := int(time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
	if days > 0 {
		return fmt.Sprintf("%s (+%d)", clock, days)
	}
	return clock
}
