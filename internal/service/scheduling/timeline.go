package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

const clockLayout = "15:04"

// Timeline projects entries into chart bars ordered by start, then company.
// It never recomputes derived fields.
func Timeline(entries []models.ScheduleEntry, loc *time.Location) []models.TimelineBar {
	if loc == nil {
		loc = time.UTC
	}

	bars := make([]models.TimelineBar, 0, len(entries))
	for _, e := range entries {
		start, end := e.Start.In(loc), e.End.In(loc)
		bars = append(bars, models.TimelineBar{
			EntryID:  e.ID,
			Label:    fmt.Sprintf("%s (%s - %s)", e.Company, start.Format(clockLayout), end.Format(clockLayout)),
			Start:    start,
			End:      end,
			Category: e.Product,
			Tooltip: models.TimelineTooltip{
				Company:  e.Company,
				Product:  e.Product,
				Quota:    e.Quota,
				Start:    start,
				End:      end,
				Duration: e.Duration,
			},
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Start.Equal(bars[j].Start) {
			return bars[i].Start.Before(bars[j].Start)
		}
		return bars[i].Tooltip.Company < bars[j].Tooltip.Company
	})
	return bars
}
