package services

import (
	"rata/internal/calendar"
	"rata/internal/core"
)

// SchedulePreview is a UI-facing projection of a template's upcoming
// occurrences and its approximate monthly cost. Pure computation, no
// storage access, no effect on scheduling.
type SchedulePreview struct {
	TemplateID        string
	Upcoming          []core.Date
	MonthlyEquivalent core.Money
}

// PreviewSchedule projects up to limit occurrences within months calendar
// months from the given date. The template's active flag is ignored: the
// preview shows what the schedule would produce, which is what a user
// editing a paused template wants to see.
func PreviewSchedule(tpl core.Template, from core.Date, months, limit int) (SchedulePreview, error) {
	horizon := core.Date{Time: from.AddDate(0, months, 0)}

	seq, err := calendar.OccurrencesBetween(tpl.StartDate, tpl.Frequency, tpl.EndDate, from, horizon)
	if err != nil {
		return SchedulePreview{}, err
	}

	preview := SchedulePreview{TemplateID: tpl.ID}
	for len(preview.Upcoming) < limit {
		d, ok := seq.Next()
		if !ok {
			break
		}
		preview.Upcoming = append(preview.Upcoming, d)
	}

	preview.MonthlyEquivalent, err = calendar.EstimateMonthlyEquivalent(tpl.Amount, tpl.Frequency)
	if err != nil {
		return SchedulePreview{}, err
	}

	return preview, nil
}
