package dto

import "github.com/noah-isme/campus-portal-api/internal/models"

// TimetableGrid pivots schedule entries into timeslot rows and weekday columns.
type TimetableGrid struct {
	Weekdays []models.Weekday       `json:"weekdays"`
	Rows     []TimetableRow         `json:"rows"`
	Unplaced []models.ScheduleEntry `json:"unplaced,omitempty"`
}

// TimetableRow is one timeslot across the week.
type TimetableRow struct {
	Timeslot models.Timeslot `json:"timeslot"`
	Label    string          `json:"label"`
	Cells    []TimetableCell `json:"cells"`
}

// TimetableCell holds every entry meeting in the slot on that day.
type TimetableCell struct {
	Weekday models.Weekday         `json:"weekday"`
	Entries []models.ScheduleEntry `json:"entries"`
}

// Entries returns every placed entry, row by row.
func (g TimetableGrid) Entries() []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, row := range g.Rows {
		for _, cell := range row.Cells {
			out = append(out, cell.Entries...)
		}
	}
	return out
}
