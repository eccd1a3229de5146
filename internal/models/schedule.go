package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekday is a teaching day as stored in course_schedule.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// Weekdays lists teaching days in display order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ParseWeekday matches a stored weekday case-insensitively.
func ParseWeekday(raw string) (Weekday, bool) {
	for _, d := range Weekdays() {
		if strings.EqualFold(strings.TrimSpace(raw), string(d)) {
			return d, true
		}
	}
	return "", false
}

// ClockTime is a wall clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime accepts "HH:MM" and "HH:MM:SS".
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time of day %q", raw)
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// Before reports whether c is strictly earlier than o.
func (c ClockTime) Before(o ClockTime) bool { return c.Minutes() < o.Minutes() }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Scan implements sql.Scanner for TIME columns.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockTime{Hour: v.Hour(), Minute: v.Minute()}
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	case nil:
		return fmt.Errorf("scan clock time: null value")
	default:
		return fmt.Errorf("scan clock time: unsupported type %T", src)
	}
}

func (c *ClockTime) scanString(raw string) error {
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute), nil
}

// MarshalJSON renders "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses "HH:MM" or "HH:MM:SS".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.scanString(raw)
}

// Timeslot is a fixed teaching slot.
type Timeslot struct {
	ID    int64     `db:"id" json:"id"`
	Start ClockTime `db:"start_time" json:"start_time"`
	End   ClockTime `db:"end_time" json:"end_time"`
	Name  *string   `db:"label" json:"name,omitempty"`
}

// Label renders the slot for display, e.g. "08:15 – 10:00".
func (t Timeslot) Label() string {
	return t.Start.String() + " – " + t.End.String()
}

// Room is a teaching room. Online is a room too.
type Room struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity *int   `db:"capacity" json:"capacity,omitempty"`
}

// ScheduleEntry is one weekly meeting of a course, joined for display.
type ScheduleEntry struct {
	Weekday         string    `db:"weekday" json:"weekday"`
	TimeslotID      int64     `db:"timeslot_id" json:"timeslot_id"`
	Start           ClockTime `db:"start_time" json:"start_time"`
	End             ClockTime `db:"end_time" json:"end_time"`
	CourseID        int64     `db:"course_id" json:"course_id"`
	CourseName      string    `db:"course_name" json:"course_name"`
	RoomID          int64     `db:"room_id" json:"room_id"`
	RoomName        string    `db:"room_name" json:"room_name"`
	LecturerName    *string   `db:"lecturer_name" json:"lecturer_name,omitempty"`
	EnrolledCount   int       `db:"enrolled_count" json:"enrolled_count"`
	MaxParticipants *int      `db:"max_participants" json:"max_participants,omitempty"`
}

// Label renders the entry's timeslot, e.g. "08:15 – 10:00".
func (e ScheduleEntry) Label() string {
	return Timeslot{ID: e.TimeslotID, Start: e.Start, End: e.End}.Label()
}

// MarshalJSON adds time_slot_label so flat entry lists read like grid rows.
func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	type plain ScheduleEntry
	return json.Marshal(struct {
		plain
		TimeSlotLabel string `json:"time_slot_label"`
	}{plain: plain(e), TimeSlotLabel: e.Label()})
}
