package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type scheduleStore interface {
	Timeslots(ctx context.Context) ([]models.Timeslot, error)
	Rooms(ctx context.Context) ([]models.Room, error)
	FindRoom(ctx context.Context, id int64) (*models.Room, error)
	ForStudent(ctx context.Context, studentID int64) ([]models.ScheduleEntry, error)
	ForLecturer(ctx context.Context, lecturerID int64) ([]models.ScheduleEntry, error)
	ForRoom(ctx context.Context, roomID int64) ([]models.ScheduleEntry, error)
	ForCourse(ctx context.Context, courseID int64) ([]models.ScheduleEntry, error)
	All(ctx context.Context) ([]models.ScheduleEntry, error)
}

// ScheduleService projects course_schedule into weekly timetables.
type ScheduleService struct {
	repo   scheduleStore
	logger *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleStore, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, logger: logger}
}

// ForStudent returns the timetable of the courses a student is enrolled in.
func (s *ScheduleService) ForStudent(ctx context.Context, actor models.Identity, studentID int64) (dto.TimetableGrid, error) {
	if err := authorizeRecordRead(actor, studentID); err != nil {
		return dto.TimetableGrid{}, err
	}
	return s.grid(ctx, func() ([]models.ScheduleEntry, error) { return s.repo.ForStudent(ctx, studentID) })
}

// ForLecturer returns the timetable of a lecturer's courses.
func (s *ScheduleService) ForLecturer(ctx context.Context, lecturerID int64) (dto.TimetableGrid, error) {
	return s.grid(ctx, func() ([]models.ScheduleEntry, error) { return s.repo.ForLecturer(ctx, lecturerID) })
}

// ForCourse returns the weekly meetings of one course.
func (s *ScheduleService) ForCourse(ctx context.Context, courseID int64) (dto.TimetableGrid, error) {
	return s.grid(ctx, func() ([]models.ScheduleEntry, error) { return s.repo.ForCourse(ctx, courseID) })
}

// ForRoom returns the timetable of one room.
func (s *ScheduleService) ForRoom(ctx context.Context, roomID int64) (dto.RoomTimetable, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return dto.RoomTimetable{}, lookupError(err, "room")
	}
	grid, err := s.grid(ctx, func() ([]models.ScheduleEntry, error) { return s.repo.ForRoom(ctx, roomID) })
	if err != nil {
		return dto.RoomTimetable{}, err
	}
	return dto.RoomTimetable{Room: *room, Grid: grid}, nil
}

// RoomOverview returns a grid for every room, including empty ones.
func (s *ScheduleService) RoomOverview(ctx context.Context) ([]dto.RoomTimetable, error) {
	slots, err := s.repo.Timeslots(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load timeslots")
	}
	rooms, err := s.repo.Rooms(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load rooms")
	}
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load schedule")
	}

	byRoom := make(map[int64][]models.ScheduleEntry, len(rooms))
	for _, e := range entries {
		byRoom[e.RoomID] = append(byRoom[e.RoomID], e)
	}
	out := make([]dto.RoomTimetable, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, dto.RoomTimetable{Room: room, Grid: BuildGrid(slots, byRoom[room.ID])})
	}
	return out, nil
}

func (s *ScheduleService) grid(ctx context.Context, load func() ([]models.ScheduleEntry, error)) (dto.TimetableGrid, error) {
	slots, err := s.repo.Timeslots(ctx)
	if err != nil {
		return dto.TimetableGrid{}, appErrors.FromStore(err, "failed to load timeslots")
	}
	entries, err := load()
	if err != nil {
		return dto.TimetableGrid{}, appErrors.FromStore(err, "failed to load schedule")
	}
	grid := BuildGrid(slots, entries)
	if n := len(grid.Unplaced); n > 0 {
		s.logger.Warn("schedule entries outside the weekly grid", zap.Int("count", n))
	}
	return grid, nil
}

// BuildGrid pivots entries into timeslot rows and Monday to Friday columns.
// Cells are matched on timeslot id and weekday; every entry of a cell is kept
// in input order. Entries that match no row or column are returned as Unplaced.
func BuildGrid(slots []models.Timeslot, entries []models.ScheduleEntry) dto.TimetableGrid {
	days := models.Weekdays()
	dayIndex := make(map[models.Weekday]int, len(days))
	for i, d := range days {
		dayIndex[d] = i
	}

	grid := dto.TimetableGrid{Weekdays: days, Rows: make([]dto.TimetableRow, len(slots))}
	slotIndex := make(map[int64]int, len(slots))
	for i, slot := range slots {
		slotIndex[slot.ID] = i
		cells := make([]dto.TimetableCell, len(days))
		for j, d := range days {
			cells[j] = dto.TimetableCell{Weekday: d, Entries: []models.ScheduleEntry{}}
		}
		grid.Rows[i] = dto.TimetableRow{Timeslot: slot, Label: slot.Label(), Cells: cells}
	}

	for _, e := range entries {
		row, ok := slotIndex[e.TimeslotID]
		day, known := models.ParseWeekday(e.Weekday)
		if !ok || !known {
			grid.Unplaced = append(grid.Unplaced, e)
			continue
		}
		cell := &grid.Rows[row].Cells[dayIndex[day]]
		cell.Entries = append(cell.Entries, e)
	}
	return grid
}
