package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const scheduleSelect = `SELECT cs.weekday, ts.id AS timeslot_id, ts.start_time, ts.end_time,
        c.id AS course_id, c.course_name, r.id AS room_id, r.name AS room_name,
        CASE WHEN l.id IS NULL THEN NULL ELSE l.first_name || ' ' || l.last_name END AS lecturer_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrolled_count,
        c.max_participants
        FROM course_schedule cs
        JOIN courses c ON c.id = cs.course_id
        JOIN timeslots ts ON ts.id = cs.timeslot_id
        JOIN rooms r ON r.id = cs.room_id
        LEFT JOIN lecturers l ON l.id = c.lecturer_id`

const scheduleOrder = ` ORDER BY ts.start_time, cs.weekday, c.id`

// ScheduleRepository reads timetables and the static room and slot tables.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Timeslots returns all slots ordered by start time.
func (r *ScheduleRepository) Timeslots(ctx context.Context) ([]models.Timeslot, error) {
	var slots []models.Timeslot
	if err := r.db.SelectContext(ctx, &slots, `SELECT id, start_time, end_time, label FROM timeslots ORDER BY start_time, id`); err != nil {
		return nil, fmt.Errorf("list timeslots: %w", err)
	}
	return slots, nil
}

// Rooms returns all rooms ordered by name.
func (r *ScheduleRepository) Rooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, `SELECT id, name, capacity FROM rooms ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindRoom returns a room by id. sql.ErrNoRows is returned unwrapped.
func (r *ScheduleRepository) FindRoom(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	if err := r.db.GetContext(ctx, &room, `SELECT id, name, capacity FROM rooms WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *ScheduleRepository) entries(ctx context.Context, label, where string, args ...interface{}) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, scheduleSelect+where+scheduleOrder, args...); err != nil {
		return nil, fmt.Errorf("list %s schedule: %w", label, err)
	}
	return entries, nil
}

// ForStudent returns the weekly meetings of every course the student is enrolled in.
func (r *ScheduleRepository) ForStudent(ctx context.Context, studentID int64) ([]models.ScheduleEntry, error) {
	return r.entries(ctx, "student", `
        WHERE EXISTS (SELECT 1 FROM enrollments se WHERE se.course_id = c.id AND se.student_id = $1)`, studentID)
}

// ForLecturer returns the weekly meetings of the lecturer's courses.
func (r *ScheduleRepository) ForLecturer(ctx context.Context, lecturerID int64) ([]models.ScheduleEntry, error) {
	return r.entries(ctx, "lecturer", `
        WHERE c.lecturer_id = $1`, lecturerID)
}

// ForRoom returns the weekly meetings held in a room.
func (r *ScheduleRepository) ForRoom(ctx context.Context, roomID int64) ([]models.ScheduleEntry, error) {
	return r.entries(ctx, "room", `
        WHERE r.id = $1`, roomID)
}

// ForCourse returns the weekly meetings of one course.
func (r *ScheduleRepository) ForCourse(ctx context.Context, courseID int64) ([]models.ScheduleEntry, error) {
	return r.entries(ctx, "course", `
        WHERE c.id = $1`, courseID)
}

// All returns every scheduled meeting.
func (r *ScheduleRepository) All(ctx context.Context) ([]models.ScheduleEntry, error) {
	return r.entries(ctx, "room overview", "")
}
