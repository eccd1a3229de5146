package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const pqUniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll inserts an enrollment while holding a row lock on the course, so the
// duplicate check, capacity check and insert are serialized per course.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID int64, date time.Time) (enrollment *models.Enrollment, course *models.Course, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin enroll tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked models.Course
	const lockQuery = `SELECT id, course_name, ects, language, format, max_participants, lecturer_id, status
        FROM courses WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &locked, lockQuery, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, models.ErrCourseNotFound
		}
		return nil, nil, fmt.Errorf("lock course: %w", err)
	}

	var exists int
	err = tx.GetContext(ctx, &exists, `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	switch {
	case err == nil:
		return nil, nil, models.ErrAlreadyEnrolled
	case !errors.Is(err, sql.ErrNoRows):
		return nil, nil, fmt.Errorf("check enrollment: %w", err)
	}

	var enrolled int
	if err = tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return nil, nil, fmt.Errorf("count enrollments: %w", err)
	}
	if !locked.HasCapacity(enrolled) {
		return nil, nil, models.ErrCourseFull
	}

	var created models.Enrollment
	const insertQuery = `INSERT INTO enrollments (student_id, course_id, enrollment_date)
        VALUES ($1, $2, $3)
        RETURNING enrollment_id, student_id, course_id, enrollment_date, grade`
	if err = tx.GetContext(ctx, &created, insertQuery, studentID, courseID, date); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, models.ErrAlreadyEnrolled
		}
		return nil, nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return &created, &locked, nil
}

// Disenroll deletes the enrollment and returns the course lecturer, if any.
func (r *EnrollmentRepository) Disenroll(ctx context.Context, studentID, courseID int64) (*int64, error) {
	const query = `DELETE FROM enrollments e USING courses c
        WHERE c.id = e.course_id AND e.student_id = $1 AND e.course_id = $2
        RETURNING c.lecturer_id`
	var lecturerID *int64
	if err := r.db.GetContext(ctx, &lecturerID, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("delete enrollment: %w", err)
	}
	return lecturerID, nil
}

// Roster lists a course's enrollments with student names.
func (r *EnrollmentRepository) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	const query = `SELECT e.enrollment_id, e.student_id, e.grade,
        s.first_name AS "students.first_name", s.last_name AS "students.last_name"
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY s.last_name, s.first_name, e.enrollment_id`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return entries, nil
}

// ListByStudent returns a student's enrollments joined with course data.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	const query = `SELECT e.enrollment_id, c.id AS course_id, c.course_name, c.ects, c.language, c.format,
        CASE WHEN l.id IS NULL THEN NULL ELSE l.first_name || ' ' || l.last_name END AS lecturer_name,
        e.enrollment_date, e.grade
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN lecturers l ON l.id = c.lecturer_id
        WHERE e.student_id = $1
        ORDER BY c.course_name, c.id`
	var courses []models.StudentCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return courses, nil
}

// StudentIDsByCourse lists the students enrolled in a course.
func (r *EnrollmentRepository) StudentIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT student_id FROM enrollments WHERE course_id = $1 ORDER BY student_id`, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}

// CountByCourse returns the current enrollment count of a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
