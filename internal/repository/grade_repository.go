package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// GradeRepository handles grade persistence and grade analytics.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// SetGrade writes one enrollment's grade when the enrollment belongs to a
// course taught by the scoped lecturer. It returns the affected student.
func (r *GradeRepository) SetGrade(ctx context.Context, scope models.GradeScope, update models.GradeUpdate) (int64, error) {
	query := `UPDATE enrollments e SET grade = $1
        FROM courses c
        WHERE c.id = e.course_id AND e.enrollment_id = $2 AND c.lecturer_id = $3`
	args := []interface{}{update.Grade, update.EnrollmentID, scope.LecturerID}
	if scope.CourseID != nil {
		query += fmt.Sprintf(" AND e.course_id = $%d", len(args)+1)
		args = append(args, *scope.CourseID)
	}
	query += " RETURNING e.student_id"

	var studentID int64
	if err := r.db.GetContext(ctx, &studentID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrEnrollmentNotFound
		}
		return 0, fmt.Errorf("update grade: %w", err)
	}
	return studentID, nil
}

// Progress returns graded/total counts for every course of a lecturer with enrollments.
func (r *GradeRepository) Progress(ctx context.Context, lecturerID int64) ([]models.GradingProgress, error) {
	const query = `SELECT c.id AS course_id, c.course_name, c.ects,
        COUNT(e.grade) AS graded, COUNT(e.enrollment_id) AS total
        FROM courses c
        JOIN enrollments e ON c.id = e.course_id
        WHERE c.lecturer_id = $1
        GROUP BY c.id, c.course_name, c.ects
        ORDER BY c.id`
	var progress []models.GradingProgress
	if err := r.db.SelectContext(ctx, &progress, query, lecturerID); err != nil {
		return nil, fmt.Errorf("grading progress: %w", err)
	}
	for i := range progress {
		progress[i].Finish()
	}
	return progress, nil
}

// GradedByLecturer lists every published grade in a lecturer's courses.
func (r *GradeRepository) GradedByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseGrade, error) {
	const query = `SELECT c.id AS course_id, c.course_name, e.grade
        FROM courses c
        JOIN enrollments e ON c.id = e.course_id
        WHERE c.lecturer_id = $1 AND e.grade IS NOT NULL
        ORDER BY c.id, e.grade`
	var grades []models.CourseGrade
	if err := r.db.SelectContext(ctx, &grades, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer grades: %w", err)
	}
	return grades, nil
}

// FlaggedByGPA lists students whose weighted GPA is below the threshold.
func (r *GradeRepository) FlaggedByGPA(ctx context.Context, threshold float64) ([]models.FlaggedStudent, error) {
	query := `SELECT s.id AS student_id, s.first_name, s.last_name,
        ROUND((` + gpaExpr + `)::numeric, 2) AS gpa
        ` + gpaBelowThresholdFrom("$1") + `
        ORDER BY s.id`
	var flagged []models.FlaggedStudent
	if err := r.db.SelectContext(ctx, &flagged, query, threshold); err != nil {
		return nil, fmt.Errorf("list students below gpa: %w", err)
	}
	return flagged, nil
}
