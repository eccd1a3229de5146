package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// CourseRepository reads the course catalog.
type CourseRepository struct {
	db   *sqlx.DB
	psql squirrel.StatementBuilderType
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db, psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// FindByID returns a course. sql.ErrNoRows is returned unwrapped.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, course_name, ects, language, format, max_participants, lecturer_id, status FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) summarySelect() squirrel.SelectBuilder {
	return r.psql.Select(
		"c.id", "c.course_name", "c.ects", "c.language", "c.format", "c.max_participants", "c.lecturer_id", "c.status",
		"CASE WHEN l.id IS NULL THEN NULL ELSE l.first_name || ' ' || l.last_name END AS lecturer_name",
		"(SELECT COUNT(*) FROM enrollments en WHERE en.course_id = c.id) AS enrolled_count",
	).
		From("courses c").
		LeftJoin("lecturers l ON l.id = c.lecturer_id")
}

// List returns catalog courses matching the filter with live enrollment counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error) {
	builder := r.summarySelect()
	if filter.Language != "" {
		builder = builder.Where("LOWER(c.language) = ?", strings.ToLower(filter.Language))
	}
	if filter.Format != "" {
		builder = builder.Where(squirrel.Eq{"c.format": string(filter.Format)})
	}
	if filter.LecturerID != nil {
		builder = builder.Where(squirrel.Eq{"c.lecturer_id": *filter.LecturerID})
	}
	if filter.AvailableFor != nil {
		builder = builder.Where("NOT EXISTS (SELECT 1 FROM enrollments x WHERE x.course_id = c.id AND x.student_id = ?)", *filter.AvailableFor)
	}
	if filter.OnlyOpen {
		builder = builder.Where("(c.max_participants IS NULL OR (SELECT COUNT(*) FROM enrollments o WHERE o.course_id = c.id) < c.max_participants)")
	}
	builder = builder.OrderBy("c.course_name", "c.id")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course query: %w", err)
	}

	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	for i := range courses {
		courses[i].HasCapacity = courses[i].Course.HasCapacity(courses[i].EnrolledCount)
	}
	return courses, nil
}

// ListByLecturer returns the courses a lecturer teaches.
func (r *CourseRepository) ListByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseSummary, error) {
	id := lecturerID
	return r.List(ctx, models.CourseFilter{LecturerID: &id})
}
