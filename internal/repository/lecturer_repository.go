package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const lecturerColumns = `id, user_id, first_name, last_name, email, phone, address, birthday`

// LecturerRepository manages persistence for lecturers.
type LecturerRepository struct {
	db *sqlx.DB
}

// NewLecturerRepository constructs a LecturerRepository.
func NewLecturerRepository(db *sqlx.DB) *LecturerRepository {
	return &LecturerRepository{db: db}
}

// FindByID returns a lecturer by id. sql.ErrNoRows is returned unwrapped.
func (r *LecturerRepository) FindByID(ctx context.Context, id int64) (*models.Lecturer, error) {
	var lecturer models.Lecturer
	if err := r.db.GetContext(ctx, &lecturer, `SELECT `+lecturerColumns+` FROM lecturers WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

// FindByUserID returns the lecturer linked to an identity provider user.
func (r *LecturerRepository) FindByUserID(ctx context.Context, userID string) (*models.Lecturer, error) {
	var lecturer models.Lecturer
	if err := r.db.GetContext(ctx, &lecturer, `SELECT `+lecturerColumns+` FROM lecturers WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

// Names returns id and name columns for the given lecturers.
func (r *LecturerRepository) Names(ctx context.Context, ids []int64) ([]models.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, `SELECT id, first_name, last_name FROM lecturers WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list lecturer names: %w", err)
	}
	return people, nil
}

// ListAll returns every lecturer ordered by name.
func (r *LecturerRepository) ListAll(ctx context.Context) ([]models.Person, error) {
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, `SELECT id, first_name, last_name FROM lecturers ORDER BY last_name, first_name, id`); err != nil {
		return nil, fmt.Errorf("list lecturers: %w", err)
	}
	return people, nil
}

// Overview aggregates courses, enrollments and ECTS per lecturer.
func (r *LecturerRepository) Overview(ctx context.Context) ([]models.LecturerOverview, error) {
	query := `SELECT l.id AS lecturer_id, l.first_name, l.last_name,
        COUNT(DISTINCT c.id) AS number_of_courses,
        COUNT(e.student_id) AS total_enrollments,
        ` + ectsTotalExpr + ` AS total_ects,
        ` + ectsEnglishExpr + ` AS ects_english,
        ` + ectsGermanExpr + ` AS ects_german,
        COALESCE(SUM(CASE WHEN LOWER(c.format) = 'campus' THEN c.ects ELSE 0 END), 0) AS ects_campus,
        COALESCE(SUM(CASE WHEN LOWER(c.format) = 'online' THEN c.ects ELSE 0 END), 0) AS ects_online,
        COALESCE(SUM(CASE WHEN LOWER(c.format) = 'blended' THEN c.ects ELSE 0 END), 0) AS ects_blended
        FROM lecturers l
        LEFT JOIN courses c ON l.id = c.lecturer_id
        LEFT JOIN enrollments e ON c.id = e.course_id
        GROUP BY l.id, l.first_name, l.last_name
        ORDER BY l.id`
	var overview []models.LecturerOverview
	if err := r.db.SelectContext(ctx, &overview, query); err != nil {
		return nil, fmt.Errorf("lecturer overview: %w", err)
	}
	return overview, nil
}

// UpdateContact sets phone and address for the lecturer owning userID.
func (r *LecturerRepository) UpdateContact(ctx context.Context, userID, phone, address string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE lecturers SET phone = $1, address = $2 WHERE user_id = $3`, phone, address, userID)
	if err != nil {
		return 0, fmt.Errorf("update lecturer contact: %w", err)
	}
	return res.RowsAffected()
}
