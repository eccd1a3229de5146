package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const studentColumns = `id, user_id, first_name, last_name, email, phone, address, birthday, enrollment_date`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by id. sql.ErrNoRows is returned unwrapped.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student linked to an identity provider user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Names returns id and name columns for the given students.
func (r *StudentRepository) Names(ctx context.Context, ids []int64) ([]models.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, `SELECT id, first_name, last_name FROM students WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list student names: %w", err)
	}
	return people, nil
}

// ListAll returns every student ordered by name.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Person, error) {
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, `SELECT id, first_name, last_name FROM students ORDER BY last_name, first_name, id`); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return people, nil
}

// FlaggedByECTS lists students whose total ECTS is below minimum.
func (r *StudentRepository) FlaggedByECTS(ctx context.Context, minimum int) ([]models.FlaggedStudent, error) {
	query := `SELECT s.id AS student_id, s.first_name, s.last_name, ` + ectsTotalExpr + ` AS total_ects
        ` + ectsBelowMinimumFrom("$1") + `
        ORDER BY s.id`
	var flagged []models.FlaggedStudent
	if err := r.db.SelectContext(ctx, &flagged, query, minimum); err != nil {
		return nil, fmt.Errorf("list students below ects minimum: %w", err)
	}
	return flagged, nil
}

// FlaggedByLanguage lists enrolled students below the English or German minimum.
func (r *StudentRepository) FlaggedByLanguage(ctx context.Context, minimum int) ([]models.FlaggedStudent, error) {
	query := `SELECT s.id AS student_id, s.first_name, s.last_name,
        ` + ectsEnglishExpr + ` AS ects_english,
        ` + ectsGermanExpr + ` AS ects_german
        ` + languageRequirementFrom("$1") + `
        ORDER BY s.id`
	var flagged []models.FlaggedStudent
	if err := r.db.SelectContext(ctx, &flagged, query, minimum); err != nil {
		return nil, fmt.Errorf("list students below language minimum: %w", err)
	}
	return flagged, nil
}

// UpdateContact sets phone and address for the student owning userID.
func (r *StudentRepository) UpdateContact(ctx context.Context, userID, phone, address string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET phone = $1, address = $2 WHERE user_id = $3`, phone, address, userID)
	if err != nil {
		return 0, fmt.Errorf("update student contact: %w", err)
	}
	return res.RowsAffected()
}
