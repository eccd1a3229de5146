package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestGradeRepositorySetGradeScopedToCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	courseID := int64(7)
	grade := 2.25
	mock.ExpectQuery("(?s)"+regexp.QuoteMeta("UPDATE enrollments e SET grade = $1")+".*"+regexp.QuoteMeta("AND e.course_id = $4 RETURNING e.student_id")).
		WithArgs(grade, int64(100), int64(3), courseID).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow(int64(11)))

	studentID, err := repo.SetGrade(context.Background(), models.GradeScope{CourseID: &courseID, LecturerID: 3}, models.GradeUpdate{EnrollmentID: 100, Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, int64(11), studentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositorySetGradeForeignEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments e SET grade = $1")).
		WithArgs(nil, int64(100), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}))

	_, err := repo.SetGrade(context.Background(), models.GradeScope{LecturerID: 4}, models.GradeUpdate{EnrollmentID: 100})
	assert.ErrorIs(t, err, models.ErrEnrollmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(e.grade) AS graded")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "ects", "graded", "total"}).
			AddRow(int64(7), "Databases", 6, 1, 4))

	progress, err := repo.Progress(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, 25.0, progress[0].Percentage)
}

func TestGradeRepositoryFlaggedByGPAUsesStrictThreshold(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("HAVING (SUM(c.ects * e.grade) / NULLIF(SUM(c.ects), 0)) < $1")).
		WithArgs(4.0).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "first_name", "last_name", "gpa"}).
			AddRow(int64(11), "Anna", "Berg", 2.95))

	flagged, err := repo.FlaggedByGPA(context.Background(), 4.0)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.InDelta(t, 2.95, *flagged[0].GPA, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}
