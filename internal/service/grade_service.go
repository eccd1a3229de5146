package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type gradeStore interface {
	SetGrade(ctx context.Context, scope models.GradeScope, update models.GradeUpdate) (int64, error)
	Progress(ctx context.Context, lecturerID int64) ([]models.GradingProgress, error)
	GradedByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseGrade, error)
	FlaggedByGPA(ctx context.Context, threshold float64) ([]models.FlaggedStudent, error)
}

type studentCourseReader interface {
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error)
}

// GradeService validates and stores grades and derives GPA and ECTS aggregates.
type GradeService struct {
	grades       gradeStore
	enrollments  studentCourseReader
	courses      courseReader
	requirements models.Requirements
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeStore, enrollments studentCourseReader, courses courseReader, requirements models.Requirements, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:       grades,
		enrollments:  enrollments,
		courses:      courses,
		requirements: requirements,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// Requirements returns the configured academic thresholds.
func (s *GradeService) Requirements() models.Requirements {
	return s.requirements
}

// SetGrades applies grade updates one row at a time and stops at the first
// failing row. Rows before it stay committed; the result names the failed row.
// Only the lecturer of the course may grade; courseID narrows the batch to
// one course when given.
func (s *GradeService) SetGrades(ctx context.Context, actor models.Identity, courseID *int64, updates []models.GradeUpdate) (models.GradeBatchResult, error) {
	var result models.GradeBatchResult
	lecturer, ok := actor.(models.LecturerIdentity)
	if !ok {
		if actor == nil {
			return result, appErrors.ErrUnauthorized
		}
		return result, appErrors.Clone(appErrors.ErrForbidden, "only lecturers can grade")
	}
	if courseID != nil {
		course, err := s.courses.FindByID(ctx, *courseID)
		if err != nil {
			return result, lookupError(err, "course")
		}
		if !course.OwnedBy(lecturer.ID) {
			return result, appErrors.Clone(appErrors.ErrForbidden, "only the course lecturer can grade this course")
		}
	}

	scope := models.GradeScope{CourseID: courseID, LecturerID: lecturer.ID}
	affected := []models.Identity{lecturer}
	defer func() {
		if result.Applied > 0 {
			s.cache.InvalidateDashboards(ctx, affected...)
		}
	}()

	for _, update := range updates {
		studentID, err := s.applyGrade(ctx, scope, update)
		if err != nil {
			failed := update.EnrollmentID
			result.FailedEnrollmentID = &failed
			s.metrics.RecordGradeUpdate(false)
			s.logger.Error("grade update failed",
				zap.Int64("enrollment_id", update.EnrollmentID),
				zap.Int64("lecturer_id", lecturer.ID),
				zap.Int("applied", result.Applied),
				zap.Error(err))
			return result, err
		}
		result.Applied++
		affected = append(affected, models.StudentIdentity{ID: studentID})
		s.metrics.RecordGradeUpdate(true)
	}
	return result, nil
}

func (s *GradeService) applyGrade(ctx context.Context, scope models.GradeScope, update models.GradeUpdate) (int64, error) {
	if update.EnrollmentID < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid enrollment_id value: %d", update.EnrollmentID))
	}
	if err := models.ValidateGrade(update.Grade); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInvalidGrade.Code, appErrors.ErrInvalidGrade.Status, appErrors.ErrInvalidGrade.Message)
	}
	studentID, err := s.grades.SetGrade(ctx, scope, update)
	if err != nil {
		if errors.Is(err, models.ErrEnrollmentNotFound) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("enrollment %d not found in your courses", update.EnrollmentID))
		}
		return 0, appErrors.FromStore(err, "error updating grade")
	}
	return studentID, nil
}

// Record loads a student's courses and derives GPA and ECTS from them.
func (s *GradeService) Record(ctx context.Context, studentID int64) (*models.AcademicRecord, error) {
	courses, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load student courses")
	}
	if courses == nil {
		courses = []models.StudentCourse{}
	}
	return &models.AcademicRecord{
		StudentID: studentID,
		Courses:   courses,
		GPA:       models.ComputeGPA(courses, s.requirements.GPAPassThreshold),
		ECTS:      models.ComputeECTS(courses, s.requirements),
	}, nil
}

// ComputeGPA returns the ECTS weighted GPA. Value is nil when nothing is graded.
func (s *GradeService) ComputeGPA(ctx context.Context, actor models.Identity, studentID int64) (models.GPA, error) {
	if err := authorizeRecordRead(actor, studentID); err != nil {
		return models.GPA{}, err
	}
	record, err := s.Record(ctx, studentID)
	if err != nil {
		return models.GPA{}, err
	}
	return record.GPA, nil
}

// ComputeECTS sums ECTS over all current enrollments, graded or not.
func (s *GradeService) ComputeECTS(ctx context.Context, actor models.Identity, studentID int64) (models.ECTSSummary, error) {
	if err := authorizeRecordRead(actor, studentID); err != nil {
		return models.ECTSSummary{}, err
	}
	record, err := s.Record(ctx, studentID)
	if err != nil {
		return models.ECTSSummary{}, err
	}
	return record.ECTS, nil
}

// Progress reports how many enrollments of each course are graded.
func (s *GradeService) Progress(ctx context.Context, lecturerID int64) ([]models.GradingProgress, error) {
	progress, err := s.grades.Progress(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load grading progress")
	}
	if progress == nil {
		progress = []models.GradingProgress{}
	}
	return progress, nil
}

// Distribution bins the published grades of each course.
func (s *GradeService) Distribution(ctx context.Context, lecturerID int64) ([]models.CourseDistribution, error) {
	rows, err := s.grades.GradedByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load grade distribution")
	}
	dist := models.BuildDistributions(rows)
	if dist == nil {
		dist = []models.CourseDistribution{}
	}
	return dist, nil
}

// FlaggedByGPA lists students whose GPA is below the pass threshold.
func (s *GradeService) FlaggedByGPA(ctx context.Context) ([]models.FlaggedStudent, error) {
	flagged, err := s.grades.FlaggedByGPA(ctx, s.requirements.GPAPassThreshold)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list flagged students")
	}
	if flagged == nil {
		flagged = []models.FlaggedStudent{}
	}
	return flagged, nil
}

func authorizeRecordRead(actor models.Identity, studentID int64) error {
	switch actor.(type) {
	case nil:
		return appErrors.ErrUnauthorized
	case models.AdminIdentity, models.LecturerIdentity:
		return nil
	}
	if models.IsStudent(actor, studentID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only view their own record")
}
