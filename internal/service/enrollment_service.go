package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type enrollmentStore interface {
	Enroll(ctx context.Context, studentID, courseID int64, date time.Time) (*models.Enrollment, *models.Course, error)
	Disenroll(ctx context.Context, studentID, courseID int64) (*int64, error)
	Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollmentService enforces the capacity and uniqueness rules of enrollments.
type EnrollmentService struct {
	repo      enrollmentStore
	students  studentReader
	courses   courseReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, students studentReader, courses courseReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll registers the student for the course with today's date.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Identity, req models.EnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id and course_id are required")
	}
	if err := authorizeStudentAction(actor, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student")
	}

	enrollment, course, err := s.repo.Enroll(ctx, req.StudentID, req.CourseID, today(s.now()))
	if err != nil {
		outcome, mapped := mapEnrollError(err)
		s.metrics.RecordEnrollment(outcome)
		if outcome == OutcomeError {
			s.logger.Error("enroll failed", zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID), zap.Error(err))
		}
		return nil, mapped
	}

	s.metrics.RecordEnrollment(OutcomeEnrolled)
	s.cache.InvalidateDashboards(ctx, affectedByEnrollment(req.StudentID, course.LecturerID)...)
	s.cache.InvalidateRoleDashboards(ctx, models.RoleStudent)
	s.logger.Info("student enrolled", zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID))
	return enrollment, nil
}

// Disenroll removes the enrollment. Its grade is deleted with it.
func (s *EnrollmentService) Disenroll(ctx context.Context, actor models.Identity, req models.EnrollmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id and course_id are required")
	}
	if err := authorizeStudentAction(actor, req.StudentID); err != nil {
		return err
	}

	lecturerID, err := s.repo.Disenroll(ctx, req.StudentID, req.CourseID)
	if err != nil {
		if errors.Is(err, models.ErrEnrollmentNotFound) {
			s.metrics.RecordEnrollment(OutcomeNotFound)
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.metrics.RecordEnrollment(OutcomeError)
		s.logger.Error("disenroll failed", zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID), zap.Error(err))
		return appErrors.FromStore(err, "failed to disenroll")
	}

	s.metrics.RecordEnrollment(OutcomeDisenrolled)
	s.cache.InvalidateDashboards(ctx, affectedByEnrollment(req.StudentID, lecturerID)...)
	s.cache.InvalidateRoleDashboards(ctx, models.RoleStudent)
	s.logger.Info("student disenrolled", zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID))
	return nil
}

// Roster lists the students enrolled in a course. Only the course lecturer and
// the admin may read it.
func (s *EnrollmentService) Roster(ctx context.Context, actor models.Identity, courseID int64) ([]models.RosterEntry, error) {
	if courseID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	if !canManageCourse(actor, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course lecturer can view its enrollments")
	}
	roster, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load enrollments")
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}

func mapEnrollError(err error) (string, error) {
	switch {
	case errors.Is(err, models.ErrAlreadyEnrolled):
		return OutcomeDuplicate, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	case errors.Is(err, models.ErrCourseFull):
		return OutcomeFull, appErrors.Clone(appErrors.ErrCapacityExceeded, "course has reached its maximum number of participants")
	case errors.Is(err, models.ErrCourseNotFound), errors.Is(err, sql.ErrNoRows):
		return OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	default:
		return OutcomeError, appErrors.FromStore(err, "failed to enroll")
	}
}

func authorizeStudentAction(actor models.Identity, studentID int64) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if models.IsAdmin(actor) || models.IsStudent(actor, studentID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only change their own enrollments")
}

func canManageCourse(actor models.Identity, course *models.Course) bool {
	if actor == nil || course == nil {
		return false
	}
	if models.IsAdmin(actor) {
		return true
	}
	lecturer, ok := actor.(models.LecturerIdentity)
	return ok && course.OwnedBy(lecturer.ID)
}

func affectedByEnrollment(studentID int64, lecturerID *int64) []models.Identity {
	ids := []models.Identity{models.StudentIdentity{ID: studentID}}
	if lecturerID != nil {
		ids = append(ids, models.LecturerIdentity{ID: *lecturerID})
	}
	return ids
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
