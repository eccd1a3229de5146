package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type courseCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error)
	ListByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseSummary, error)
}

// CatalogService lists courses with enrollment counts derived at read time.
type CatalogService struct {
	repo   courseCatalog
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo courseCatalog, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// List returns courses matching the filter.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error) {
	filter.Language = strings.TrimSpace(filter.Language)
	if filter.Format != "" && !filter.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be campus, online or blended")
	}
	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return courses, nil
}

// Get returns a single course.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	return course, nil
}

// ByLecturer returns the courses a lecturer teaches.
func (s *CatalogService) ByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseSummary, error) {
	courses, err := s.repo.ListByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list lecturer courses")
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return courses, nil
}

// AvailableFor splits the courses a student is not enrolled in by whether
// they still have free places.
func (s *CatalogService) AvailableFor(ctx context.Context, studentID int64) (open, full []models.CourseSummary, err error) {
	id := studentID
	courses, err := s.List(ctx, models.CourseFilter{AvailableFor: &id})
	if err != nil {
		return nil, nil, err
	}
	open = []models.CourseSummary{}
	full = []models.CourseSummary{}
	for _, c := range courses {
		if c.HasCapacity {
			open = append(open, c)
		} else {
			full = append(full, c)
		}
	}
	return open, full, nil
}
