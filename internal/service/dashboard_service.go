package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type profileReader interface {
	Student(ctx context.Context, id int64) (*models.Student, error)
	Lecturer(ctx context.Context, id int64) (*models.Lecturer, error)
}

type academicReader interface {
	Record(ctx context.Context, studentID int64) (*models.AcademicRecord, error)
	Progress(ctx context.Context, lecturerID int64) ([]models.GradingProgress, error)
	Distribution(ctx context.Context, lecturerID int64) ([]models.CourseDistribution, error)
	FlaggedByGPA(ctx context.Context) ([]models.FlaggedStudent, error)
}

type timetableReader interface {
	ForStudent(ctx context.Context, actor models.Identity, studentID int64) (dto.TimetableGrid, error)
	ForLecturer(ctx context.Context, lecturerID int64) (dto.TimetableGrid, error)
	RoomOverview(ctx context.Context) ([]dto.RoomTimetable, error)
}

type courseLister interface {
	AvailableFor(ctx context.Context, studentID int64) (open, full []models.CourseSummary, err error)
	ByLecturer(ctx context.Context, lecturerID int64) ([]models.CourseSummary, error)
}

type unreadCounter interface {
	UnreadCount(ctx context.Context, viewer models.Identity) (int, error)
}

type requirementReporter interface {
	FlaggedByECTS(ctx context.Context, minimum int) ([]models.FlaggedStudent, error)
	FlaggedByLanguage(ctx context.Context, minimum int) ([]models.FlaggedStudent, error)
}

type lecturerReporter interface {
	Overview(ctx context.Context) ([]models.LecturerOverview, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	Requirements models.Requirements
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Profiles     profileReader
	Academics    academicReader
	Timetables   timetableReader
	Courses      courseLister
	Messages     unreadCounter
	Requirements requirementReporter
	Lecturers    lecturerReporter
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	Config       DashboardServiceConfig
}

// DashboardService composes the role specific dashboards. Payloads are cached
// per identity and dropped whenever enrollments, grades or the inbox change.
type DashboardService struct {
	profiles     profileReader
	academics    academicReader
	timetables   timetableReader
	courses      courseLister
	messages     unreadCounter
	requirements requirementReporter
	lecturers    lecturerReporter
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
	cfg          DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		profiles:     params.Profiles,
		academics:    params.Academics,
		timetables:   params.Timetables,
		courses:      params.Courses,
		messages:     params.Messages,
		requirements: params.Requirements,
		lecturers:    params.Lecturers,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Student returns a student's dashboard and whether it came from cache.
func (s *DashboardService) Student(ctx context.Context, actor models.Identity, studentID int64) (*dto.StudentDashboardResponse, bool, error) {
	if err := authorizeRecordRead(actor, studentID); err != nil {
		return nil, false, err
	}
	if _, ok := actor.(models.LecturerIdentity); ok {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "lecturers cannot open student dashboards")
	}
	who := models.StudentIdentity{ID: studentID}
	var cached dto.StudentDashboardResponse
	if hit := s.tryCache(ctx, who, &cached); hit {
		return &cached, true, nil
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard_student", time.Since(start)) }()

	profile, err := s.profiles.Student(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	record, err := s.academics.Record(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	timetable, err := s.timetables.ForStudent(ctx, actor, studentID)
	if err != nil {
		return nil, false, err
	}
	open, full, err := s.courses.AvailableFor(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	unread, err := s.messages.UnreadCount(ctx, who)
	if err != nil {
		return nil, false, err
	}

	summary := &dto.StudentDashboardResponse{
		Profile:     *profile,
		Courses:     record.Courses,
		ECTS:        record.ECTS,
		GPA:         record.GPA,
		GPADisplay:  record.GPA.Display(),
		Timetable:   timetable,
		Available:   open,
		Full:        full,
		Unread:      unread,
		GeneratedAt: s.now().UTC(),
	}
	s.persistCache(ctx, who, summary)
	return summary, false, nil
}

// Lecturer returns a lecturer's dashboard and whether it came from cache.
func (s *DashboardService) Lecturer(ctx context.Context, actor models.Identity, lecturerID int64) (*dto.LecturerDashboardResponse, bool, error) {
	if !models.IsAdmin(actor) && !models.IsLecturer(actor, lecturerID) {
		if actor == nil {
			return nil, false, appErrors.ErrUnauthorized
		}
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "lecturers may only open their own dashboard")
	}
	who := models.LecturerIdentity{ID: lecturerID}
	var cached dto.LecturerDashboardResponse
	if hit := s.tryCache(ctx, who, &cached); hit {
		return &cached, true, nil
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard_lecturer", time.Since(start)) }()

	profile, err := s.profiles.Lecturer(ctx, lecturerID)
	if err != nil {
		return nil, false, err
	}
	courses, err := s.courses.ByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, false, err
	}
	progress, err := s.academics.Progress(ctx, lecturerID)
	if err != nil {
		return nil, false, err
	}
	distribution, err := s.academics.Distribution(ctx, lecturerID)
	if err != nil {
		return nil, false, err
	}
	timetable, err := s.timetables.ForLecturer(ctx, lecturerID)
	if err != nil {
		return nil, false, err
	}
	unread, err := s.messages.UnreadCount(ctx, who)
	if err != nil {
		return nil, false, err
	}

	summary := &dto.LecturerDashboardResponse{
		Profile:      *profile,
		Courses:      courses,
		Progress:     progress,
		Distribution: distribution,
		Timetable:    timetable,
		Unread:       unread,
		GeneratedAt:  s.now().UTC(),
	}
	s.persistCache(ctx, who, summary)
	return summary, false, nil
}

// Admin returns the admin dashboard. It is rebuilt on every call because the
// flagged cohorts must reflect the current enrollments.
func (s *DashboardService) Admin(ctx context.Context, actor models.Identity) (*dto.AdminDashboardResponse, error) {
	if !models.IsAdmin(actor) {
		if actor == nil {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin only")
	}
	req := s.cfg.Requirements
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard_admin", time.Since(start)) }()

	byECTS, err := s.requirements.FlaggedByECTS(ctx, req.MinimumECTS)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list students below the ECTS minimum")
	}
	byLanguage, err := s.requirements.FlaggedByLanguage(ctx, req.LanguageMinimumECTS)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list students below the language minimum")
	}
	byGPA, err := s.academics.FlaggedByGPA(ctx)
	if err != nil {
		return nil, err
	}
	overview, err := s.lecturers.Overview(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load lecturer overview")
	}
	rooms, err := s.timetables.RoomOverview(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadCount(ctx, models.Admin)
	if err != nil {
		return nil, err
	}

	return &dto.AdminDashboardResponse{
		Flagged: dto.FlaggedStudentsSection{
			ECTS:     nonNilFlagged(byECTS),
			Language: nonNilFlagged(byLanguage),
			GPA:      nonNilFlagged(byGPA),
		},
		Lecturers:   overview,
		Rooms:       rooms,
		Unread:      unread,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *DashboardService) tryCache(ctx context.Context, who models.Identity, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, DashboardKey(who), dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, who models.Identity, value interface{}) {
	if s.cache == nil {
		return
	}
	key := DashboardKey(who)
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func nonNilFlagged(in []models.FlaggedStudent) []models.FlaggedStudent {
	if in == nil {
		return []models.FlaggedStudent{}
	}
	return in
}
