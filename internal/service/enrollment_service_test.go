package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// fakeEnrollmentStore serializes enrollments per store the way the course row lock does.
type fakeEnrollmentStore struct {
	mu      sync.Mutex
	courses map[int64]models.Course
	rows    []models.Enrollment
	nextID  int64
}

func newFakeEnrollmentStore(courses ...models.Course) *fakeEnrollmentStore {
	f := &fakeEnrollmentStore{courses: map[int64]models.Course{}}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return f
}

func (f *fakeEnrollmentStore) Enroll(ctx context.Context, studentID, courseID int64, date time.Time) (*models.Enrollment, *models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	course, ok := f.courses[courseID]
	if !ok {
		return nil, nil, models.ErrCourseNotFound
	}
	enrolled := 0
	for _, e := range f.rows {
		if e.CourseID != courseID {
			continue
		}
		if e.StudentID == studentID {
			return nil, nil, models.ErrAlreadyEnrolled
		}
		enrolled++
	}
	if !course.HasCapacity(enrolled) {
		return nil, nil, models.ErrCourseFull
	}
	f.nextID++
	e := models.Enrollment{EnrollmentID: f.nextID, StudentID: studentID, CourseID: courseID, EnrollmentDate: date}
	f.rows = append(f.rows, e)
	return &e, &course, nil
}

func (f *fakeEnrollmentStore) Disenroll(ctx context.Context, studentID, courseID int64) (*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.rows {
		if e.StudentID == studentID && e.CourseID == courseID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return f.courses[courseID].LecturerID, nil
		}
	}
	return nil, models.ErrEnrollmentNotFound
}

func (f *fakeEnrollmentStore) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RosterEntry
	for _, e := range f.rows {
		if e.CourseID == courseID {
			out = append(out, models.RosterEntry{EnrollmentID: e.EnrollmentID, StudentID: e.StudentID, Grade: e.Grade})
		}
	}
	return out, nil
}

func (f *fakeEnrollmentStore) count(courseID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.rows {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

func newEnrollmentFixture(students int, courses ...models.Course) (*EnrollmentService, *fakeEnrollmentStore, *fakeCacheRepo) {
	people := make([]models.Person, 0, students)
	for i := 1; i <= students; i++ {
		people = append(people, person(int64(i), "Student", "No"))
	}
	store := newFakeEnrollmentStore(courses...)
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewEnrollmentService(store, newFakeStudents(people...), newFakeCourses(courses...), cache, NewMetricsService(), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 10, 1, 15, 30, 0, 0, time.UTC) }
	return svc, store, cacheRepo
}

func TestEnrollmentServiceCapacityScenario(t *testing.T) {
	course := models.Course{ID: 7, Name: "Databases", ECTS: 6, MaxParticipants: intPtr(2), LecturerID: int64Ptr(3)}
	svc, store, _ := newEnrollmentFixture(3, course)
	ctx := context.Background()

	for _, sid := range []int64{1, 2} {
		_, err := svc.Enroll(ctx, models.StudentIdentity{ID: sid}, models.EnrollmentRequest{StudentID: sid, CourseID: 7})
		require.NoError(t, err)
	}

	_, err := svc.Enroll(ctx, models.StudentIdentity{ID: 3}, models.EnrollmentRequest{StudentID: 3, CourseID: 7})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCapacityExceeded.Code))
	assert.True(t, appErrors.IsConflict(err))
	assert.Equal(t, 2, store.count(7))
}

func TestEnrollmentServiceMapsContendedEnrollsToCapacityErrors(t *testing.T) {
	course := models.Course{ID: 9, Name: "Statistics", ECTS: 4, MaxParticipants: intPtr(5)}
	svc, store, _ := newEnrollmentFixture(40, course)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, full := 0, 0
	for i := int64(1); i <= 40; i++ {
		wg.Add(1)
		go func(sid int64) {
			defer wg.Done()
			_, err := svc.Enroll(context.Background(), models.StudentIdentity{ID: sid}, models.EnrollmentRequest{StudentID: sid, CourseID: 9})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if appErrors.IsCode(err, appErrors.ErrCapacityExceeded.Code) {
				full++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 35, full)
	assert.Equal(t, 5, store.count(9))
}

func TestEnrollmentServiceDuplicateIsConflict(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1, models.Course{ID: 1, ECTS: 5})
	req := models.EnrollmentRequest{StudentID: 1, CourseID: 1}

	_, err := svc.Enroll(context.Background(), models.StudentIdentity{ID: 1}, req)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), models.StudentIdentity{ID: 1}, req)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrConflict.Code))
}

func TestEnrollmentServiceSetsTodayAndInvalidatesDashboards(t *testing.T) {
	svc, _, cacheRepo := newEnrollmentFixture(1, models.Course{ID: 4, ECTS: 5, LecturerID: int64Ptr(8)})

	enrollment, err := svc.Enroll(context.Background(), models.StudentIdentity{ID: 1}, models.EnrollmentRequest{StudentID: 1, CourseID: 4})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), enrollment.EnrollmentDate)
	assert.Nil(t, enrollment.Grade)
	assert.ElementsMatch(t, []string{"dash:student:1", "dash:lecturer:8"}, cacheRepo.deletedKeys())
}

func TestEnrollmentServiceDropsEveryStudentDashboard(t *testing.T) {
	course := models.Course{ID: 9, Name: "Ethics", ECTS: 3, MaxParticipants: intPtr(1), LecturerID: int64Ptr(3)}
	svc, _, cacheRepo := newEnrollmentFixture(2, course)
	ctx := context.Background()
	require.NoError(t, cacheRepo.Set(ctx, "dash:student:1", map[string][]int64{"availableCourses": {9}}, time.Minute))
	require.NoError(t, cacheRepo.Set(ctx, "dash:lecturer:5", map[string]int{"courses": 1}, time.Minute))

	_, err := svc.Enroll(ctx, models.StudentIdentity{ID: 2}, models.EnrollmentRequest{StudentID: 2, CourseID: 9})
	require.NoError(t, err)

	assert.False(t, cacheRepo.has("dash:student:1"))
	assert.True(t, cacheRepo.has("dash:lecturer:5"))

	require.NoError(t, cacheRepo.Set(ctx, "dash:student:1", map[string][]int64{"fullCourses": {9}}, time.Minute))
	require.NoError(t, svc.Disenroll(ctx, models.StudentIdentity{ID: 2}, models.EnrollmentRequest{StudentID: 2, CourseID: 9}))

	assert.False(t, cacheRepo.has("dash:student:1"))
	assert.Equal(t, []string{"dash:student:*", "dash:student:*"}, cacheRepo.patterns)
}

func TestEnrollmentServiceAuthorization(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(2, models.Course{ID: 1, ECTS: 5})
	req := models.EnrollmentRequest{StudentID: 2, CourseID: 1}

	_, err := svc.Enroll(context.Background(), models.StudentIdentity{ID: 1}, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Enroll(context.Background(), models.LecturerIdentity{ID: 2}, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Enroll(context.Background(), nil, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrUnauthorized.Code))

	_, err = svc.Enroll(context.Background(), models.Admin, req)
	assert.NoError(t, err)
}

func TestEnrollmentServiceValidationAndMissingRows(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1, models.Course{ID: 1, ECTS: 5})

	_, err := svc.Enroll(context.Background(), models.Admin, models.EnrollmentRequest{StudentID: 1})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Enroll(context.Background(), models.Admin, models.EnrollmentRequest{StudentID: 1, CourseID: 99})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Enroll(context.Background(), models.Admin, models.EnrollmentRequest{StudentID: 42, CourseID: 1})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestEnrollmentServiceRoundTrip(t *testing.T) {
	svc, store, _ := newEnrollmentFixture(1, models.Course{ID: 3, ECTS: 5, MaxParticipants: intPtr(1)})
	ctx := context.Background()
	student := models.StudentIdentity{ID: 1}
	req := models.EnrollmentRequest{StudentID: 1, CourseID: 3}

	_, err := svc.Enroll(ctx, student, req)
	require.NoError(t, err)
	require.NoError(t, svc.Disenroll(ctx, student, req))
	assert.Equal(t, 0, store.count(3))

	err = svc.Disenroll(ctx, student, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Enroll(ctx, student, req)
	assert.NoError(t, err)
}

func TestEnrollmentServiceRosterRequiresCourseLecturer(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1, models.Course{ID: 5, ECTS: 5, LecturerID: int64Ptr(2)})
	_, err := svc.Enroll(context.Background(), models.Admin, models.EnrollmentRequest{StudentID: 1, CourseID: 5})
	require.NoError(t, err)

	_, err = svc.Roster(context.Background(), models.LecturerIdentity{ID: 3}, 5)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	roster, err := svc.Roster(context.Background(), models.LecturerIdentity{ID: 2}, 5)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, int64(1), roster[0].StudentID)

	_, err = svc.Roster(context.Background(), models.Admin, 404)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}
