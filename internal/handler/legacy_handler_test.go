package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

func newLegacyHandler(enrollments *fakeEnrollmentSrv, grades *fakeGradeSrv, profiles *fakeProfileSrv) *LegacyHandler {
	return NewLegacyHandler(enrollments, grades, profiles, nil)
}

func TestLegacyEnrollSuccess(t *testing.T) {
	enrollments := &fakeEnrollmentSrv{}
	h := newLegacyHandler(enrollments, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/enroll", map[string]int64{"student_id": 3, "course_id": 7}, models.StudentIdentity{ID: 3})

	h.Enroll(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.Len(t, enrollments.enrolled, 1)
	assert.Equal(t, int64(7), enrollments.enrolled[0].CourseID)
}

func TestLegacyEnrollMissingFields(t *testing.T) {
	h := newLegacyHandler(&fakeEnrollmentSrv{}, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/enroll", map[string]int64{"student_id": 3}, models.StudentIdentity{ID: 3})

	h.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing student_id or course_id"}`, rec.Body.String())
}

func TestLegacyEnrollCapacityExceeded(t *testing.T) {
	h := newLegacyHandler(&fakeEnrollmentSrv{err: appErrors.Clone(appErrors.ErrCapacityExceeded, "course 7 is full")}, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/enroll", map[string]int64{"student_id": 3, "course_id": 7}, models.StudentIdentity{ID: 3})

	h.Enroll(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"course 7 is full"}`, rec.Body.String())
}

func TestLegacyDisenroll(t *testing.T) {
	enrollments := &fakeEnrollmentSrv{}
	h := newLegacyHandler(enrollments, nil, nil)
	c, rec := newContext(http.MethodDelete, "/api/disenroll", map[string]int64{"student_id": 3, "course_id": 7}, models.StudentIdentity{ID: 3})

	h.Disenroll(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Successfully disenrolled student"}`, rec.Body.String())
	assert.Len(t, enrollments.disenrolled, 1)
}

func TestLegacyEnrollmentAcceptsStringIDs(t *testing.T) {
	enrollments := &fakeEnrollmentSrv{}
	h := newLegacyHandler(enrollments, nil, nil)

	c, rec := newContext(http.MethodPost, "/api/enroll", `{"student_id":"3","course_id":" 7"}`, models.StudentIdentity{ID: 3})
	h.Enroll(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodDelete, "/api/disenroll", `{"student_id":3,"course_id":"7"}`, models.StudentIdentity{ID: 3})
	h.Disenroll(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, enrollments.enrolled, 1)
	require.Len(t, enrollments.disenrolled, 1)
	assert.Equal(t, models.EnrollmentRequest{StudentID: 3, CourseID: 7}, enrollments.enrolled[0])
	assert.Equal(t, models.EnrollmentRequest{StudentID: 3, CourseID: 7}, enrollments.disenrolled[0])
}

func TestLegacyEnrollmentRejectsMalformedIDs(t *testing.T) {
	enrollments := &fakeEnrollmentSrv{}
	h := newLegacyHandler(enrollments, nil, nil)

	for _, body := range []string{`{"student_id":"abc","course_id":7}`, `{"student_id":3,"course_id":7.5}`, `{"student_id":0,"course_id":"7"}`, `{"student_id":true,"course_id":7}`} {
		c, rec := newContext(http.MethodPost, "/api/enroll", body, models.StudentIdentity{ID: 3})
		h.Enroll(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Missing student_id or course_id"}`, rec.Body.String(), body)
	}

	c, rec := newContext(http.MethodDelete, "/api/disenroll", `{"student_id":"x","course_id":"7"}`, models.StudentIdentity{ID: 3})
	h.Disenroll(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing course_id or student_id"}`, rec.Body.String())
	assert.Empty(t, enrollments.enrolled)
	assert.Empty(t, enrollments.disenrolled)
}

func TestLegacyUpdateGradesEmptyBodyOnSuccess(t *testing.T) {
	grades := &fakeGradeSrv{}
	h := newLegacyHandler(nil, grades, nil)
	body := `{"updates":[{"enrollment_id":"11","grade":1.3},{"enrollment_id":12,"grade":null}]}`
	c, rec := newContext(http.MethodPost, "/api/update-grades", body, models.LecturerIdentity{ID: 2})

	h.UpdateGrades(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Nil(t, grades.courseID)
	require.Len(t, grades.updates, 2)
	assert.Equal(t, int64(11), grades.updates[0].EnrollmentID)
	assert.InDelta(t, 1.3, *grades.updates[0].Grade, 1e-9)
	assert.Nil(t, grades.updates[1].Grade)
}

func TestLegacyUpdateGradesRejectsNonArray(t *testing.T) {
	for _, body := range []string{`{}`, `{"updates":"x"}`, `{"updates":null}`, `not json`} {
		h := newLegacyHandler(nil, &fakeGradeSrv{}, nil)
		c, rec := newContext(http.MethodPost, "/api/update-grades", body, models.LecturerIdentity{ID: 2})

		h.UpdateGrades(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Missing or invalid updates array"}`, rec.Body.String(), body)
	}
}

func TestLegacyUpdateGradesInvalidRow(t *testing.T) {
	grades := &fakeGradeSrv{}
	h := newLegacyHandler(nil, grades, nil)
	c, rec := newContext(http.MethodPost, "/api/update-grades", `{"updates":[{"enrollment_id":0,"grade":2}]}`, models.LecturerIdentity{ID: 2})

	h.UpdateGrades(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid enrollment_id value: 0"}`, rec.Body.String())
	assert.Nil(t, grades.updates)

	c, rec = newContext(http.MethodPost, "/api/update-grades", `{"updates":[{"enrollment_id":4,"grade":"A"}]}`, models.LecturerIdentity{ID: 2})
	h.UpdateGrades(c)
	assert.JSONEq(t, `{"error":"Invalid grade"}`, rec.Body.String())
}

func TestLegacyUpdateGradesStopsOnFailure(t *testing.T) {
	failed := int64(12)
	grades := &fakeGradeSrv{
		result: models.GradeBatchResult{Applied: 1, FailedEnrollmentID: &failed},
		err:    appErrors.Clone(appErrors.ErrNotFound, "enrollment 12 not found in your courses"),
	}
	h := newLegacyHandler(nil, grades, nil)
	c, rec := newContext(http.MethodPost, "/api/update-grades", `{"updates":[{"enrollment_id":11,"grade":2},{"enrollment_id":12,"grade":2}]}`, models.LecturerIdentity{ID: 2})

	h.UpdateGrades(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "enrollment 12")
}

func TestLegacyUpdateProfile(t *testing.T) {
	profiles := &fakeProfileSrv{}
	h := newLegacyHandler(nil, nil, profiles)
	body := map[string]string{"userId": "u-1", "role": "student", "phone": "123", "address": "Main St"}
	c, rec := newContext(http.MethodPost, "/api/update-profile", body, models.StudentIdentity{ID: 3})
	c.Set(middleware.ContextUserKey, &models.Claims{Role: models.RoleStudent, RegisteredClaims: registered("u-1")})

	h.UpdateProfile(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Profile updated successfully"}`, rec.Body.String())
	assert.Equal(t, "u-1", profiles.actorUserID)
	assert.Equal(t, "Main St", profiles.update.Address)
}

func TestLegacyUpdateProfileMissingParameters(t *testing.T) {
	h := newLegacyHandler(nil, nil, &fakeProfileSrv{})
	c, rec := newContext(http.MethodPost, "/api/update-profile", map[string]string{"role": "student"}, models.StudentIdentity{ID: 3})

	h.UpdateProfile(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid parameters"}`, rec.Body.String())

	c, rec = newContext(http.MethodPost, "/api/update-profile", map[string]string{"userId": "u-1", "role": "admin"}, models.Admin)
	h.UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLegacyFetchEnrollments(t *testing.T) {
	grade := 2.0
	enrollments := &fakeEnrollmentSrv{roster: []models.RosterEntry{{
		EnrollmentID: 5, StudentID: 3, Grade: &grade,
		Student: models.RosterStudent{FirstName: "Ada", LastName: "Lovelace"},
	}}}
	h := newLegacyHandler(enrollments, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/fetch-enrollments", `{"courseId":"7"}`, models.LecturerIdentity{ID: 2})

	h.FetchEnrollments(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), enrollments.rosterFor)
	assert.JSONEq(t, `{"enrollments":[{"enrollment_id":5,"student_id":3,"grade":2,"students":{"first_name":"Ada","last_name":"Lovelace"}}]}`, rec.Body.String())
}

func TestLegacyFetchEnrollmentsMissingCourse(t *testing.T) {
	h := newLegacyHandler(&fakeEnrollmentSrv{}, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/fetch-enrollments", `{}`, models.LecturerIdentity{ID: 2})

	h.FetchEnrollments(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing courseId"}`, rec.Body.String())
}

func TestLegacyRequiresIdentity(t *testing.T) {
	h := newLegacyHandler(&fakeEnrollmentSrv{}, nil, nil)
	c, rec := newContext(http.MethodPost, "/api/enroll", map[string]int64{"student_id": 3, "course_id": 7}, nil)
	middleware.LegacyErrors()(c)

	h.Enroll(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}
