package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newContext(method, target string, body interface{}, actor models.Identity) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		raw, _ := json.Marshal(typed)
		reader = bytes.NewReader(raw)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if actor != nil {
		c.Set(middleware.ContextIdentityKey, actor)
		c.Set(middleware.ContextUserKey, &models.Claims{Role: actor.Role()})
	}
	return c, rec
}

func decodeEnvelope(rec *httptest.ResponseRecorder) responseEnvelope {
	var env responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return env
}

type fakeEnrollmentSrv struct {
	enrolled    []models.EnrollmentRequest
	disenrolled []models.EnrollmentRequest
	roster      []models.RosterEntry
	rosterFor   int64
	err         error
}

func (f *fakeEnrollmentSrv) Enroll(_ context.Context, _ models.Identity, req models.EnrollmentRequest) (*models.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enrolled = append(f.enrolled, req)
	return &models.Enrollment{EnrollmentID: 1, StudentID: req.StudentID, CourseID: req.CourseID}, nil
}

func (f *fakeEnrollmentSrv) Disenroll(_ context.Context, _ models.Identity, req models.EnrollmentRequest) error {
	if f.err != nil {
		return f.err
	}
	f.disenrolled = append(f.disenrolled, req)
	return nil
}

func (f *fakeEnrollmentSrv) Roster(_ context.Context, _ models.Identity, courseID int64) ([]models.RosterEntry, error) {
	f.rosterFor = courseID
	return f.roster, f.err
}

type fakeGradeSrv struct {
	courseID *int64
	updates  []models.GradeUpdate
	result   models.GradeBatchResult
	err      error
	gpa      models.GPA
	ects     models.ECTSSummary
}

func (f *fakeGradeSrv) SetGrades(_ context.Context, _ models.Identity, courseID *int64, updates []models.GradeUpdate) (models.GradeBatchResult, error) {
	f.courseID = courseID
	f.updates = updates
	return f.result, f.err
}

func (f *fakeGradeSrv) ComputeGPA(context.Context, models.Identity, int64) (models.GPA, error) {
	return f.gpa, f.err
}

func (f *fakeGradeSrv) ComputeECTS(context.Context, models.Identity, int64) (models.ECTSSummary, error) {
	return f.ects, f.err
}

type fakeProfileSrv struct {
	actorUserID string
	update      models.ContactUpdate
	err         error
}

func (f *fakeProfileSrv) UpdateContact(_ context.Context, _ models.Identity, actorUserID string, update models.ContactUpdate) error {
	f.actorUserID = actorUserID
	f.update = update
	return f.err
}

type fakeDashboardSrv struct {
	studentID  int64
	lecturerID int64
	hit        bool
	err        error
}

func (f *fakeDashboardSrv) Student(_ context.Context, _ models.Identity, studentID int64) (*dto.StudentDashboardResponse, bool, error) {
	f.studentID = studentID
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.StudentDashboardResponse{GPADisplay: "N/A"}, f.hit, nil
}

func (f *fakeDashboardSrv) Lecturer(_ context.Context, _ models.Identity, lecturerID int64) (*dto.LecturerDashboardResponse, bool, error) {
	f.lecturerID = lecturerID
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.LecturerDashboardResponse{}, f.hit, nil
}

func (f *fakeDashboardSrv) Admin(context.Context, models.Identity) (*dto.AdminDashboardResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AdminDashboardResponse{}, nil
}

type fakeExportSrv struct {
	studentID int64
	format    string
}

func (f *fakeExportSrv) Transcript(_ context.Context, _ models.Identity, studentID int64, format string) (*service.ExportFile, error) {
	f.studentID = studentID
	f.format = format
	return &service.ExportFile{Filename: "transcript-3.csv", ContentType: "text/csv", Data: []byte("Course,ECTS\n")}, nil
}

func (f *fakeExportSrv) CourseRoster(_ context.Context, _ models.Identity, courseID int64, format string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "roster.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func registered(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: subject}
}
