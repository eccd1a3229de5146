package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor models.Identity, req models.EnrollmentRequest) (*models.Enrollment, error)
	Disenroll(ctx context.Context, actor models.Identity, req models.EnrollmentRequest) error
	Roster(ctx context.Context, actor models.Identity, courseID int64) ([]models.RosterEntry, error)
}

type gradeWriter interface {
	SetGrades(ctx context.Context, actor models.Identity, courseID *int64, updates []models.GradeUpdate) (models.GradeBatchResult, error)
}

type profileService interface {
	UpdateContact(ctx context.Context, actor models.Identity, actorUserID string, update models.ContactUpdate) error
}

// LegacyHandler serves the endpoints the original portal frontend calls,
// keeping their request and response bodies byte compatible.
type LegacyHandler struct {
	enrollments enrollmentService
	grades      gradeWriter
	profiles    profileService
	logger      *zap.Logger
}

// NewLegacyHandler constructs LegacyHandler.
func NewLegacyHandler(enrollments enrollmentService, grades gradeWriter, profiles profileService, logger *zap.Logger) *LegacyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegacyHandler{enrollments: enrollments, grades: grades, profiles: profiles, logger: logger}
}

type legacyEnrollmentPayload struct {
	StudentID interface{} `json:"student_id"`
	CourseID  interface{} `json:"course_id"`
}

// request accepts numeric or string ids, as the portal frontend sends both.
func (p legacyEnrollmentPayload) request() (models.EnrollmentRequest, bool) {
	studentID, err := looseID(p.StudentID)
	if err != nil {
		return models.EnrollmentRequest{}, false
	}
	courseID, err := looseID(p.CourseID)
	if err != nil {
		return models.EnrollmentRequest{}, false
	}
	return models.EnrollmentRequest{StudentID: studentID, CourseID: courseID}, true
}

type legacyGradesPayload struct {
	Updates json.RawMessage `json:"updates"`
}

type legacyGradeRow struct {
	EnrollmentID interface{}     `json:"enrollment_id"`
	Grade        json.RawMessage `json:"grade"`
}

type legacyProfilePayload struct {
	UserID  string `json:"userId"`
	Role    string `json:"role"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type legacyRosterPayload struct {
	CourseID interface{} `json:"courseId"`
}

// Enroll godoc
// @Summary Enroll a student (legacy)
// @Tags Legacy
// @Accept json
// @Produce json
// @Param payload body legacyEnrollmentPayload true "student_id and course_id"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.LegacyError
// @Failure 409 {object} response.LegacyError
// @Router /api/enroll [post]
func (h *LegacyHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload legacyEnrollmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing student_id or course_id"))
		return
	}
	req, ok := payload.request()
	if !ok {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing student_id or course_id"))
		return
	}
	if _, err := h.enrollments.Enroll(c.Request.Context(), actor, req); err != nil {
		response.LegacyFail(c, err)
		return
	}
	response.Legacy(c, http.StatusOK, gin.H{"success": true})
}

// Disenroll godoc
// @Summary Remove a student from a course (legacy)
// @Tags Legacy
// @Accept json
// @Produce json
// @Param payload body legacyEnrollmentPayload true "course_id and student_id"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.LegacyError
// @Failure 404 {object} response.LegacyError
// @Router /api/disenroll [delete]
func (h *LegacyHandler) Disenroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload legacyEnrollmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing course_id or student_id"))
		return
	}
	req, ok := payload.request()
	if !ok {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing course_id or student_id"))
		return
	}
	if err := h.enrollments.Disenroll(c.Request.Context(), actor, req); err != nil {
		response.LegacyFail(c, err)
		return
	}
	response.Legacy(c, http.StatusOK, gin.H{"message": "Successfully disenrolled student"})
}

// UpdateGrades godoc
// @Summary Apply a batch of grade changes (legacy)
// @Description Rows are applied in order and the batch stops at the first failing row.
// @Tags Legacy
// @Accept json
// @Param payload body legacyGradesPayload true "updates array"
// @Success 200
// @Failure 400 {object} response.LegacyError
// @Failure 404 {object} response.LegacyError
// @Router /api/update-grades [post]
func (h *LegacyHandler) UpdateGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload legacyGradesPayload
	var rows []legacyGradeRow
	if err := c.ShouldBindJSON(&payload); err != nil || json.Unmarshal(payload.Updates, &rows) != nil || rows == nil {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing or invalid updates array"))
		return
	}

	updates := make([]models.GradeUpdate, 0, len(rows))
	for _, row := range rows {
		update, err := parseLegacyGradeRow(row)
		if err != nil {
			response.LegacyFail(c, err)
			return
		}
		updates = append(updates, update)
	}

	if _, err := h.grades.SetGrades(c.Request.Context(), actor, nil, updates); err != nil {
		response.LegacyFail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// UpdateProfile godoc
// @Summary Update phone and address (legacy)
// @Tags Legacy
// @Accept json
// @Produce json
// @Param payload body legacyProfilePayload true "profile payload"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.LegacyError
// @Router /api/update-profile [post]
func (h *LegacyHandler) UpdateProfile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload legacyProfilePayload
	err := c.ShouldBindJSON(&payload)
	role := models.Role(strings.ToLower(strings.TrimSpace(payload.Role)))
	if err != nil || strings.TrimSpace(payload.UserID) == "" || (role != models.RoleStudent && role != models.RoleLecturer) {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing or invalid parameters"))
		return
	}
	update := models.ContactUpdate{
		UserID:  payload.UserID,
		Role:    role,
		Phone:   payload.Phone,
		Address: payload.Address,
	}
	if err := h.profiles.UpdateContact(c.Request.Context(), actor, claimsFromContext(c).UserID(), update); err != nil {
		response.LegacyFail(c, err)
		return
	}
	response.Legacy(c, http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// FetchEnrollments godoc
// @Summary Course roster with student names (legacy)
// @Tags Legacy
// @Accept json
// @Produce json
// @Param payload body legacyRosterPayload true "courseId"
// @Success 200 {object} map[string][]models.RosterEntry
// @Failure 400 {object} response.LegacyError
// @Router /api/fetch-enrollments [post]
func (h *LegacyHandler) FetchEnrollments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload legacyRosterPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing courseId"))
		return
	}
	courseID, err := looseID(payload.CourseID)
	if err != nil {
		response.LegacyFail(c, appErrors.Clone(appErrors.ErrValidation, "Missing courseId"))
		return
	}
	roster, err := h.enrollments.Roster(c.Request.Context(), actor, courseID)
	if err != nil {
		response.LegacyFail(c, err)
		return
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	response.Legacy(c, http.StatusOK, gin.H{"enrollments": roster})
}

func parseLegacyGradeRow(row legacyGradeRow) (models.GradeUpdate, error) {
	id, err := looseID(row.EnrollmentID)
	if err != nil {
		return models.GradeUpdate{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Invalid enrollment_id value: %v", row.EnrollmentID))
	}
	update := models.GradeUpdate{EnrollmentID: id}
	raw := strings.TrimSpace(string(row.Grade))
	if raw == "" || raw == "null" {
		return update, nil
	}
	var grade float64
	if err := json.Unmarshal(row.Grade, &grade); err != nil {
		return models.GradeUpdate{}, appErrors.Clone(appErrors.ErrInvalidGrade, "Invalid grade")
	}
	update.Grade = &grade
	return update, nil
}

// looseID accepts ids sent as JSON numbers or numeric strings.
func looseID(v interface{}) (int64, error) {
	var id int64
	switch typed := v.(type) {
	case float64:
		if typed != float64(int64(typed)) {
			return 0, fmt.Errorf("non-integer id %v", typed)
		}
		id = int64(typed)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, err
		}
		id = parsed
	default:
		return 0, fmt.Errorf("unsupported id %v", v)
	}
	if id < 1 {
		return 0, fmt.Errorf("id %d out of range", id)
	}
	return id, nil
}
