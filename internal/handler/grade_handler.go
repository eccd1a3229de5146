package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type gradeService interface {
	gradeWriter
	ComputeGPA(ctx context.Context, actor models.Identity, studentID int64) (models.GPA, error)
	ComputeECTS(ctx context.Context, actor models.Identity, studentID int64) (models.ECTSSummary, error)
}

// GradeHandler exposes grading and academic standing endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// GradeBatchRequest is the body of PUT /courses/{id}/grades.
type GradeBatchRequest struct {
	Updates []models.GradeUpdate `json:"updates" binding:"required"`
}

// SetGrades godoc
// @Summary Grade enrollments of a course
// @Description Rows are applied in order. On failure the error names the row and earlier rows stay applied.
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body GradeBatchRequest true "Grade updates"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/grades [put]
func (h *GradeHandler) SetGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req GradeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.grades.SetGrades(c.Request.Context(), actor, &courseID, req.Updates)
	if err != nil {
		meta := map[string]interface{}{"applied": result.Applied}
		if result.FailedEnrollmentID != nil {
			meta["failed_enrollment_id"] = *result.FailedEnrollmentID
		}
		response.ErrorWithMeta(c, err, meta)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GPA godoc
// @Summary Weighted GPA of a student
// @Tags Grades
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *GradeHandler) GPA(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	gpa, err := h.grades.ComputeGPA(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gpa, nil)
}

// ECTS godoc
// @Summary ECTS totals of a student
// @Tags Grades
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/ects [get]
func (h *GradeHandler) ECTS(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.grades.ComputeECTS(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
