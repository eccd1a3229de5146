package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type exportService interface {
	Transcript(ctx context.Context, actor models.Identity, studentID int64, format string) (*service.ExportFile, error)
	CourseRoster(ctx context.Context, actor models.Identity, courseID int64, format string) (*service.ExportFile, error)
}

// ExportHandler streams CSV and PDF documents.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Transcript godoc
// @Summary Download a transcript
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param student_id query int false "Student ID (lecturer and admin)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /exports/transcript [get]
func (h *ExportHandler) Transcript(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID, ok := studentScope(c, actor)
	if !ok {
		return
	}
	file, err := h.exports.Transcript(c.Request.Context(), actor, studentID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Roster godoc
// @Summary Download a course roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /exports/courses/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	file, err := h.exports.CourseRoster(c.Request.Context(), actor, courseID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
