package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, actor models.Identity, studentID int64) (*dto.StudentDashboardResponse, bool, error)
	Lecturer(ctx context.Context, actor models.Identity, lecturerID int64) (*dto.LecturerDashboardResponse, bool, error)
	Admin(ctx context.Context, actor models.Identity) (*dto.AdminDashboardResponse, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Student godoc
// @Summary Student dashboard
// @Description Students get their own dashboard. The admin passes student_id.
// @Tags Dashboard
// @Produce json
// @Param student_id query int false "Student ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID, ok := studentScope(c, actor)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Student(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, start)
}

// Lecturer godoc
// @Summary Lecturer dashboard
// @Description Lecturers get their own dashboard. The admin passes lecturer_id.
// @Tags Dashboard
// @Produce json
// @Param lecturer_id query int false "Lecturer ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/lecturer [get]
func (h *DashboardHandler) Lecturer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lecturerID, ok := lecturerScope(c, actor)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Lecturer(c.Request.Context(), actor, lecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, start)
}

// Admin godoc
// @Summary Admin dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, err := h.service.Admin(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, false, start)
}

func respondDashboard(c *gin.Context, summary interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
