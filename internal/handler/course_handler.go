package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error)
	Get(ctx context.Context, id int64) (*models.Course, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	catalog catalogService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(catalog catalogService) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// List godoc
// @Summary List courses
// @Description Students may pass available=true to hide courses they already take.
// @Tags Courses
// @Produce json
// @Param language query string false "Teaching language"
// @Param format query string false "campus, online or blended"
// @Param lecturer_id query int false "Lecturer"
// @Param available query bool false "Only courses the caller is not enrolled in"
// @Param open query bool false "Only courses with free places"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lecturerID, ok := optionalQueryID(c, "lecturer_id")
	if !ok {
		return
	}
	filter := models.CourseFilter{
		Language:   c.Query("language"),
		Format:     models.CourseFormat(strings.ToLower(strings.TrimSpace(c.Query("format")))),
		LecturerID: lecturerID,
		OnlyOpen:   queryBool(c, "open"),
	}
	if student, isStudent := actor.(models.StudentIdentity); isStudent && queryBool(c, "available") {
		id := student.ID
		filter.AvailableFor = &id
	}

	courses, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	course, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return err == nil && v
}
