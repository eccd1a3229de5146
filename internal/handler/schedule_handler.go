package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type scheduleService interface {
	ForStudent(ctx context.Context, actor models.Identity, studentID int64) (dto.TimetableGrid, error)
	ForLecturer(ctx context.Context, lecturerID int64) (dto.TimetableGrid, error)
	ForCourse(ctx context.Context, courseID int64) (dto.TimetableGrid, error)
	ForRoom(ctx context.Context, roomID int64) (dto.RoomTimetable, error)
	RoomOverview(ctx context.Context) ([]dto.RoomTimetable, error)
}

// ScheduleHandler serves weekly timetables.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Student godoc
// @Summary Timetable of a student
// @Tags Schedules
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/students/{id} [get]
func (h *ScheduleHandler) Student(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	grid, err := h.schedules.ForStudent(c.Request.Context(), actor, id)
	respondGrid(c, grid, err)
}

// Lecturer godoc
// @Summary Timetable of a lecturer
// @Tags Schedules
// @Produce json
// @Param id path int true "Lecturer ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/lecturers/{id} [get]
func (h *ScheduleHandler) Lecturer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	grid, err := h.schedules.ForLecturer(c.Request.Context(), id)
	respondGrid(c, grid, err)
}

// Course godoc
// @Summary Weekly meetings of a course
// @Tags Schedules
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/courses/{id} [get]
func (h *ScheduleHandler) Course(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	grid, err := h.schedules.ForCourse(c.Request.Context(), id)
	respondGrid(c, grid, err)
}

// Room godoc
// @Summary Timetable of a room
// @Description Concurrent sessions in the same slot, as in the online room, are all listed in the cell.
// @Tags Schedules
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/rooms/{id} [get]
func (h *ScheduleHandler) Room(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	room, err := h.schedules.ForRoom(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Rooms godoc
// @Summary Timetables of every room
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/rooms [get]
func (h *ScheduleHandler) Rooms(c *gin.Context) {
	rooms, err := h.schedules.RoomOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

func respondGrid(c *gin.Context, grid dto.TimetableGrid, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
