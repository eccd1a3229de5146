package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type messageService interface {
	Send(ctx context.Context, sender, receiver models.Identity, draft models.Draft) (*models.MessageView, error)
	SendToCourseRoster(ctx context.Context, sender models.Identity, courseID int64, draft models.Draft) (models.FanOut, error)
	SendToCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, draft models.Draft) (models.FanOut, error)
	MarkRead(ctx context.Context, viewer models.Identity, ids []int64) ([]int64, error)
	MarkAllRead(ctx context.Context, viewer models.Identity) (int64, error)
	UnreadCount(ctx context.Context, viewer models.Identity) (int, error)
	ListInbox(ctx context.Context, viewer models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error)
	ListSent(ctx context.Context, viewer models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error)
	Recipients(ctx context.Context) ([]models.Party, error)
}

// MessageHandler exposes the portal inbox.
type MessageHandler struct {
	messages messageService
}

// NewMessageHandler constructs MessageHandler.
func NewMessageHandler(messages messageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// SendMessageRequest addresses one receiver.
type SendMessageRequest struct {
	ReceiverRole string `json:"receiver_role" binding:"required"`
	ReceiverID   int64  `json:"receiver_id"`
	models.Draft
}

// CourseMessageRequest addresses every student of a course.
type CourseMessageRequest struct {
	CourseID int64 `json:"course_id" binding:"required,gt=0"`
	models.Draft
}

// CohortMessageRequest addresses a derived audience.
type CohortMessageRequest struct {
	Cohort models.CohortSelector `json:"cohort" binding:"required"`
	models.Draft
}

// MarkReadRequest lists inbox message ids to mark as read.
type MarkReadRequest struct {
	IDs []int64 `json:"ids"`
}

// Inbox godoc
// @Summary Messages received by the caller
// @Tags Messages
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /messages/inbox [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	messages, pagination, err := h.messages.ListInbox(c.Request.Context(), actor, pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.messages.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, pagination, map[string]interface{}{"unread": unread})
}

// Sent godoc
// @Summary Messages sent by the caller
// @Tags Messages
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /messages/sent [get]
func (h *MessageHandler) Sent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	messages, pagination, err := h.messages.ListSent(c.Request.Context(), actor, pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, pagination)
}

// Recipients godoc
// @Summary Everyone a message can be addressed to
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/recipients [get]
func (h *MessageHandler) Recipients(c *gin.Context) {
	parties, err := h.messages.Recipients(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parties, nil)
}

// Send godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	receiver, err := models.ParseIdentity(req.ReceiverRole, req.ReceiverID)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.messages.Send(c.Request.Context(), actor, receiver, req.Draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// SendCourse godoc
// @Summary Message every student of a course
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body CourseMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /messages/course [post]
func (h *MessageHandler) SendCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CourseMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	fanOut, err := h.messages.SendToCourseRoster(c.Request.Context(), actor, req.CourseID, req.Draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fanOut)
}

// SendCohort godoc
// @Summary Message a cohort
// @Description Cohorts: ects_below_minimum, language_requirement, all_students, all_lecturers.
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body CohortMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /messages/cohort [post]
func (h *MessageHandler) SendCohort(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CohortMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	fanOut, err := h.messages.SendToCohort(c.Request.Context(), actor, req.Cohort, req.Draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fanOut)
}

// MarkRead godoc
// @Summary Mark inbox messages as read
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body MarkReadRequest true "Message ids"
// @Success 200 {object} response.Envelope
// @Router /messages/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	changed, err := h.messages.MarkRead(c.Request.Context(), actor, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": changed}, nil)
}

// MarkAllRead godoc
// @Summary Mark the whole inbox as read
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/read-all [post]
func (h *MessageHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	n, err := h.messages.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": n}, nil)
}
