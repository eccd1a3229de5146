package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeMessageSrv struct {
	receiver models.Identity
	draft    models.Draft
	courseID int64
	cohort   models.CohortSelector
	readIDs  []int64
	page     models.Page
	err      error
}

func (f *fakeMessageSrv) Send(_ context.Context, _ models.Identity, receiver models.Identity, draft models.Draft) (*models.MessageView, error) {
	f.receiver = receiver
	f.draft = draft
	if f.err != nil {
		return nil, f.err
	}
	return &models.MessageView{Message: models.Message{ID: 1, Title: draft.Title}}, nil
}

func (f *fakeMessageSrv) SendToCourseRoster(_ context.Context, _ models.Identity, courseID int64, _ models.Draft) (models.FanOut, error) {
	f.courseID = courseID
	return models.FanOut{ReceiverRole: models.RoleStudent}, f.err
}

func (f *fakeMessageSrv) SendToCohort(_ context.Context, _ models.Identity, selector models.CohortSelector, _ models.Draft) (models.FanOut, error) {
	f.cohort = selector
	return models.FanOut{ReceiverRole: selector.ReceiverRole(), ReceiverIDs: []int64{4}, Count: 1}, f.err
}

func (f *fakeMessageSrv) MarkRead(_ context.Context, _ models.Identity, ids []int64) ([]int64, error) {
	f.readIDs = ids
	return ids, f.err
}

func (f *fakeMessageSrv) MarkAllRead(context.Context, models.Identity) (int64, error) {
	return 3, f.err
}

func (f *fakeMessageSrv) UnreadCount(context.Context, models.Identity) (int, error) {
	return 2, f.err
}

func (f *fakeMessageSrv) ListInbox(_ context.Context, _ models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error) {
	f.page = page
	return []models.MessageView{}, &models.Pagination{Page: 2, PageSize: page.Limit, TotalCount: 12}, f.err
}

func (f *fakeMessageSrv) ListSent(_ context.Context, _ models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error) {
	f.page = page
	return []models.MessageView{}, &models.Pagination{Page: 1, PageSize: page.Limit}, f.err
}

func (f *fakeMessageSrv) Recipients(context.Context) ([]models.Party, error) {
	return []models.Party{{Role: models.RoleAdmin, ID: models.AdminID, Name: models.AdminDisplayName}}, f.err
}

func TestMessageSendParsesReceiver(t *testing.T) {
	messages := &fakeMessageSrv{}
	h := NewMessageHandler(messages)
	body := map[string]interface{}{"receiver_role": "Lecturer", "receiver_id": 2, "title": "Hi", "content": "Question"}
	c, rec := newContext(http.MethodPost, "/api/v1/messages", body, models.StudentIdentity{ID: 3})

	h.Send(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.LecturerIdentity{ID: 2}, messages.receiver)
	assert.Equal(t, "Question", messages.draft.Content)
}

func TestMessageSendToAdminIgnoresID(t *testing.T) {
	messages := &fakeMessageSrv{}
	h := NewMessageHandler(messages)
	body := map[string]interface{}{"receiver_role": "admin", "title": "Hi", "content": "x"}
	c, rec := newContext(http.MethodPost, "/api/v1/messages", body, models.StudentIdentity{ID: 3})

	h.Send(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, models.IsAdmin(messages.receiver))
}

func TestMessageSendUnknownRole(t *testing.T) {
	h := NewMessageHandler(&fakeMessageSrv{})
	body := map[string]interface{}{"receiver_role": "parent", "receiver_id": 1, "title": "Hi", "content": "x"}
	c, rec := newContext(http.MethodPost, "/api/v1/messages", body, models.StudentIdentity{ID: 3})

	h.Send(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageSendCourseEmptyRoster(t *testing.T) {
	messages := &fakeMessageSrv{err: appErrors.ErrEmptyRoster}
	h := NewMessageHandler(messages)
	body := map[string]interface{}{"course_id": 7, "title": "Exam", "content": "Room change"}
	c, rec := newContext(http.MethodPost, "/api/v1/messages/course", body, models.LecturerIdentity{ID: 2})

	h.SendCourse(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, int64(7), messages.courseID)
}

func TestMessageSendCohort(t *testing.T) {
	messages := &fakeMessageSrv{}
	h := NewMessageHandler(messages)
	body := map[string]interface{}{"cohort": "ects_below_minimum", "title": "ECTS", "content": "Please enroll"}
	c, rec := newContext(http.MethodPost, "/api/v1/messages/cohort", body, models.Admin)

	h.SendCohort(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.CohortECTSBelowMinimum, messages.cohort)
}

func TestMessageInboxPagination(t *testing.T) {
	messages := &fakeMessageSrv{}
	h := NewMessageHandler(messages)
	c, rec := newContext(http.MethodGet, "/api/v1/messages/inbox?page=2&limit=5", nil, models.StudentIdentity{ID: 3})

	h.Inbox(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Page{Limit: 5, Offset: 5}, messages.page)
	env := decodeEnvelope(rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 12, env.Pagination.TotalCount)
	assert.Equal(t, float64(2), env.Meta["unread"])
}

func TestMessageMarkRead(t *testing.T) {
	messages := &fakeMessageSrv{}
	h := NewMessageHandler(messages)
	c, rec := newContext(http.MethodPost, "/api/v1/messages/read", map[string][]int64{"ids": {4, 5}}, models.StudentIdentity{ID: 3})

	h.MarkRead(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{4, 5}, messages.readIDs)
	assert.JSONEq(t, `{"updated":[4,5]}`, string(decodeEnvelope(rec).Data))
}
