package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeMessageStore struct {
	messages []models.Message
	nextID   int64
	roster   map[int64][]int64
	ects     map[int64]int
	lastPage models.Page
}

func (f *fakeMessageStore) insert(sender models.Identity, role models.Role, receiver int64, draft models.Draft) {
	f.nextID++
	f.messages = append(f.messages, models.Message{
		ID: f.nextID, SenderRole: sender.Role(), SenderID: sender.Key(),
		ReceiverRole: role, ReceiverID: receiver, Title: draft.Title, Content: draft.Content,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, int(f.nextID), 0, time.UTC),
	})
}

func (f *fakeMessageStore) Insert(ctx context.Context, msg *models.Message) error {
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Date(2024, 1, 1, 0, 0, int(f.nextID), 0, time.UTC)
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) InsertForCourse(ctx context.Context, sender models.Identity, courseID int64, draft models.Draft) ([]int64, error) {
	ids := f.roster[courseID]
	for _, id := range ids {
		f.insert(sender, models.RoleStudent, id, draft)
	}
	return ids, nil
}

func (f *fakeMessageStore) InsertForCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, threshold int, draft models.Draft) ([]int64, error) {
	var ids []int64
	for id, total := range f.ects {
		if selector == models.CohortECTSBelowMinimum && total < threshold {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		f.insert(sender, selector.ReceiverRole(), id, draft)
	}
	return ids, nil
}

func (f *fakeMessageStore) MarkRead(ctx context.Context, receiver models.Identity, ids []int64) ([]int64, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var updated []int64
	for i := range f.messages {
		m := &f.messages[i]
		if want[m.ID] && m.ReceiverRole == receiver.Role() && m.ReceiverID == receiver.Key() && !m.IsRead {
			m.IsRead = true
			updated = append(updated, m.ID)
		}
	}
	return updated, nil
}

func (f *fakeMessageStore) MarkAllRead(ctx context.Context, receiver models.Identity) (int64, error) {
	var n int64
	for i := range f.messages {
		m := &f.messages[i]
		if m.ReceiverRole == receiver.Role() && m.ReceiverID == receiver.Key() && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageStore) UnreadCount(ctx context.Context, receiver models.Identity) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ReceiverRole == receiver.Role() && m.ReceiverID == receiver.Key() && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageStore) Inbox(ctx context.Context, receiver models.Identity, page models.Page) ([]models.Message, int, error) {
	f.lastPage = page
	var out []models.Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.ReceiverRole == receiver.Role() && m.ReceiverID == receiver.Key() {
			out = append(out, m)
		}
	}
	return out, len(out), nil
}

func (f *fakeMessageStore) Sent(ctx context.Context, sender models.Identity, page models.Page) ([]models.Message, int, error) {
	var out []models.Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.SenderRole == sender.Role() && m.SenderID == sender.Key() {
			out = append(out, m)
		}
	}
	return out, len(out), nil
}

func newMessageFixture(store *fakeMessageStore) (*MessageService, *fakeCacheRepo) {
	directory := NewDirectoryService(
		newFakeStudents(person(1, "Ada", "Lovelace"), person(2, "Alan", "Turing"), person(3, "Grace", "Hopper")),
		newFakeLecturers(person(7, "Barbara", "Liskov")),
		zap.NewNop(),
	)
	courses := newFakeCourses(
		models.Course{ID: 20, Name: "Compilers", ECTS: 6, LecturerID: int64Ptr(7)},
		models.Course{ID: 21, Name: "Empty", ECTS: 3, LecturerID: int64Ptr(7)},
	)
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return NewMessageService(store, directory, courses, testRequirements, cache, NewMetricsService(), nil, zap.NewNop()), cacheRepo
}

func TestMessageServiceSend(t *testing.T) {
	store := &fakeMessageStore{}
	svc, cacheRepo := newMessageFixture(store)

	view, err := svc.Send(context.Background(), models.StudentIdentity{ID: 1}, models.LecturerIdentity{ID: 7}, models.Draft{Title: " Question ", Content: "When is the exam?"})
	require.NoError(t, err)
	assert.Equal(t, "Question", view.Title)
	assert.False(t, view.IsRead)
	assert.Equal(t, "Ada Lovelace", view.SenderName)
	assert.Equal(t, "Barbara Liskov", view.ReceiverName)
	assert.Equal(t, []string{"dash:lecturer:7"}, cacheRepo.deletedKeys())

	toAdmin, err := svc.Send(context.Background(), models.LecturerIdentity{ID: 7}, models.Admin, models.Draft{Title: "Hi", Content: "Room B is broken"})
	require.NoError(t, err)
	assert.Equal(t, models.AdminDisplayName, toAdmin.ReceiverName)
	assert.Equal(t, models.AdminID, toAdmin.ReceiverID)
}

func TestMessageServiceSendValidation(t *testing.T) {
	svc, _ := newMessageFixture(&fakeMessageStore{})
	ctx := context.Background()

	_, err := svc.Send(ctx, models.Admin, models.StudentIdentity{ID: 1}, models.Draft{Title: "  ", Content: "body"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Send(ctx, models.Admin, models.StudentIdentity{ID: 1}, models.Draft{Title: "title"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Send(ctx, models.Admin, models.StudentIdentity{ID: 99}, models.Draft{Title: "title", Content: "body"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
	assert.True(t, strings.Contains(err.Error(), "student:99"))
}

func TestMessageServiceCourseRoster(t *testing.T) {
	store := &fakeMessageStore{roster: map[int64][]int64{20: {1, 3}}}
	svc, _ := newMessageFixture(store)
	draft := models.Draft{Title: "Exam", Content: "Room moved"}

	fan, err := svc.SendToCourseRoster(context.Background(), models.LecturerIdentity{ID: 7}, 20, draft)
	require.NoError(t, err)
	assert.Equal(t, 2, fan.Count)
	assert.Equal(t, []int64{1, 3}, fan.ReceiverIDs)

	_, err = svc.SendToCourseRoster(context.Background(), models.LecturerIdentity{ID: 7}, 21, draft)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrEmptyRoster.Code))

	_, err = svc.SendToCourseRoster(context.Background(), models.StudentIdentity{ID: 1}, 20, draft)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.SendToCourseRoster(context.Background(), models.Admin, 404, draft)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestMessageServiceCohortScenario(t *testing.T) {
	store := &fakeMessageStore{ects: map[int64]int{1: 10, 2: 16, 3: 20}}
	svc, _ := newMessageFixture(store)

	fan, err := svc.SendToCohort(context.Background(), models.Admin, models.CohortECTSBelowMinimum, models.Draft{Title: "ECTS", Content: "Please enroll"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, fan.ReceiverIDs)
	require.Len(t, store.messages, 1)
	assert.Equal(t, int64(1), store.messages[0].ReceiverID)
	assert.Equal(t, models.RoleAdmin, store.messages[0].SenderRole)

	_, err = svc.SendToCohort(context.Background(), models.LecturerIdentity{ID: 7}, models.CohortECTSBelowMinimum, models.Draft{Title: "x", Content: "y"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.SendToCohort(context.Background(), models.Admin, "gpa", models.Draft{Title: "x", Content: "y"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestMessageServiceMarkReadIsScopedAndMonotonic(t *testing.T) {
	store := &fakeMessageStore{}
	svc, _ := newMessageFixture(store)
	ctx := context.Background()

	sent, err := svc.Send(ctx, models.StudentIdentity{ID: 1}, models.StudentIdentity{ID: 2}, models.Draft{Title: "a", Content: "b"})
	require.NoError(t, err)

	updated, err := svc.MarkRead(ctx, models.StudentIdentity{ID: 1}, []int64{sent.ID})
	require.NoError(t, err)
	assert.Empty(t, updated, "sender cannot mark the message read")

	updated, err = svc.MarkRead(ctx, models.StudentIdentity{ID: 2}, []int64{sent.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{sent.ID}, updated)

	updated, err = svc.MarkRead(ctx, models.StudentIdentity{ID: 2}, []int64{sent.ID})
	require.NoError(t, err)
	assert.Empty(t, updated)
	assert.True(t, store.messages[0].IsRead)

	_, err = svc.MarkRead(ctx, models.StudentIdentity{ID: 2}, nil)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestMessageServiceInboxResolvesNames(t *testing.T) {
	store := &fakeMessageStore{}
	svc, _ := newMessageFixture(store)
	ctx := context.Background()
	me := models.StudentIdentity{ID: 3}

	_, err := svc.Send(ctx, models.Admin, me, models.Draft{Title: "first", Content: "x"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, models.LecturerIdentity{ID: 7}, me, models.Draft{Title: "second", Content: "y"})
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	inbox, pagination, err := svc.ListInbox(ctx, me, models.Page{})
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Title)
	assert.Equal(t, "Barbara Liskov", inbox[0].SenderName)
	assert.Equal(t, "Admin", inbox[1].SenderName)
	assert.Equal(t, "Grace Hopper", inbox[1].ReceiverName)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, defaultMessagePageSize, store.lastPage.Limit)

	n, err := svc.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sent, _, err := svc.ListSent(ctx, models.Admin, models.Page{Limit: 500})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.True(t, sent[0].IsRead)
}

func TestMessageServiceRecipients(t *testing.T) {
	svc, _ := newMessageFixture(&fakeMessageStore{})

	recipients, err := svc.Recipients(context.Background())
	require.NoError(t, err)
	require.Len(t, recipients, 5)
	assert.Equal(t, models.RoleStudent, recipients[0].Role)
	assert.Equal(t, models.RoleLecturer, recipients[3].Role)
	assert.Equal(t, models.Party{Role: models.RoleAdmin, ID: models.AdminID, Name: "Admin"}, recipients[4])
}
