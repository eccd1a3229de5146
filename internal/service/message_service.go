package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const (
	defaultMessagePageSize = 20
	maxMessagePageSize     = 100
)

type messageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	InsertForCourse(ctx context.Context, sender models.Identity, courseID int64, draft models.Draft) ([]int64, error)
	InsertForCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, threshold int, draft models.Draft) ([]int64, error)
	MarkRead(ctx context.Context, receiver models.Identity, ids []int64) ([]int64, error)
	MarkAllRead(ctx context.Context, receiver models.Identity) (int64, error)
	UnreadCount(ctx context.Context, receiver models.Identity) (int, error)
	Inbox(ctx context.Context, receiver models.Identity, page models.Page) ([]models.Message, int, error)
	Sent(ctx context.Context, sender models.Identity, page models.Page) ([]models.Message, int, error)
}

type partyDirectory interface {
	Resolve(ctx context.Context, who models.Identity) (models.Party, error)
	Names(ctx context.Context, who []models.Identity) (map[string]string, error)
	Recipients(ctx context.Context) ([]models.Party, error)
}

// MessageService delivers messages between students, lecturers and the admin.
type MessageService struct {
	repo         messageStore
	directory    partyDirectory
	courses      courseReader
	requirements models.Requirements
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewMessageService constructs MessageService.
func NewMessageService(repo messageStore, directory partyDirectory, courses courseReader, requirements models.Requirements, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		repo:         repo,
		directory:    directory,
		courses:      courses,
		requirements: requirements,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Send stores one unread message from sender to receiver.
func (s *MessageService) Send(ctx context.Context, sender, receiver models.Identity, draft models.Draft) (*models.MessageView, error) {
	if sender == nil {
		return nil, appErrors.ErrUnauthorized
	}
	draft, err := s.validateDraft(draft)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "receiver is required")
	}
	to, err := s.directory.Resolve(ctx, receiver)
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrNotFound.Code) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("receiver %s does not exist", receiver))
		}
		return nil, err
	}
	from, err := s.directory.Resolve(ctx, sender)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderRole:   sender.Role(),
		SenderID:     sender.Key(),
		ReceiverRole: receiver.Role(),
		ReceiverID:   receiver.Key(),
		Title:        draft.Title,
		Content:      draft.Content,
	}
	if err := s.repo.Insert(ctx, &msg); err != nil {
		s.logger.Error("send message failed", zap.String("sender", sender.String()), zap.String("receiver", receiver.String()), zap.Error(err))
		return nil, appErrors.FromStore(err, "failed to send message")
	}
	s.metrics.RecordMessages("direct", 1)
	s.cache.InvalidateDashboards(ctx, receiver)
	return &models.MessageView{Message: msg, SenderName: from.Name, ReceiverName: to.Name}, nil
}

// SendToCourseRoster sends the draft to every student enrolled in the course.
// The roster is resolved and written in one statement, so either all students
// receive the message or none do.
func (s *MessageService) SendToCourseRoster(ctx context.Context, sender models.Identity, courseID int64, draft models.Draft) (models.FanOut, error) {
	if sender == nil {
		return models.FanOut{}, appErrors.ErrUnauthorized
	}
	draft, err := s.validateDraft(draft)
	if err != nil {
		return models.FanOut{}, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return models.FanOut{}, lookupError(err, "course")
	}
	if !canManageCourse(sender, course) {
		return models.FanOut{}, appErrors.Clone(appErrors.ErrForbidden, "only the course lecturer can message its students")
	}

	receivers, err := s.repo.InsertForCourse(ctx, sender, courseID, draft)
	if err != nil {
		s.logger.Error("course message failed, no student was reached", zap.Int64("course_id", courseID), zap.Error(err))
		return models.FanOut{}, appErrors.FromStore(err, "failed to send course message")
	}
	if len(receivers) == 0 {
		return models.FanOut{}, appErrors.Clone(appErrors.ErrEmptyRoster, fmt.Sprintf("course %d has no enrolled students", courseID))
	}
	s.metrics.RecordMessages("course", len(receivers))
	return s.fanOut(ctx, models.RoleStudent, receivers), nil
}

// SendToCohort sends the draft to every member of a cohort. Membership is
// evaluated by the same statement that inserts the messages.
func (s *MessageService) SendToCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, draft models.Draft) (models.FanOut, error) {
	if sender == nil {
		return models.FanOut{}, appErrors.ErrUnauthorized
	}
	if !models.IsAdmin(sender) {
		return models.FanOut{}, appErrors.Clone(appErrors.ErrForbidden, "only the admin can message a cohort")
	}
	if !selector.Valid() {
		return models.FanOut{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown cohort %q", selector))
	}
	draft, err := s.validateDraft(draft)
	if err != nil {
		return models.FanOut{}, err
	}

	threshold := s.requirements.MinimumECTS
	if selector == models.CohortLanguageRequirement {
		threshold = s.requirements.LanguageMinimumECTS
	}
	receivers, err := s.repo.InsertForCohort(ctx, sender, selector, threshold, draft)
	if err != nil {
		s.logger.Error("cohort message failed, no member was reached", zap.String("cohort", string(selector)), zap.Error(err))
		return models.FanOut{}, appErrors.FromStore(err, "failed to send cohort message")
	}
	s.metrics.RecordMessages("cohort", len(receivers))
	s.logger.Info("cohort message sent", zap.String("cohort", string(selector)), zap.Int("receivers", len(receivers)))
	return s.fanOut(ctx, selector.ReceiverRole(), receivers), nil
}

func (s *MessageService) fanOut(ctx context.Context, role models.Role, receivers []int64) models.FanOut {
	if receivers == nil {
		receivers = []int64{}
	}
	who := make([]models.Identity, 0, len(receivers))
	for _, id := range receivers {
		if identity, err := models.ParseIdentity(string(role), id); err == nil {
			who = append(who, identity)
		}
	}
	s.cache.InvalidateDashboards(ctx, who...)
	return models.FanOut{ReceiverRole: role, ReceiverIDs: receivers, Count: len(receivers)}
}

// MarkRead marks the listed messages of the viewer's inbox as read. Ids that
// are not addressed to the viewer or already read are skipped; the returned
// ids are the ones that changed.
func (s *MessageService) MarkRead(ctx context.Context, viewer models.Identity, ids []int64) ([]int64, error) {
	if viewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message ids are required")
	}
	updated, err := s.repo.MarkRead(ctx, viewer, ids)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to mark messages read")
	}
	if updated == nil {
		updated = []int64{}
	}
	if len(updated) > 0 {
		s.cache.InvalidateDashboards(ctx, viewer)
	}
	return updated, nil
}

// MarkAllRead marks the viewer's whole inbox as read.
func (s *MessageService) MarkAllRead(ctx context.Context, viewer models.Identity) (int64, error) {
	if viewer == nil {
		return 0, appErrors.ErrUnauthorized
	}
	n, err := s.repo.MarkAllRead(ctx, viewer)
	if err != nil {
		return 0, appErrors.FromStore(err, "failed to mark inbox read")
	}
	if n > 0 {
		s.cache.InvalidateDashboards(ctx, viewer)
	}
	return n, nil
}

// UnreadCount counts the viewer's unread messages.
func (s *MessageService) UnreadCount(ctx context.Context, viewer models.Identity) (int, error) {
	if viewer == nil {
		return 0, appErrors.ErrUnauthorized
	}
	n, err := s.repo.UnreadCount(ctx, viewer)
	if err != nil {
		return 0, appErrors.FromStore(err, "failed to count unread messages")
	}
	return n, nil
}

// ListInbox returns received messages newest first with resolved names.
func (s *MessageService) ListInbox(ctx context.Context, viewer models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error) {
	return s.list(ctx, viewer, page, s.repo.Inbox)
}

// ListSent returns sent messages newest first with resolved names.
func (s *MessageService) ListSent(ctx context.Context, viewer models.Identity, page models.Page) ([]models.MessageView, *models.Pagination, error) {
	return s.list(ctx, viewer, page, s.repo.Sent)
}

// Recipients lists every party a message can be addressed to.
func (s *MessageService) Recipients(ctx context.Context) ([]models.Party, error) {
	return s.directory.Recipients(ctx)
}

func (s *MessageService) list(ctx context.Context, viewer models.Identity, page models.Page, load func(context.Context, models.Identity, models.Page) ([]models.Message, int, error)) ([]models.MessageView, *models.Pagination, error) {
	if viewer == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	page = page.Normalize(defaultMessagePageSize, maxMessagePageSize)
	messages, total, err := load(ctx, viewer, page)
	if err != nil {
		return nil, nil, appErrors.FromStore(err, "failed to list messages")
	}

	parties := make([]models.Identity, 0, len(messages)*2)
	for _, m := range messages {
		parties = append(parties, senderOf(m), receiverOf(m))
	}
	names, err := s.directory.Names(ctx, parties)
	if err != nil {
		return nil, nil, err
	}

	views := make([]models.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, models.MessageView{
			Message:      m,
			SenderName:   nameOf(names, senderOf(m)),
			ReceiverName: nameOf(names, receiverOf(m)),
		})
	}
	return views, &models.Pagination{
		Page:       page.Offset/page.Limit + 1,
		PageSize:   page.Limit,
		TotalCount: total,
	}, nil
}

func (s *MessageService) validateDraft(draft models.Draft) (models.Draft, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Content = strings.TrimSpace(draft.Content)
	if err := s.validator.Struct(draft); err != nil {
		return draft, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and content are required")
	}
	return draft, nil
}

func senderOf(m models.Message) models.Identity {
	id, _ := models.ParseIdentity(string(m.SenderRole), m.SenderID)
	return id
}

func receiverOf(m models.Message) models.Identity {
	id, _ := models.ParseIdentity(string(m.ReceiverRole), m.ReceiverID)
	return id
}

func nameOf(names map[string]string, id models.Identity) string {
	if id == nil {
		return ""
	}
	return names[id.String()]
}
