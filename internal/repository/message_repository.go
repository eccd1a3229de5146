package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const messageColumns = `id, sender_role, sender_id, receiver_role, receiver_id, title, content, is_read, created_at`

// MessageRepository persists portal messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a single unread message.
func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	const query = `INSERT INTO messages (sender_role, sender_id, receiver_role, receiver_id, title, content, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
        RETURNING id, is_read, created_at`
	row := r.db.QueryRowxContext(ctx, query, msg.SenderRole, msg.SenderID, msg.ReceiverRole, msg.ReceiverID, msg.Title, msg.Content)
	if err := row.Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) fanOut(ctx context.Context, label, query string, args ...interface{}) ([]int64, error) {
	var receivers []int64
	if err := r.db.SelectContext(ctx, &receivers, query, args...); err != nil {
		return nil, fmt.Errorf("fan out %s message: %w", label, err)
	}
	return receivers, nil
}

// InsertForCourse sends one message to every student enrolled in the course.
// The roster is read and written in a single statement.
func (r *MessageRepository) InsertForCourse(ctx context.Context, sender models.Identity, courseID int64, draft models.Draft) ([]int64, error) {
	const query = `INSERT INTO messages (sender_role, sender_id, receiver_role, receiver_id, title, content, is_read, created_at)
        SELECT $1, $2, 'student', e.student_id, $3, $4, FALSE, NOW()
        FROM enrollments e
        WHERE e.course_id = $5
        RETURNING receiver_id`
	return r.fanOut(ctx, "course", query, sender.Role(), sender.Key(), draft.Title, draft.Content, courseID)
}

// InsertForCohort resolves the cohort and inserts its messages in one statement.
// threshold is the ECTS minimum the requirement selectors compare against.
func (r *MessageRepository) InsertForCohort(ctx context.Context, sender models.Identity, selector models.CohortSelector, threshold int, draft models.Draft) ([]int64, error) {
	const insert = `INSERT INTO messages (sender_role, sender_id, receiver_role, receiver_id, title, content, is_read, created_at)
        SELECT $1, $2, $3, cohort.id, $4, $5, FALSE, NOW()
        FROM (`
	const tail = `) cohort
        RETURNING receiver_id`

	args := []interface{}{sender.Role(), sender.Key(), selector.ReceiverRole(), draft.Title, draft.Content}
	var cohort string
	switch selector {
	case models.CohortECTSBelowMinimum:
		cohort = `SELECT s.id ` + ectsBelowMinimumFrom("$6")
		args = append(args, threshold)
	case models.CohortLanguageRequirement:
		cohort = `SELECT s.id ` + languageRequirementFrom("$6")
		args = append(args, threshold)
	case models.CohortAllStudents:
		cohort = `SELECT id FROM students`
	case models.CohortAllLecturers:
		cohort = `SELECT id FROM lecturers`
	default:
		return nil, fmt.Errorf("fan out cohort message: unknown selector %q", selector)
	}
	return r.fanOut(ctx, string(selector), insert+cohort+tail, args...)
}

// MarkRead flips unread messages addressed to the receiver. Ids belonging to
// other receivers and already read messages are left untouched.
func (r *MessageRepository) MarkRead(ctx context.Context, receiver models.Identity, ids []int64) ([]int64, error) {
	const query = `UPDATE messages SET is_read = TRUE
        WHERE receiver_role = $1 AND receiver_id = $2 AND id = ANY($3) AND is_read = FALSE
        RETURNING id`
	var updated []int64
	if err := r.db.SelectContext(ctx, &updated, query, receiver.Role(), receiver.Key(), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return updated, nil
}

// MarkAllRead flips every unread message in the receiver's inbox.
func (r *MessageRepository) MarkAllRead(ctx context.Context, receiver models.Identity) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE receiver_role = $1 AND receiver_id = $2 AND is_read = FALSE`,
		receiver.Role(), receiver.Key())
	if err != nil {
		return 0, fmt.Errorf("mark inbox read: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount counts unread inbox messages.
func (r *MessageRepository) UnreadCount(ctx context.Context, receiver models.Identity) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE receiver_role = $1 AND receiver_id = $2 AND is_read = FALSE`,
		receiver.Role(), receiver.Key()); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// Inbox lists messages received by the identity, newest first.
func (r *MessageRepository) Inbox(ctx context.Context, receiver models.Identity, page models.Page) ([]models.Message, int, error) {
	return r.list(ctx, "inbox", "receiver_role = $1 AND receiver_id = $2", receiver, page)
}

// Sent lists messages sent by the identity, newest first.
func (r *MessageRepository) Sent(ctx context.Context, sender models.Identity, page models.Page) ([]models.Message, int, error) {
	return r.list(ctx, "sent", "sender_role = $1 AND sender_id = $2", sender, page)
}

func (r *MessageRepository) list(ctx context.Context, label, where string, who models.Identity, page models.Page) ([]models.Message, int, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		messageColumns, where, page.Limit, page.Offset)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, who.Role(), who.Key()); err != nil {
		return nil, 0, fmt.Errorf("list %s messages: %w", label, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE `+where, who.Role(), who.Key()); err != nil {
		return nil, 0, fmt.Errorf("count %s messages: %w", label, err)
	}
	return messages, total, nil
}
