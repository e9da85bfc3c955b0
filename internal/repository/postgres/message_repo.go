package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shivam222343/aura/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `
	m.id, m.sender_id, m.receiver_id, m.club_id, m.content, m.attachment, m.type,
	m.read, m.read_at, m.reactions, m.reply_to, m.forwarded, m.deleted, m.deleted_at,
	m.deleted_for, m.is_assistant, m.mention_assistant, m.created_at,
	u.username, u.display_name`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.ClubID, &msg.Content,
		&msg.Attachment, &msg.Type, &msg.Read, &msg.ReadAt, &msg.Reactions,
		&msg.ReplyTo, &msg.Forwarded, &msg.Deleted, &msg.DeletedAt,
		&msg.DeletedFor, &msg.IsAssistant, &msg.MentionAssistant, &msg.CreatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, club_id, content, attachment,
			type, reply_to, forwarded, is_assistant, mention_assistant, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	attachment, err := marshalAttachment(msg.Attachment)
	if err != nil {
		return fmt.Errorf("encoding attachment: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.ClubID, msg.Content, attachment,
		msg.Type, msg.ReplyTo, msg.Forwarded, msg.IsAssistant, msg.MentionAssistant, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

// ListBetween returns the conversation between two users ascending by
// creation time, as seen by the viewer: rows the viewer deleted for
// themselves are dropped. Assistant replies to messages of this pair are
// part of the conversation even though they are addressed to one side.
func (r *MessageRepo) ListBetween(ctx context.Context, viewerID, otherID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (
			(m.sender_id = $1 AND m.receiver_id = $2)
			OR (m.sender_id = $2 AND m.receiver_id = $1)
			OR (m.is_assistant AND m.reply_to IN (
				SELECT id FROM messages
				WHERE (sender_id = $1 AND receiver_id = $2)
					OR (sender_id = $2 AND receiver_id = $1)
			))
		)
		AND NOT ($1 = ANY(m.deleted_for))
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListRecentBetween returns up to limit most recent visible messages of
// the pair, ascending, skipping tombstones and the excluded id.
func (r *MessageRepo) ListRecentBetween(ctx context.Context, viewerID, otherID, excludeID uuid.UUID, limit int) ([]domain.Message, error) {
	query := fmt.Sprintf(`
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (
			(m.sender_id = $1 AND m.receiver_id = $2)
			OR (m.sender_id = $2 AND m.receiver_id = $1)
			OR (m.is_assistant AND m.reply_to IN (
				SELECT id FROM messages
				WHERE (sender_id = $1 AND receiver_id = $2)
					OR (sender_id = $2 AND receiver_id = $1)
			))
		)
		AND m.id <> $3
		AND NOT m.deleted
		AND NOT ($1 = ANY(m.deleted_for))
		ORDER BY m.created_at DESC
		LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, viewerID, otherID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query gives newest first; callers want chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *MessageRepo) MarkConversationRead(ctx context.Context, readerID, otherID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET read = TRUE, read_at = $3
		WHERE receiver_id = $1 AND sender_id = $2 AND read = FALSE`

	tag, err := r.pool.Exec(ctx, query, readerID, otherID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) UpdateReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	data, err := marshalReactions(reactions)
	if err != nil {
		return fmt.Errorf("encoding reactions: %w", err)
	}

	_, err = r.pool.Exec(ctx, `UPDATE messages SET reactions = $1 WHERE id = $2`, data, id)
	return err
}

func (r *MessageRepo) MarkDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE messages
		SET deleted = TRUE, deleted_at = $2, content = $3, attachment = NULL
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, at, domain.DeletedPlaceholder)
	return err
}

func (r *MessageRepo) AddDeletedFor(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE messages
		SET deleted_for = array_append(deleted_for, $2)
		WHERE id = $1 AND NOT ($2 = ANY(deleted_for))`

	_, err := r.pool.Exec(ctx, query, id, userID)
	return err
}

// ListConversations builds the conversation list for a user: one row per
// counterpart with at least one visible message, newest conversation
// first. Assistant replies never form a counterpart of their own.
func (r *MessageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	query := `
		WITH pair_messages AS (
			SELECT m.id, m.sender_id, m.receiver_id, m.club_id, m.content, m.attachment,
				m.type, m.read, m.read_at, m.reactions, m.reply_to, m.forwarded,
				m.deleted, m.deleted_at, m.is_assistant, m.created_at,
				CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS other_id
			FROM messages m
			WHERE (m.sender_id = $1 OR m.receiver_id = $1)
				AND NOT m.is_assistant
				AND NOT ($1 = ANY(m.deleted_for))
		), last_per_pair AS (
			SELECT DISTINCT ON (other_id) *
			FROM pair_messages
			ORDER BY other_id, created_at DESC
		), unread AS (
			SELECT sender_id AS other_id, COUNT(*) AS unread_count
			FROM messages
			WHERE receiver_id = $1 AND read = FALSE AND NOT is_assistant
				AND NOT ($1 = ANY(deleted_for))
			GROUP BY sender_id
		)
		SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_online,
			l.id, l.sender_id, l.receiver_id, l.club_id, l.content, l.attachment,
			l.type, l.read, l.read_at, l.reactions, l.reply_to, l.forwarded,
			l.deleted, l.deleted_at, l.is_assistant, l.created_at,
			COALESCE(un.unread_count, 0)
		FROM last_per_pair l
		JOIN users u ON u.id = l.other_id
		LEFT JOIN unread un ON un.other_id = l.other_id
		ORDER BY l.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(
			&s.UserID, &s.Username, &s.DisplayName, &s.AvatarURL, &s.IsOnline,
			&s.LastMessage.ID, &s.LastMessage.SenderID, &s.LastMessage.ReceiverID,
			&s.LastMessage.ClubID, &s.LastMessage.Content, &s.LastMessage.Attachment,
			&s.LastMessage.Type, &s.LastMessage.Read, &s.LastMessage.ReadAt,
			&s.LastMessage.Reactions, &s.LastMessage.ReplyTo, &s.LastMessage.Forwarded,
			&s.LastMessage.Deleted, &s.LastMessage.DeletedAt, &s.LastMessage.IsAssistant,
			&s.LastMessage.CreatedAt, &s.UnreadCount,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *MessageRepo) HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE reply_to = $1 AND is_assistant)`,
		replyTo,
	).Scan(&exists)
	return exists, err
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func marshalAttachment(a *domain.Attachment) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func marshalReactions(reactions []domain.Reaction) ([]byte, error) {
	if reactions == nil {
		reactions = []domain.Reaction{}
	}
	return json.Marshal(reactions)
}
