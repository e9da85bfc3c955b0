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

type ClubRepo struct {
	pool *pgxpool.Pool
}

func NewClubRepo(pool *pgxpool.Pool) *ClubRepo {
	return &ClubRepo{pool: pool}
}

const clubMessageColumns = `
	m.id, m.club_id, m.sender_id, m.content, m.attachment, m.type,
	m.reactions, m.reply_to, m.forwarded, m.deleted, m.deleted_at,
	m.deleted_for, m.is_assistant, m.mention_assistant, m.created_at,
	u.username, u.display_name, u.avatar_url`

func scanClubMessage(row pgx.Row) (*domain.ClubMessage, error) {
	var msg domain.ClubMessage
	err := row.Scan(
		&msg.ID, &msg.ClubID, &msg.SenderID, &msg.Content, &msg.Attachment,
		&msg.Type, &msg.Reactions, &msg.ReplyTo, &msg.Forwarded, &msg.Deleted,
		&msg.DeletedAt, &msg.DeletedFor, &msg.IsAssistant, &msg.MentionAssistant,
		&msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName, &msg.SenderAvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *ClubRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Club, error) {
	query := `SELECT id, name, created_at, last_message FROM clubs WHERE id = $1`

	var club domain.Club
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&club.ID, &club.Name, &club.CreatedAt, &club.LastMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &club, err
}

func (r *ClubRepo) GetMember(ctx context.Context, clubID, userID uuid.UUID) (*domain.ClubMember, error) {
	query := `
		SELECT cm.club_id, cm.user_id, cm.role, cm.last_read_at, cm.joined_at,
			u.username, u.display_name
		FROM club_members cm
		JOIN users u ON cm.user_id = u.id
		WHERE cm.club_id = $1 AND cm.user_id = $2`

	var member domain.ClubMember
	err := r.pool.QueryRow(ctx, query, clubID, userID).Scan(
		&member.ClubID, &member.UserID, &member.Role, &member.LastReadAt,
		&member.JoinedAt, &member.Username, &member.DisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &member, err
}

func (r *ClubRepo) ListMemberIDs(ctx context.Context, clubID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM club_members WHERE club_id = $1`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CreateMessage appends the message and rewrites the club's last_message
// summary in one transaction, so the club list can never show a message
// that was not stored.
func (r *ClubRepo) CreateMessage(ctx context.Context, msg *domain.ClubMessage) error {
	attachment, err := marshalAttachment(msg.Attachment)
	if err != nil {
		return fmt.Errorf("encoding attachment: %w", err)
	}

	last, err := json.Marshal(domain.ClubLastMessage{
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Preview:   msg.Preview(),
		Type:      msg.Type,
		SentAt:    msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding last message: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO club_messages (id, club_id, sender_id, content, attachment,
			type, reply_to, forwarded, is_assistant, mention_assistant, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, insert,
		msg.ID, msg.ClubID, msg.SenderID, msg.Content, attachment,
		msg.Type, msg.ReplyTo, msg.Forwarded, msg.IsAssistant, msg.MentionAssistant, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `UPDATE clubs SET last_message = $1 WHERE id = $2`, last, msg.ClubID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ClubRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.ClubMessage, error) {
	query := `
		SELECT ` + clubMessageColumns + `
		FROM club_messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`

	msg, err := scanClubMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *ClubRepo) ListMessages(ctx context.Context, clubID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ClubMessage, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(`
			SELECT `+clubMessageColumns+`
			FROM club_messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.club_id = $1
				AND NOT ($2 = ANY(m.deleted_for))
				AND m.created_at < (SELECT created_at FROM club_messages WHERE id = $3)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{clubID, viewerID, *before}
	} else {
		query = fmt.Sprintf(`
			SELECT `+clubMessageColumns+`
			FROM club_messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.club_id = $1
				AND NOT ($2 = ANY(m.deleted_for))
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{clubID, viewerID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := collectClubMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query gives newest first; callers want chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *ClubRepo) ListRecentMessages(ctx context.Context, clubID, viewerID, excludeID uuid.UUID, limit int) ([]domain.ClubMessage, error) {
	query := fmt.Sprintf(`
		SELECT `+clubMessageColumns+`
		FROM club_messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.club_id = $1
			AND m.id <> $3
			AND NOT m.deleted
			AND NOT ($2 = ANY(m.deleted_for))
		ORDER BY m.created_at DESC
		LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, clubID, viewerID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := collectClubMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *ClubRepo) SetLastRead(ctx context.Context, clubID, userID uuid.UUID, at time.Time) error {
	query := `UPDATE club_members SET last_read_at = $3 WHERE club_id = $1 AND user_id = $2`

	_, err := r.pool.Exec(ctx, query, clubID, userID, at)
	return err
}

func (r *ClubRepo) CountUnread(ctx context.Context, clubID, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM club_messages m
		JOIN club_members cm ON cm.club_id = m.club_id AND cm.user_id = $2
		WHERE m.club_id = $1
			AND m.sender_id <> $2
			AND NOT ($2 = ANY(m.deleted_for))
			AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)`

	var count int
	err := r.pool.QueryRow(ctx, query, clubID, userID).Scan(&count)
	return count, err
}

func (r *ClubRepo) UpdateMessageReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	data, err := marshalReactions(reactions)
	if err != nil {
		return fmt.Errorf("encoding reactions: %w", err)
	}

	_, err = r.pool.Exec(ctx, `UPDATE club_messages SET reactions = $1 WHERE id = $2`, data, id)
	return err
}

func (r *ClubRepo) MarkMessageDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE club_messages
		SET deleted = TRUE, deleted_at = $2, content = $3, attachment = NULL
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, at, domain.DeletedPlaceholder)
	return err
}

func (r *ClubRepo) AddMessageDeletedFor(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE club_messages
		SET deleted_for = array_append(deleted_for, $2)
		WHERE id = $1 AND NOT ($2 = ANY(deleted_for))`

	_, err := r.pool.Exec(ctx, query, id, userID)
	return err
}

func (r *ClubRepo) HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM club_messages WHERE reply_to = $1 AND is_assistant)`,
		replyTo,
	).Scan(&exists)
	return exists, err
}

func collectClubMessages(rows pgx.Rows) ([]domain.ClubMessage, error) {
	var messages []domain.ClubMessage
	for rows.Next() {
		msg, err := scanClubMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}
