package domain

import (
	"time"

	"github.com/google/uuid"
)

type Club struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	CreatedAt   time.Time        `json:"created_at"`
	LastMessage *ClubLastMessage `json:"last_message,omitempty"`
}

// ClubLastMessage is the denormalized summary kept on the club row.
// It is rewritten in the same transaction as every club message append.
type ClubLastMessage struct {
	MessageID uuid.UUID `json:"message_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Preview   string    `json:"preview"`
	Type      string    `json:"type"`
	SentAt    time.Time `json:"sent_at"`
}

type ClubMember struct {
	ClubID     uuid.UUID  `json:"club_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Role       string     `json:"role"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
	// Joined fields
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type ClubMessage struct {
	ID               uuid.UUID   `json:"id"`
	ClubID           uuid.UUID   `json:"club_id"`
	SenderID         uuid.UUID   `json:"sender_id"`
	Content          *string     `json:"content,omitempty"`
	Attachment       *Attachment `json:"attachment,omitempty"`
	Type             string      `json:"type"`
	Reactions        []Reaction  `json:"reactions"`
	ReplyTo          *uuid.UUID  `json:"reply_to,omitempty"`
	Forwarded        bool        `json:"forwarded"`
	Deleted          bool        `json:"deleted"`
	DeletedAt        *time.Time  `json:"deleted_at,omitempty"`
	DeletedFor       []uuid.UUID `json:"-"`
	IsAssistant      bool        `json:"is_assistant"`
	MentionAssistant bool        `json:"mention_assistant,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	// Joined fields
	SenderUsername    string  `json:"sender_username,omitempty"`
	SenderDisplayName string  `json:"sender_display_name,omitempty"`
	SenderAvatarURL   *string `json:"sender_avatar_url,omitempty"`
}

// HiddenFor reports whether the viewer deleted this message for
// themselves.
func (m *ClubMessage) HiddenFor(userID uuid.UUID) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}

	return false
}

// Preview returns the short line shown in club lists and notification
// bodies.
func (m *ClubMessage) Preview() string {
	return previewText(m.Content, m.Type, m.Deleted)
}
