package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeletedPlaceholder replaces the content of a message deleted for
// everyone. Clients render it verbatim.
const DeletedPlaceholder = "This message was deleted"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
)

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVoice:
		return true
	}

	return false
}

type Attachment struct {
	URL       string `json:"url"`
	StorageID string `json:"storage_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Mime      string `json:"mime,omitempty"`
}

type Reaction struct {
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reacted_at"`
}

type Message struct {
	ID               uuid.UUID   `json:"id"`
	SenderID         uuid.UUID   `json:"sender_id"`
	ReceiverID       uuid.UUID   `json:"receiver_id"`
	ClubID           *uuid.UUID  `json:"club_id,omitempty"`
	Content          *string     `json:"content,omitempty"`
	Attachment       *Attachment `json:"attachment,omitempty"`
	Type             string      `json:"type"`
	Read             bool        `json:"read"`
	ReadAt           *time.Time  `json:"read_at,omitempty"`
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
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// HiddenFor reports whether the viewer deleted this message for
// themselves.
func (m *Message) HiddenFor(userID uuid.UUID) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}

	return false
}

// Preview returns the short line shown in conversation lists and
// notification bodies.
func (m *Message) Preview() string {
	return previewText(m.Content, m.Type, m.Deleted)
}

// ToggleReaction applies one user's reaction. Repeating the same emoji
// removes the reaction, a different emoji replaces it in place, and a
// user without one gets it appended. At most one entry per user.
func ToggleReaction(reactions []Reaction, userID uuid.UUID, emoji string, at time.Time) []Reaction {
	for i, r := range reactions {
		if r.UserID != userID {
			continue
		}

		if r.Emoji == emoji {
			return append(reactions[:i], reactions[i+1:]...)
		}

		reactions[i].Emoji = emoji
		reactions[i].ReactedAt = at
		return reactions
	}

	return append(reactions, Reaction{UserID: userID, Emoji: emoji, ReactedAt: at})
}

func previewText(content *string, msgType string, deleted bool) string {
	if deleted {
		return DeletedPlaceholder
	}

	if content != nil && *content != "" {
		const max = 80
		runes := []rune(*content)
		if len(runes) > max {
			return string(runes[:max])
		}
		return *content
	}

	switch msgType {
	case MessageTypeImage:
		return "Sent a photo"
	case MessageTypeFile:
		return "Sent a file"
	case MessageTypeVoice:
		return "Sent a voice message"
	}

	return ""
}
