package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationMessage        NotificationKind = "message"
	NotificationClubMessage    NotificationKind = "club_message"
	NotificationAnnouncement   NotificationKind = "announcement"
	NotificationAssistantReply NotificationKind = "assistant_reply"
)

// Payload is the typed body attached to a notification. Every stored
// notification is produced from one of the payload types below; the
// kind column is derived from the payload, never set independently.
type Payload interface {
	Kind() NotificationKind
}

type MessagePayload struct {
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Preview    string    `json:"preview"`
}

func (MessagePayload) Kind() NotificationKind { return NotificationMessage }

type ClubMessagePayload struct {
	MessageID  uuid.UUID `json:"message_id"`
	ClubID     uuid.UUID `json:"club_id"`
	ClubName   string    `json:"club_name"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Preview    string    `json:"preview"`
}

func (ClubMessagePayload) Kind() NotificationKind { return NotificationClubMessage }

type AnnouncementPayload struct {
	ClubID *uuid.UUID `json:"club_id,omitempty"`
}

func (AnnouncementPayload) Kind() NotificationKind { return NotificationAnnouncement }

type AssistantReplyPayload struct {
	MessageID uuid.UUID  `json:"message_id"`
	ReplyTo   uuid.UUID  `json:"reply_to"`
	ClubID    *uuid.UUID `json:"club_id,omitempty"`
}

func (AssistantReplyPayload) Kind() NotificationKind { return NotificationAssistantReply }

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
