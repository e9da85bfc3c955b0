package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shivam222343/aura/internal/domain"
)

// Event types - Client → Server
const (
	EventTypePresenceOnline  = "presence_online"
	EventTypePresenceOffline = "presence_offline"
	EventTypeJoinClub        = "join_club"
	EventTypeLeaveClub       = "leave_club"
	EventTypePing            = "ping"
)

// Event types - both directions (typing is relayed as-is)
const (
	EventTypeTyping = "typing"
)

// Event types - Server → Client
const (
	EventTypePresenceChanged    = "presence_changed"
	EventTypeNewMessage         = "new_message"
	EventTypeNewClubMessage     = "new_club_message"
	EventTypeMessageDeleted     = "message_deleted"
	EventTypeClubMessageDeleted = "club_message_deleted"
	EventTypeReactionChanged    = "reaction_changed"
	EventTypeClubReaction       = "club_reaction_changed"
	EventTypeNotification       = "notification"
	EventTypePong               = "pong"
	EventTypeError              = "error"
)

// Delete broadcast modes.
const (
	DeleteModeEveryone = "everyone"
	DeleteModeMe       = "me"
)

// Event is the envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ClubPayload struct {
	ClubID uuid.UUID `json:"club_id"`
}

type TypingSignal struct {
	ToUserID *uuid.UUID `json:"to_user_id,omitempty"`
	ClubID   *uuid.UUID `json:"club_id,omitempty"`
	IsTyping bool       `json:"is_typing"`
}

// --- Server → Client payloads ---

type PresencePayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Status   string    `json:"status"` // "online" | "offline"
	LastSeen time.Time `json:"last_seen"`
}

type MessagePayload struct {
	domain.Message
}

type ClubMessagePayload struct {
	domain.ClubMessage
}

type MessageDeletedPayload struct {
	ID   uuid.UUID `json:"id"`
	Mode string    `json:"mode"`
}

type ClubMessageDeletedPayload struct {
	ID     uuid.UUID `json:"id"`
	ClubID uuid.UUID `json:"club_id"`
	Mode   string    `json:"mode"`
}

type ReactionPayload struct {
	MessageID uuid.UUID         `json:"message_id"`
	Reactions []domain.Reaction `json:"reactions"`
}

type ClubReactionPayload struct {
	MessageID uuid.UUID         `json:"message_id"`
	ClubID    uuid.UUID         `json:"club_id"`
	Reactions []domain.Reaction `json:"reactions"`
}

// NotificationPayload carries a notification over the socket. ID is set
// on a user-room event (it is that user's stored row) and omitted on
// club-room events, which fan out to rows with different ids.
type NotificationPayload struct {
	ID        *uuid.UUID              `json:"id,omitempty"`
	Kind      domain.NotificationKind `json:"kind"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Payload   json.RawMessage         `json:"payload,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type TypingPayload struct {
	UserID   uuid.UUID  `json:"user_id"`
	ClubID   *uuid.UUID `json:"club_id,omitempty"`
	IsTyping bool       `json:"is_typing"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// UserRoom is the room every client joins on connect.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ClubRoom is joined on an explicit client signal.
func ClubRoom(clubID uuid.UUID) string {
	return "club:" + clubID.String()
}
