package domain

import (
	"github.com/google/uuid"
)

// ConversationSummary is a derived row for the conversation list. It is
// computed per request and never stored.
type ConversationSummary struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	IsOnline    bool      `json:"is_online"`
	LastMessage Message   `json:"last_message"`
	UnreadCount int       `json:"unread_count"`
}
