package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserKind distinguishes message authors. The assistant is a regular
// user row with KindAssistant, never a magic sender id.
type UserKind string

const (
	UserKindMember    UserKind = "member"
	UserKindAdmin     UserKind = "admin"
	UserKindAssistant UserKind = "assistant"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Kind        UserKind  `json:"kind"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
	PushToken   *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
