package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/shivam222343/aura/internal/assistant"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/push"
)

// Notifier broadcasts real-time events to connected clients. Every
// implementation is fire-and-forget: no delivery result comes back.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyNewMessageTo(userID uuid.UUID, msg *domain.Message)
	NotifyNewClubMessage(msg *domain.ClubMessage)
	NotifyMessageDeleted(msg *domain.Message, mode string, actorID uuid.UUID)
	NotifyClubMessageDeleted(msg *domain.ClubMessage, mode string, actorID uuid.UUID)
	NotifyReactionChanged(msg *domain.Message)
	NotifyClubReactionChanged(msg *domain.ClubMessage)
	NotifyUserNotification(userID uuid.UUID, n *domain.Notification)
	NotifyClubNotification(clubID uuid.UUID, n *domain.Notification, excludeUserID *uuid.UUID)
}

// PushSender delivers device push notifications.
type PushSender interface {
	Send(ctx context.Context, msg push.Message) error
	SendBatch(ctx context.Context, msgs []push.Message) ([]push.Ticket, error)
}

// TaskQueue runs work after the triggering request has returned.
type TaskQueue interface {
	Enqueue(name string, run func(ctx context.Context)) bool
}

// CompletionProvider produces one assistant reply for a prepared
// conversation.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []assistant.ChatMessage) (string, error)
}
