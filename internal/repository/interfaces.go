package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shivam222343/aura/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetAssistant(ctx context.Context) (*domain.User, error)
	EnsureAssistant(ctx context.Context, username, displayName string) (*domain.User, error)
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
	SetPushToken(ctx context.Context, id uuid.UUID, token *string) error
	GetPushTokens(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	ListAllIDs(ctx context.Context) ([]uuid.UUID, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListBetween(ctx context.Context, viewerID, otherID uuid.UUID) ([]domain.Message, error)
	ListRecentBetween(ctx context.Context, viewerID, otherID, excludeID uuid.UUID, limit int) ([]domain.Message, error)
	MarkConversationRead(ctx context.Context, readerID, otherID uuid.UUID, at time.Time) (int64, error)
	UpdateReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error
	MarkDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error
	AddDeletedFor(ctx context.Context, id, userID uuid.UUID) error
	ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
	HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error)
}

type ClubRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Club, error)
	GetMember(ctx context.Context, clubID, userID uuid.UUID) (*domain.ClubMember, error)
	ListMemberIDs(ctx context.Context, clubID uuid.UUID) ([]uuid.UUID, error)
	CreateMessage(ctx context.Context, msg *domain.ClubMessage) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.ClubMessage, error)
	ListMessages(ctx context.Context, clubID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ClubMessage, error)
	ListRecentMessages(ctx context.Context, clubID, viewerID, excludeID uuid.UUID, limit int) ([]domain.ClubMessage, error)
	SetLastRead(ctx context.Context, clubID, userID uuid.UUID, at time.Time) error
	CountUnread(ctx context.Context, clubID, userID uuid.UUID) (int, error)
	UpdateMessageReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error
	MarkMessageDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error
	AddMessageDeletedFor(ctx context.Context, id, userID uuid.UUID) error
	HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	CreateBatch(ctx context.Context, ns []*domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
