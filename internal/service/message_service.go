package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/apperr"
	"github.com/shivam222343/aura/internal/assistant"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/metrics"
	"github.com/shivam222343/aura/internal/repository"
)

var (
	ErrMessageNotFound  = apperr.NotFound("message not found")
	ErrReceiverUnknown  = apperr.Validation("receiver does not exist")
	ErrSelfMessage      = apperr.Validation("cannot send a message to yourself")
	ErrEmptyMessage     = apperr.Validation("message must have text or an attachment")
	ErrBadMessageType   = apperr.Validation("invalid message type")
	ErrEmptyEmoji       = apperr.Validation("emoji is required")
	ErrBadDeleteMode    = apperr.Validation("invalid delete mode")
	ErrNotMessageSender = apperr.Forbidden("only the message sender can delete for everyone")
)

// Delete modes accepted by the delete operations.
const (
	DeleteModeEveryone = "everyone"
	DeleteModeMe       = "me"
)

type MessageService struct {
	messageRepo   repository.MessageRepository
	userRepo      repository.UserRepository
	notifications *NotificationService
	assistant     *AssistantService
	notifier      Notifier
	tasks         TaskQueue
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notifications *NotificationService,
	assistantSvc *AssistantService,
	tasks TaskQueue,
	m *metrics.Metrics,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		notifications: notifications,
		assistant:     assistantSvc,
		tasks:         tasks,
		metrics:       m,
		log:           log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ReceiverID       uuid.UUID          `json:"receiver_id"`
	Content          string             `json:"content"`
	Attachment       *domain.Attachment `json:"attachment,omitempty"`
	Type             string             `json:"type"`
	ReplyTo          *uuid.UUID         `json:"reply_to,omitempty"`
	Forwarded        bool               `json:"forwarded"`
	MentionAssistant bool               `json:"mention_assistant"`
}

func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if input.ReceiverID == senderID {
		return nil, ErrSelfMessage
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.Attachment == nil {
		return nil, ErrEmptyMessage
	}

	msgType := input.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !domain.ValidMessageType(msgType) {
		return nil, ErrBadMessageType
	}

	receiver, err := s.userRepo.GetByID(ctx, input.ReceiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrReceiverUnknown
	}

	msg := &domain.Message{
		ID:               uuid.New(),
		SenderID:         senderID,
		ReceiverID:       input.ReceiverID,
		Attachment:       input.Attachment,
		Type:             msgType,
		ReplyTo:          input.ReplyTo,
		Forwarded:        input.Forwarded,
		MentionAssistant: input.MentionAssistant,
		CreatedAt:        time.Now(),
	}
	if content != "" {
		msg.Content = &content
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	// Fetch with sender info
	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.MessagesSent.WithLabelValues("direct").Inc()

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}

	s.tasks.Enqueue("message.notify", func(ctx context.Context) {
		preview := full.Preview()
		_, err := s.notifications.NotifyUser(ctx, full.ReceiverID, full.SenderDisplayName, preview, domain.MessagePayload{
			MessageID:  full.ID,
			SenderID:   full.SenderID,
			SenderName: full.SenderDisplayName,
			Preview:    preview,
		})
		if err != nil {
			s.log.Error("message notification failed",
				zap.String("message_id", full.ID.String()),
				zap.Error(err))
		}
	})

	if full.MentionAssistant && full.Content != nil && assistant.ContainsMention(*full.Content) {
		s.tasks.Enqueue("assistant.reply", func(ctx context.Context) {
			s.assistant.ReplyToMessage(ctx, full)
		})
	}

	return full, nil
}

// ListConversation returns the full thread between the requester and
// another user, oldest first. Messages the requester deleted for
// themselves are filtered out; assistant replies to either party's
// mentions are included.
func (s *MessageService) ListConversation(ctx context.Context, requesterID, otherID uuid.UUID) ([]domain.Message, error) {
	messages, err := s.messageRepo.ListBetween(ctx, requesterID, otherID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// MarkConversationRead flags every unread message sent by otherID to
// the reader and returns how many rows changed.
func (s *MessageService) MarkConversationRead(ctx context.Context, readerID, otherID uuid.UUID) (int64, error) {
	return s.messageRepo.MarkConversationRead(ctx, readerID, otherID, time.Now())
}

func (s *MessageService) React(ctx context.Context, userID, messageID uuid.UUID, emoji string) (*domain.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, ErrEmptyEmoji
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	msg.Reactions = domain.ToggleReaction(msg.Reactions, userID, emoji, time.Now())
	if err := s.messageRepo.UpdateReactions(ctx, messageID, msg.Reactions); err != nil {
		return nil, fmt.Errorf("updating reactions: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyReactionChanged(msg)
	}

	return msg, nil
}

func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID, mode string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	switch mode {
	case DeleteModeEveryone:
		if msg.SenderID != userID {
			return ErrNotMessageSender
		}
		if err := s.messageRepo.MarkDeletedForEveryone(ctx, messageID, time.Now()); err != nil {
			return fmt.Errorf("deleting message: %w", err)
		}
	case DeleteModeMe:
		if err := s.messageRepo.AddDeletedFor(ctx, messageID, userID); err != nil {
			return fmt.Errorf("deleting message: %w", err)
		}
	default:
		return ErrBadDeleteMode
	}

	s.metrics.MessagesDeleted.WithLabelValues(mode).Inc()

	if s.notifier != nil {
		s.notifier.NotifyMessageDeleted(msg, mode, userID)
	}

	return nil
}

// ListConversations returns the requester's inbox: one entry per peer
// they have exchanged messages with, newest conversation first.
func (s *MessageService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	conversations, err := s.messageRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []domain.ConversationSummary{}
	}
	return conversations, nil
}
