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
	ErrClubNotFound        = apperr.NotFound("club not found")
	ErrClubMessageNotFound = apperr.NotFound("club message not found")
	ErrNotClubMember       = apperr.Forbidden("not a member of this club")
)

type ClubService struct {
	clubRepo      repository.ClubRepository
	notifications *NotificationService
	assistant     *AssistantService
	notifier      Notifier
	tasks         TaskQueue
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewClubService(
	clubRepo repository.ClubRepository,
	notifications *NotificationService,
	assistantSvc *AssistantService,
	tasks TaskQueue,
	m *metrics.Metrics,
	log *zap.Logger,
) *ClubService {
	return &ClubService{
		clubRepo:      clubRepo,
		notifications: notifications,
		assistant:     assistantSvc,
		tasks:         tasks,
		metrics:       m,
		log:           log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ClubService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendClubMessageInput struct {
	Content          string             `json:"content"`
	Attachment       *domain.Attachment `json:"attachment,omitempty"`
	Type             string             `json:"type"`
	ReplyTo          *uuid.UUID         `json:"reply_to,omitempty"`
	Forwarded        bool               `json:"forwarded"`
	MentionAssistant bool               `json:"mention_assistant"`
}

type ClubMessageListResponse struct {
	Messages []domain.ClubMessage `json:"messages"`
	HasMore  bool                 `json:"has_more"`
}

func (s *ClubService) Send(ctx context.Context, senderID, clubID uuid.UUID, input SendClubMessageInput) (*domain.ClubMessage, error) {
	club, err := s.checkMembership(ctx, clubID, senderID)
	if err != nil {
		return nil, err
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

	msg := &domain.ClubMessage{
		ID:               uuid.New(),
		ClubID:           clubID,
		SenderID:         senderID,
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

	if err := s.clubRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating club message: %w", err)
	}

	// Fetch with sender info
	full, err := s.clubRepo.GetMessageByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.MessagesSent.WithLabelValues("club").Inc()

	if s.notifier != nil {
		s.notifier.NotifyNewClubMessage(full)
	}

	s.tasks.Enqueue("club.notify", func(ctx context.Context) {
		preview := full.Preview()
		title := fmt.Sprintf("%s in %s", full.SenderDisplayName, club.Name)
		_, err := s.notifications.NotifyClub(ctx, clubID, title, preview, domain.ClubMessagePayload{
			MessageID:  full.ID,
			ClubID:     clubID,
			ClubName:   club.Name,
			SenderID:   full.SenderID,
			SenderName: full.SenderDisplayName,
			Preview:    preview,
		}, &senderID)
		if err != nil {
			s.log.Error("club notification failed",
				zap.String("message_id", full.ID.String()),
				zap.Error(err))
		}
	})

	if full.MentionAssistant && full.Content != nil && assistant.ContainsMention(*full.Content) {
		s.tasks.Enqueue("assistant.reply", func(ctx context.Context) {
			s.assistant.ReplyToClubMessage(ctx, full)
		})
	}

	return full, nil
}

func (s *ClubService) ListMessages(ctx context.Context, userID, clubID uuid.UUID, before *uuid.UUID, limit int) (*ClubMessageListResponse, error) {
	if _, err := s.checkMembership(ctx, clubID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Fetch limit+1 to know whether more remain
	messages, err := s.clubRepo.ListMessages(ctx, clubID, userID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.ClubMessage{}
	}

	return &ClubMessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// MarkRead moves the member's read marker to now.
func (s *ClubService) MarkRead(ctx context.Context, userID, clubID uuid.UUID) error {
	if _, err := s.checkMembership(ctx, clubID, userID); err != nil {
		return err
	}
	return s.clubRepo.SetLastRead(ctx, clubID, userID, time.Now())
}

// UnreadCount reports how many club messages arrived after the
// member's read marker, not counting their own or ones they deleted.
func (s *ClubService) UnreadCount(ctx context.Context, userID, clubID uuid.UUID) (int, error) {
	if _, err := s.checkMembership(ctx, clubID, userID); err != nil {
		return 0, err
	}
	return s.clubRepo.CountUnread(ctx, clubID, userID)
}

func (s *ClubService) React(ctx context.Context, userID, messageID uuid.UUID, emoji string) (*domain.ClubMessage, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, ErrEmptyEmoji
	}

	msg, err := s.clubRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrClubMessageNotFound
	}

	if _, err := s.checkMembership(ctx, msg.ClubID, userID); err != nil {
		return nil, err
	}

	msg.Reactions = domain.ToggleReaction(msg.Reactions, userID, emoji, time.Now())
	if err := s.clubRepo.UpdateMessageReactions(ctx, messageID, msg.Reactions); err != nil {
		return nil, fmt.Errorf("updating reactions: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyClubReactionChanged(msg)
	}

	return msg, nil
}

func (s *ClubService) Delete(ctx context.Context, userID, messageID uuid.UUID, mode string) error {
	msg, err := s.clubRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrClubMessageNotFound
	}

	switch mode {
	case DeleteModeEveryone:
		if msg.SenderID != userID {
			return ErrNotMessageSender
		}
		if err := s.clubRepo.MarkMessageDeletedForEveryone(ctx, messageID, time.Now()); err != nil {
			return fmt.Errorf("deleting club message: %w", err)
		}
	case DeleteModeMe:
		if err := s.clubRepo.AddMessageDeletedFor(ctx, messageID, userID); err != nil {
			return fmt.Errorf("deleting club message: %w", err)
		}
	default:
		return ErrBadDeleteMode
	}

	s.metrics.MessagesDeleted.WithLabelValues(mode).Inc()

	if s.notifier != nil {
		s.notifier.NotifyClubMessageDeleted(msg, mode, userID)
	}

	return nil
}

func (s *ClubService) checkMembership(ctx context.Context, clubID, userID uuid.UUID) (*domain.Club, error) {
	club, err := s.clubRepo.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, ErrClubNotFound
	}

	member, err := s.clubRepo.GetMember(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotClubMember
	}
	return club, nil
}
