package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/assistant"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/metrics"
	"github.com/shivam222343/aura/internal/repository"
)

// How much surrounding conversation the assistant sees.
const (
	directContextLimit = 10
	clubContextLimit   = 15
)

// AssistantService turns @aura mentions into stored assistant replies.
// Each trigger message produces at most one reply: an in-flight set
// catches duplicates within the process and a reply-exists check
// catches replays across restarts. Runs on the task queue, so nothing
// here returns an error; failures are logged and dropped.
type AssistantService struct {
	messageRepo   repository.MessageRepository
	clubRepo      repository.ClubRepository
	completions   CompletionProvider
	notifications *NotificationService
	notifier      Notifier
	user          *domain.User
	metrics       *metrics.Metrics
	log           *zap.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewAssistantService(
	messageRepo repository.MessageRepository,
	clubRepo repository.ClubRepository,
	completions CompletionProvider,
	notifications *NotificationService,
	assistantUser *domain.User,
	m *metrics.Metrics,
	log *zap.Logger,
) *AssistantService {
	return &AssistantService{
		messageRepo:   messageRepo,
		clubRepo:      clubRepo,
		completions:   completions,
		notifications: notifications,
		user:          assistantUser,
		metrics:       m,
		log:           log,
		inflight:      make(map[uuid.UUID]struct{}),
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *AssistantService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ReplyToMessage answers a mention in a direct message. The reply is
// addressed to the triggering sender and appears in the conversation
// between both original parties.
func (s *AssistantService) ReplyToMessage(ctx context.Context, trigger *domain.Message) {
	if trigger.Content == nil {
		return
	}
	if !s.begin(trigger.ID) {
		return
	}
	defer s.finish(trigger.ID)

	replied, err := s.messageRepo.HasAssistantReply(ctx, trigger.ID)
	if err != nil {
		s.log.Error("assistant: reply check failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		return
	}
	if replied {
		return
	}

	history, err := s.messageRepo.ListRecentBetween(ctx, trigger.SenderID, trigger.ReceiverID, trigger.ID, directContextLimit)
	if err != nil {
		// Degrade to answering from the trigger alone.
		s.log.Warn("assistant: loading context failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		history = nil
	}

	prompt := make([]assistant.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, assistant.ChatMessage{Role: assistant.RoleSystem, Content: assistant.SystemPrompt})
	for _, m := range history {
		prompt = append(prompt, assistant.ChatMessage{
			Role:    historyRole(m.IsAssistant),
			Content: directHistoryContent(&m),
		})
	}
	prompt = append(prompt, assistant.ChatMessage{
		Role:    assistant.RoleUser,
		Content: assistant.StripMention(*trigger.Content),
	})

	reply := s.complete(ctx, trigger.ID, prompt)

	replyMsg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    s.user.ID,
		ReceiverID:  trigger.SenderID,
		Content:     &reply,
		Type:        domain.MessageTypeText,
		ReplyTo:     &trigger.ID,
		IsAssistant: true,
		CreatedAt:   time.Now(),
	}
	if err := s.messageRepo.Create(ctx, replyMsg); err != nil {
		s.log.Error("assistant: storing reply failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		return
	}

	full, err := s.messageRepo.GetByID(ctx, replyMsg.ID)
	if err != nil || full == nil {
		s.log.Error("assistant: loading reply failed",
			zap.String("reply_id", replyMsg.ID.String()),
			zap.Error(err))
		return
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
		s.notifier.NotifyNewMessageTo(trigger.ReceiverID, full)
	}

	preview := full.Preview()
	_, err = s.notifications.NotifyUser(ctx, trigger.SenderID, s.user.DisplayName, preview, domain.AssistantReplyPayload{
		MessageID: full.ID,
		ReplyTo:   trigger.ID,
	})
	if err != nil {
		s.log.Error("assistant: notification failed",
			zap.String("reply_id", full.ID.String()),
			zap.Error(err))
	}
}

// ReplyToClubMessage answers a mention in a club channel. History
// entries carry sender names so the model can follow a multi-party
// thread.
func (s *AssistantService) ReplyToClubMessage(ctx context.Context, trigger *domain.ClubMessage) {
	if trigger.Content == nil {
		return
	}
	if !s.begin(trigger.ID) {
		return
	}
	defer s.finish(trigger.ID)

	replied, err := s.clubRepo.HasAssistantReply(ctx, trigger.ID)
	if err != nil {
		s.log.Error("assistant: reply check failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		return
	}
	if replied {
		return
	}

	history, err := s.clubRepo.ListRecentMessages(ctx, trigger.ClubID, trigger.SenderID, trigger.ID, clubContextLimit)
	if err != nil {
		s.log.Warn("assistant: loading context failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		history = nil
	}

	prompt := make([]assistant.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, assistant.ChatMessage{Role: assistant.RoleSystem, Content: assistant.SystemPrompt})
	for _, m := range history {
		prompt = append(prompt, assistant.ChatMessage{
			Role:    historyRole(m.IsAssistant),
			Content: clubHistoryContent(&m),
		})
	}
	prompt = append(prompt, assistant.ChatMessage{
		Role:    assistant.RoleUser,
		Content: fmt.Sprintf("%s: %s", trigger.SenderDisplayName, assistant.StripMention(*trigger.Content)),
	})

	reply := s.complete(ctx, trigger.ID, prompt)

	replyMsg := &domain.ClubMessage{
		ID:          uuid.New(),
		ClubID:      trigger.ClubID,
		SenderID:    s.user.ID,
		Content:     &reply,
		Type:        domain.MessageTypeText,
		ReplyTo:     &trigger.ID,
		IsAssistant: true,
		CreatedAt:   time.Now(),
	}
	if err := s.clubRepo.CreateMessage(ctx, replyMsg); err != nil {
		s.log.Error("assistant: storing reply failed",
			zap.String("message_id", trigger.ID.String()),
			zap.Error(err))
		return
	}

	full, err := s.clubRepo.GetMessageByID(ctx, replyMsg.ID)
	if err != nil || full == nil {
		s.log.Error("assistant: loading reply failed",
			zap.String("reply_id", replyMsg.ID.String()),
			zap.Error(err))
		return
	}

	if s.notifier != nil {
		s.notifier.NotifyNewClubMessage(full)
	}

	preview := full.Preview()
	_, err = s.notifications.NotifyClub(ctx, trigger.ClubID, s.user.DisplayName, preview, domain.AssistantReplyPayload{
		MessageID: full.ID,
		ReplyTo:   trigger.ID,
		ClubID:    &trigger.ClubID,
	}, nil)
	if err != nil {
		s.log.Error("assistant: notification failed",
			zap.String("reply_id", full.ID.String()),
			zap.Error(err))
	}
}

// complete asks the provider for a reply, falling back to a canned
// apology so the mention never goes unanswered.
func (s *AssistantService) complete(ctx context.Context, triggerID uuid.UUID, prompt []assistant.ChatMessage) string {
	reply, err := s.completions.Complete(ctx, prompt)
	if err != nil {
		s.metrics.AssistantReplies.WithLabelValues("fallback").Inc()
		s.log.Warn("assistant: completion failed",
			zap.String("message_id", triggerID.String()),
			zap.Error(err))
		return assistant.Fallback
	}
	s.metrics.AssistantReplies.WithLabelValues("ok").Inc()
	return reply
}

func (s *AssistantService) begin(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *AssistantService) finish(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func historyRole(isAssistant bool) string {
	if isAssistant {
		return assistant.RoleAssistant
	}
	return assistant.RoleUser
}

func directHistoryContent(m *domain.Message) string {
	if m.Content != nil {
		return assistant.StripMention(*m.Content)
	}
	return m.Preview()
}

func clubHistoryContent(m *domain.ClubMessage) string {
	var text string
	if m.Content != nil {
		text = assistant.StripMention(*m.Content)
	} else {
		text = m.Preview()
	}
	if m.IsAssistant {
		return text
	}
	return fmt.Sprintf("%s: %s", m.SenderDisplayName, text)
}
