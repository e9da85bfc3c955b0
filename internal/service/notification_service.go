package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/apperr"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/metrics"
	"github.com/shivam222343/aura/internal/push"
	"github.com/shivam222343/aura/internal/repository"
)

var (
	ErrNotificationNotFound = apperr.NotFound("notification not found")
	ErrNotAdmin             = apperr.Forbidden("admin access required")
	ErrEmptyTitle           = apperr.Validation("title is required")
)

// NotificationService persists notification rows, pushes live events
// to connected clients and hands device pushes to the task queue. A
// failed push never rolls back the stored row.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	clubRepo         repository.ClubRepository
	notifier         Notifier
	push             PushSender
	tasks            TaskQueue
	metrics          *metrics.Metrics
	log              *zap.Logger
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	clubRepo repository.ClubRepository,
	pushSender PushSender,
	tasks TaskQueue,
	m *metrics.Metrics,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		clubRepo:         clubRepo,
		push:             pushSender,
		tasks:            tasks,
		metrics:          m,
		log:              log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *NotificationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// NotifyUser stores one notification, emits it to the user's sockets
// and queues a device push.
func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, title, body string, payload domain.Payload) (*domain.Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      payload.Kind(),
		Title:     title,
		Body:      body,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	s.metrics.NotificationsCreated.Inc()

	if s.notifier != nil {
		s.notifier.NotifyUserNotification(userID, n)
	}

	s.enqueuePush([]uuid.UUID{userID}, n)
	return n, nil
}

// NotifyClub stores one notification per club member, emits a single
// event to the club room and queues a bulk push. excludeUserID (if
// set) is left out entirely, typically the message sender.
func (s *NotificationService) NotifyClub(ctx context.Context, clubID uuid.UUID, title, body string, payload domain.Payload, excludeUserID *uuid.UUID) (int, error) {
	memberIDs, err := s.clubRepo.ListMemberIDs(ctx, clubID)
	if err != nil {
		return 0, err
	}

	recipients := memberIDs[:0]
	for _, id := range memberIDs {
		if excludeUserID != nil && id == *excludeUserID {
			continue
		}
		recipients = append(recipients, id)
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	rows, err := s.buildRows(recipients, title, body, payload)
	if err != nil {
		return 0, err
	}
	if err := s.notificationRepo.CreateBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("creating notifications: %w", err)
	}
	s.metrics.NotificationsCreated.Add(float64(len(rows)))

	if s.notifier != nil {
		s.notifier.NotifyClubNotification(clubID, rows[0], excludeUserID)
	}

	s.enqueuePush(recipients, rows[0])
	return len(recipients), nil
}

// NotifyMany stores one notification per listed user, emits a user
// event to each and queues one bulk push for all of them.
func (s *NotificationService) NotifyMany(ctx context.Context, userIDs []uuid.UUID, title, body string, payload domain.Payload) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	rows, err := s.buildRows(userIDs, title, body, payload)
	if err != nil {
		return 0, err
	}
	if err := s.notificationRepo.CreateBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("creating notifications: %w", err)
	}
	s.metrics.NotificationsCreated.Add(float64(len(rows)))

	if s.notifier != nil {
		for _, n := range rows {
			s.notifier.NotifyUserNotification(n.UserID, n)
		}
	}

	s.enqueuePush(userIDs, rows[0])
	return len(userIDs), nil
}

type AnnounceInput struct {
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	ClubID *uuid.UUID `json:"club_id,omitempty"`
}

// Announce sends an announcement to every member of a club, or to
// every user when no club is given. Only admins may announce.
func (s *NotificationService) Announce(ctx context.Context, actorID uuid.UUID, input AnnounceInput) (int, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if actor == nil || actor.Kind != domain.UserKindAdmin {
		return 0, ErrNotAdmin
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	body := strings.TrimSpace(input.Body)

	if input.ClubID != nil {
		club, err := s.clubRepo.GetByID(ctx, *input.ClubID)
		if err != nil {
			return 0, err
		}
		if club == nil {
			return 0, ErrClubNotFound
		}
		return s.NotifyClub(ctx, club.ID, title, body, domain.AnnouncementPayload{ClubID: &club.ID}, nil)
	}

	userIDs, err := s.userRepo.ListAllIDs(ctx)
	if err != nil {
		return 0, err
	}
	return s.NotifyMany(ctx, userIDs, title, body, domain.AnnouncementPayload{})
}

type NotificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) (*NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}

	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	ok, err := s.notificationRepo.MarkRead(ctx, notificationID, userID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID, time.Now())
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	ok, err := s.notificationRepo.Delete(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.DeleteAll(ctx, userID)
}

func (s *NotificationService) buildRows(userIDs []uuid.UUID, title, body string, payload domain.Payload) ([]*domain.Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	now := time.Now()
	rows := make([]*domain.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, &domain.Notification{
			ID:        uuid.New(),
			UserID:    id,
			Kind:      payload.Kind(),
			Title:     title,
			Body:      body,
			Payload:   data,
			CreatedAt: now,
		})
	}
	return rows, nil
}

// enqueuePush hands device delivery to the task queue. Users without
// a registered token are skipped; a delivery failure is logged and
// counted, never propagated.
func (s *NotificationService) enqueuePush(userIDs []uuid.UUID, n *domain.Notification) {
	if s.push == nil {
		return
	}

	title, body := n.Title, n.Body
	data := pushData(n.Kind, n.Payload)

	s.tasks.Enqueue("push.send", func(ctx context.Context) {
		tokens, err := s.userRepo.GetPushTokens(ctx, userIDs)
		if err != nil {
			s.log.Error("push: loading tokens failed", zap.Error(err))
			return
		}
		if len(tokens) == 0 {
			return
		}

		msgs := make([]push.Message, 0, len(tokens))
		for _, token := range tokens {
			msgs = append(msgs, push.Message{
				To:    token,
				Title: title,
				Body:  body,
				Data:  data,
			})
		}

		tickets, err := s.push.SendBatch(ctx, msgs)
		if err != nil {
			s.metrics.PushFailed.Add(float64(len(msgs)))
			s.log.Error("push delivery failed",
				zap.Int("recipients", len(msgs)),
				zap.Error(err))
			return
		}

		for _, t := range tickets {
			if t.Status == push.TicketError {
				s.metrics.PushFailed.Inc()
				s.log.Warn("push ticket rejected", zap.String("detail", t.Message))
				continue
			}
			s.metrics.PushSent.Inc()
		}
	})
}

func pushData(kind domain.NotificationKind, payload []byte) map[string]any {
	data := map[string]any{"kind": string(kind)}
	if len(payload) > 0 {
		data["payload"] = json.RawMessage(payload)
	}
	return data
}
