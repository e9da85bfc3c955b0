package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/assistant"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/metrics"
	"github.com/shivam222343/aura/internal/push"
)

// ---- user repository ----

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*domain.User
	tokens map[uuid.UUID]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]*domain.User),
		tokens: make(map[uuid.UUID]string),
	}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) GetAssistant(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Kind == domain.UserKindAssistant {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) EnsureAssistant(ctx context.Context, username, displayName string) (*domain.User, error) {
	if u, _ := f.GetAssistant(ctx); u != nil {
		return u, nil
	}
	return f.add(&domain.User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: displayName,
		Kind:        domain.UserKindAssistant,
	}), nil
}

func (f *fakeUserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsOnline = online
		u.LastSeen = lastSeen
	}
	return nil
}

func (f *fakeUserRepo) SetPushToken(ctx context.Context, id uuid.UUID, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == nil {
		delete(f.tokens, id)
	} else {
		f.tokens[id] = *token
	}
	return nil
}

func (f *fakeUserRepo) GetPushTokens(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if token, ok := f.tokens[id]; ok {
			out[id] = token
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for id, u := range f.users {
		if u.Kind != domain.UserKindAssistant {
			out = append(out, id)
		}
	}
	return out, nil
}

// ---- message repository ----

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*domain.Message
	users     *fakeUserRepo
	createErr error
}

func newFakeMessageRepo(users *fakeUserRepo) *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[uuid.UUID]*domain.Message),
		users:    users,
	}
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *msg
	f.messages[msg.ID] = &cp
	return nil
}

func (f *fakeMessageRepo) get(id uuid.UUID) *domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[id]
}

func (f *fakeMessageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeMessageRepo) assistantReplyTo(triggerID uuid.UUID) *domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.IsAssistant && m.ReplyTo != nil && *m.ReplyTo == triggerID {
			return m
		}
	}
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	if sender, ok := f.users.users[cp.SenderID]; ok {
		cp.SenderUsername = sender.Username
		cp.SenderDisplayName = sender.DisplayName
	}
	return &cp, nil
}

// pairOf reports whether the message belongs to the viewer/other
// conversation, counting assistant replies to either party's messages.
func (f *fakeMessageRepo) pairOf(m *domain.Message, viewerID, otherID uuid.UUID) bool {
	direct := (m.SenderID == viewerID && m.ReceiverID == otherID) ||
		(m.SenderID == otherID && m.ReceiverID == viewerID)
	if direct {
		return true
	}
	if m.IsAssistant && m.ReplyTo != nil {
		if parent, ok := f.messages[*m.ReplyTo]; ok {
			return f.pairOf(parent, viewerID, otherID)
		}
	}
	return false
}

func (f *fakeMessageRepo) ListBetween(ctx context.Context, viewerID, otherID uuid.UUID) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.messages {
		if f.pairOf(m, viewerID, otherID) && !m.HiddenFor(viewerID) {
			cp := *m
			if sender, ok := f.users.users[cp.SenderID]; ok {
				cp.SenderUsername = sender.Username
				cp.SenderDisplayName = sender.DisplayName
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) ListRecentBetween(ctx context.Context, viewerID, otherID, excludeID uuid.UUID, limit int) ([]domain.Message, error) {
	all, err := f.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	var out []domain.Message
	for _, m := range all {
		if m.ID != excludeID && !m.Deleted {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkConversationRead(ctx context.Context, readerID, otherID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.ReceiverID == readerID && m.SenderID == otherID && !m.Read {
			m.Read = true
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) UpdateReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		m.Reactions = reactions
	}
	return nil
}

func (f *fakeMessageRepo) MarkDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		placeholder := domain.DeletedPlaceholder
		m.Deleted = true
		m.DeletedAt = &at
		m.Content = &placeholder
		m.Attachment = nil
	}
	return nil
}

func (f *fakeMessageRepo) AddDeletedFor(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok && !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (f *fakeMessageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	latest := make(map[uuid.UUID]*domain.Message)
	unread := make(map[uuid.UUID]int)
	for _, m := range f.messages {
		if m.IsAssistant || m.HiddenFor(userID) {
			continue
		}
		var other uuid.UUID
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if cur, ok := latest[other]; !ok || m.CreatedAt.After(cur.CreatedAt) {
			latest[other] = m
		}
		if m.ReceiverID == userID && !m.Read {
			unread[other]++
		}
	}

	var out []domain.ConversationSummary
	for other, last := range latest {
		summary := domain.ConversationSummary{
			UserID:      other,
			LastMessage: *last,
			UnreadCount: unread[other],
		}
		if u, ok := f.users.users[other]; ok {
			summary.Username = u.Username
			summary.DisplayName = u.DisplayName
			summary.IsOnline = u.IsOnline
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

func (f *fakeMessageRepo) HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.IsAssistant && m.ReplyTo != nil && *m.ReplyTo == replyTo {
			return true, nil
		}
	}
	return false, nil
}

// ---- club repository ----

type fakeClubRepo struct {
	mu       sync.Mutex
	clubs    map[uuid.UUID]*domain.Club
	members  map[uuid.UUID]map[uuid.UUID]*domain.ClubMember
	messages map[uuid.UUID]*domain.ClubMessage
	users    *fakeUserRepo
}

func newFakeClubRepo(users *fakeUserRepo) *fakeClubRepo {
	return &fakeClubRepo{
		clubs:    make(map[uuid.UUID]*domain.Club),
		members:  make(map[uuid.UUID]map[uuid.UUID]*domain.ClubMember),
		messages: make(map[uuid.UUID]*domain.ClubMessage),
		users:    users,
	}
}

func (f *fakeClubRepo) addClub(name string, memberIDs ...uuid.UUID) *domain.Club {
	f.mu.Lock()
	defer f.mu.Unlock()
	club := &domain.Club{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	f.clubs[club.ID] = club
	f.members[club.ID] = make(map[uuid.UUID]*domain.ClubMember)
	for _, id := range memberIDs {
		f.members[club.ID][id] = &domain.ClubMember{ClubID: club.ID, UserID: id, Role: "member", JoinedAt: time.Now()}
	}
	return club
}

func (f *fakeClubRepo) getMessage(id uuid.UUID) *domain.ClubMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[id]
}

func (f *fakeClubRepo) assistantReplyTo(triggerID uuid.UUID) *domain.ClubMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.IsAssistant && m.ReplyTo != nil && *m.ReplyTo == triggerID {
			return m
		}
	}
	return nil
}

func (f *fakeClubRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Club, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clubs[id], nil
}

func (f *fakeClubRepo) GetMember(ctx context.Context, clubID, userID uuid.UUID) (*domain.ClubMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[clubID][userID], nil
}

func (f *fakeClubRepo) ListMemberIDs(ctx context.Context, clubID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for id := range f.members[clubID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeClubRepo) CreateMessage(ctx context.Context, msg *domain.ClubMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *msg
	f.messages[msg.ID] = &cp
	if club, ok := f.clubs[msg.ClubID]; ok {
		club.LastMessage = &domain.ClubLastMessage{
			MessageID: msg.ID,
			SenderID:  msg.SenderID,
			Preview:   msg.Preview(),
			Type:      msg.Type,
			SentAt:    msg.CreatedAt,
		}
	}
	return nil
}

func (f *fakeClubRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.ClubMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	if sender, ok := f.users.users[cp.SenderID]; ok {
		cp.SenderUsername = sender.Username
		cp.SenderDisplayName = sender.DisplayName
	}
	return &cp, nil
}

func (f *fakeClubRepo) ListMessages(ctx context.Context, clubID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ClubMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cutoff time.Time
	if before != nil {
		if m, ok := f.messages[*before]; ok {
			cutoff = m.CreatedAt
		}
	}

	var out []domain.ClubMessage
	for _, m := range f.messages {
		if m.ClubID != clubID || m.HiddenFor(viewerID) {
			continue
		}
		if before != nil && !m.CreatedAt.Before(cutoff) {
			continue
		}
		cp := *m
		if sender, ok := f.users.users[cp.SenderID]; ok {
			cp.SenderUsername = sender.Username
			cp.SenderDisplayName = sender.DisplayName
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeClubRepo) ListRecentMessages(ctx context.Context, clubID, viewerID, excludeID uuid.UUID, limit int) ([]domain.ClubMessage, error) {
	all, err := f.ListMessages(ctx, clubID, viewerID, nil, len(f.messages))
	if err != nil {
		return nil, err
	}
	var out []domain.ClubMessage
	for _, m := range all {
		if m.ID != excludeID && !m.Deleted {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeClubRepo) SetLastRead(ctx context.Context, clubID, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[clubID][userID]; ok {
		m.LastReadAt = &at
	}
	return nil
}

func (f *fakeClubRepo) CountUnread(ctx context.Context, clubID, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[clubID][userID]
	if !ok {
		return 0, nil
	}
	var n int
	for _, m := range f.messages {
		if m.ClubID != clubID || m.SenderID == userID || m.HiddenFor(userID) {
			continue
		}
		if member.LastReadAt == nil || m.CreatedAt.After(*member.LastReadAt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeClubRepo) UpdateMessageReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		m.Reactions = reactions
	}
	return nil
}

func (f *fakeClubRepo) MarkMessageDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		placeholder := domain.DeletedPlaceholder
		m.Deleted = true
		m.DeletedAt = &at
		m.Content = &placeholder
		m.Attachment = nil
	}
	return nil
}

func (f *fakeClubRepo) AddMessageDeletedFor(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok && !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (f *fakeClubRepo) HasAssistantReply(ctx context.Context, replyTo uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.IsAssistant && m.ReplyTo != nil && *m.ReplyTo == replyTo {
			return true, nil
		}
	}
	return false, nil
}

// ---- notification repository ----

type fakeNotificationRepo struct {
	mu    sync.Mutex
	rows  []*domain.Notification
	byID map[uuid.UUID]*domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byID: make(map[uuid.UUID]*domain.Notification)}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.rows = append(f.rows, &cp)
	f.byID[n.ID] = &cp
	return nil
}

func (f *fakeNotificationRepo) CreateBatch(ctx context.Context, ns []*domain.Notification) error {
	for _, n := range ns {
		if err := f.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeNotificationRepo) forUser(userID uuid.UUID) []*domain.Notification {
	var out []*domain.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// userRows is forUser with locking, for assertions.
func (f *fakeNotificationRepo) userRows(userID uuid.UUID) []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.forUser(userID) {
		out = append(out, *n)
	}
	return out
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	rows := f.forUser(userID)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		if unreadOnly && rows[i].Read {
			continue
		}
		out = append(out, *rows[i])
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = &at
	}
	return true, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.forUser(userID) {
		if !row.Read {
			row.Read = true
			row.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(f.byID, id)
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeNotificationRepo) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*domain.Notification
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID {
			delete(f.byID, row.ID)
			n++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, row := range f.forUser(userID) {
		if !row.Read {
			n++
		}
	}
	return n, nil
}

// ---- collaborators ----

type directedMessage struct {
	userID uuid.UUID
	msg    *domain.Message
}

type messageDeletion struct {
	id      uuid.UUID
	mode    string
	actorID uuid.UUID
}

type userNotification struct {
	userID uuid.UUID
	n      *domain.Notification
}

type clubNotification struct {
	clubID  uuid.UUID
	n       *domain.Notification
	exclude *uuid.UUID
}

// fakeNotifier records every live event.
type fakeNotifier struct {
	mu                sync.Mutex
	newMessages       []*domain.Message
	directedMessages  []directedMessage
	clubMessages      []*domain.ClubMessage
	deletions         []messageDeletion
	clubDeletions     []messageDeletion
	reactions         []*domain.Message
	clubReactions     []*domain.ClubMessage
	userNotifications []userNotification
	clubNotifications []clubNotification
}

func (f *fakeNotifier) NotifyNewMessage(msg *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newMessages = append(f.newMessages, msg)
}

func (f *fakeNotifier) NotifyNewMessageTo(userID uuid.UUID, msg *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directedMessages = append(f.directedMessages, directedMessage{userID: userID, msg: msg})
}

func (f *fakeNotifier) NotifyNewClubMessage(msg *domain.ClubMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clubMessages = append(f.clubMessages, msg)
}

func (f *fakeNotifier) NotifyMessageDeleted(msg *domain.Message, mode string, actorID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletions = append(f.deletions, messageDeletion{id: msg.ID, mode: mode, actorID: actorID})
}

func (f *fakeNotifier) NotifyClubMessageDeleted(msg *domain.ClubMessage, mode string, actorID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clubDeletions = append(f.clubDeletions, messageDeletion{id: msg.ID, mode: mode, actorID: actorID})
}

func (f *fakeNotifier) NotifyReactionChanged(msg *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, msg)
}

func (f *fakeNotifier) NotifyClubReactionChanged(msg *domain.ClubMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clubReactions = append(f.clubReactions, msg)
}

func (f *fakeNotifier) NotifyUserNotification(userID uuid.UUID, n *domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userNotifications = append(f.userNotifications, userNotification{userID: userID, n: n})
}

func (f *fakeNotifier) NotifyClubNotification(clubID uuid.UUID, n *domain.Notification, excludeUserID *uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clubNotifications = append(f.clubNotifications, clubNotification{clubID: clubID, n: n, exclude: excludeUserID})
}

// syncTasks runs enqueued work inline so async flows become
// deterministic in tests.
type syncTasks struct {
	mu    sync.Mutex
	names []string
}

func (s *syncTasks) Enqueue(name string, run func(ctx context.Context)) bool {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	run(context.Background())
	return true
}

func (s *syncTasks) ran(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, got := range s.names {
		if got == name {
			n++
		}
	}
	return n
}

type fakePush struct {
	mu      sync.Mutex
	batches [][]push.Message
	tickets []push.Ticket
	err     error
}

func (f *fakePush) Send(ctx context.Context, msg push.Message) error {
	_, err := f.SendBatch(ctx, []push.Message{msg})
	return err
}

func (f *fakePush) SendBatch(ctx context.Context, msgs []push.Message) ([]push.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, msgs)
	if f.tickets != nil {
		return f.tickets, nil
	}
	tickets := make([]push.Ticket, len(msgs))
	for i := range tickets {
		tickets[i] = push.Ticket{Status: "ok"}
	}
	return tickets, nil
}

func (f *fakePush) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, batch := range f.batches {
		for _, msg := range batch {
			out = append(out, msg.To)
		}
	}
	return out
}

type fakeCompletions struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts [][]assistant.ChatMessage
}

func (f *fakeCompletions) Complete(ctx context.Context, messages []assistant.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompletions) lastPrompt() []assistant.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeCompletions) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// ---- harness ----

type harness struct {
	users    *fakeUserRepo
	messages *fakeMessageRepo
	clubs    *fakeClubRepo
	notes    *fakeNotificationRepo
	notifier *fakeNotifier
	pushes   *fakePush
	tasks    *syncTasks
	provider *fakeCompletions

	messageService      *MessageService
	clubService         *ClubService
	notificationService *NotificationService
	assistantService    *AssistantService
	userService         *UserService

	assistantUser *domain.User
	metrics       *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	users := newFakeUserRepo()
	h := &harness{
		users:    users,
		messages: newFakeMessageRepo(users),
		clubs:    newFakeClubRepo(users),
		notes:    newFakeNotificationRepo(),
		notifier: &fakeNotifier{},
		pushes:   &fakePush{},
		tasks:    &syncTasks{},
		provider: &fakeCompletions{reply: "Here to help."},
	}

	h.assistantUser = users.add(&domain.User{
		ID:          uuid.New(),
		Username:    "aura",
		DisplayName: "Aura AI",
		Kind:        domain.UserKindAssistant,
	})

	m := metrics.New(nil)
	h.metrics = m
	log := zap.NewNop()

	h.notificationService = NewNotificationService(h.notes, h.users, h.clubs, h.pushes, h.tasks, m, log)
	h.assistantService = NewAssistantService(h.messages, h.clubs, h.provider, h.notificationService, h.assistantUser, m, log)
	h.messageService = NewMessageService(h.messages, h.users, h.notificationService, h.assistantService, h.tasks, m, log)
	h.clubService = NewClubService(h.clubs, h.notificationService, h.assistantService, h.tasks, m, log)
	h.userService = NewUserService(h.users)

	h.messageService.SetNotifier(h.notifier)
	h.clubService.SetNotifier(h.notifier)
	h.notificationService.SetNotifier(h.notifier)
	h.assistantService.SetNotifier(h.notifier)

	return h
}

func (h *harness) addUser(username string) *domain.User {
	return h.users.add(&domain.User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: username,
		Kind:        domain.UserKindMember,
	})
}

func (h *harness) addAdmin(username string) *domain.User {
	return h.users.add(&domain.User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: username,
		Kind:        domain.UserKindAdmin,
	})
}

func (h *harness) setToken(userID uuid.UUID, token string) {
	h.users.SetPushToken(context.Background(), userID, &token)
}
