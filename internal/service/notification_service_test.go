package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivam222343/aura/internal/apperr"
	"github.com/shivam222343/aura/internal/domain"
	"github.com/shivam222343/aura/internal/push"
)

func TestNotifyUserStoresEmitsAndPushes(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")
	h.setToken(bob.ID, "ExponentPushToken[bob]")

	messageID := uuid.New()
	n, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "alice", "hello", domain.MessagePayload{
		MessageID:  messageID,
		SenderID:   uuid.New(),
		SenderName: "alice",
		Preview:    "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, bob.ID, n.UserID)
	assert.Equal(t, domain.NotificationMessage, n.Kind)
	assert.Equal(t, "alice", n.Title)
	assert.False(t, n.Read)

	var decoded domain.MessagePayload
	require.NoError(t, json.Unmarshal(n.Payload, &decoded))
	assert.Equal(t, messageID, decoded.MessageID)

	require.Len(t, h.notes.userRows(bob.ID), 1)
	require.Len(t, h.notifier.userNotifications, 1)
	assert.Equal(t, bob.ID, h.notifier.userNotifications[0].userID)

	assert.Equal(t, 1, h.tasks.ran("push.send"))
	require.Len(t, h.pushes.batches, 1)
	sent := h.pushes.batches[0][0]
	assert.Equal(t, "ExponentPushToken[bob]", sent.To)
	assert.Equal(t, "alice", sent.Title)
	assert.Equal(t, "hello", sent.Body)
	assert.Equal(t, string(domain.NotificationMessage), sent.Data["kind"])

	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.PushSent))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.NotificationsCreated))
}

func TestNotifyUserWithoutTokenSkipsPush(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")

	_, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "t", "b", domain.AnnouncementPayload{})
	require.NoError(t, err)

	// The row and the live event still happen; only the device push is
	// skipped.
	require.Len(t, h.notes.userRows(bob.ID), 1)
	assert.Equal(t, 1, h.tasks.ran("push.send"))
	assert.Empty(t, h.pushes.batches)
	assert.Zero(t, testutil.ToFloat64(h.metrics.PushSent))
}

func TestPushErrorTicketIsCounted(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")
	h.setToken(bob.ID, "ExponentPushToken[stale]")
	h.pushes.tickets = []push.Ticket{{Status: push.TicketError, Message: "DeviceNotRegistered"}}

	_, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "t", "b", domain.AnnouncementPayload{})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.PushFailed))
	assert.Zero(t, testutil.ToFloat64(h.metrics.PushSent))
}

func TestPushDeliveryFailureNeverPropagates(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")
	h.setToken(bob.ID, "ExponentPushToken[bob]")
	h.pushes.err = errors.New("gateway timeout")

	n, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "t", "b", domain.AnnouncementPayload{})
	require.NoError(t, err)
	require.NotNil(t, n)

	require.Len(t, h.notes.userRows(bob.ID), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.PushFailed))
}

func TestNotifyClubWithoutExclusion(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")
	bob := h.addUser("bob")
	club := h.clubs.addClub("gophers", alice.ID, bob.ID)

	count, err := h.notificationService.NotifyClub(context.Background(), club.ID, "t", "b", domain.AnnouncementPayload{ClubID: &club.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, h.notes.userRows(alice.ID), 1)
	require.Len(t, h.notes.userRows(bob.ID), 1)
	require.Len(t, h.notifier.clubNotifications, 1)
	assert.Nil(t, h.notifier.clubNotifications[0].exclude)
}

func TestNotifyClubEmptyAfterExclusion(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")
	club := h.clubs.addClub("solo", alice.ID)

	count, err := h.notificationService.NotifyClub(context.Background(), club.ID, "t", "b", domain.AnnouncementPayload{}, &alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, h.notes.userRows(alice.ID))
	assert.Empty(t, h.notifier.clubNotifications)
	assert.Zero(t, h.tasks.ran("push.send"))
}

func TestNotifyManyEmitsPerUser(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")
	bob := h.addUser("bob")
	carol := h.addUser("carol")
	h.setToken(alice.ID, "ExponentPushToken[alice]")
	h.setToken(carol.ID, "ExponentPushToken[carol]")

	count, err := h.notificationService.NotifyMany(context.Background(),
		[]uuid.UUID{alice.ID, bob.ID, carol.ID}, "maintenance", "tonight", domain.AnnouncementPayload{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Len(t, h.notifier.userNotifications, 3)
	assert.Equal(t, 1, h.tasks.ran("push.send"))
	assert.ElementsMatch(t,
		[]string{"ExponentPushToken[alice]", "ExponentPushToken[carol]"},
		h.pushes.sentTo())

	count, err = h.notificationService.NotifyMany(context.Background(), nil, "t", "b", domain.AnnouncementPayload{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAnnounceRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")

	_, err := h.notificationService.Announce(context.Background(), alice.ID, AnnounceInput{Title: "hi"})
	require.ErrorIs(t, err, ErrNotAdmin)
	assert.True(t, apperr.IsForbidden(err))

	_, err = h.notificationService.Announce(context.Background(), uuid.New(), AnnounceInput{Title: "hi"})
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestAnnounceToClub(t *testing.T) {
	h := newHarness(t)
	admin := h.addAdmin("root")
	alice := h.addUser("alice")
	bob := h.addUser("bob")
	club := h.clubs.addClub("gophers", alice.ID, bob.ID)

	count, err := h.notificationService.Announce(context.Background(), admin.ID, AnnounceInput{
		Title:  "  Server maintenance  ",
		Body:   "Back at 9pm",
		ClubID: &club.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows := h.notes.userRows(alice.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.NotificationAnnouncement, rows[0].Kind)
	assert.Equal(t, "Server maintenance", rows[0].Title)

	var payload domain.AnnouncementPayload
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	require.NotNil(t, payload.ClubID)
	assert.Equal(t, club.ID, *payload.ClubID)

	_, err = h.notificationService.Announce(context.Background(), admin.ID, AnnounceInput{
		Title:  "hi",
		ClubID: &uuid.UUID{},
	})
	require.ErrorIs(t, err, ErrClubNotFound)
}

func TestAnnounceToEveryone(t *testing.T) {
	h := newHarness(t)
	admin := h.addAdmin("root")
	h.addUser("alice")
	h.addUser("bob")

	count, err := h.notificationService.Announce(context.Background(), admin.ID, AnnounceInput{
		Title: "Welcome",
		Body:  "New release",
	})
	require.NoError(t, err)
	// Admin included, assistant excluded.
	assert.Equal(t, 3, count)
	require.Len(t, h.notifier.userNotifications, 3)
	assert.Empty(t, h.notes.userRows(h.assistantUser.ID))
}

func TestAnnounceRejectsEmptyTitle(t *testing.T) {
	h := newHarness(t)
	admin := h.addAdmin("root")

	_, err := h.notificationService.Announce(context.Background(), admin.ID, AnnounceInput{Title: "   "})
	require.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNotificationListAndUnreadCount(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")

	var ids []uuid.UUID
	for _, title := range []string{"first", "second", "third"} {
		n, err := h.notificationService.NotifyUser(context.Background(), bob.ID, title, "", domain.AnnouncementPayload{})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	resp, err := h.notificationService.List(context.Background(), bob.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 3)
	assert.Equal(t, "third", resp.Notifications[0].Title)
	assert.Equal(t, 3, resp.UnreadCount)

	require.NoError(t, h.notificationService.MarkRead(context.Background(), bob.ID, ids[0]))

	resp, err = h.notificationService.List(context.Background(), bob.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, 2, resp.UnreadCount)

	// Limit clamps to a page.
	resp, err = h.notificationService.List(context.Background(), bob.ID, false, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Notifications, 2)
}

func TestNotificationMarkReadOwnership(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")
	eve := h.addUser("eve")

	n, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "t", "", domain.AnnouncementPayload{})
	require.NoError(t, err)

	err = h.notificationService.MarkRead(context.Background(), eve.ID, n.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
	assert.True(t, apperr.IsNotFound(err))

	err = h.notificationService.MarkRead(context.Background(), bob.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, h.notificationService.MarkRead(context.Background(), bob.ID, n.ID))
}

func TestNotificationMarkAllAndDelete(t *testing.T) {
	h := newHarness(t)
	bob := h.addUser("bob")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n, err := h.notificationService.NotifyUser(context.Background(), bob.ID, "t", "", domain.AnnouncementPayload{})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	updated, err := h.notificationService.MarkAllRead(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = h.notificationService.MarkAllRead(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	require.NoError(t, h.notificationService.Delete(context.Background(), bob.ID, ids[0]))
	err = h.notificationService.Delete(context.Background(), bob.ID, ids[0])
	require.ErrorIs(t, err, ErrNotificationNotFound)

	deleted, err := h.notificationService.DeleteAll(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, h.notes.userRows(bob.ID))
}
