package ws

import (
	"github.com/google/uuid"

	"github.com/shivam222343/aura/internal/domain"
)

// HubNotifier implements service.Notifier on top of the Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	n.NotifyNewMessageTo(msg.ReceiverID, msg)
}

func (n *HubNotifier) NotifyNewMessageTo(userID uuid.UUID, msg *domain.Message) {
	evt, err := NewEvent(EventTypeNewMessage, MessagePayload{Message: *msg})
	if err != nil {
		return
	}
	n.hub.BroadcastToUser(userID, evt)
}

func (n *HubNotifier) NotifyNewClubMessage(msg *domain.ClubMessage) {
	evt, err := NewEvent(EventTypeNewClubMessage, ClubMessagePayload{ClubMessage: *msg})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(ClubRoom(msg.ClubID), evt, nil)
}

// NotifyMessageDeleted goes to both parties for a delete-for-everyone
// and only to the acting user for a delete-for-me.
func (n *HubNotifier) NotifyMessageDeleted(msg *domain.Message, mode string, actorID uuid.UUID) {
	evt, err := NewEvent(EventTypeMessageDeleted, MessageDeletedPayload{ID: msg.ID, Mode: mode})
	if err != nil {
		return
	}

	if mode == DeleteModeMe {
		n.hub.BroadcastToUser(actorID, evt)
		return
	}
	n.hub.BroadcastToUser(msg.SenderID, evt)
	n.hub.BroadcastToUser(msg.ReceiverID, evt)
}

func (n *HubNotifier) NotifyClubMessageDeleted(msg *domain.ClubMessage, mode string, actorID uuid.UUID) {
	evt, err := NewEvent(EventTypeClubMessageDeleted, ClubMessageDeletedPayload{
		ID:     msg.ID,
		ClubID: msg.ClubID,
		Mode:   mode,
	})
	if err != nil {
		return
	}

	if mode == DeleteModeMe {
		n.hub.BroadcastToUser(actorID, evt)
		return
	}
	n.hub.BroadcastToRoom(ClubRoom(msg.ClubID), evt, nil)
}

func (n *HubNotifier) NotifyReactionChanged(msg *domain.Message) {
	evt, err := NewEvent(EventTypeReactionChanged, ReactionPayload{
		MessageID: msg.ID,
		Reactions: msg.Reactions,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToUser(msg.SenderID, evt)
	n.hub.BroadcastToUser(msg.ReceiverID, evt)
}

func (n *HubNotifier) NotifyClubReactionChanged(msg *domain.ClubMessage) {
	evt, err := NewEvent(EventTypeClubReaction, ClubReactionPayload{
		MessageID: msg.ID,
		ClubID:    msg.ClubID,
		Reactions: msg.Reactions,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(ClubRoom(msg.ClubID), evt, nil)
}

func (n *HubNotifier) NotifyUserNotification(userID uuid.UUID, notification *domain.Notification) {
	id := notification.ID
	evt, err := NewEvent(EventTypeNotification, NotificationPayload{
		ID:        &id,
		Kind:      notification.Kind,
		Title:     notification.Title,
		Body:      notification.Body,
		Payload:   notification.Payload,
		CreatedAt: notification.CreatedAt,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToUser(userID, evt)
}

func (n *HubNotifier) NotifyClubNotification(clubID uuid.UUID, notification *domain.Notification, excludeUserID *uuid.UUID) {
	evt, err := NewEvent(EventTypeNotification, NotificationPayload{
		Kind:      notification.Kind,
		Title:     notification.Title,
		Body:      notification.Body,
		Payload:   notification.Payload,
		CreatedAt: notification.CreatedAt,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(ClubRoom(clubID), evt, excludeUserID)
}
