package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/metrics"
)

// PresenceStore mirrors presence transitions into durable storage.
type PresenceStore interface {
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
}

// Hub routes events to rooms of connected clients and owns the presence
// tracker. It is passed around by handle; there is no package-level
// instance.
type Hub struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	store   PresenceStore
	tracker *Tracker

	// rooms and clients are owned by the Run loop.
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	rooming    chan roomChange
	broadcast  chan *broadcastMsg

	stop chan struct{}
	done chan struct{}
}

type broadcastMsg struct {
	room      string
	all       bool
	data      []byte
	excludeID *uuid.UUID
}

type roomChange struct {
	client *Client
	room   string
	join   bool
}

func NewHub(log *zap.Logger, m *metrics.Metrics, store PresenceStore) *Hub {
	return &Hub{
		log:        log,
		metrics:    m,
		store:      store,
		tracker:    NewTracker(),
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooming:    make(chan roomChange),
		broadcast:  make(chan *broadcastMsg, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Tracker exposes the presence tracker for read-side queries.
func (h *Hub) Tracker() *Tracker {
	return h.tracker
}

// Run is the Hub's main event loop. Call it in a goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.joinRoom(client, UserRoom(client.userID))
			h.metrics.WSConnections.Inc()
			h.log.Info("ws client connected",
				zap.String("user_id", client.userID.String()),
				zap.Int("total", len(h.clients)),
			)

			if h.tracker.Connect(client.userID, client.connID) {
				h.applyPresence(client.userID, true)
			}

		case client := <-h.unregister:
			h.removeClient(client)

		case change := <-h.rooming:
			if _, ok := h.clients[change.client]; !ok {
				continue
			}
			if change.join {
				h.joinRoom(change.client, change.room)
			} else {
				h.leaveRoom(change.client, change.room)
			}

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
				close(client.done)
			}
			return
		}
	}
}

// Stop disconnects every client and ends the run loop.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// BroadcastToRoom queues one event for every client in the room. An
// empty room drops the event, as does a full hub queue; senders are
// never blocked.
func (h *Hub) BroadcastToRoom(room string, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws event marshal failed", zap.Error(err))
		return
	}
	h.enqueue(&broadcastMsg{room: room, data: data, excludeID: excludeUserID})
}

// BroadcastToUser targets the user's own room.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	h.BroadcastToRoom(UserRoom(userID), event, nil)
}

// BroadcastAll reaches every connected client.
func (h *Hub) BroadcastAll(event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws event marshal failed", zap.Error(err))
		return
	}
	h.enqueue(&broadcastMsg{all: true, data: data, excludeID: excludeUserID})
}

// SetOnline handles a client's explicit online signal.
func (h *Hub) SetOnline(userID uuid.UUID) {
	if h.tracker.SetOnline(userID) {
		h.applyPresence(userID, true)
	}
}

// SetOffline handles a client's explicit offline signal. The user goes
// offline even if other devices stay connected.
func (h *Hub) SetOffline(userID uuid.UUID) {
	if h.tracker.SetOffline(userID) {
		h.applyPresence(userID, false)
	}
}

// RelayTyping forwards a typing signal to its direct or club target.
func (h *Hub) RelayTyping(sender *Client, signal TypingSignal) {
	evt, err := NewEvent(EventTypeTyping, TypingPayload{
		UserID:   sender.userID,
		ClubID:   signal.ClubID,
		IsTyping: signal.IsTyping,
	})
	if err != nil {
		return
	}

	switch {
	case signal.ClubID != nil:
		h.BroadcastToRoom(ClubRoom(*signal.ClubID), evt, &sender.userID)
	case signal.ToUserID != nil:
		h.BroadcastToRoom(UserRoom(*signal.ToUserID), evt, nil)
	}
}

func (h *Hub) add(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes the client to a room.
func (h *Hub) Join(c *Client, room string) {
	select {
	case h.rooming <- roomChange{client: c, room: room, join: true}:
	case <-h.done:
	}
}

// Leave unsubscribes the client from a room.
func (h *Hub) Leave(c *Client, room string) {
	select {
	case h.rooming <- roomChange{client: c, room: room, join: false}:
	case <-h.done:
	}
}

func (h *Hub) enqueue(msg *broadcastMsg) {
	h.metrics.EventsBroadcast.Inc()
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.log.Warn("ws broadcast queue full, dropping event")
	}
}

func (h *Hub) deliver(msg *broadcastMsg) {
	var targets map[*Client]struct{}
	if msg.all {
		targets = h.clients
	} else {
		targets = h.rooms[msg.room]
	}

	for client := range targets {
		if msg.excludeID != nil && client.userID == *msg.excludeID {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// Client buffer full - disconnect
			h.removeClient(client)
		}
	}
}

func (h *Hub) joinRoom(c *Client, room string) {
	clients := h.rooms[room]
	if clients == nil {
		clients = make(map[*Client]struct{})
		h.rooms[room] = clients
	}
	clients[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveRoom(c *Client, room string) {
	delete(c.rooms, room)

	clients := h.rooms[room]
	if clients == nil {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)

	for room := range c.rooms {
		h.leaveRoom(c, room)
	}

	close(c.send)
	close(c.done)
	h.metrics.WSConnections.Dec()
	h.log.Info("ws client disconnected",
		zap.String("user_id", c.userID.String()),
		zap.Int("total", len(h.clients)),
	)

	if h.tracker.Disconnect(c.userID, c.connID) {
		h.applyPresence(c.userID, false)
	}
}

// applyPresence runs a transition's side effects off the loop, keeping
// their order: durable mirror first, then the broadcast to everyone
// else.
func (h *Hub) applyPresence(userID uuid.UUID, online bool) {
	go func() {
		now := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SetPresence(ctx, userID, online, now); err != nil {
			h.log.Error("presence mirror failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}

		status := "offline"
		if online {
			status = "online"
		}
		evt, err := NewEvent(EventTypePresenceChanged, PresencePayload{
			UserID:   userID,
			Status:   status,
			LastSeen: now,
		})
		if err != nil {
			return
		}
		h.BroadcastAll(evt, &userID)
	}()
}
