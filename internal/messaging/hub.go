// internal/messaging/hub.go

package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/events"
)

var _ circles.Disconnector = (*Hub)(nil)

// Subscriber is the read side of the event bus
type Subscriber interface {
	Subscribe(topic events.Topic, h events.Handler) func()
}

// OnlineSetter records connection-level presence
type OnlineSetter interface {
	SetOnline(circleID, userID string, isOnline bool)
}

// Hub maintains active websocket connections grouped by circle and fans bus
// events out to them.
type Hub struct {
	// circle ID -> user ID -> client
	rooms    map[string]map[string]*Client
	roomsMux sync.RWMutex

	// Register/unregister clients
	register   chan *Client
	unregister chan *Client

	presence OnlineSetter
	unsubs   []func()
	logger   zerolog.Logger

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(bus Subscriber, presence OnlineSetter, logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   presence,
		logger:     logger.With().Str("component", "hub").Logger(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, topic := range events.Topics {
		h.unsubs = append(h.unsubs, bus.Subscribe(topic, h.handleEvent))
	}
	return h
}

func (h *Hub) Run() {
	defer func() {
		h.cleanup()
		close(h.done)
	}()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

// Register hands a new connection to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.Close()
	}
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.roomsMux.Lock()
	room, ok := h.rooms[client.circleID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[client.circleID] = room
	}

	// Remove old connection for the same user
	old, replaced := room[client.user.ID]
	room[client.user.ID] = client
	total := len(room)
	h.roomsMux.Unlock()

	if replaced {
		old.Close()
	} else {
		activeConnections.Inc()
		h.presence.SetOnline(client.circleID, client.user.ID, true)
	}

	h.logger.Info().
		Str("circle_id", client.circleID).
		Str("user_id", client.user.ID).
		Int("room_size", total).
		Msg("client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.roomsMux.Lock()
	room := h.rooms[client.circleID]
	current, ok := room[client.user.ID]
	if ok && current == client {
		delete(room, client.user.ID)
		if len(room) == 0 {
			delete(h.rooms, client.circleID)
		}
	}
	h.roomsMux.Unlock()

	client.Close()
	if !ok || current != client {
		return
	}

	activeConnections.Dec()
	h.presence.SetOnline(client.circleID, client.user.ID, false)
	h.logger.Info().
		Str("circle_id", client.circleID).
		Str("user_id", client.user.ID).
		Msg("client disconnected")
}

func (h *Hub) handleEvent(ev events.Event) {
	circleID, ok := events.CircleIDOf(ev.Payload)
	if !ok {
		return
	}

	data, err := json.Marshal(WSMessage{
		Type:      string(ev.Topic),
		Data:      mustMarshalJSON(ev.Payload),
		Timestamp: ev.PublishedAt,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("topic", string(ev.Topic)).Msg("failed to marshal event")
		return
	}

	h.roomsMux.RLock()
	clients := make([]*Client, 0, len(h.rooms[circleID]))
	for _, c := range h.rooms[circleID] {
		clients = append(clients, c)
	}
	h.roomsMux.RUnlock()

	for _, c := range clients {
		if !c.enqueue(data) {
			// Unregister if channel is blocked
			droppedFrames.Inc()
			go h.Unregister(c)
		}
	}
}

// Disconnect closes userID's connection to circleID, if any, and marks them
// offline there. Events published after it returns no longer reach them.
func (h *Hub) Disconnect(circleID, userID string) {
	h.roomsMux.RLock()
	client, ok := h.rooms[circleID][userID]
	h.roomsMux.RUnlock()

	if ok {
		h.unregisterClient(client)
	}
}

// OnlineCount returns the number of open connections in a circle
func (h *Hub) OnlineCount(circleID string) int {
	h.roomsMux.RLock()
	defer h.roomsMux.RUnlock()
	return len(h.rooms[circleID])
}

func (h *Hub) cleanup() {
	for _, unsub := range h.unsubs {
		unsub()
	}

	// Close all client connections
	h.roomsMux.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[string]*Client)
	h.roomsMux.Unlock()

	for circleID, room := range rooms {
		for userID, client := range room {
			client.Close()
			activeConnections.Dec()
			h.presence.SetOnline(circleID, userID, false)
		}
	}
}

// Shutdown stops the hub and waits for Run to exit
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done
}
