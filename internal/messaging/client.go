// internal/messaging/client.go

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Maximum number of queued frames per client
	maxQueuedMessages = 256

	actionTimeout = 10 * time.Second
)

// Actions are the engine operations a connected member can trigger
type Actions interface {
	Send(ctx context.Context, circleID string, sender circles.CurrentUser, content string) (*circles.Message, error)
	SetTyping(ctx context.Context, circleID, userID string, isTyping bool) error
	AddReaction(ctx context.Context, messageID, userID, symbol string) (*circles.Message, error)
	RemoveReaction(ctx context.Context, messageID, userID string) (*circles.Message, error)
}

// Client represents a websocket client joined to one circle
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	user     circles.CurrentUser
	circleID string
	actions  Actions
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, user circles.CurrentUser, circleID string, actions Actions) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, maxQueuedMessages),
		user:     user,
		circleID: circleID,
		actions:  actions,
		logger:   hub.logger.With().Str("circle_id", circleID).Str("user_id", user.ID).Logger(),
	}
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// enqueue reports false when the client's buffer is full
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		// frames from one client are handled in arrival order
		c.processMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(fmt.Errorf("%w: malformed frame", circles.ErrInvalidArgument))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var err error
	switch WSMessageType(msg.Type) {
	case WSTypeMessage:
		var req SendMessageRequest
		if err = decodeData(msg.Data, &req); err == nil {
			_, err = c.actions.Send(ctx, c.circleID, c.user, req.Content)
		}

	case WSTypeTyping:
		err = c.actions.SetTyping(ctx, c.circleID, c.user.ID, true)

	case WSTypeStopTyping:
		err = c.actions.SetTyping(ctx, c.circleID, c.user.ID, false)

	case WSTypeReaction:
		var req ReactionRequest
		if err = decodeData(msg.Data, &req); err == nil {
			_, err = c.actions.AddReaction(ctx, req.MessageID, c.user.ID, req.Symbol)
		}

	case WSTypeRemoveReaction:
		var req RemoveReactionRequest
		if err = decodeData(msg.Data, &req); err == nil {
			_, err = c.actions.RemoveReaction(ctx, req.MessageID, c.user.ID)
		}

	default:
		err = fmt.Errorf("%w: unknown frame type %q", circles.ErrInvalidArgument, msg.Type)
	}

	if err != nil {
		c.sendError(err)
	}
}

func (c *Client) sendError(err error) {
	frame, merr := json.Marshal(WSMessage{
		Type:      string(WSTypeError),
		Data:      mustMarshalJSON(WSError{Code: circles.HTTPStatus(err), Message: err.Error()}),
		Timestamp: time.Now(),
	})
	if merr != nil {
		return
	}
	c.enqueue(frame)
}

func decodeData(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", circles.ErrInvalidArgument)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", circles.ErrInvalidArgument, err)
	}
	if err := utils.ValidateStruct(dst); err != nil {
		return fmt.Errorf("%w: %v", circles.ErrInvalidArgument, err)
	}
	return nil
}
