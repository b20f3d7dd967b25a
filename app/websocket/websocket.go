package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	tools "github.com/kirillDanshin/nulltime"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

const (
	writeWait     = 10 * time.Second
	ticketTTL     = time.Minute
	broadcastSize = 256
)

var ErrTicketInvalid = errors.New("Ticket invalid")

type wsTicket struct {
	user      core.User
	expiresAt time.Time
}

// Hub keeps the open connections per user and fans out broadcast messages.
// Only Run writes to connections.
type Hub struct {
	mu      sync.RWMutex
	users   map[uint]map[*websocket.Conn]RegisteredMessageTypes
	tickets map[string]wsTicket

	broadcast chan WSHeaderMessage
	now       func() time.Time

	Upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		users:     make(map[uint]map[*websocket.Conn]RegisteredMessageTypes),
		tickets:   make(map[string]wsTicket),
		broadcast: make(chan WSHeaderMessage, broadcastSize),
		now:       time.Now,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// IssueTicket hands out a one-time ticket for the websocket upgrade of user.
func (h *Hub) IssueTicket(user core.User) string {
	ticket := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	for key, t := range h.tickets {
		if now.After(t.expiresAt) {
			delete(h.tickets, key)
		}
	}
	h.tickets[ticket] = wsTicket{user: user, expiresAt: now.Add(ticketTTL)}
	return ticket
}

// ConsumeTicket returns the user of a ticket and invalidates it.
func (h *Hub) ConsumeTicket(ticket string) (core.User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tickets[ticket]
	if !ok {
		return core.User{}, ErrTicketInvalid
	}
	delete(h.tickets, ticket)
	if h.now().After(t.expiresAt) {
		return core.User{}, ErrTicketInvalid
	}
	return t.user, nil
}

func (h *Hub) Register(userId uint, conn *websocket.Conn, types RegisteredMessageTypes) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[userId]; !ok {
		h.users[userId] = make(map[*websocket.Conn]RegisteredMessageTypes)
	}
	h.users[userId][conn] = types
}

func (h *Hub) Unregister(userId uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[userId]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, userId)
		}
	}
	conn.Close()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, conns := range h.users {
		count += len(conns)
	}
	return count
}

// Serve upgrades the request and reads client messages until the connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userId uint) error {
	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.Register(userId, ws, RegisteredMessageTypes{{MessageType: Websocket_All}})
	defer h.Unregister(userId, ws)

	for {
		var msg WebsocketMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				core.Logger.Debug("websocket closed", zap.Uint("user_id", userId), zap.Error(err))
			}
			return nil
		}

		if msg.MessageType == MessageType_Subscribe && msg.ForeignType != "" {
			h.Register(userId, ws, RegisteredMessageTypes{{MessageType: msg.ForeignType, SpecifiedId: msg.ForeignId}})
		}
	}
}

// Send queues msg without blocking. Messages are dropped when the queue is full.
func (h *Hub) Send(msg WSHeaderMessage) {
	select {
	case h.broadcast <- msg:
	default:
		core.Logger.Warn("websocket queue full, message dropped",
			zap.String("foreign_type", msg.Message.ForeignType),
			zap.Uint("foreign_id", msg.Message.ForeignId))
	}
}

func (h *Hub) SendBroadcastDataInfoMessage(message string, action string, foreignType string, foreignId uint, data interface{}) {
	h.Send(WSHeaderMessage{
		UserId: 0,
		Message: WebsocketMessage{
			MessageType: MessageType_Data,
			Timestamp:   tools.NullTime{Time: h.now(), Valid: true},
			Message:     message,
			ForeignType: foreignType,
			ForeignId:   foreignId,
			Action:      action,
			Data:        data,
		},
	})
}

// Run delivers queued messages until ctx is done, then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

type target struct {
	userId uint
	conn   *websocket.Conn
}

func (h *Hub) deliver(msg WSHeaderMessage) {
	targets := []target{}
	h.mu.RLock()
	for userId, conns := range h.users {
		if msg.UserId != 0 && msg.UserId != userId {
			continue
		}
		for conn, types := range conns {
			if types.Wants(msg.Message) {
				targets = append(targets, target{userId: userId, conn: conn})
			}
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := t.conn.WriteJSON(&msg.Message); err != nil {
			core.Logger.Debug("websocket write failed", zap.Uint("user_id", t.userId), zap.Error(err))
			h.Unregister(t.userId, t.conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userId, conns := range h.users {
		for conn := range conns {
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			conn.Close()
		}
		delete(h.users, userId)
	}
}
