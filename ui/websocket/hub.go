package websocket

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"
	"github.com/wappanel/wappanel/infrastructure/valkey"
)

// Event is one realtime notification scoped to a conversation.
// Conversation-less events (empty id) go to every subscriber.
type Event struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Event          string `json:"event"`
	Payload        any    `json:"payload,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
}

type subscription struct {
	conn           *websocket.Conn
	conversationID string
}

// Hub fans realtime events out to websocket subscribers. With a valkey
// client attached, events also relay across nodes; the sender id keeps
// a node from re-broadcasting its own events.
type Hub struct {
	register    chan subscription
	unregister  chan *websocket.Conn
	events      chan Event
	subscribers map[*websocket.Conn]string
	vk          *valkey.Client
	localID     string
}

func NewHub(vk *valkey.Client) *Hub {
	return &Hub{
		register:    make(chan subscription),
		unregister:  make(chan *websocket.Conn),
		events:      make(chan Event, 64),
		subscribers: make(map[*websocket.Conn]string),
		vk:          vk,
		localID:     uuid.New().String(),
	}
}

// Broadcast queues an event. Non-blocking: when the hub is saturated
// the event is dropped, realtime updates are advisory.
func (h *Hub) Broadcast(conversationID, event string, payload any) {
	select {
	case h.events <- Event{ConversationID: conversationID, Event: event, Payload: payload}:
	default:
		logrus.Warnf("[WS] Event queue full, %s dropped for conversation %s", event, conversationID)
	}
}

func (h *Hub) Run() {
	if h.vk != nil {
		h.startRelaySubscriber()
	}
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub.conn] = sub.conversationID
			logrus.Debug("[WS] Subscriber registered")

		case conn := <-h.unregister:
			delete(h.subscribers, conn)
			logrus.Debug("[WS] Subscriber unregistered")

		case event := <-h.events:
			h.deliverLocal(event)
			if h.vk != nil && event.SenderID == "" {
				h.publishRelay(event)
			}
		}
	}
}

func (h *Hub) deliverLocal(event Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("[WS] Event marshal failed: %v", err)
		return
	}
	for conn, conversationID := range h.subscribers {
		if conversationID != "" && event.ConversationID != "" && conversationID != event.ConversationID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			logrus.Debugf("[WS] Write failed, dropping subscriber: %v", err)
			_ = conn.Close()
			delete(h.subscribers, conn)
		}
	}
}

func (h *Hub) relayChannel() string {
	return h.vk.Key("ws_events")
}

func (h *Hub) publishRelay(event Event) {
	event.SenderID = h.localID
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	inner := h.vk.Inner()
	cmd := inner.B().Publish().Channel(h.relayChannel()).Message(string(raw)).Build()
	if err := inner.Do(context.Background(), cmd).Error(); err != nil {
		logrus.Errorf("[WS] Relay publish failed: %v", err)
	}
}

func (h *Hub) startRelaySubscriber() {
	logrus.Info("[WS] Cross-node event relay enabled")
	go func() {
		inner := h.vk.Inner()
		err := inner.Receive(context.Background(), inner.B().Subscribe().Channel(h.relayChannel()).Build(), func(msg valkeylib.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				return
			}
			if event.SenderID == h.localID {
				return
			}
			h.events <- event
		})
		if err != nil {
			logrus.Errorf("[WS] Relay subscriber stopped: %v", err)
		}
	}()
}

// RegisterRoutes mounts GET /ws. Subscribers may scope themselves to a
// single conversation with ?conversation=<id>.
func (h *Hub) RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			h.unregister <- conn
			_ = conn.Close()
		}()

		h.register <- subscription{conn: conn, conversationID: conn.Query("conversation")}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
		}
	}))
}
