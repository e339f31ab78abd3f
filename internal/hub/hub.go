// Package hub connects browser WebSocket clients to the change feed. Each
// client owns one subscription manager, so whatever concerns it watches —
// the channel list, the active channel's messages — there is at most one
// live feed handle per concern, and all of them die with the connection.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/subs"
)

type Client struct {
	UserID    int64
	SessionID uuid.UUID
	Conn      *websocket.Conn
	Ctx       context.Context

	subs   *subs.Manager
	events chan []byte

	mutex          sync.Mutex
	currentChannel int64
}

type Hub struct {
	sugar  *zap.SugaredLogger
	broker feed.Broker

	mutex   sync.Mutex
	clients map[uuid.UUID]*Client
}

func NewHub(sugar *zap.SugaredLogger, broker feed.Broker) *Hub {
	return &Hub{
		sugar:   sugar,
		broker:  broker,
		clients: make(map[uuid.UUID]*Client),
	}
}

func (h *Hub) HandleClient(w http.ResponseWriter, r *http.Request, userID int64, sessionID uuid.UUID) {
	h.sugar.Debugf("Connecting user ID [%d] to WebSocket", userID)

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sugar.Error(err)
		return
	}
	defer conn.Close()

	clientCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		Ctx:       clientCtx,
		subs:      subs.NewManager(h.sugar),
		events:    make(chan []byte, 64),
	}

	h.setClient(client)

	// forwarding feed events to the client
	go func() {
		for {
			select {
			case <-client.Ctx.Done():
				return
			case bytes, ok := <-client.events:
				if !ok {
					return
				}
				err := client.Conn.WriteMessage(websocket.TextMessage, bytes)
				if err != nil {
					h.sugar.Error(err)
					return
				}
			}
		}
	}()

	// every client watches the channel directory for as long as it's connected
	if err := h.subscribeChannelList(client); err != nil {
		h.sugar.Error(err)
	}

	// the read loop only detects disconnects; clients talk to the REST API
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			h.sugar.Debug(err)
			break
		}
	}

	h.deleteClient(sessionID)
	client.subs.UnsubscribeAll()
}

func (h *Hub) setClient(client *Client) {
	h.sugar.Debugf("Adding user ID [%d] to clients as session ID [%s]", client.UserID, client.SessionID)
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client.SessionID] = client
}

func (h *Hub) deleteClient(sessionID uuid.UUID) {
	h.sugar.Debugf("Removing session ID [%s] from clients", sessionID)
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.clients, sessionID)
}

func (h *Hub) GetClient(sessionID uuid.UUID) (*Client, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, exists := h.clients[sessionID]
	return client, exists
}

// forward queues an event envelope for the client. A slow consumer gets
// events dropped rather than stalling the broker.
func (h *Hub) forward(client *Client, event feed.Event) {
	bytes, err := json.Marshal(event)
	if err != nil {
		h.sugar.Error(err)
		return
	}

	select {
	case client.events <- bytes:
	default:
		h.sugar.Warnf("Dropping event for slow session ID [%s]", client.SessionID)
	}
}

func (h *Hub) subscribeChannelList(client *Client) error {
	return client.subs.Subscribe(subs.ChannelListKey, func() (*feed.Handle, error) {
		return h.broker.Subscribe(feed.ChannelTopic(), func(event feed.Event) {
			h.forward(client, event)
		})
	})
}

// SubscribeMessages switches the session's live message stream to channelID.
// The previous channel's handle is closed before the new one opens, so a
// channel switch never leaks a subscription and late events for the old
// channel stop reaching the client.
func (h *Hub) SubscribeMessages(sessionID uuid.UUID, channelID int64) error {
	client, exists := h.GetClient(sessionID)
	if !exists {
		return ErrNotConnected
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	if client.currentChannel == channelID {
		return nil
	}
	if client.currentChannel != 0 {
		client.subs.Unsubscribe(subs.MessageKey(client.currentChannel))
	}

	err := client.subs.Subscribe(subs.MessageKey(channelID), func() (*feed.Handle, error) {
		return h.broker.Subscribe(feed.MessageTopic(), func(event feed.Event) {
			msg, err := event.Message()
			if err != nil {
				h.sugar.Errorf("Dropping malformed message event: %v", err)
				return
			}

			// the message topic is process-wide; only the watched channel passes
			if msg.ChannelID != channelID {
				return
			}
			h.forward(client, event)
		})
	})
	if err != nil {
		return err
	}

	client.currentChannel = channelID
	return nil
}
