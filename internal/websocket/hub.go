package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/harmonygenie/api/internal/model"
)

// Hub fans generation progress out to the sockets watching a conversation.
// Subscriptions are keyed by conversation id; a conversation nobody watches
// costs nothing. A slow socket drops ticks instead of blocking the worker.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// subscriber is one attached socket. Its outbound channel is closed exactly
// once, by detach, under the hub lock.
type subscriber struct {
	out chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) attach(conversationID string) *subscriber {
	sub := &subscriber{out: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[*subscriber]struct{})
	}
	h.subs[conversationID][sub] = struct{}{}
	return sub
}

func (h *Hub) detach(conversationID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[conversationID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.out)
	if len(set) == 0 {
		delete(h.subs, conversationID)
	}
}

// publish marshals the payload once and hands it to every watcher of the
// conversation. Sends never block: a full buffer means the socket is not
// keeping up and the tick is dropped.
func (h *Hub) publish(conversationID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] Failed to marshal push for %s: %v", conversationID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[conversationID] {
		select {
		case sub.out <- data:
		default:
		}
	}
}

// BroadcastStatus pushes a generation status tick.
func (h *Hub) BroadcastStatus(conversationID, taskID string, status model.TaskStatus, statusText string, attempt int) {
	h.publish(conversationID, model.WSStatusMessage{
		Type:           model.WSMessageTypeStatus,
		ConversationID: conversationID,
		TaskID:         taskID,
		Status:         status,
		StatusText:     statusText,
		Attempt:        attempt,
	})
}

// BroadcastComplete pushes the finished track.
func (h *Hub) BroadcastComplete(conversationID string, track *model.TrackData) {
	h.publish(conversationID, model.WSCompleteMessage{
		Type:           model.WSMessageTypeComplete,
		ConversationID: conversationID,
		Track:          track,
	})
}

// BroadcastError pushes a terminal failure.
func (h *Hub) BroadcastError(conversationID string, code, message string) {
	h.publish(conversationID, model.WSErrorMessage{
		Type:           model.WSMessageTypeError,
		ConversationID: conversationID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

// HandleConnection owns one socket for its lifetime: pushes hub traffic and
// keepalive pings from a writer goroutine, answers ping frames from the
// reader, and detaches on any read error.
func (h *Hub) HandleConnection(c *websocket.Conn, conversationID string) {
	sub := h.attach(conversationID)
	defer h.detach(conversationID, sub)

	done := make(chan struct{})
	defer close(done)
	go writeLoop(c, sub, done)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error on %s: %v", conversationID, err)
			}
			return
		}

		var msg model.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case sub.out <- pong:
			default:
			}
		}
	}
}

func writeLoop(c *websocket.Conn, sub *subscriber, done <-chan struct{}) {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case msg, ok := <-sub.out:
			if !ok {
				c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-keepalive.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
