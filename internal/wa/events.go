package wa

import (
	"time"

	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/status"
)

// HistoryBatch summarizes an ingested history sync payload.
type HistoryBatch struct {
	Chats    int `json:"chats"`
	Messages int `json:"messages"`
}

// EventHandler translates raw whatsmeow events into state transitions,
// registry updates, and bus events. It never calls back into the client;
// consumers (archive recorder, SSE stream) subscribe to the bus.
type EventHandler struct {
	bus      *bus.Bus
	machine  *status.Machine
	registry *Registry
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(b *bus.Bus, machine *status.Machine, registry *Registry, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		bus:      b,
		machine:  machine,
		registry: registry,
		logger:   logger,
	}
}

// Handle is the main whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.handleConnected()
	case *events.Disconnected:
		h.logger.Warn("connection lost")
		_ = h.machine.Transition(status.Disconnected)
		h.bus.Publish(bus.Event{Kind: "session.disconnected", Timestamp: time.Now()})
	case *events.LoggedOut:
		h.logger.Warn("logged out by server", zap.String("reason", evt.Reason.String()))
		_ = h.machine.Transition(status.Disconnected)
		h.bus.Publish(bus.Event{Kind: "session.auth_failed", Timestamp: time.Now(), Payload: evt.Reason.String()})
	case *events.HistorySync:
		h.handleHistorySync(evt)
	case *events.PushName:
		if h.registry != nil {
			h.registry.SetName(NormalizeJID(evt.JID.String()), evt.NewPushName)
		}
		h.bus.Publish(bus.Event{
			Kind:      "wa.contact",
			Timestamp: time.Now(),
			Payload:   Contact{ID: NormalizeJID(evt.JID.String()), PushName: evt.NewPushName},
		})
	case *events.Contact:
		if h.registry != nil {
			h.registry.SetName(NormalizeJID(evt.JID.String()), evt.Action.GetFullName())
		}
	case *events.MarkChatAsRead:
		if h.registry != nil && evt.Action.GetRead() {
			h.registry.ClearUnread(NormalizeJID(evt.JID.String()))
		}
	case *events.Archive:
		if h.registry != nil {
			h.registry.SetArchived(NormalizeJID(evt.JID.String()), evt.Action.GetArchived())
		}
	case *events.Pin:
		if h.registry != nil {
			h.registry.SetPinned(NormalizeJID(evt.JID.String()), evt.Action.GetPinned())
		}
	case *events.Star:
		if h.registry != nil {
			h.registry.SetStarred(NormalizeJID(evt.ChatJID.String()), evt.MessageID, evt.Action.GetStarred())
		}
	}
}

// handleConnected walks the machine to ready. Fresh logins arrive here from
// the qr states and restored sessions from initializing; whatsmeow's own
// reconnect lands here from disconnected.
func (h *EventHandler) handleConnected() {
	h.logger.Info("connected")
	cur := h.machine.Current()
	if cur == status.Disconnected {
		if err := h.machine.Transition(status.Initializing); err == nil {
			cur = status.Initializing
		}
	}
	switch cur {
	case status.Initializing, status.QRPending, status.AwaitingScan:
		if err := h.machine.Transition(status.Authenticated); err == nil {
			h.bus.Publish(bus.Event{Kind: "session.authenticated", Timestamp: time.Now()})
		}
	}
	if h.machine.Current() == status.Authenticated {
		if err := h.machine.Transition(status.Ready); err == nil {
			h.bus.Publish(bus.Event{Kind: "session.ready", Timestamp: time.Now()})
		}
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	msg := ParseLiveMessage(evt)
	if h.registry != nil && !h.registry.Record(msg) {
		return
	}
	h.bus.Publish(bus.Event{
		Kind:      "wa.message",
		Timestamp: time.Now(),
		Payload:   msg,
	})
}

func (h *EventHandler) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}

	batch := HistoryBatch{}
	for _, conv := range data.GetConversations() {
		chatID := NormalizeJID(conv.GetID())
		if chatID == "" {
			continue
		}
		chat := Chat{
			ID:          chatID,
			Name:        conv.GetName(),
			UnreadCount: int(conv.GetUnreadCount()),
			IsArchived:  conv.GetArchived(),
			IsPinned:    conv.GetPinned() != 0,
			IsReadOnly:  conv.GetReadOnly(),
		}

		var msgs []Message
		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			key := wmsg.GetKey()
			sender := NormalizeJID(key.GetParticipant())
			if sender == "" && !key.GetFromMe() {
				sender = chatID
			}
			content := wmsg.GetMessage()
			msgs = append(msgs, Message{
				ID:          key.GetID(),
				ChatID:      chatID,
				Body:        extractTextBody(content),
				Type:        detectMessageType(content),
				Timestamp:   int64(wmsg.GetMessageTimestamp()) * 1000,
				SenderID:    sender,
				SenderName:  wmsg.GetPushName(),
				FromMe:      key.GetFromMe(),
				HasMedia:    hasMedia(content),
				IsForwarded: isForwarded(content),
				IsStarred:   wmsg.GetStarred(),
			})
		}

		if h.registry != nil {
			h.registry.IngestConversation(chat, msgs)
		}
		batch.Chats++
		batch.Messages += len(msgs)
	}

	if batch.Chats > 0 {
		h.logger.Info("history batch ingested",
			zap.Int("chats", batch.Chats),
			zap.Int("messages", batch.Messages),
		)
		h.bus.Publish(bus.Event{
			Kind:      "wa.history_batch",
			Timestamp: time.Now(),
			Payload:   batch,
		})
	}
}
