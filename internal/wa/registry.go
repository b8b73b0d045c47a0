package wa

import (
	"sort"
	"sync"
)

// DefaultChatHistoryCap bounds how many messages the registry retains per
// chat. Older messages fall off; the collaborator remains the system of
// record.
const DefaultChatHistoryCap = 500

const previewLen = 100

// Registry mirrors the collaborator's chat state in memory. History sync
// seeds it and live events keep it current; the Session implementation
// serves chat and message reads from it.
type Registry struct {
	mu         sync.RWMutex
	chats      map[string]*chatEntry
	messageCap int
}

type chatEntry struct {
	chat     Chat
	messages []Message
	seen     map[string]bool
}

// NewRegistry creates a registry retaining up to messageCap messages per
// chat. Zero or negative means DefaultChatHistoryCap.
func NewRegistry(messageCap int) *Registry {
	if messageCap <= 0 {
		messageCap = DefaultChatHistoryCap
	}
	return &Registry{
		chats:      make(map[string]*chatEntry),
		messageCap: messageCap,
	}
}

// IngestConversation merges a history sync conversation snapshot. The
// snapshot's unread count and flags are authoritative for new chats; for
// known chats the larger unread count wins so live increments survive.
func (r *Registry) IngestConversation(chat Chat, msgs []Message) {
	if chat.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.chats[chat.ID]
	if !ok {
		entry = &chatEntry{chat: chat, seen: make(map[string]bool)}
		entry.chat.IsGroup = IsGroupJID(chat.ID)
		r.chats[chat.ID] = entry
	} else {
		if chat.Name != "" {
			entry.chat.Name = chat.Name
		}
		if chat.UnreadCount > entry.chat.UnreadCount {
			entry.chat.UnreadCount = chat.UnreadCount
		}
		entry.chat.IsArchived = chat.IsArchived
		entry.chat.IsPinned = chat.IsPinned
		entry.chat.IsReadOnly = chat.IsReadOnly
	}

	for _, m := range msgs {
		r.insertLocked(entry, m)
	}
}

// Record stores a live message and returns false if it was already known.
// Inbound messages increment the chat's unread count.
func (r *Registry) Record(msg Message) bool {
	if msg.ChatID == "" || msg.ID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.chats[msg.ChatID]
	if !ok {
		entry = &chatEntry{
			chat: Chat{
				ID:      msg.ChatID,
				Name:    msg.SenderName,
				IsGroup: IsGroupJID(msg.ChatID),
			},
			seen: make(map[string]bool),
		}
		r.chats[msg.ChatID] = entry
	}
	if entry.seen[msg.ID] {
		return false
	}
	r.insertLocked(entry, msg)
	if !msg.FromMe {
		entry.chat.UnreadCount++
	}
	return true
}

// insertLocked adds a message keeping chronological order and the cap.
func (r *Registry) insertLocked(entry *chatEntry, msg Message) {
	if msg.ID == "" || entry.seen[msg.ID] {
		return
	}
	entry.seen[msg.ID] = true
	entry.messages = append(entry.messages, msg)
	// Most inserts arrive in order; only sort when the tail is out of place.
	n := len(entry.messages)
	if n > 1 && entry.messages[n-2].Timestamp > msg.Timestamp {
		sort.SliceStable(entry.messages, func(i, j int) bool {
			return entry.messages[i].Timestamp < entry.messages[j].Timestamp
		})
	}
	if len(entry.messages) > r.messageCap {
		drop := len(entry.messages) - r.messageCap
		for _, old := range entry.messages[:drop] {
			delete(entry.seen, old.ID)
		}
		entry.messages = append([]Message(nil), entry.messages[drop:]...)
	}
	if msg.Timestamp >= entry.chat.LastMessageAt {
		entry.chat.LastMessageAt = msg.Timestamp
		entry.chat.LastMessagePreview = truncate(msg.Body, previewLen)
	}
}

// ClearUnread zeroes a chat's unread count.
func (r *Registry) ClearUnread(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.chats[chatID]; ok {
		entry.chat.UnreadCount = 0
	}
}

// SetName updates a chat's display name. Unknown chats and empty names are
// ignored.
func (r *Registry) SetName(chatID, name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.chats[chatID]; ok {
		entry.chat.Name = name
	}
}

// SetArchived updates a chat's archived flag.
func (r *Registry) SetArchived(chatID string, archived bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.chats[chatID]; ok {
		entry.chat.IsArchived = archived
	}
}

// SetPinned updates a chat's pinned flag.
func (r *Registry) SetPinned(chatID string, pinned bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.chats[chatID]; ok {
		entry.chat.IsPinned = pinned
	}
}

// SetStarred updates one message's starred flag.
func (r *Registry) SetStarred(chatID, messageID string, starred bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.chats[chatID]
	if !ok {
		return
	}
	for i := range entry.messages {
		if entry.messages[i].ID == messageID {
			entry.messages[i].IsStarred = starred
			return
		}
	}
}

// Chats returns all chats sorted by most recent activity.
func (r *Registry) Chats() []Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Chat, 0, len(r.chats))
	for _, entry := range r.chats {
		out = append(out, entry.chat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageAt != out[j].LastMessageAt {
			return out[i].LastMessageAt > out[j].LastMessageAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Chat returns one chat by ID.
func (r *Registry) Chat(chatID string) (Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.chats[chatID]
	if !ok {
		return Chat{}, false
	}
	return entry.chat, true
}

// Messages returns up to limit most recent messages for a chat in
// chronological order. The second return is false for unknown chats.
func (r *Registry) Messages(chatID string, limit int) ([]Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.chats[chatID]
	if !ok {
		return nil, false
	}
	msgs := entry.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, true
}

// Len returns the number of known chats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
