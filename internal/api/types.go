package api

import (
	"github.com/wabridge/wabridge/internal/archive"
	"github.com/wabridge/wabridge/internal/wa"
)

// View types shape domain values for JSON responses. Field names follow the
// camelCase convention clients of this kind of bridge expect.

type chatView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsGroup       bool   `json:"isGroup"`
	UnreadCount   int    `json:"unreadCount"`
	IsArchived    bool   `json:"isArchived"`
	IsPinned      bool   `json:"isPinned"`
	IsReadOnly    bool   `json:"isReadOnly"`
	LastMessageAt int64  `json:"lastMessageAt,omitempty"`
	LastMessage   string `json:"lastMessage,omitempty"`
}

type messageView struct {
	ID          string `json:"id"`
	ChatID      string `json:"chatId"`
	Body        string `json:"body"`
	Type        string `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	From        string `json:"from"`
	SenderName  string `json:"senderName,omitempty"`
	FromMe      bool   `json:"fromMe"`
	HasMedia    bool   `json:"hasMedia"`
	IsForwarded bool   `json:"isForwarded"`
	IsStarred   bool   `json:"isStarred"`
}

type contactView struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	Name       string `json:"name"`
	PushName   string `json:"pushName"`
	IsContact  bool   `json:"isMyContact"`
	IsBlocked  bool   `json:"isBlocked"`
	IsBusiness bool   `json:"isBusiness"`
}

type chatMessagesView struct {
	Chat     chatView      `json:"chat"`
	Messages []messageView `json:"messages"`
}

type markResultView struct {
	ChatID  string `json:"chatId"`
	Name    string `json:"name,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type archiveEntryView struct {
	ID         int64  `json:"id"`
	MessageID  string `json:"messageId"`
	ChatID     string `json:"chatId"`
	ChatName   string `json:"chatName"`
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	Priority   int    `json:"priority"`
	Processed  bool   `json:"processed"`
}

func toChatView(c wa.Chat) chatView {
	return chatView{
		ID:            c.ID,
		Name:          c.Name,
		IsGroup:       c.IsGroup,
		UnreadCount:   c.UnreadCount,
		IsArchived:    c.IsArchived,
		IsPinned:      c.IsPinned,
		IsReadOnly:    c.IsReadOnly,
		LastMessageAt: c.LastMessageAt,
		LastMessage:   c.LastMessagePreview,
	}
}

func toChatViews(chats []wa.Chat) []chatView {
	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, toChatView(c))
	}
	return views
}

func toMessageView(m wa.Message) messageView {
	return messageView{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Body:        m.Body,
		Type:        m.Type,
		Timestamp:   m.Timestamp,
		From:        m.SenderID,
		SenderName:  m.SenderName,
		FromMe:      m.FromMe,
		HasMedia:    m.HasMedia,
		IsForwarded: m.IsForwarded,
		IsStarred:   m.IsStarred,
	}
}

func toMessageViews(msgs []wa.Message) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, toMessageView(m))
	}
	return views
}

func toContactView(c wa.Contact) contactView {
	return contactView{
		ID:         c.ID,
		Number:     c.Number,
		Name:       c.Name,
		PushName:   c.PushName,
		IsContact:  c.IsContact,
		IsBlocked:  c.IsBlocked,
		IsBusiness: c.IsBusiness,
	}
}

func toChatMessagesViews(groups []wa.ChatMessages) []chatMessagesView {
	views := make([]chatMessagesView, 0, len(groups))
	for _, g := range groups {
		views = append(views, chatMessagesView{
			Chat:     toChatView(g.Chat),
			Messages: toMessageViews(g.Messages),
		})
	}
	return views
}

func toArchiveEntryView(e archive.Entry) archiveEntryView {
	return archiveEntryView{
		ID:         e.ID,
		MessageID:  e.MsgID,
		ChatID:     e.ChatID,
		ChatName:   e.ChatName,
		SenderID:   e.SenderID,
		SenderName: e.SenderName,
		Message:    e.Body,
		Timestamp:  e.Timestamp,
		Priority:   e.Priority,
		Processed:  e.Processed,
	}
}
