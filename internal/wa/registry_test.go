package wa

import (
	"fmt"
	"testing"
)

func inboundMsg(chatID, id string, ts int64, body string) Message {
	return Message{ID: id, ChatID: chatID, Body: body, Type: "text", Timestamp: ts, SenderID: chatID}
}

func TestRecordCreatesChatAndCountsUnread(t *testing.T) {
	r := NewRegistry(0)

	if !r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "hi")) {
		t.Fatal("Record() = false for new message")
	}
	if !r.Record(inboundMsg("a@s.whatsapp.net", "m2", 2000, "again")) {
		t.Fatal("Record() = false for second message")
	}

	chat, ok := r.Chat("a@s.whatsapp.net")
	if !ok {
		t.Fatal("chat not created")
	}
	if chat.UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", chat.UnreadCount)
	}
	if chat.LastMessageAt != 2000 {
		t.Errorf("LastMessageAt = %d, want 2000", chat.LastMessageAt)
	}
	if chat.LastMessagePreview != "again" {
		t.Errorf("LastMessagePreview = %q, want again", chat.LastMessagePreview)
	}
}

func TestRecordOwnMessageDoesNotCountUnread(t *testing.T) {
	r := NewRegistry(0)
	r.Record(Message{ID: "m1", ChatID: "a@s.whatsapp.net", Body: "mine", Timestamp: 1000, FromMe: true})

	chat, _ := r.Chat("a@s.whatsapp.net")
	if chat.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0 for own message", chat.UnreadCount)
	}
}

func TestRecordDeduplicates(t *testing.T) {
	r := NewRegistry(0)
	msg := inboundMsg("a@s.whatsapp.net", "m1", 1000, "hi")

	if !r.Record(msg) {
		t.Fatal("first Record() = false")
	}
	if r.Record(msg) {
		t.Error("duplicate Record() = true, want false")
	}

	chat, _ := r.Chat("a@s.whatsapp.net")
	if chat.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1 (duplicate must not double count)", chat.UnreadCount)
	}
	msgs, _ := r.Messages("a@s.whatsapp.net", 0)
	if len(msgs) != 1 {
		t.Errorf("len(messages) = %d, want 1", len(msgs))
	}
}

func TestMessagesChronologicalWithLimit(t *testing.T) {
	r := NewRegistry(0)
	// Insert out of order.
	r.Record(inboundMsg("a@s.whatsapp.net", "m3", 3000, "three"))
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "one"))
	r.Record(inboundMsg("a@s.whatsapp.net", "m2", 2000, "two"))

	msgs, ok := r.Messages("a@s.whatsapp.net", 0)
	if !ok {
		t.Fatal("chat not found")
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, want)
		}
	}

	// Limit keeps the most recent, still chronological.
	recent, _ := r.Messages("a@s.whatsapp.net", 2)
	if len(recent) != 2 || recent[0].ID != "m2" || recent[1].ID != "m3" {
		t.Errorf("limited fetch = %v, want [m2 m3]", recent)
	}
}

func TestMessagesUnknownChat(t *testing.T) {
	r := NewRegistry(0)
	if _, ok := r.Messages("nope@s.whatsapp.net", 10); ok {
		t.Error("Messages() ok = true for unknown chat")
	}
	if _, ok := r.Chat("nope@s.whatsapp.net"); ok {
		t.Error("Chat() ok = true for unknown chat")
	}
}

func TestMessageCapTrimsOldest(t *testing.T) {
	r := NewRegistry(3)
	for i := 1; i <= 5; i++ {
		r.Record(inboundMsg("a@s.whatsapp.net", fmt.Sprintf("m%d", i), int64(i*1000), "x"))
	}

	msgs, _ := r.Messages("a@s.whatsapp.net", 0)
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (capped)", len(msgs))
	}
	if msgs[0].ID != "m3" || msgs[2].ID != "m5" {
		t.Errorf("kept %v, want [m3 m4 m5]", msgs)
	}

	// A message that fell off the cap can be recorded again without
	// tripping dedup, but stays within the cap.
	if !r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "x")) {
		t.Error("re-recording trimmed message should succeed")
	}
	msgs, _ = r.Messages("a@s.whatsapp.net", 0)
	if len(msgs) != 3 {
		t.Errorf("len = %d, want 3 after re-record", len(msgs))
	}
}

func TestIngestConversationSeedsChat(t *testing.T) {
	r := NewRegistry(0)
	r.IngestConversation(
		Chat{ID: "g@g.us", Name: "Team", UnreadCount: 4, IsArchived: true, IsPinned: true},
		[]Message{
			inboundMsg("g@g.us", "h1", 1000, "old"),
			inboundMsg("g@g.us", "h2", 2000, "new"),
		},
	)

	chat, ok := r.Chat("g@g.us")
	if !ok {
		t.Fatal("chat not ingested")
	}
	if chat.Name != "Team" || chat.UnreadCount != 4 {
		t.Errorf("chat = %+v, want Name=Team UnreadCount=4", chat)
	}
	if !chat.IsGroup {
		t.Error("IsGroup = false for @g.us chat")
	}
	if !chat.IsArchived || !chat.IsPinned {
		t.Error("archived/pinned flags lost in ingest")
	}
	if chat.LastMessageAt != 2000 || chat.LastMessagePreview != "new" {
		t.Errorf("last message summary = (%d, %q), want (2000, new)", chat.LastMessageAt, chat.LastMessagePreview)
	}
}

func TestIngestConversationMergeKeepsLiveUnread(t *testing.T) {
	r := NewRegistry(0)
	// Live messages land first.
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 5000, "live1"))
	r.Record(inboundMsg("a@s.whatsapp.net", "m2", 6000, "live2"))
	r.Record(inboundMsg("a@s.whatsapp.net", "m3", 7000, "live3"))

	// History snapshot reports fewer unread; the larger count wins.
	r.IngestConversation(Chat{ID: "a@s.whatsapp.net", Name: "Alice", UnreadCount: 1}, []Message{
		inboundMsg("a@s.whatsapp.net", "h1", 1000, "old"),
	})

	chat, _ := r.Chat("a@s.whatsapp.net")
	if chat.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, want 3 (live increments survive merge)", chat.UnreadCount)
	}
	if chat.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", chat.Name)
	}
	msgs, _ := r.Messages("a@s.whatsapp.net", 0)
	if len(msgs) != 4 || msgs[0].ID != "h1" {
		t.Errorf("merged messages = %v, want history first", msgs)
	}
}

func TestClearUnread(t *testing.T) {
	r := NewRegistry(0)
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "hi"))
	r.ClearUnread("a@s.whatsapp.net")

	chat, _ := r.Chat("a@s.whatsapp.net")
	if chat.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0 after clear", chat.UnreadCount)
	}
}

func TestChatsSortedByRecency(t *testing.T) {
	r := NewRegistry(0)
	r.Record(inboundMsg("old@s.whatsapp.net", "m1", 1000, "x"))
	r.Record(inboundMsg("new@s.whatsapp.net", "m2", 9000, "x"))
	r.Record(inboundMsg("mid@s.whatsapp.net", "m3", 5000, "x"))

	chats := r.Chats()
	if len(chats) != 3 {
		t.Fatalf("len = %d, want 3", len(chats))
	}
	want := []string{"new@s.whatsapp.net", "mid@s.whatsapp.net", "old@s.whatsapp.net"}
	for i := range want {
		if chats[i].ID != want[i] {
			t.Errorf("chats[%d].ID = %q, want %q", i, chats[i].ID, want[i])
		}
	}
}

func TestSetNameAndFlags(t *testing.T) {
	r := NewRegistry(0)
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "x"))

	r.SetName("a@s.whatsapp.net", "Alice")
	r.SetName("a@s.whatsapp.net", "") // ignored
	r.SetArchived("a@s.whatsapp.net", true)
	r.SetPinned("a@s.whatsapp.net", true)

	chat, _ := r.Chat("a@s.whatsapp.net")
	if chat.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", chat.Name)
	}
	if !chat.IsArchived || !chat.IsPinned {
		t.Error("flags not set")
	}

	// Unknown chats are ignored, not created.
	r.SetName("ghost@s.whatsapp.net", "Ghost")
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1 (SetName must not create chats)", r.Len())
	}
}

func TestSetStarred(t *testing.T) {
	r := NewRegistry(0)
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, "x"))

	r.SetStarred("a@s.whatsapp.net", "m1", true)
	msgs, _ := r.Messages("a@s.whatsapp.net", 0)
	if !msgs[0].IsStarred {
		t.Error("IsStarred = false after SetStarred")
	}

	r.SetStarred("a@s.whatsapp.net", "m1", false)
	msgs, _ = r.Messages("a@s.whatsapp.net", 0)
	if msgs[0].IsStarred {
		t.Error("IsStarred = true after unstar")
	}
}

func TestPreviewTruncated(t *testing.T) {
	r := NewRegistry(0)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	r.Record(inboundMsg("a@s.whatsapp.net", "m1", 1000, string(long)))

	chat, _ := r.Chat("a@s.whatsapp.net")
	if len(chat.LastMessagePreview) != previewLen {
		t.Errorf("preview length = %d, want %d", len(chat.LastMessagePreview), previewLen)
	}
}
