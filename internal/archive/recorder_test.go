package archive

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/wa"
)

func publishMessage(b *bus.Bus, msg wa.Message) {
	b.Publish(bus.Event{
		Kind:      "wa.message",
		Timestamp: time.Now(),
		Payload:   msg,
	})
}

func TestRecorderArchivesInbound(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil, zap.NewNop())

	r.Start(context.Background())
	defer r.Stop()

	publishMessage(b, wa.Message{
		ID:         "m1",
		ChatID:     "alice@s.whatsapp.net",
		Body:       "hello from the bus",
		Type:       "text",
		Timestamp:  5000,
		SenderID:   "alice@s.whatsapp.net",
		SenderName: "Alice",
	})

	// Give the recorder time to process.
	time.Sleep(100 * time.Millisecond)

	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.Body != "hello from the bus" || got.ChatID != "alice@s.whatsapp.net" {
		t.Errorf("entry = %+v", got)
	}
	if got.ChatName != "Alice" {
		t.Errorf("ChatName = %q, want sender name fallback without a namer", got.ChatName)
	}
	if got.Processed {
		t.Error("fresh entry must start unprocessed")
	}
}

func TestRecorderSkipsOwnAndEmptyMessages(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil, zap.NewNop())

	r.Start(context.Background())
	defer r.Stop()

	publishMessage(b, wa.Message{
		ID: "own1", ChatID: "alice@s.whatsapp.net", Body: "mine", Timestamp: 1000, FromMe: true,
	})
	publishMessage(b, wa.Message{
		ID: "img1", ChatID: "alice@s.whatsapp.net", Type: "image", Timestamp: 2000, HasMedia: true,
	})

	time.Sleep(100 * time.Millisecond)

	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0 (own and bodyless messages skipped)", len(entries))
	}
}

type fakeNamer struct {
	chats map[string]wa.Chat
}

func (f *fakeNamer) Chat(chatID string) (wa.Chat, bool) {
	c, ok := f.chats[chatID]
	return c, ok
}

func TestRecorderUsesChatName(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	namer := &fakeNamer{chats: map[string]wa.Chat{
		"group@g.us": {ID: "group@g.us", Name: "Family", IsGroup: true},
	}}
	r := NewRecorder(db, b, namer, zap.NewNop())

	r.Start(context.Background())
	defer r.Stop()

	publishMessage(b, wa.Message{
		ID:         "m1",
		ChatID:     "group@g.us",
		Body:       "dinner at 8",
		Timestamp:  1000,
		SenderID:   "bob@s.whatsapp.net",
		SenderName: "Bob",
	})

	time.Sleep(100 * time.Millisecond)

	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ChatName != "Family" {
		t.Errorf("ChatName = %q, want the group name", entries[0].ChatName)
	}
	if entries[0].SenderName != "Bob" {
		t.Errorf("SenderName = %q, want Bob", entries[0].SenderName)
	}
}

func TestRecorderStopDetaches(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil, zap.NewNop())

	r.Start(context.Background())
	r.Stop()
	time.Sleep(50 * time.Millisecond)

	publishMessage(b, wa.Message{
		ID: "m1", ChatID: "a@s.whatsapp.net", Body: "late", Timestamp: 1000,
	})
	time.Sleep(100 * time.Millisecond)

	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after Stop, want 0", len(entries))
	}
}
