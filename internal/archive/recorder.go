package archive

import (
	"context"

	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/wa"
)

// ChatNamer resolves a chat ID to its known chat snapshot, used to label
// archive entries with the chat's display name.
type ChatNamer interface {
	Chat(chatID string) (wa.Chat, bool)
}

// Recorder feeds the archive from the bus. It subscribes to "wa.message"
// events and inserts inbound text messages; own messages and empty bodies
// are skipped.
type Recorder struct {
	db     *DB
	bus    *bus.Bus
	names  ChatNamer
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewRecorder creates a new archive recorder. names may be nil.
func NewRecorder(db *DB, b *bus.Bus, names ChatNamer, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:     db,
		bus:    b,
		names:  names,
		logger: logger,
	}
}

// Start subscribes to message events on the bus.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("wa.message", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the recorder.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Recorder) handleEvent(evt bus.Event) {
	msg, ok := evt.Payload.(wa.Message)
	if !ok {
		return
	}
	if msg.FromMe || msg.Body == "" {
		return
	}

	chatName := msg.SenderName
	if r.names != nil {
		if chat, found := r.names.Chat(msg.ChatID); found && chat.Name != "" {
			chatName = chat.Name
		}
	}

	err := r.db.InsertMessage(&Entry{
		MsgID:      msg.ID,
		ChatID:     msg.ChatID,
		ChatName:   chatName,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Timestamp:  msg.Timestamp,
	})
	if err != nil {
		r.logger.Error("failed to archive message", zap.Error(err), zap.String("msg_id", msg.ID))
	}
}
