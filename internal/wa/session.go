package wa

import (
	"context"
	"errors"
)

// Sentinel errors returned by Session implementations and the Adapter.
var (
	// ErrNotReady means the session is not in the ready state.
	ErrNotReady = errors.New("session not ready")
	// ErrChatNotFound means the chat ID does not resolve to a known chat.
	ErrChatNotFound = errors.New("chat not found")
	// ErrContactNotFound means the contact ID does not resolve to a known contact.
	ErrContactNotFound = errors.New("contact not found")
)

// Session is the surface of the underlying messaging client that the bridge
// needs. The whatsmeow-backed Client implements it; tests substitute fakes.
type Session interface {
	// Chats returns all known chats, most recent activity first.
	Chats(ctx context.Context) ([]Chat, error)
	// Chat returns a single chat by ID, or ErrChatNotFound.
	Chat(ctx context.Context, chatID string) (Chat, error)
	// Messages returns up to limit most recent messages for a chat in
	// chronological order, or ErrChatNotFound.
	Messages(ctx context.Context, chatID string, limit int) ([]Message, error)
	// SendText sends a text message and returns the server receipt.
	SendText(ctx context.Context, chatID, body string) (SendReceipt, error)
	// MarkRead marks every unread message in a chat as read.
	MarkRead(ctx context.Context, chatID string) error
	// Contacts returns all known contacts.
	Contacts(ctx context.Context) ([]Contact, error)
	// Contact returns a single contact by ID, or ErrContactNotFound.
	Contact(ctx context.Context, contactID string) (Contact, error)
	// Owner returns the logged-in account identity. Implementations serve
	// it from local session state without a collaborator round trip.
	Owner(ctx context.Context) (Account, error)
}
