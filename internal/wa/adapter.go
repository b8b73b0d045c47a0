package wa

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/status"
)

// DefaultMessageLimit is how many messages a fetch returns when the caller
// does not say.
const DefaultMessageLimit = 50

// DefaultSearchLimit bounds how many recent messages per chat a search scans
// when the caller does not say.
const DefaultSearchLimit = 100

// Adapter exposes the bridge's typed operations over a Session. Operations
// that reach the collaborator require the ready state and run under a
// single-flight guard so calls never interleave.
type Adapter struct {
	session Session
	machine *status.Machine
	logger  *zap.Logger
	guard   chan struct{}
}

// NewAdapter creates an adapter over the given session.
func NewAdapter(sess Session, machine *status.Machine, logger *zap.Logger) *Adapter {
	return &Adapter{
		session: sess,
		machine: machine,
		logger:  logger,
		guard:   make(chan struct{}, 1),
	}
}

// acquire checks readiness and takes the single-flight guard. Concurrent
// requests queue here instead of issuing interleaved collaborator calls.
func (a *Adapter) acquire(ctx context.Context) error {
	if a.machine.Current() != status.Ready {
		return ErrNotReady
	}
	select {
	case a.guard <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	// The session may have dropped while we queued.
	if a.machine.Current() != status.Ready {
		a.release()
		return ErrNotReady
	}
	return nil
}

func (a *Adapter) release() {
	<-a.guard
}

// ListChats returns all chats, most recent activity first.
func (a *Adapter) ListChats(ctx context.Context) ([]Chat, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	return a.session.Chats(ctx)
}

// ListUnreadChats returns only chats with at least one unread message.
func (a *Adapter) ListUnreadChats(ctx context.Context) ([]Chat, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	chats, err := a.session.Chats(ctx)
	if err != nil {
		return nil, err
	}
	unread := make([]Chat, 0)
	for _, chat := range chats {
		if chat.UnreadCount > 0 {
			unread = append(unread, chat)
		}
	}
	return unread, nil
}

// ListAllUnreadMessages fetches the unread messages of every unread chat.
// For each chat it pulls up to the chat's unread count of recent messages,
// keeps the inbound ones, and omits chats that end up empty.
func (a *Adapter) ListAllUnreadMessages(ctx context.Context) ([]ChatMessages, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	chats, err := a.session.Chats(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ChatMessages, 0)
	for _, chat := range chats {
		if chat.UnreadCount <= 0 {
			continue
		}
		msgs, err := a.session.Messages(ctx, chat.ID, chat.UnreadCount)
		if err != nil {
			return nil, err
		}
		inbound := filterInbound(msgs)
		if len(inbound) == 0 {
			continue
		}
		out = append(out, ChatMessages{Chat: chat, Messages: inbound})
	}
	return out, nil
}

// FetchMessages returns the most recent limit messages of one chat in
// chronological order. Zero or negative limit means DefaultMessageLimit.
func (a *Adapter) FetchMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return a.session.Messages(ctx, chatID, limit)
}

// FetchUnreadMessages returns the inbound unread messages of one chat.
func (a *Adapter) FetchUnreadMessages(ctx context.Context, chatID string) ([]Message, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	chat, err := a.session.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UnreadCount <= 0 {
		return []Message{}, nil
	}
	msgs, err := a.session.Messages(ctx, chat.ID, chat.UnreadCount)
	if err != nil {
		return nil, err
	}
	return filterInbound(msgs), nil
}

// MarkChatRead marks one chat read and returns its identity.
func (a *Adapter) MarkChatRead(ctx context.Context, chatID string) (Chat, error) {
	if err := a.acquire(ctx); err != nil {
		return Chat{}, err
	}
	defer a.release()
	chat, err := a.session.Chat(ctx, chatID)
	if err != nil {
		return Chat{}, err
	}
	if err := a.session.MarkRead(ctx, chat.ID); err != nil {
		return Chat{}, err
	}
	chat.UnreadCount = 0
	return chat, nil
}

// MarkAllRead marks every unread chat read. Each chat is attempted
// independently; a failure is recorded and the sweep continues.
func (a *Adapter) MarkAllRead(ctx context.Context) (MarkAllResult, error) {
	if err := a.acquire(ctx); err != nil {
		return MarkAllResult{}, err
	}
	defer a.release()
	chats, err := a.session.Chats(ctx)
	if err != nil {
		return MarkAllResult{}, err
	}
	result := MarkAllResult{Results: make([]ChatMarkResult, 0)}
	for _, chat := range chats {
		if chat.UnreadCount <= 0 {
			continue
		}
		err := a.session.MarkRead(ctx, chat.ID)
		if err != nil {
			a.logger.Warn("mark read failed",
				zap.String("chat", chat.ID),
				zap.Error(err),
			)
			result.Failed++
		} else {
			result.Marked++
		}
		result.Results = append(result.Results, ChatMarkResult{
			ChatID: chat.ID,
			Name:   chat.Name,
			Err:    err,
		})
	}
	return result, nil
}

// SendMessage sends a text message to a chat.
func (a *Adapter) SendMessage(ctx context.Context, chatID, body string) (SendReceipt, error) {
	if err := a.acquire(ctx); err != nil {
		return SendReceipt{}, err
	}
	defer a.release()
	return a.session.SendText(ctx, chatID, body)
}

// SendMessageToSelf sends a text message to the account's own chat.
func (a *Adapter) SendMessageToSelf(ctx context.Context, body string) (SendReceipt, error) {
	if err := a.acquire(ctx); err != nil {
		return SendReceipt{}, err
	}
	defer a.release()
	owner, err := a.session.Owner(ctx)
	if err != nil {
		return SendReceipt{}, err
	}
	return a.session.SendText(ctx, owner.ID, body)
}

// SearchMessages scans recent messages for a case-insensitive substring
// match. Only chats with at least one match appear in the result. A chat ID
// in opts restricts the scan to that chat.
func (a *Adapter) SearchMessages(ctx context.Context, query string, opts SearchOptions) ([]ChatMessages, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	if strings.TrimSpace(query) == "" {
		return []ChatMessages{}, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var scope []Chat
	if opts.ChatID != "" {
		chat, err := a.session.Chat(ctx, opts.ChatID)
		if err != nil {
			return nil, err
		}
		scope = []Chat{chat}
	} else {
		chats, err := a.session.Chats(ctx)
		if err != nil {
			return nil, err
		}
		scope = chats
	}

	needle := strings.ToLower(query)
	out := make([]ChatMessages, 0)
	for _, chat := range scope {
		msgs, err := a.session.Messages(ctx, chat.ID, limit)
		if err != nil {
			return nil, err
		}
		var matches []Message
		for _, m := range msgs {
			if strings.Contains(strings.ToLower(m.Body), needle) {
				matches = append(matches, m)
			}
		}
		if len(matches) > 0 {
			out = append(out, ChatMessages{Chat: chat, Messages: matches})
		}
	}
	return out, nil
}

// GetContact returns one contact by ID.
func (a *Adapter) GetContact(ctx context.Context, contactID string) (Contact, error) {
	if err := a.acquire(ctx); err != nil {
		return Contact{}, err
	}
	defer a.release()
	return a.session.Contact(ctx, contactID)
}

// ListContacts returns all known contacts.
func (a *Adapter) ListContacts(ctx context.Context) ([]Contact, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()
	return a.session.Contacts(ctx)
}

// Account returns the logged-in account identity. It bypasses the call
// guard: Owner is served from local session state, and health probes must
// not queue behind in-flight collaborator calls.
func (a *Adapter) Account(ctx context.Context) (Account, error) {
	return a.session.Owner(ctx)
}

func filterInbound(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.FromMe {
			out = append(out, m)
		}
	}
	return out
}
