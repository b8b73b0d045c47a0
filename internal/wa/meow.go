package wa

import (
	"context"
	"fmt"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/session"
	"github.com/wabridge/wabridge/internal/status"

	_ "github.com/mattn/go-sqlite3"
)

// Client is the whatsmeow-backed Session implementation. Chat and message
// reads are served from the registry; sends, receipts, and contact lookups
// go to the wire or the device store.
type Client struct {
	wm        *whatsmeow.Client
	container *sqlstore.Container
	registry  *Registry
	bus       *bus.Bus
	machine   *status.Machine
	logger    *zap.Logger
	session   string

	qr      qrHolder
	blocked blockCache
}

// NewClient opens the device store for the given session and constructs the
// whatsmeow client around it. No connection is made until Initialize.
func NewClient(ctx context.Context, sessionName string, b *bus.Bus, machine *status.Machine, registry *Registry, logger *zap.Logger) (*Client, error) {
	// Device name shown on the phone's linked devices list.
	wastore.SetOSInfo("WABridge", [3]uint32{0, 1, 0})

	dbPath := session.SessionDBPath(sessionName)

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	wm := whatsmeow.NewClient(deviceStore, nil)

	c := &Client{
		wm:        wm,
		container: container,
		registry:  registry,
		bus:       b,
		machine:   machine,
		logger:    logger,
		session:   sessionName,
	}
	wm.AddEventHandler(c.internalHandle)
	return c, nil
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (c *Client) RegisterEventHandler(handler whatsmeow.EventHandler) {
	c.wm.AddEventHandler(handler)
}

// IsLoggedIn returns whether the client has stored credentials.
func (c *Client) IsLoggedIn() bool {
	return c.wm.Store.ID != nil
}

// Initialize connects to the server, starting the QR pairing flow when no
// credentials exist yet.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.machine.Transition(status.Initializing); err != nil {
		return err
	}
	if c.IsLoggedIn() {
		c.logger.Info("restoring session", zap.String("account", c.wm.Store.ID.User))
		if err := c.wm.Connect(); err != nil {
			_ = c.machine.Transition(status.Disconnected)
			return fmt.Errorf("connect: %w", err)
		}
		return nil
	}
	c.logger.Info("no stored credentials, starting pairing")
	if err := c.startQRAuth(ctx); err != nil {
		_ = c.machine.Transition(status.Disconnected)
		return err
	}
	return nil
}

// Destroy disconnects and releases the device store. The machine lands in
// the terminal destroyed state.
func (c *Client) Destroy(ctx context.Context) error {
	c.wm.Disconnect()
	_ = c.machine.Transition(status.Destroyed)
	if err := c.container.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	return nil
}

// QRCode returns the last issued pairing code, or empty when none is pending.
func (c *Client) QRCode() string {
	return c.qr.get()
}

// internalHandle keeps client-local caches in sync. The domain event handler
// is registered separately by the daemon.
func (c *Client) internalHandle(rawEvt any) {
	switch rawEvt.(type) {
	case *events.Blocklist:
		c.blocked.invalidate()
	case *events.LoggedOut:
		c.qr.set("")
	}
}

// Chats returns all known chats, filling missing direct chat names from the
// device store's contact list.
func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	chats := c.registry.Chats()
	contacts, err := c.wm.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		c.logger.Warn("contact lookup for chat names failed", zap.Error(err))
		return chats, nil
	}
	for i := range chats {
		if chats[i].Name != "" || chats[i].IsGroup {
			continue
		}
		jid, perr := types.ParseJID(chats[i].ID)
		if perr != nil {
			continue
		}
		if info, ok := contacts[jid]; ok {
			chats[i].Name = contactDisplayName(info.FullName, info.PushName)
		}
	}
	return chats, nil
}

// Chat returns one chat by ID.
func (c *Client) Chat(ctx context.Context, chatID string) (Chat, error) {
	chat, ok := c.registry.Chat(NormalizeJID(chatID))
	if !ok {
		return Chat{}, ErrChatNotFound
	}
	if chat.Name == "" && !chat.IsGroup {
		if jid, err := types.ParseJID(chat.ID); err == nil {
			if info, ierr := c.wm.Store.Contacts.GetContact(ctx, jid); ierr == nil && info.Found {
				chat.Name = contactDisplayName(info.FullName, info.PushName)
			}
		}
	}
	return chat, nil
}

// Messages returns up to limit most recent messages for a chat.
func (c *Client) Messages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	msgs, ok := c.registry.Messages(NormalizeJID(chatID), limit)
	if !ok {
		return nil, ErrChatNotFound
	}
	return msgs, nil
}

// SendText sends a text message and mirrors it into the registry so it shows
// up in subsequent fetches.
func (c *Client) SendText(ctx context.Context, chatID, body string) (SendReceipt, error) {
	to, err := types.ParseJID(chatID)
	if err != nil {
		return SendReceipt{}, fmt.Errorf("parse chat id: %w", err)
	}
	resp, err := c.wm.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return SendReceipt{}, fmt.Errorf("send message: %w", err)
	}

	receipt := SendReceipt{MessageID: resp.ID, Timestamp: resp.Timestamp.UnixMilli()}

	sender := ""
	if c.wm.Store.ID != nil {
		sender = c.wm.Store.ID.ToNonAD().String()
	}
	c.registry.Record(Message{
		ID:         resp.ID,
		ChatID:     to.ToNonAD().String(),
		Body:       body,
		Type:       "text",
		Timestamp:  receipt.Timestamp,
		SenderID:   sender,
		SenderName: c.wm.Store.PushName,
		FromMe:     true,
	})
	return receipt, nil
}

// MarkRead sends read receipts for every unread inbound message in the chat,
// grouped by sender, then zeroes the local unread count.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	id := NormalizeJID(chatID)
	chat, ok := c.registry.Chat(id)
	if !ok {
		return ErrChatNotFound
	}
	chatJID, err := types.ParseJID(id)
	if err != nil {
		return fmt.Errorf("parse chat id: %w", err)
	}

	if chat.UnreadCount > 0 {
		msgs, _ := c.registry.Messages(id, 0)
		bySender := make(map[string][]types.MessageID)
		remaining := chat.UnreadCount
		for i := len(msgs) - 1; i >= 0 && remaining > 0; i-- {
			if msgs[i].FromMe {
				continue
			}
			bySender[msgs[i].SenderID] = append(bySender[msgs[i].SenderID], types.MessageID(msgs[i].ID))
			remaining--
		}
		for sender, ids := range bySender {
			senderJID, perr := types.ParseJID(sender)
			if perr != nil {
				senderJID = chatJID
			}
			if err := c.wm.MarkRead(ctx, ids, time.Now(), chatJID, senderJID); err != nil {
				return fmt.Errorf("send read receipt: %w", err)
			}
		}
	}

	c.registry.ClearUnread(id)
	return nil
}

// Contacts returns the device store's contact list.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	all, err := c.wm.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	blocked := c.blocked.snapshot(ctx, c)
	contacts := make([]Contact, 0, len(all))
	for jid, info := range all {
		id := jid.ToNonAD()
		contacts = append(contacts, Contact{
			ID:         id.String(),
			Number:     id.User,
			Name:       info.FullName,
			PushName:   info.PushName,
			IsContact:  info.FullName != "",
			IsBlocked:  blocked[id.String()],
			IsBusiness: info.BusinessName != "",
		})
	}
	return contacts, nil
}

// Contact returns one contact by ID.
func (c *Client) Contact(ctx context.Context, contactID string) (Contact, error) {
	jid, err := types.ParseJID(NormalizeJID(contactID))
	if err != nil {
		return Contact{}, ErrContactNotFound
	}
	jid = jid.ToNonAD()
	info, err := c.wm.Store.Contacts.GetContact(ctx, jid)
	if err != nil {
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	if !info.Found {
		return Contact{}, ErrContactNotFound
	}
	blocked := c.blocked.snapshot(ctx, c)
	return Contact{
		ID:         jid.String(),
		Number:     jid.User,
		Name:       info.FullName,
		PushName:   info.PushName,
		IsContact:  info.FullName != "",
		IsBlocked:  blocked[jid.String()],
		IsBusiness: info.BusinessName != "",
	}, nil
}

// Owner returns the logged-in account identity.
func (c *Client) Owner(ctx context.Context) (Account, error) {
	if c.wm.Store.ID == nil {
		return Account{}, ErrNotReady
	}
	own := c.wm.Store.ID.ToNonAD()
	return Account{
		ID:       own.String(),
		Name:     c.wm.Store.PushName,
		Number:   own.User,
		Platform: c.wm.Store.Platform,
	}, nil
}

func contactDisplayName(fullName, pushName string) string {
	if fullName != "" {
		return fullName
	}
	return pushName
}
