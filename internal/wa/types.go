package wa

// Chat is a snapshot of a conversation as the messaging client sees it.
type Chat struct {
	ID                 string
	Name               string
	IsGroup            bool
	UnreadCount        int
	IsArchived         bool
	IsPinned           bool
	IsReadOnly         bool
	LastMessageAt      int64
	LastMessagePreview string
}

// Message is a single chat message.
type Message struct {
	ID          string
	ChatID      string
	Body        string
	Type        string
	Timestamp   int64
	SenderID    string
	SenderName  string
	FromMe      bool
	HasMedia    bool
	IsForwarded bool
	IsStarred   bool
}

// Contact is an address book entry or known conversation partner.
type Contact struct {
	ID         string
	Number     string
	Name       string
	PushName   string
	IsContact  bool
	IsBlocked  bool
	IsBusiness bool
}

// Account identifies the logged-in account.
type Account struct {
	ID       string
	Name     string
	Number   string
	Platform string
}

// SendReceipt is the server acknowledgment for a sent message.
type SendReceipt struct {
	MessageID string
	Timestamp int64
}

// ChatMessages pairs a chat with a set of its messages, used by the unread
// aggregation and search operations.
type ChatMessages struct {
	Chat     Chat
	Messages []Message
}

// ChatMarkResult records the outcome of marking one chat read during a
// mark-all-read sweep.
type ChatMarkResult struct {
	ChatID string
	Name   string
	Err    error
}

// MarkAllResult summarizes a mark-all-read sweep.
type MarkAllResult struct {
	Marked  int
	Failed  int
	Results []ChatMarkResult
}

// SearchOptions scopes a message search.
type SearchOptions struct {
	// Limit bounds how many recent messages are scanned per chat.
	// Zero means DefaultSearchLimit.
	Limit int
	// ChatID restricts the search to a single chat when non-empty.
	ChatID string
}
