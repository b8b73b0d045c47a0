package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/archive"
	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/status"
	"github.com/wabridge/wabridge/internal/wa"
)

const version = "0.1.0"

// Bridge is the adapter surface the HTTP layer consumes.
type Bridge interface {
	ListChats(ctx context.Context) ([]wa.Chat, error)
	ListUnreadChats(ctx context.Context) ([]wa.Chat, error)
	ListAllUnreadMessages(ctx context.Context) ([]wa.ChatMessages, error)
	FetchMessages(ctx context.Context, chatID string, limit int) ([]wa.Message, error)
	FetchUnreadMessages(ctx context.Context, chatID string) ([]wa.Message, error)
	MarkChatRead(ctx context.Context, chatID string) (wa.Chat, error)
	MarkAllRead(ctx context.Context) (wa.MarkAllResult, error)
	SendMessage(ctx context.Context, chatID, body string) (wa.SendReceipt, error)
	SendMessageToSelf(ctx context.Context, body string) (wa.SendReceipt, error)
	SearchMessages(ctx context.Context, query string, opts wa.SearchOptions) ([]wa.ChatMessages, error)
	GetContact(ctx context.Context, contactID string) (wa.Contact, error)
	ListContacts(ctx context.Context) ([]wa.Contact, error)
	Account(ctx context.Context) (wa.Account, error)
}

// QRSource exposes the pairing code currently waiting to be scanned, if any.
type QRSource interface {
	QRCode() string
}

// Server is the HTTP front of the bridge: JSON routes over the adapter, the
// pairing endpoints, the SSE event stream, the archive routes, and metrics.
type Server struct {
	http      *http.Server
	handler   http.Handler
	bridge    Bridge
	machine   *status.Machine
	bus       *bus.Bus
	qr        QRSource
	archive   *archive.DB
	logger    *zap.Logger
	metrics   *metrics
	session   string
	startedAt time.Time
	addr      string
}

// NewServer wires the route table. archiveDB and qr may be nil; the archive
// routes are only registered when a database is present.
func NewServer(addr, session string, bridge Bridge, machine *status.Machine, b *bus.Bus, qr QRSource, archiveDB *archive.DB, logger *zap.Logger) *Server {
	s := &Server{
		bridge:    bridge,
		machine:   machine,
		bus:       b,
		qr:        qr,
		archive:   archiveDB,
		logger:    logger,
		metrics:   newMetrics(machine, b),
		session:   session,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /qr", s.handleQR)
	mux.HandleFunc("GET /qr/image", s.handleQRImage)

	mux.HandleFunc("GET /api/chats", s.gated(s.handleListChats))
	mux.HandleFunc("GET /api/unread-chats", s.gated(s.handleUnreadChats))
	mux.HandleFunc("GET /api/unread-messages", s.gated(s.handleUnreadMessages))
	mux.HandleFunc("GET /api/chats/{chatID}/messages", s.gated(s.handleChatMessages))
	mux.HandleFunc("GET /api/chats/{chatID}/unread", s.gated(s.handleChatUnread))
	mux.HandleFunc("POST /api/chats/{chatID}/mark-read", s.gated(s.handleMarkRead))
	mux.HandleFunc("POST /api/mark-all-read", s.gated(s.handleMarkAllRead))
	mux.HandleFunc("POST /api/send-message", s.gated(s.handleSendMessage))
	mux.HandleFunc("POST /api/send-message-to-self", s.gated(s.handleSendToSelf))
	mux.HandleFunc("GET /api/search", s.gated(s.handleSearch))
	mux.HandleFunc("GET /api/contacts", s.gated(s.handleListContacts))
	mux.HandleFunc("GET /api/contacts/{contactID}", s.gated(s.handleGetContact))
	mux.HandleFunc("GET /api/user-info", s.gated(s.handleUserInfo))

	mux.HandleFunc("GET /api/events", s.handleEvents)

	if s.archive != nil {
		mux.HandleFunc("GET /api/archive/messages", s.handleArchiveList)
		mux.HandleFunc("POST /api/archive/messages/{id}/priority", s.handleArchivePriority)
		mux.HandleFunc("POST /api/archive/messages/{id}/processed", s.handleArchiveProcessed)
		mux.HandleFunc("POST /api/archive/digest", s.handleArchiveDigest)
	}

	mux.Handle("GET /metrics", s.metrics.httpHandler())
	mux.HandleFunc("/", s.handleNotFound)

	s.handler = s.instrument(mux)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background. The bound address
// is available through Addr once Start returns.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	return nil
}

// Addr returns the bound listen address. Empty before Start.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) qrCode() string {
	if s.qr == nil {
		return ""
	}
	return s.qr.QRCode()
}

// gated rejects data routes until the session is ready, without ever
// invoking the wrapped handler.
func (s *Server) gated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.machine.Current() != status.Ready {
			s.respondNotReady(w)
			return
		}
		next(w, r)
	}
}

// instrument records request metrics and debug logs around the mux.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.observe(route, rec.status, elapsed)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

// statusRecorder captures the response code for metrics. Flush is forwarded
// so the SSE stream keeps working behind the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "not_found",
		"message": fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		"path":    r.URL.Path,
	})
}
