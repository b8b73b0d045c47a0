package wa

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/status"
)

// qrHolder guards the last issued pairing code.
type qrHolder struct {
	mu   sync.RWMutex
	code string
}

func (q *qrHolder) set(code string) {
	q.mu.Lock()
	q.code = code
	q.mu.Unlock()
}

func (q *qrHolder) get() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.code
}

// startQRAuth begins the QR pairing flow and consumes pairing events in the
// background. The QR channel must be requested before Connect.
func (c *Client) startQRAuth(ctx context.Context) error {
	qrChan, err := c.wm.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := c.wm.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	go c.consumeQR(qrChan)
	return nil
}

func (c *Client) consumeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.qr.set(item.Code)
			// A fresh code flips awaiting_scan back to qr_pending.
			_ = c.machine.Transition(status.QRPending)
			c.bus.Publish(bus.Event{
				Kind:      "session.qr_issued",
				Timestamp: time.Now(),
				Payload:   item.Code,
			})
			_ = c.machine.Transition(status.AwaitingScan)
		case "success":
			c.qr.set("")
			c.logger.Info("pairing successful")
			// The connected event may have landed first; a failed
			// transition here just means we already advanced.
			if err := c.machine.Transition(status.Authenticated); err == nil {
				c.bus.Publish(bus.Event{Kind: "session.authenticated", Timestamp: time.Now()})
			}
			return
		case "timeout":
			c.qr.set("")
			c.logger.Warn("pairing timed out before scan")
			_ = c.machine.Transition(status.Disconnected)
			c.bus.Publish(bus.Event{
				Kind:      "session.auth_failed",
				Timestamp: time.Now(),
				Payload:   "qr timeout",
			})
			return
		default:
			if item.Error != nil {
				c.qr.set("")
				c.logger.Error("pairing failed", zap.Error(item.Error))
				_ = c.machine.Transition(status.Disconnected)
				c.bus.Publish(bus.Event{
					Kind:      "session.auth_failed",
					Timestamp: time.Now(),
					Payload:   item.Error.Error(),
				})
				return
			}
		}
	}
}
