package bot

import (
	"context"
	"log/slog"
	"time"
)

const (
	pollTimeoutSeconds = 30
	pollErrorDelay     = 5 * time.Second
)

// Poller drives the getUpdates long-poll loop and feeds admin traffic to
// the handler. Everything from other users is dropped.
type Poller struct {
	client  *Client
	handler *Handler
	adminID int64
	offset  int64
}

func NewPoller(client *Client, handler *Handler, adminID int64) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		adminID: adminID,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("Bot poller started", "admin", p.adminID)

	for {
		if ctx.Err() != nil {
			slog.Info("Bot poller stopped")
			return
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Bot poller stopped")
				return
			}
			slog.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollErrorDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update Update) {
	switch {
	case update.Message != nil:
		if update.Message.From == nil || update.Message.From.ID != p.adminID {
			slog.Debug("Ignoring message from non-admin", "message_id", update.Message.MessageID)
			return
		}
		p.handler.HandleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From.ID != p.adminID {
			slog.Debug("Ignoring callback from non-admin", "callback_id", update.CallbackQuery.ID)
			return
		}
		p.handler.HandleCallback(ctx, update.CallbackQuery)
	}
}
