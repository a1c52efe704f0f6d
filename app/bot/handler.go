package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
)

// DecisionRecorder is the slice of the approval coordinator the bot needs.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, id int64, decision pipeline.Decision, adminID int64) (pipeline.DecisionResult, error)
	PendingItems(ctx context.Context) ([]database.Item, error)
}

// StatusSource provides pipeline counts for /status.
type StatusSource interface {
	Summary(ctx context.Context) (database.StatusSummary, error)
}

// Handler dispatches admin commands and decision callbacks.
type Handler struct {
	client   *Client
	adminID  int64
	recorder DecisionRecorder
	status   StatusSource
	// triggerFetch requests an immediate fetch cycle from the scheduler.
	triggerFetch func()

	mu sync.Mutex
	// lastSummary holds the most recent successful status read, reported
	// when the store is temporarily unavailable.
	lastSummary *database.StatusSummary
}

func NewHandler(client *Client, adminID int64, recorder DecisionRecorder, status StatusSource, triggerFetch func()) *Handler {
	return &Handler{
		client:       client,
		adminID:      adminID,
		recorder:     recorder,
		status:       status,
		triggerFetch: triggerFetch,
	}
}

// HandleMessage processes one text message from the admin.
func (h *Handler) HandleMessage(ctx context.Context, message *Message) {
	command := ParseCommand(message.Text)

	switch command.Kind {
	case CommandStart:
		h.reply(ctx, startMessage)
	case CommandStatus:
		h.replyStatus(ctx)
	case CommandFetch:
		h.triggerFetch()
		h.reply(ctx, "Fetch cycle triggered.")
	case CommandResend:
		h.resendPending(ctx)
	default:
		h.reply(ctx, "Unknown command. Try /status, /fetch or /resend.")
	}
}

// HandleCallback processes one inline button tap.
func (h *Handler) HandleCallback(ctx context.Context, callback *CallbackQuery) {
	command, err := ParseCallback(callback.Data)
	if err != nil {
		slog.Warn("Unparseable callback", "data", callback.Data, "error", err)
		h.answer(ctx, callback.ID, "Unrecognized action")
		return
	}

	decision := pipeline.DecisionReject
	if command.Kind == CommandApprove {
		decision = pipeline.DecisionApprove
	}

	result, err := h.recorder.RecordDecision(ctx, command.ItemID, decision, callback.From.ID)
	if err != nil {
		slog.Error("Decision failed", "id", command.ItemID, "error", err)
		h.answer(ctx, callback.ID, "Decision failed, see logs")
		return
	}

	if result.AlreadyDecided {
		h.answer(ctx, callback.ID, formatAlreadyDecided(result.Item))
		return
	}

	toast := "Rejected"
	if decision == pipeline.DecisionApprove {
		toast = "Approved, queued for publishing"
	}
	h.answer(ctx, callback.ID, toast)

	if callback.Message != nil {
		if err := h.client.EditMessageText(ctx, callback.Message.Chat.ID, callback.Message.MessageID, formatDecisionAck(result.Item), nil); err != nil {
			slog.Warn("Failed to edit approval message", "id", command.ItemID, "error", err)
		}
	}
}

// replyStatus reports current counts, falling back to the last successful
// read when the store is down.
func (h *Handler) replyStatus(ctx context.Context) {
	summary, err := h.status.Summary(ctx)
	if err != nil {
		slog.Error("Status query failed", "error", err)

		h.mu.Lock()
		cached := h.lastSummary
		h.mu.Unlock()

		if cached == nil {
			h.reply(ctx, "Status temporarily unavailable, no counts recorded yet.")
			return
		}
		h.reply(ctx, "Status temporarily unavailable, last known counts:\n\n"+formatStatus(*cached))
		return
	}

	h.mu.Lock()
	h.lastSummary = &summary
	h.mu.Unlock()

	h.reply(ctx, formatStatus(summary))
}

func (h *Handler) resendPending(ctx context.Context) {
	items, err := h.recorder.PendingItems(ctx)
	if err != nil {
		slog.Error("Pending items query failed", "error", err)
		h.reply(ctx, "Failed to list pending items, see logs.")
		return
	}
	if len(items) == 0 {
		h.reply(ctx, "No items pending approval.")
		return
	}

	sent := 0
	for _, item := range items {
		if _, err := h.client.SendMessage(ctx, h.adminID, formatApprovalRequest(item), approvalKeyboard(item.ID)); err != nil {
			slog.Error("Resend failed", "id", item.ID, "error", err)
			continue
		}
		sent++
	}
	slog.Info("Pending approvals re-sent", "count", sent)
}

func (h *Handler) reply(ctx context.Context, text string) {
	if _, err := h.client.SendMessage(ctx, h.adminID, text, nil); err != nil {
		slog.Error("Reply failed", "error", err)
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.client.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		slog.Warn("Callback answer failed", "error", err)
	}
}
