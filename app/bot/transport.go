package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
)

// Transport adapts the Telegram client to the pipeline's outbound needs:
// approval requests to the admin and published posts to the channel.
type Transport struct {
	client  *Client
	channel string
	adminID int64
}

func NewTransport(client *Client, channel string, adminID int64) *Transport {
	return &Transport{
		client:  client,
		channel: channel,
		adminID: adminID,
	}
}

// SendApprovalRequest delivers one item to the admin with inline
// approve/reject buttons.
func (t *Transport) SendApprovalRequest(ctx context.Context, item database.Item) error {
	_, err := t.client.SendMessage(ctx, t.adminID, formatApprovalRequest(item), approvalKeyboard(item.ID))
	return err
}

// PublishItem posts an item to the channel. Media posts fall back to a
// plain text post when Telegram rejects the media URL.
func (t *Transport) PublishItem(ctx context.Context, item database.Item) (int64, error) {
	if item.MediaURL != "" {
		messageID, err := t.sendMedia(ctx, item)
		if err == nil {
			return messageID, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			slog.Warn("Media rejected, falling back to text post", "id", item.ID, "media_url", item.MediaURL, "error", err)
		} else {
			return 0, err
		}
	}

	return t.client.SendMessage(ctx, t.channel, item.TranslatedText, nil)
}

func (t *Transport) sendMedia(ctx context.Context, item database.Item) (int64, error) {
	if item.MediaType == "video" {
		return t.client.SendVideo(ctx, t.channel, item.MediaURL, item.TranslatedText, nil)
	}
	return t.client.SendPhoto(ctx, t.channel, item.MediaURL, item.TranslatedText, nil)
}

// NotifyAdmin sends a plain informational message to the admin.
func (t *Transport) NotifyAdmin(ctx context.Context, text string) error {
	_, err := t.client.SendMessage(ctx, t.adminID, text, nil)
	return err
}

// NotifyFetchReport sends the formatted fetch cycle summary to the admin.
func (t *Transport) NotifyFetchReport(ctx context.Context, report pipeline.FetchReport) error {
	return t.NotifyAdmin(ctx, formatFetchReport(report))
}
