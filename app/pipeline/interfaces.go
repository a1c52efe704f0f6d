package pipeline

import (
	"context"
	"errors"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
)

// Classifier decides whether a story fits the channel.
type Classifier interface {
	Classify(ctx context.Context, req ai.ClassifyRequest) (ai.Classification, error)
}

// Translator retells a story as a formatted channel post.
type Translator interface {
	Translate(ctx context.Context, req ai.TranslateRequest) (string, error)
}

// ContentEnricher pulls full article text for summary-only candidates.
type ContentEnricher interface {
	ExtractFromURL(ctx context.Context, url string) (string, error)
}

// ApprovalNotifier delivers an approval request for one item to the admin.
type ApprovalNotifier interface {
	SendApprovalRequest(ctx context.Context, item database.Item) error
}

// ChannelPublisher posts one item to the public channel and returns the
// resulting message id.
type ChannelPublisher interface {
	PublishItem(ctx context.Context, item database.Item) (int64, error)
}

// temporary follows the net package convention: transport errors that
// implement it with Temporary() == true are worth retrying on a later cycle.
type temporary interface {
	Temporary() bool
}

func isRetryable(err error) bool {
	if ai.IsTransient(err) {
		return true
	}
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}
