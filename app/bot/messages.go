package bot

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
)

// formatApprovalRequest renders the admin review message for one item.
func formatApprovalRequest(item database.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>#%d</b> · %s · %s\n", item.ID, html.EscapeString(item.SourceName), item.MediaType)
	fmt.Fprintf(&b, "Confidence: %.2f\n", item.Confidence)
	if item.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", html.EscapeString(item.Reason))
	}
	fmt.Fprintf(&b, "<a href=\"%s\">Original</a>\n\n", item.RawURL)
	b.WriteString(item.TranslatedText)

	return b.String()
}

func approvalKeyboard(itemID int64) *InlineKeyboard {
	return &InlineKeyboard{
		InlineKeyboard: [][]InlineButton{{
			{Text: "✅ Approve", CallbackData: CallbackData(true, itemID)},
			{Text: "❌ Reject", CallbackData: CallbackData(false, itemID)},
		}},
	}
}

// formatDecisionAck replaces the approval request once a decision lands.
func formatDecisionAck(item *database.Item) string {
	verdict := "rejected"
	if item.State == database.StateApproved || item.State == database.StatePublished {
		verdict = "approved"
	}

	decidedAt := ""
	if item.DecidedAt != nil {
		decidedAt = item.DecidedAt.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("<b>#%d</b> %s · %s by %d at %s",
		item.ID, html.EscapeString(item.Title), verdict, item.DecidedBy, decidedAt)
}

// formatFetchReport summarizes a fetch cycle for the admin.
func formatFetchReport(report pipeline.FetchReport) string {
	var b strings.Builder
	b.WriteString("<b>Fetch completed</b>\n")
	fmt.Fprintf(&b, "New: %d · Duplicates: %d · Failed: %d\n", report.New, report.Duplicate, report.Failed)
	if report.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped (no media): %d\n", report.Skipped)
	}
	if report.Remaining > 0 {
		fmt.Fprintf(&b, "Deferred past cap: %d\n", report.Remaining)
	}

	names := make([]string, 0, len(report.PerSource))
	for name := range report.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %d\n", html.EscapeString(name), report.PerSource[name])
	}

	if len(report.SourceErrors) > 0 {
		b.WriteString("\n<b>Source errors</b>\n")
		errNames := make([]string, 0, len(report.SourceErrors))
		for name := range report.SourceErrors {
			errNames = append(errNames, name)
		}
		sort.Strings(errNames)
		for _, name := range errNames {
			fmt.Fprintf(&b, "  %s: %s\n", html.EscapeString(name), html.EscapeString(report.SourceErrors[name]))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatStatus renders the /status reply.
func formatStatus(summary database.StatusSummary) string {
	var b strings.Builder
	b.WriteString("<b>Pipeline status</b>\n")
	fmt.Fprintf(&b, "Pending approval: %d\n", summary.Pending)
	fmt.Fprintf(&b, "Approved, waiting to publish: %d\n", summary.ApprovedQueued)
	fmt.Fprintf(&b, "Published today: %d (total %d)\n\n", summary.PublishedToday, summary.PublishedTotal)

	for _, state := range database.AllStates() {
		if count := summary.ByState[state]; count > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", state, count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const startMessage = `Curator bot is running.

/status - pipeline counts
/fetch - trigger a fetch cycle now
/resend - re-send pending approval requests`

func formatAlreadyDecided(item *database.Item) string {
	when := ""
	if item.DecidedAt != nil {
		when = item.DecidedAt.Format(time.RFC822)
	}
	return fmt.Sprintf("Already decided by %d at %s", item.DecidedBy, when)
}
