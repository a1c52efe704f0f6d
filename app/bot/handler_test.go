package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
)

type fakeRecorder struct {
	result  pipeline.DecisionResult
	err     error
	gotID   int64
	gotKind pipeline.Decision
	pending []database.Item
}

func (f *fakeRecorder) RecordDecision(ctx context.Context, id int64, decision pipeline.Decision, adminID int64) (pipeline.DecisionResult, error) {
	f.gotID = id
	f.gotKind = decision
	return f.result, f.err
}

func (f *fakeRecorder) PendingItems(ctx context.Context) ([]database.Item, error) {
	return f.pending, nil
}

type fakeStatus struct {
	summary database.StatusSummary
	err     error
}

func (f *fakeStatus) Summary(ctx context.Context) (database.StatusSummary, error) {
	if f.err != nil {
		return database.StatusSummary{}, f.err
	}
	return f.summary, nil
}

func decidedItem(state database.State) *database.Item {
	decidedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &database.Item{
		ID:        17,
		Title:     "Title",
		State:     state,
		DecidedBy: 42,
		DecidedAt: &decidedAt,
	}
}

func TestHandleCallbackApprove(t *testing.T) {
	api := newFakeAPI(t)
	recorder := &fakeRecorder{result: pipeline.DecisionResult{Item: decidedItem(database.StateApproved)}}

	handler := NewHandler(api.client(), 42, recorder, &fakeStatus{}, func() {})
	handler.HandleCallback(t.Context(), &CallbackQuery{
		ID:      "cb1",
		From:    User{ID: 42},
		Data:    "approve:17",
		Message: &Message{MessageID: 9, Chat: Chat{ID: 42}},
	})

	if recorder.gotID != 17 || recorder.gotKind != pipeline.DecisionApprove {
		t.Errorf("recorded id=%d kind=%v", recorder.gotID, recorder.gotKind)
	}

	// Expect the tap acknowledged and the request message edited.
	var methods []string
	for _, call := range api.calls {
		methods = append(methods, call.method)
	}
	joined := strings.Join(methods, ",")
	if !strings.Contains(joined, "answerCallbackQuery") || !strings.Contains(joined, "editMessageText") {
		t.Errorf("api calls = %v", methods)
	}
}

func TestHandleCallbackAlreadyDecided(t *testing.T) {
	api := newFakeAPI(t)
	recorder := &fakeRecorder{result: pipeline.DecisionResult{
		Item:           decidedItem(database.StateRejectedAdmin),
		AlreadyDecided: true,
	}}

	handler := NewHandler(api.client(), 42, recorder, &fakeStatus{}, func() {})
	handler.HandleCallback(t.Context(), &CallbackQuery{
		ID:   "cb1",
		From: User{ID: 42},
		Data: "approve:17",
	})

	call := api.lastCall(t)
	if call.method != "answerCallbackQuery" {
		t.Fatalf("last call = %q, want answerCallbackQuery", call.method)
	}
	toast := call.payload["text"].(string)
	if !strings.Contains(toast, "Already decided by 42") {
		t.Errorf("toast = %q", toast)
	}

	// The approval message must not be rewritten for a duplicate tap.
	for _, c := range api.calls {
		if c.method == "editMessageText" {
			t.Error("duplicate decision must not edit the message")
		}
	}
}

func TestHandleMessageFetch(t *testing.T) {
	api := newFakeAPI(t)

	triggered := false
	handler := NewHandler(api.client(), 42, &fakeRecorder{}, &fakeStatus{}, func() { triggered = true })
	handler.HandleMessage(t.Context(), &Message{Text: "/fetch", From: &User{ID: 42}, Chat: Chat{ID: 42}})

	if !triggered {
		t.Error("fetch trigger not invoked")
	}
}

func TestHandleMessageStatus(t *testing.T) {
	api := newFakeAPI(t)

	status := &fakeStatus{summary: database.StatusSummary{
		ByState:        map[database.State]int{database.StatePendingApproval: 2},
		Pending:        2,
		PublishedToday: 1,
		PublishedTotal: 10,
	}}
	handler := NewHandler(api.client(), 42, &fakeRecorder{}, status, func() {})
	handler.HandleMessage(t.Context(), &Message{Text: "/status", From: &User{ID: 42}, Chat: Chat{ID: 42}})

	reply := api.lastCall(t).payload["text"].(string)
	if !strings.Contains(reply, "Pending approval: 2") || !strings.Contains(reply, "Published today: 1") {
		t.Errorf("status reply = %q", reply)
	}
}

func TestHandleMessageStatusReportsLastKnownCounts(t *testing.T) {
	api := newFakeAPI(t)

	status := &fakeStatus{summary: database.StatusSummary{
		ByState: map[database.State]int{database.StatePendingApproval: 2},
		Pending: 2,
	}}
	handler := NewHandler(api.client(), 42, &fakeRecorder{}, status, func() {})
	statusMessage := &Message{Text: "/status", From: &User{ID: 42}, Chat: Chat{ID: 42}}

	handler.HandleMessage(t.Context(), statusMessage)

	// Storage goes down; the reply falls back to the cached counts.
	status.err = errors.New("database is locked")
	handler.HandleMessage(t.Context(), statusMessage)

	reply := api.lastCall(t).payload["text"].(string)
	if !strings.Contains(reply, "temporarily unavailable") {
		t.Errorf("reply = %q, want unavailability notice", reply)
	}
	if !strings.Contains(reply, "Pending approval: 2") {
		t.Errorf("reply = %q, want last known counts", reply)
	}
}

func TestHandleMessageStatusUnavailableWithoutCache(t *testing.T) {
	api := newFakeAPI(t)

	status := &fakeStatus{err: errors.New("database is locked")}
	handler := NewHandler(api.client(), 42, &fakeRecorder{}, status, func() {})
	handler.HandleMessage(t.Context(), &Message{Text: "/status", From: &User{ID: 42}, Chat: Chat{ID: 42}})

	reply := api.lastCall(t).payload["text"].(string)
	if !strings.Contains(reply, "temporarily unavailable") {
		t.Errorf("reply = %q, want unavailability notice", reply)
	}
}

func TestHandleMessageResend(t *testing.T) {
	api := newFakeAPI(t)

	recorder := &fakeRecorder{pending: []database.Item{
		{ID: 1, Title: "a", State: database.StatePendingApproval, TranslatedText: "post a"},
		{ID: 2, Title: "b", State: database.StatePendingApproval, TranslatedText: "post b"},
	}}
	handler := NewHandler(api.client(), 42, recorder, &fakeStatus{}, func() {})
	handler.HandleMessage(t.Context(), &Message{Text: "/resend", From: &User{ID: 42}, Chat: Chat{ID: 42}})

	sends := 0
	for _, call := range api.calls {
		if call.method == "sendMessage" {
			if _, hasMarkup := call.payload["reply_markup"]; hasMarkup {
				sends++
			}
		}
	}
	if sends != 2 {
		t.Errorf("approval requests re-sent = %d, want 2", sends)
	}
}

func TestTransportPublishFallsBackToText(t *testing.T) {
	api := newFakeAPI(t)
	api.respond = func(method string, payload map[string]any) (int, string) {
		if method == "sendPhoto" {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier"}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":200}}`
	}

	transport := NewTransport(api.client(), "@channel", 42)
	messageID, err := transport.PublishItem(t.Context(), database.Item{
		ID:             1,
		MediaURL:       "https://example.com/broken.jpg",
		MediaType:      "image",
		TranslatedText: "post text",
	})
	if err != nil {
		t.Fatalf("PublishItem failed: %v", err)
	}
	if messageID != 200 {
		t.Errorf("message id = %d, want 200", messageID)
	}

	last := api.lastCall(t)
	if last.method != "sendMessage" {
		t.Errorf("fallback method = %q, want sendMessage", last.method)
	}
}

func TestTransportPublishVideo(t *testing.T) {
	api := newFakeAPI(t)

	transport := NewTransport(api.client(), "@channel", 42)
	if _, err := transport.PublishItem(t.Context(), database.Item{
		ID:             1,
		MediaURL:       "https://example.com/clip.mp4",
		MediaType:      "video",
		TranslatedText: "post text",
	}); err != nil {
		t.Fatalf("PublishItem failed: %v", err)
	}

	if got := api.lastCall(t).method; got != "sendVideo" {
		t.Errorf("method = %q, want sendVideo", got)
	}
}

func TestTransportPublishRateLimitPropagates(t *testing.T) {
	api := newFakeAPI(t)
	api.respond = func(method string, payload map[string]any) (int, string) {
		return http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`
	}

	transport := NewTransport(api.client(), "@channel", 42)
	_, err := transport.PublishItem(t.Context(), database.Item{
		ID:             1,
		MediaURL:       "https://example.com/a.jpg",
		MediaType:      "image",
		TranslatedText: "post text",
	})
	if err == nil {
		t.Fatal("expected rate limit error")
	}

	// Only the photo attempt, no fallback on a retryable error.
	if len(api.calls) != 1 {
		t.Errorf("api calls = %d, want 1", len(api.calls))
	}
}
