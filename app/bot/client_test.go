package bot

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeAPI records calls to a stubbed Telegram endpoint.
type fakeAPI struct {
	server  *httptest.Server
	calls   []apiCall
	respond func(method string, payload map[string]any) (int, string)
}

type apiCall struct {
	method  string
	payload map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{}
	api.respond = func(method string, payload map[string]any) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":100}}`
	}

	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		api.calls = append(api.calls, apiCall{method: method, payload: payload})

		status, body := api.respond(method, payload)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(api.server.Close)

	return api
}

func (api *fakeAPI) client() *Client {
	return NewClient("test-token", WithBaseURL(api.server.URL), WithHTTPClient(api.server.Client()))
}

func (api *fakeAPI) lastCall(t *testing.T) apiCall {
	t.Helper()
	if len(api.calls) == 0 {
		t.Fatal("no API calls recorded")
	}
	return api.calls[len(api.calls)-1]
}

func TestSendMessage(t *testing.T) {
	api := newFakeAPI(t)

	messageID, err := api.client().SendMessage(t.Context(), int64(42), "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if messageID != 100 {
		t.Errorf("message id = %d, want 100", messageID)
	}

	call := api.lastCall(t)
	if call.method != "sendMessage" {
		t.Errorf("method = %q", call.method)
	}
	if call.payload["text"] != "hello" || call.payload["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", call.payload)
	}
}

func TestSendMessageTruncates(t *testing.T) {
	api := newFakeAPI(t)

	long := strings.Repeat("x", maxMessageLength+500)
	if _, err := api.client().SendMessage(t.Context(), int64(42), long, nil); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	sent := api.lastCall(t).payload["text"].(string)
	if got := len([]rune(sent)); got != maxMessageLength {
		t.Errorf("sent length = %d, want %d", got, maxMessageLength)
	}
	if !strings.HasSuffix(sent, "…") {
		t.Error("truncated text must end with an ellipsis")
	}
}

func TestSendPhotoTruncatesCaption(t *testing.T) {
	api := newFakeAPI(t)

	long := strings.Repeat("y", maxCaptionLength+10)
	if _, err := api.client().SendPhoto(t.Context(), "@channel", "https://example.com/a.jpg", long, nil); err != nil {
		t.Fatalf("SendPhoto failed: %v", err)
	}

	call := api.lastCall(t)
	if call.payload["photo"] != "https://example.com/a.jpg" {
		t.Errorf("unexpected photo payload: %v", call.payload["photo"])
	}
	if got := len([]rune(call.payload["caption"].(string))); got != maxCaptionLength {
		t.Errorf("caption length = %d, want %d", got, maxCaptionLength)
	}
}

func TestAPIErrorRateLimited(t *testing.T) {
	api := newFakeAPI(t)
	api.respond = func(method string, payload map[string]any) (int, string) {
		return http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`
	}

	_, err := api.client().SendMessage(t.Context(), int64(42), "hello", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Temporary() {
		t.Error("429 must be temporary")
	}
	if apiErr.RetryAfter != 7 {
		t.Errorf("retry after = %d, want 7", apiErr.RetryAfter)
	}
}

func TestAPIErrorNotFound(t *testing.T) {
	api := newFakeAPI(t)
	api.respond = func(method string, payload map[string]any) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	}

	_, err := api.client().SendMessage(t.Context(), int64(42), "hello", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Temporary() {
		t.Error("400 must not be temporary")
	}
	if !apiErr.NotFound() {
		t.Error("chat not found must report NotFound")
	}
}

func TestGetUpdates(t *testing.T) {
	api := newFakeAPI(t)
	api.respond = func(method string, payload map[string]any) (int, string) {
		return http.StatusOK, `{"ok":true,"result":[
			{"update_id":7,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42},"text":"/status"}},
			{"update_id":8,"callback_query":{"id":"cb1","from":{"id":42},"data":"approve:3"}}
		]}`
	}

	updates, err := api.client().GetUpdates(t.Context(), 0, 30)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/status" {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "approve:3" {
		t.Errorf("unexpected second update: %+v", updates[1])
	}
}
