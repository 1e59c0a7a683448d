package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/resilience"
)

func newTestGemini(srv *httptest.Server) *Gemini {
	return &Gemini{
		HTTP:    resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
	}
}

func TestGenerateReturnsFirstCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "do you ship to Pokhara?" {
			t.Errorf("request contents = %+v", req.Contents)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "Yes, within 3 days."}}}},
			},
		})
	}))
	defer srv.Close()

	got, err := newTestGemini(srv).Generate(context.Background(), "do you ship to Pokhara?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Yes, within 3 days." {
		t.Fatalf("reply = %q", got)
	}
}

func TestGenerateSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer srv.Close()

	_, err := newTestGemini(srv).Generate(context.Background(), "hello")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if provErr.Message != "Resource has been exhausted" {
		t.Fatalf("message = %q", provErr.Message)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	_, err := newTestGemini(srv).Generate(context.Background(), "hello")
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("err = %v, want ErrEmptyReply", err)
	}
}

type stubModel struct {
	reply string
	err   error
}

func (s stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestChatHandler(t *testing.T) {
	h := &Handler{Model: stubModel{reply: "hi there"}, Log: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"hi"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "hi there" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestChatHandlerRejectsEmptyQuery(t *testing.T) {
	h := &Handler{Model: stubModel{}, Log: zerolog.Nop()}
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"  "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestChatHandlerSurfacesProviderMessage(t *testing.T) {
	h := &Handler{
		Model: stubModel{err: &ProviderError{StatusCode: 429, Message: "Resource has been exhausted"}},
		Log:   zerolog.Nop(),
	}
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"hi"}`)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Resource has been exhausted") {
		t.Fatalf("body %q should carry provider message", rec.Body.String())
	}
}
