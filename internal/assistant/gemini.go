package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hamropasal/backend-storefront/internal/resilience"
)

// DefaultBaseURL is the production endpoint of the generative text API.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrEmptyReply is returned when the provider answers without any candidate
// text.
var ErrEmptyReply = errors.New("assistant: provider returned no text")

// ProviderError carries the provider's own error message so handlers can
// surface it to the caller.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("assistant: provider error (%d): %s", e.StatusCode, e.Message)
}

// Gemini is a client for the generateContent endpoint of the Gemini API.
type Gemini struct {
	HTTP    resilience.HTTPClient
	BaseURL string
	APIKey  string
	Model   string
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the prompt to the model and returns the first candidate's
// text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	base := g.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := g.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("assistant: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(base, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assistant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("assistant: call provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("assistant: read response: %w", err)
	}
	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("assistant: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || decoded.Error != nil {
		message := http.StatusText(resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			message = decoded.Error.Message
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}
	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", ErrEmptyReply
}
