package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/common"
	"github.com/hamropasal/backend-storefront/internal/obs"
)

// Generator produces a completion for a storefront shopper prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Handler serves the chat endpoint.
type Handler struct {
	Model Generator
	Log   zerolog.Logger
}

type chatInput struct {
	Query string `json:"query"`
}

// Chat forwards the shopper's query to the text model and returns its reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.Model == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "assistant not configured", nil)
		return
	}
	var payload chatInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	query := strings.TrimSpace(payload.Query)
	if query == "" {
		common.JSONError(w, http.StatusBadRequest, "MISSING_QUERY", "query is required", nil)
		return
	}
	message, err := h.Model.Generate(r.Context(), query)
	if err != nil {
		h.Log.Error().Err(err).Msg("assistant generation failed")
		countChat("error")
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", provErr.Message, nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "assistant is unavailable", nil)
		return
	}
	countChat("ok")
	common.JSON(w, http.StatusOK, map[string]any{"message": message})
}

func countChat(result string) {
	if obs.ChatRequestTotal != nil {
		obs.ChatRequestTotal.WithLabelValues(result).Inc()
	}
}
