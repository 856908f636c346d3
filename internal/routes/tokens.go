package routes

import (
	"context"
	"encoding/json"
	"net/http"
)

// Registry is the token store surface the HTTP layer needs.
type Registry interface {
	Add(ctx context.Context, token string) error
	ListAll(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, token string) error
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handlers) handleTokenRegister(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.registry.Add(r.Context(), req.Token); err != nil {
		h.logger.Error("token registration failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "token registry unavailable")
		return
	}
	writeData(w, http.StatusCreated, "token registered", map[string]string{"token": req.Token})
}

func (h *Handlers) handleTokenList(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.registry.ListAll(r.Context())
	if err != nil {
		h.logger.Error("token listing failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "token registry unavailable")
		return
	}
	writeData(w, http.StatusOK, "tokens listed", map[string]interface{}{
		"tokens": tokens,
		"total":  len(tokens),
	})
}

func (h *Handlers) handleTokenRemove(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if err := h.registry.Remove(r.Context(), token); err != nil {
		h.logger.Error("token removal failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "token registry unavailable")
		return
	}
	writeData(w, http.StatusOK, "token removed", map[string]string{"token": token})
}
