package routes

import (
	"log/slog"
	"net/http"
)

// handleMedia relays a media object from the blob store with byte-range
// support. The responder only returns an error before the status and the
// size-bearing headers go out, so the error envelope written here frames
// correctly.
func (h *Handlers) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "object name is required")
		return
	}

	if err := h.responder.Respond(w, r, name); err != nil {
		status := mapDomainError(err)
		h.logger.Warn("media request failed",
			slog.String("object", name),
			slog.Int("status", status),
			slog.Any("error", err))
		writeError(w, status, err.Error())
	}
}
