package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

func (h *Handlers) handleSend(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	payload := req.Payload()
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Deferred() {
		writeError(w, http.StatusBadRequest, "use /v1/schedule for deferred delivery")
		return
	}

	h.metrics.IncConsumed()
	result := h.dispatcher.Dispatch(r.Context(), payload, []string{req.Token})
	outcome := result.Outcomes[0]
	if !outcome.Success {
		status := http.StatusBadGateway
		if outcome.Class == models.ClassPermanentlyInvalid {
			status = http.StatusGone
		}
		writeJSON(w, status, models.ResponseEnvelope{
			Success: false,
			Message: "delivery failed",
			Data:    result,
			Error:   outcome.Error,
		})
		return
	}
	writeData(w, http.StatusOK, "notification sent", result)
}

func (h *Handlers) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload := req.Payload()
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Failing to list the registry is the one batch-level failure.
	tokens, err := h.registry.ListAll(r.Context())
	if err != nil {
		h.logger.Error("registry listing failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "token registry unavailable")
		return
	}

	h.metrics.IncConsumed()
	result := h.dispatcher.Dispatch(r.Context(), payload, tokens)
	writeData(w, http.StatusOK, "broadcast dispatched", map[string]interface{}{
		"success_count": result.SuccessCount,
		"total":         len(result.Outcomes),
		"outcomes":      result.Outcomes,
	})
}

func (h *Handlers) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload := req.Payload()
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date == "" || req.Clock == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}

	fireAt, err := h.scheduler.ParseFireAt(req.Date, req.Clock)
	if err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}

	mode := models.ModeRegistry
	if req.Token != "" {
		mode = models.ModeSingle
	}
	job, err := h.scheduler.Schedule(r.Context(), payload, mode, req.Token, fireAt)
	if err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}

	writeData(w, http.StatusAccepted, "notification scheduled", map[string]interface{}{
		"job_id":        job.ID,
		"scheduled_for": job.FireAt.Format(time.RFC3339),
		"mode":          job.Mode,
	})
}

func (h *Handlers) handleScheduleGet(w http.ResponseWriter, r *http.Request) {
	job, err := h.scheduler.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}
	writeData(w, http.StatusOK, "job found", job)
}

func (h *Handlers) handleScheduleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.scheduler.Cancel(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}
	writeData(w, http.StatusOK, "job cancelled", map[string]string{"job_id": id})
}
