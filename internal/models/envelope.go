package models

// SendRequest is the JSON shape accepted over HTTP and from the intake queue.
// Token empty means fan-out to all registry members. Date/Clock empty means
// immediate dispatch; both must be present together for a deferred job.
type SendRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Token     string `json:"token,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Date      string `json:"date,omitempty"`
	Clock     string `json:"time,omitempty"`
}

// Payload converts the request body to the immutable payload.
func (r SendRequest) Payload() NotificationPayload {
	return NotificationPayload{Title: r.Title, Body: r.Body}
}

// Deferred reports whether the request carries a schedule target.
func (r SendRequest) Deferred() bool {
	return r.Date != "" || r.Clock != ""
}

// ResponseEnvelope is the canonical JSON response shape.
type ResponseEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
