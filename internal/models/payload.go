package models

import "fmt"

// NotificationPayload is the rendered notification handed to the gateway.
// Immutable once accepted.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate rejects payloads with empty fields before any scheduling or I/O.
func (p NotificationPayload) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidPayload)
	}
	if p.Body == "" {
		return fmt.Errorf("%w: body must not be empty", ErrInvalidPayload)
	}
	return nil
}
