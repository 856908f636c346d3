package models

// ErrorClass classifies a failed delivery attempt.
type ErrorClass string

const (
	// ClassTransient may succeed on retry; the registry is left untouched.
	ClassTransient ErrorClass = "transient"
	// ClassPermanentlyInvalid means the token is dead and has been pruned.
	ClassPermanentlyInvalid ErrorClass = "permanently_invalid"
)

// DeliveryOutcome captures the result of one delivery attempt.
type DeliveryOutcome struct {
	Recipient string     `json:"recipient"`
	Success   bool       `json:"success"`
	Class     ErrorClass `json:"error_class,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// DispatchResult aggregates a fan-out job: one outcome per deduplicated
// recipient, in no particular order.
type DispatchResult struct {
	SuccessCount int               `json:"success_count"`
	Outcomes     []DeliveryOutcome `json:"outcomes"`
}
