package services

import (
	"context"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

// PushProvider represents the downstream push gateway (FCM, OneSignal, etc).
// Send delivers to exactly one recipient so the dispatcher can isolate
// failures per token. A dead token surfaces as models.ErrRecipientGone
// (wrapped); every other error is treated as transient.
type PushProvider interface {
	Name() string
	Send(ctx context.Context, token string, payload models.NotificationPayload) error
}
