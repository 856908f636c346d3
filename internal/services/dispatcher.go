package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
)

// TokenPruner removes a recipient confirmed dead by the gateway. Deletion of
// an absent token must be a no-op.
type TokenPruner interface {
	Remove(ctx context.Context, token string) error
}

// Dispatcher fans one payload out to a set of recipients. Attempts run
// concurrently and are joined; one recipient's failure never aborts the batch
// or cancels siblings.
type Dispatcher struct {
	provider PushProvider
	pruner   TokenPruner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewDispatcher(provider PushProvider, pruner TokenPruner, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		pruner:   pruner,
		metrics:  m,
		logger:   logger,
	}
}

// Dispatch attempts delivery to every deduplicated recipient and reports one
// outcome per token. An empty set returns a zero result immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.NotificationPayload, recipients []string) models.DispatchResult {
	tokens := dedupe(recipients)
	if len(tokens) == 0 {
		return models.DispatchResult{Outcomes: []models.DeliveryOutcome{}}
	}

	outcomes := make([]models.DeliveryOutcome, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			outcomes[i] = d.attempt(ctx, token, payload)
		}(i, token)
	}
	wg.Wait()

	result := models.DispatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			result.SuccessCount++
		}
	}
	return result
}

func (d *Dispatcher) attempt(ctx context.Context, token string, payload models.NotificationPayload) models.DeliveryOutcome {
	err := d.provider.Send(ctx, token, payload)
	if err == nil {
		d.metrics.IncDelivered()
		return models.DeliveryOutcome{Recipient: token, Success: true}
	}

	outcome := models.DeliveryOutcome{
		Recipient: token,
		Class:     models.ClassTransient,
		Error:     err.Error(),
	}
	d.metrics.IncFailed()

	if errors.Is(err, models.ErrRecipientGone) {
		outcome.Class = models.ClassPermanentlyInvalid
		if pruneErr := d.pruner.Remove(ctx, token); pruneErr != nil {
			d.logger.Error("failed to prune dead token",
				slog.String("token", token),
				slog.Any("error", pruneErr))
		} else {
			d.metrics.IncPruned()
			d.logger.Info("pruned dead token", slog.String("token", token))
		}
		return outcome
	}

	d.logger.Warn("delivery failed",
		slog.String("provider", d.provider.Name()),
		slog.String("token", token),
		slog.Any("error", err))
	return outcome
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
