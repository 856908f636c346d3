package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
	"github.com/forthrightphysio-crypto/pushrelay/internal/services"
)

// RelayConsumer feeds queued send requests into the same dispatcher and
// scheduler the HTTP surface uses.
type RelayConsumer struct {
	base          *BaseConsumer
	dispatcher    *services.Dispatcher
	scheduler     *services.Scheduler
	registry      services.TokenLister
	logger        *slog.Logger
	maxDeliveries int
}

func NewRelayConsumer(base *BaseConsumer, dispatcher *services.Dispatcher, scheduler *services.Scheduler, registry services.TokenLister, logger *slog.Logger, maxDeliveries int) *RelayConsumer {
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}
	return &RelayConsumer{
		base:          base,
		dispatcher:    dispatcher,
		scheduler:     scheduler,
		registry:      registry,
		logger:        logger,
		maxDeliveries: maxDeliveries,
	}
}

func (c *RelayConsumer) Start(ctx context.Context) error {
	return c.base.Start(ctx, c.handleDelivery)
}

func (c *RelayConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) error {
	var req models.SendRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		c.logger.Error("failed to unmarshal send request", slog.Any("error", err))
		_ = msg.Reject(false)
		return err
	}

	if err := c.process(ctx, req); err != nil {
		// Client-input errors are poison; they go straight to the DLQ.
		requeue := !isPoison(err) && c.shouldRetry(&msg)
		if requeue {
			c.logger.Warn("processing failed, message requeued",
				slog.String("request_id", req.RequestID), slog.Any("error", err))
		} else {
			c.logger.Error("processing failed, message dead-lettered",
				slog.String("request_id", req.RequestID), slog.Any("error", err))
		}
		_ = msg.Nack(false, requeue)
		return err
	}

	return msg.Ack(false)
}

func (c *RelayConsumer) process(ctx context.Context, req models.SendRequest) error {
	payload := req.Payload()
	if err := payload.Validate(); err != nil {
		return err
	}

	if req.Deferred() {
		fireAt, err := c.scheduler.ParseFireAt(req.Date, req.Clock)
		if err != nil {
			return err
		}
		mode := models.ModeRegistry
		if req.Token != "" {
			mode = models.ModeSingle
		}
		_, err = c.scheduler.Schedule(ctx, payload, mode, req.Token, fireAt)
		return err
	}

	recipients := []string{req.Token}
	if req.Token == "" {
		var err error
		recipients, err = c.registry.ListAll(ctx)
		if err != nil {
			return err
		}
	}
	c.dispatcher.Dispatch(ctx, payload, recipients)
	return nil
}

func isPoison(err error) bool {
	return errors.Is(err, models.ErrInvalidScheduleTime) || errors.Is(err, models.ErrInvalidPayload)
}

func (c *RelayConsumer) shouldRetry(msg *amqp.Delivery) bool {
	return deliveryAttempts(msg) < c.maxDeliveries
}

func deliveryAttempts(msg *amqp.Delivery) int {
	if msg.Headers == nil {
		if msg.Redelivered {
			return 1
		}
		return 0
	}
	if raw, ok := msg.Headers["x-death"]; ok {
		if deaths, ok := raw.([]interface{}); ok && len(deaths) > 0 {
			if table, ok := deaths[0].(amqp.Table); ok {
				if count, ok := table["count"].(int64); ok {
					return int(count)
				}
			}
		}
	}
	if msg.Redelivered {
		return 1
	}
	return 0
}
