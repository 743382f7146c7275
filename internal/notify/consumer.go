package notify

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/outbox"
	"github.com/qatalysthq/qatalyst-backend/pkg/outbox/idempotency"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

const smsConsumer = "sms-notifier"

// Consumer turns ticket events into SMS deliveries. Delivery is best effort:
// after the idempotency guard passes, provider failure is recorded and the
// message acked rather than retried forever.
type Consumer struct {
	repo         Repository
	dispatcher   *Dispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

func NewConsumer(repo Repository, dispatcher *Dispatcher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		dispatcher:   dispatcher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventTicketCreated) && eventType != string(enums.EventTicketCalled) {
		c.logg.Info(logCtx, "skipping non-ticket event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, smsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	recipient, message, err := c.render(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, smsConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithPhone(logCtx, phone.Mask(recipient))

	provider, sendErr := c.dispatcher.Send(ctx, recipient, message)
	if sendErr != nil {
		// Best effort: log, record the failed attempt, and ack.
		c.logg.Error(logCtx, "sms delivery failed on all providers", sendErr)
	}

	record := &models.Notification{
		EventID:   eventID,
		Phone:     recipient,
		Message:   message,
		Provider:  provider,
		Delivered: sendErr == nil,
	}
	if err := c.repo.Create(ctx, record); err != nil {
		c.logg.Error(logCtx, "failed to record notification", err)
	}

	return processResult{ack: true}
}

func (c *Consumer) render(eventType string, data json.RawMessage) (string, string, error) {
	switch eventType {
	case string(enums.EventTicketCreated):
		var payload TicketCreatedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", err
		}
		if payload.Phone == "" {
			return "", "", fmt.Errorf("payload missing phone")
		}
		return payload.Phone, RenderTicketCreated(payload), nil
	case string(enums.EventTicketCalled):
		var payload TicketCalledPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", "", err
		}
		if payload.Phone == "" {
			return "", "", fmt.Errorf("payload missing phone")
		}
		return payload.Phone, RenderTicketCalled(payload), nil
	}
	return "", "", fmt.Errorf("unsupported event type %q", eventType)
}
