package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

type channel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher emits payment events on the events exchange. Events of one order
// share a partition key and are numbered by the sequence repository.
type Publisher struct {
	ch       channel
	seq      SequenceRepository
	producer string
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq SequenceRepository, logger logrus.FieldLogger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return newPublisher(ch, seq, logger)
}

func newPublisher(ch channel, seq SequenceRepository, logger logrus.FieldLogger) (*Publisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: storefrontServiceName,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishPaymentReported announces the report the backend acknowledged.
// Success and TransactionID come from r, not from the ledger row.
func (p *Publisher) PublishPaymentReported(ctx context.Context, a payment.Attempt, r payment.Report) error {
	now := p.now().UTC()
	env, err := p.envelope(ctx, EventTypePaymentReported, paymentReportedSchema, a, now)
	if err != nil {
		return err
	}
	ev := PaymentReportedEvent{
		EventEnvelope: env,
		Payload: PaymentReportedPayload{
			AttemptID:     a.ID.String(),
			OrderID:       a.OrderID,
			UserID:        a.Owner,
			Amount:        a.Amount,
			TransactionID: r.TransactionID,
			Success:       r.Success,
			Timestamp:     now,
		},
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal PaymentReported envelope: %w", err)
	}
	return p.publishJSON(ctx, PaymentReportedRoutingKey, body)
}

func (p *Publisher) PublishReconciliationFailed(ctx context.Context, a payment.Attempt, cause error) error {
	now := p.now().UTC()
	env, err := p.envelope(ctx, EventTypeReconciliationFailed, reconciliationFailedSchema, a, now)
	if err != nil {
		return err
	}
	ev := ReconciliationFailedEvent{
		EventEnvelope: env,
		Payload: ReconciliationFailedPayload{
			AttemptID:     a.ID.String(),
			OrderID:       a.OrderID,
			UserID:        a.Owner,
			Amount:        a.Amount,
			TransactionID: a.TransactionID,
			Reason:        reason(cause),
			Timestamp:     now,
		},
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal PaymentReconciliationFailed envelope: %w", err)
	}
	if err := p.publishJSON(ctx, ReconciliationFailedRoutingKey, body); err != nil {
		return err
	}
	p.logger.WithFields(logrus.Fields{
		"order_id":   a.OrderID,
		"attempt_id": a.ID,
	}).Info("reconciliation alert published")
	return nil
}

func (p *Publisher) envelope(ctx context.Context, name, schema string, a payment.Attempt, occurredAt time.Time) (EventEnvelope, error) {
	partition := strconv.FormatInt(a.OrderID, 10)
	seq, err := p.seq.NextSequence(ctx, partition)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("reserve sequence: %w", err)
	}
	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		CausationID:   a.ID.String(),
		Producer:      p.producer,
		PartitionKey:  partition,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        schema,
	}, nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: middleware.GetCorrelationID(ctx),
			Timestamp:     p.now().UTC(),
			Body:          body,
		},
	)
}

func reason(cause error) string {
	if cause == nil {
		return "unknown"
	}
	return apperr.Message(cause)
}
