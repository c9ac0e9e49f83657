// Package fulfillment consumes order lifecycle events and moves freshly
// created orders into PROCESSING, standing in for the warehouse picking up
// the order.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	orderapp "github.com/shopline-labs/commerce-core/internal/order/application"
	orderdomain "github.com/shopline-labs/commerce-core/internal/order/domain"
	"github.com/shopline-labs/commerce-core/pkg/idempotency"
	"github.com/shopline-labs/commerce-core/pkg/tracing"
)

type Orders interface {
	UpdateStatus(ctx context.Context, actor orderapp.Actor, orderID string, next orderdomain.Status) (*orderdomain.Order, error)
}

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	orders Orders
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, orders Orders, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		orders: orders,
		idem:   idem,
		tracer: otel.Tracer("fulfillment-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if headerValue(msg.Headers, "event_type") != orderdomain.EventOrderCreated {
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		key := c.idem.MessageKey(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated")

		var event orderdomain.OrderCreated
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Error("unmarshal failed", "err", err)
			span.End()
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		c.process(msgCtx, event)
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, event orderdomain.OrderCreated) {
	_, err := c.orders.UpdateStatus(ctx, orderapp.Actor{Admin: true}, event.OrderID, orderdomain.StatusProcessing)
	switch {
	case err == nil:
		c.log.Info("order moved to processing", "order_id", event.OrderID, "order_code", event.OrderCode)
	case isAlreadyAdvanced(err):
		// Cancelled or manually advanced before we got here; nothing to do.
		c.log.Info("order no longer pending, skipping", "order_id", event.OrderID)
	default:
		c.log.Error("fulfillment update failed", "order_id", event.OrderID, "err", err)
	}
}

func isAlreadyAdvanced(err error) bool {
	var transitionErr *orderdomain.InvalidStatusTransitionError
	return errors.As(err, &transitionErr)
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
