// Package events publishes store-side lifecycle events to RabbitMQ so
// downstream fulfillment systems can react to confirmed orders. The
// publisher is optional: a nil *Publisher silently drops every event,
// which keeps the store runnable without a broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stockflow/stockflow-golang/internal/models"
)

const (
	// Exchange is the topic exchange all request events go through.
	Exchange = "stockflow.requests"

	routingKeyOrderConfirmed = "request.order.confirmed"
)

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// OrderConfirmedEvent is the payload downstream fulfillment consumes.
type OrderConfirmedEvent struct {
	RequestID         string    `json:"requestId"`
	AdminID           int64     `json:"adminId"`
	ProductCode       string    `json:"productCode"`
	ProductName       string    `json:"productName"`
	RequestedEmail    string    `json:"requestedEmail"`
	RequestedQuantity int       `json:"requestedQuantity"`
	ConfirmedAt       time.Time `json:"confirmedAt"`
}

// OrderConfirmed publishes the confirmation of one request's order.
func (p *Publisher) OrderConfirmed(ctx context.Context, rec *models.RequestRecord) error {
	if p == nil {
		return nil
	}

	event := OrderConfirmedEvent{
		RequestID:         rec.ID,
		AdminID:           rec.AdminID,
		ProductCode:       rec.ProductCode,
		ProductName:       rec.ProductName,
		RequestedEmail:    rec.RequestedEmail,
		RequestedQuantity: rec.RequestedQuantity,
		ConfirmedAt:       time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		Exchange,
		routingKeyOrderConfirmed,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKeyOrderConfirmed, err)
	}
	return nil
}
