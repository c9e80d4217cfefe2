package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for registration state changes.
const (
	RegistrationCreated    = "registration.created"
	RegistrationConfirmed  = "registration.confirmed"
	RegistrationWaitlisted = "registration.waitlisted"
	RegistrationPromoted   = "registration.promoted"
	RegistrationWithdrawn  = "registration.withdrawn"
)

// Event is the payload emitted on every registration state change. Delivery
// is fire-and-forget: consumers (notifications, dashboards) must not be able
// to fail a registration request.
type Event struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RegistrationID int       `json:"registration_id"`
	TournamentID   int       `json:"tournament_id"`
	CategoryID     int       `json:"category_id"`
	PlayerID       int       `json:"player_id"`
	PartnerID      *int      `json:"partner_id,omitempty"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type amqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange
// for registration events.
func NewAMQPPublisher(url, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	return &amqpPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Name, err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Name, err)
	}
	return nil
}

func (p *amqpPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
