package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// defaultDialTimeout bounds connect and handshake when the caller's
// context has no deadline.
const defaultDialTimeout = 5 * time.Second

// Publisher sends change events to RabbitMQ.  It dials the broker for
// every message; seat assignment writes are rare enough that a pooled
// connection is not worth its reconnect handling.
type Publisher struct {
	url    string
	logger *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{url: url, logger: logger}
}

// dial connects within the time left on ctx.  amqp.Dial alone would wait
// up to 30s for a broker that accepts TCP but never speaks AMQP.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// PublishSeatAssignmentChanged publishes ev to the seat_assignment.changed
// queue as a persistent JSON message.  Errors are logged and returned so
// the caller can choose to ignore them.
func (p *Publisher) PublishSeatAssignmentChanged(ctx context.Context, ev SeatAssignmentChangedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal change event failed", zap.Error(err))
		return err
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.AssignmentID,
		Type:         ev.Action,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", SeatAssignmentChangedQueue, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq publish failed", zap.Error(err), zap.String("assignment_id", ev.AssignmentID))
		return err
	}
	return nil
}

// declareQueue makes sure the durable queue exists; declaring is idempotent.
func declareQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		SeatAssignmentChangedQueue, // name
		true,                       // durable
		false,                      // autoDelete
		false,                      // exclusive
		false,                      // noWait
		nil,                        // args
	)
	return err
}
