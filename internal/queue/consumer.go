package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/model"
)

// NotificationType tags the rows written by the consumer.
const NotificationType = "seat_assignment"

// NotificationWriter stores a notification.
type NotificationWriter interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Consumer turns seat assignment change events into one notification row
// addressed to the affected department and year.
type Consumer struct {
	url    string
	store  NotificationWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewConsumer returns a Consumer reading from the broker at url.
func NewConsumer(url string, store NotificationWriter, logger *zap.Logger) *Consumer {
	return &Consumer{
		url:    url,
		store:  store,
		logger: logger.Named("seat-consumer"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run connects to RabbitMQ, declares the queue and consumes messages until
// ctx is cancelled.  Broken connections are retried with exponential
// backoff capped at 30s.  Messages that cannot be handled are rejected
// without requeue so a poison message cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(SeatAssignmentChangedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev SeatAssignmentChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	n, err := c.notificationFor(ev)
	if err != nil {
		return err
	}
	if err := c.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	c.logger.Debug("notification stored",
		zap.String("assignment_id", ev.AssignmentID),
		zap.String("action", ev.Action),
		zap.String("department", ev.Department),
		zap.String("year", ev.Year),
	)
	return nil
}

func (c *Consumer) notificationFor(ev SeatAssignmentChangedEvent) (*model.Notification, error) {
	if ev.Department == "" || ev.Year == "" {
		return nil, fmt.Errorf("event for %q has no group", ev.AssignmentID)
	}
	group := ev.Department + " " + ev.Year
	if ev.Gender != nil && *ev.Gender != "" {
		group += " (" + *ev.Gender + ")"
	}

	var title, msg string
	switch ev.Action {
	case ActionCreated:
		title = "Seats assigned"
		msg = fmt.Sprintf("%s has been given seats %s in %s.", group, joinSeats(ev.SeatNumbers), ev.VenueType)
	case ActionUpdated:
		title = "Seat assignment changed"
		msg = fmt.Sprintf("%s now has seats %s in %s.", group, joinSeats(ev.SeatNumbers), ev.VenueType)
	case ActionDeleted:
		title = "Seat assignment removed"
		msg = fmt.Sprintf("The seats of %s have been released.", group)
	default:
		return nil, fmt.Errorf("unknown action %q", ev.Action)
	}

	n := &model.Notification{
		ID:         uuid.NewString(),
		Type:       NotificationType,
		Title:      title,
		Message:    msg,
		Department: ev.Department,
		Year:       ev.Year,
		Gender:     ev.Gender,
		CreatedAt:  c.now(),
	}
	if ev.EventID != "" {
		id := ev.EventID
		n.EventID = &id
	}
	return n, nil
}

func joinSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
