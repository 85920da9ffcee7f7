package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher owns one channel shared by the typed publishers below.
// amqp channels are not safe for concurrent publishing, so sends are serialized.
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg.Timestamp = time.Now().UTC()
	if msg.ContentType == "" {
		msg.ContentType = "application/json"
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

type StatusPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewStatusPublisher(pub *Publisher, routingKey string) *StatusPublisher {
	return &StatusPublisher{pub: pub, routingKey: routingKey}
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	return sp.pub.publish(ctx, sp.pub.exchange, sp.routingKey, amqp.Publishing{
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

// ProgressPublisher sends transient progress updates. They expire quickly
// because a late update is worse than none.
type ProgressPublisher struct {
	pub        *Publisher
	routingKey string
	ttl        time.Duration
}

func NewProgressPublisher(pub *Publisher, routingKey string, ttl time.Duration) *ProgressPublisher {
	return &ProgressPublisher{pub: pub, routingKey: routingKey, ttl: ttl}
}

func (pp *ProgressPublisher) PublishProgress(ctx context.Context, msg []byte) error {
	return pp.pub.publish(ctx, pp.pub.exchange, pp.routingKey, amqp.Publishing{
		Body:         msg,
		DeliveryMode: amqp.Transient,
		Expiration:   fmt.Sprint(pp.ttl.Milliseconds()),
	})
}

type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return dp.pub.publish(ctx, "", dp.queue, amqp.Publishing{
		Body:         msg,
		DeliveryMode: amqp.Persistent,
		Headers: amqp.Table{
			"x-dlq-reason": reason,
		},
	})
}
