// internal/consumer/consumer.go
package consumer

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// MessageHandlerFunc processes one message body. A nil error acks the
// message; any error rejects it to the dead letter queue.
type MessageHandlerFunc func(ctx context.Context, body []byte) error

// Consumer holds control channels and metadata for a running queue consumer
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	Handler     MessageHandlerFunc
	ConsumerTag string
	logger      *zap.Logger
}

// StartConsumer starts a goroutine that consumes queueName one message at a
// time.
func StartConsumer(conn *amqp.Connection, queueName string, handler MessageHandlerFunc, logger *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queueName, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set qos: %w", queueName, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", queueName)
	msgs, err := ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queueName, err)
	}

	c := newConsumer(queueName, handler, logger)
	c.Channel = ch
	c.ConsumerTag = consumerTag

	go c.consumeLoop(msgs)

	c.logger.Info("Started consumer", zap.String("queue", queueName))
	return c, nil
}

func newConsumer(queueName string, handler MessageHandlerFunc, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		QueueName: queueName,
		StopChan:  make(chan struct{}),
		DoneChan:  make(chan struct{}),
		Handler:   handler,
		logger:    logger,
	}
}

// consumeLoop processes messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer close(c.DoneChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.StopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed", zap.String("queue", c.QueueName))
				return
			}
			c.handle(ctx, msg)

		case <-c.StopChan:
			c.logger.Info("Stopping consumer", zap.String("queue", c.QueueName))
			if c.Channel != nil {
				_ = c.Channel.Cancel(c.ConsumerTag, false)
			}
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	if err := c.Handler(ctx, msg.Body); err != nil {
		c.logger.Error("Message rejected",
			zap.String("queue", c.QueueName),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

// Stop signals the consumer to stop and waits for cleanup
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	c.logger.Info("Stopped consumer", zap.String("queue", c.QueueName))
}
