// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
)

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	queue   string
	logger  *zap.Logger
}

// NewRabbitClient connects to RabbitMQ. queue is the scrape request queue the
// client publishes to and inspects.
func NewRabbitClient(url, queue string, logger *zap.Logger) (*RabbitClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		queue:   queue,
		logger:  logger,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

func (r *RabbitClient) QueueName() string {
	return r.queue
}

// DeadLetterQueue names the queue rejected messages of queue are routed to.
func DeadLetterQueue(queue string) string {
	return queue + "_dlq"
}

// DeclareQueues creates the durable scrape request queue and its DLQ.
func (r *RabbitClient) DeclareQueues() error {
	dlqName := DeadLetterQueue(r.queue)

	if _, err := r.channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	if _, err := r.channel.QueueDeclare(r.queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.logger.Info("Queues declared", zap.String("queue", r.queue), zap.String("dlq", dlqName))
	return nil
}

// PublishScrapeRequest enqueues an on-demand scrape.
func (r *RabbitClient) PublishScrapeRequest(req model.ScrapeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode scrape request: %w", err)
	}
	err = r.channel.Publish(
		"",      // default exchange
		r.queue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", r.queue, err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

func (r *RabbitClient) UpdateQueueDepth() {
	q, err := r.channel.QueueInspect(r.queue)
	if err != nil {
		r.logger.Warn("Failed to inspect queue", zap.String("queue", r.queue), zap.Error(err))
		return
	}
	metrics.TriggerQueueDepth.Set(float64(q.Messages))
}
