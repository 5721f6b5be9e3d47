package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !requeue {
		a.nacked = append(a.nacked, tag)
	}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestConsumeLoop_AcksAndRejects(t *testing.T) {
	acks := &ackRecorder{}
	var bodies []string

	c := newConsumer("scrape_requests", func(_ context.Context, body []byte) error {
		bodies = append(bodies, string(body))
		if string(body) == "bad" {
			return errors.New("malformed")
		}
		return nil
	}, nil)

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: []byte(`{}`)}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("bad")}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte(`{"tenant_ids":[]}`)}
	close(msgs)

	c.consumeLoop(msgs)

	assert.Equal(t, []string{`{}`, "bad", `{"tenant_ids":[]}`}, bodies)
	assert.Equal(t, []uint64{1, 3}, acks.acked)
	assert.Equal(t, []uint64{2}, acks.nacked)
}

func TestStop_CancelsHandlerContext(t *testing.T) {
	acks := &ackRecorder{}
	started := make(chan struct{})

	c := newConsumer("scrape_requests", func(ctx context.Context, _ []byte) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 7}
	go c.consumeLoop(msgs)
	<-started

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	require.Equal(t, []uint64{7}, acks.nacked)
}
