package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	return q
}

func TestInMemoryQueueDelivers(t *testing.T) {
	q := newTestQueue()

	var mu sync.Mutex
	var got []any
	require.NoError(t, q.Subscribe("customer_events", func(payload any) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload)
		return nil
	}))

	require.NoError(t, q.Publish("customer_events", 42))
	q.Wait()

	assert.Equal(t, []any{42}, got)
}

func TestInMemoryQueueNoSubscribers(t *testing.T) {
	q := newTestQueue()
	assert.EqualError(t, q.Publish("nobody", 1), "no subscribers for topic nobody")
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := newTestQueue()

	var calls int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish("t", "x"))
	q.Wait()

	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := newTestQueue()

	var calls int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}))

	require.NoError(t, q.Publish("t", "x"))
	q.Wait()

	// first attempt plus MaxRetries retries
	assert.EqualValues(t, defaultMaxRetries+1, atomic.LoadInt32(&calls))
}

func TestDecodeCustomerEvent(t *testing.T) {
	ev := NewCustomerEvent(CustomerRegistered, 7)

	decoded, err := DecodeCustomerEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)

	decoded, err = DecodeCustomerEvent(&ev)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	decoded, err = DecodeCustomerEvent(body)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, CustomerRegistered, decoded.Type)
	assert.Equal(t, 7, decoded.CustomerID)
	assert.True(t, ev.OccurredAt.Equal(decoded.OccurredAt))

	_, err = DecodeCustomerEvent("nope")
	assert.Error(t, err)
	_, err = DecodeCustomerEvent([]byte("{"))
	assert.Error(t, err)
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 8)}
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	close(f.deliveries)
	return nil
}

type fakeAcker struct {
	acks, nacks int
	requeue     bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error { a.acks++; return nil }
func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}
func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func TestAMQPQueuePublish(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, zap.NewNop())

	ev := NewCustomerEvent(CustomerDeleted, 3)
	require.NoError(t, q.Publish(CustomerEventsTopic, ev))
	require.NoError(t, q.Publish(CustomerEventsTopic, ev))

	assert.Equal(t, []string{CustomerEventsTopic}, ch.declared)
	require.Len(t, ch.published, 2)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	decoded, err := DecodeCustomerEvent(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
}

func TestAMQPQueueHandleDelivery(t *testing.T) {
	q := newAMQPQueue(newFakeChannel(), zap.NewNop())
	ok := func(any) error { return nil }
	fail := func(any) error { return errors.New("db down") }

	t.Run("ack on success", func(t *testing.T) {
		acker := &fakeAcker{}
		q.handleDelivery("t", amqp.Delivery{Acknowledger: acker, Body: []byte(`{}`)}, ok)
		assert.Equal(t, 1, acker.acks)
		assert.Zero(t, acker.nacks)
	})

	t.Run("republish with incremented retry count", func(t *testing.T) {
		ch := newFakeChannel()
		q := newAMQPQueue(ch, zap.NewNop())
		acker := &fakeAcker{}
		d := amqp.Delivery{Acknowledger: acker, Body: []byte(`{}`), Headers: amqp.Table{retryHeader: int32(1)}}

		q.handleDelivery("t", d, fail)

		assert.Equal(t, 1, acker.acks)
		require.Len(t, ch.published, 1)
		assert.Equal(t, int32(2), ch.published[0].Headers[retryHeader])
	})

	t.Run("drop after max retries", func(t *testing.T) {
		ch := newFakeChannel()
		q := newAMQPQueue(ch, zap.NewNop())
		acker := &fakeAcker{}
		d := amqp.Delivery{Acknowledger: acker, Headers: amqp.Table{retryHeader: int32(defaultMaxRetries)}}

		q.handleDelivery("t", d, fail)

		assert.Equal(t, 1, acker.nacks)
		assert.False(t, acker.requeue)
		assert.Empty(t, ch.published)
	})
}

func TestAMQPQueueSubscribe(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, zap.NewNop())

	received := make(chan []byte, 1)
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		received <- payload.([]byte)
		return nil
	}))

	acker := &fakeAcker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, Body: []byte(`{"type":"customer.updated"}`)}

	select {
	case body := <-received:
		assert.JSONEq(t, `{"type":"customer.updated"}`, string(body))
	case <-time.After(time.Second):
		t.Fatal("delivery not handled")
	}
	require.NoError(t, q.Close())
}

func TestRetryCountOf(t *testing.T) {
	assert.Equal(t, 0, retryCountOf(nil))
	assert.Equal(t, 2, retryCountOf(amqp.Table{retryHeader: int64(2)}))
	assert.Equal(t, 1, retryCountOf(amqp.Table{retryHeader: 1}))
	assert.Equal(t, 0, retryCountOf(amqp.Table{retryHeader: "x"}))
}
