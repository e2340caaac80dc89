package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MikeMC777/tienda-commerce/internal/account"
)

type collector struct {
	mu  sync.Mutex
	got []Event
}

func (c *collector) sink(err error) SinkFunc {
	return func(_ context.Context, ev Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.got = append(c.got, ev)
		return err
	}
}

func (c *collector) events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event{}, c.got...)
}

type admins struct {
	list []account.Account
	err  error
}

func (a admins) ListByRole(context.Context, account.Role) ([]account.Account, error) {
	return a.list, a.err
}

func TestNotify_DeliversAfterCallerCancels(t *testing.T) {
	c := &collector{}
	d := NewDispatcher(c.sink(nil), nil, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, Event{Kind: "order.placed", Recipient: Recipient{AccountID: 4}, OrderID: 1})
	cancel()
	d.Wait()

	got := c.events()
	require.Len(t, got, 1)
	assert.Equal(t, "order.placed", got[0].Kind)
	assert.False(t, got[0].OccurredAt.IsZero())
}

func TestNotify_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &collector{}
	d := NewDispatcher(c.sink(errors.New("smtp down")), nil, time.Second, zap.New(core))

	d.Notify(context.Background(), Event{Kind: "order.paid", Recipient: Recipient{Email: "taro@example.com"}})
	d.Wait()

	assert.Len(t, c.events(), 1)
	require.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())
}

func TestNotify_SinkPanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(SinkFunc(func(context.Context, Event) error { panic("boom") }), nil, time.Second, zap.New(core))

	d.Notify(context.Background(), Event{Kind: "order.paid", Recipient: Recipient{AccountID: 1}})
	d.Wait()
	assert.Equal(t, 1, logs.FilterMessage("notification sink panicked").Len())
}

func TestNotify_DropsEventsWithoutRecipient(t *testing.T) {
	c := &collector{}
	d := NewDispatcher(c.sink(nil), nil, time.Second, nil)
	d.Notify(context.Background(), Event{Kind: "order.placed"})
	d.Wait()
	assert.Empty(t, c.events())
}

func TestNotify_DeadlinePerDelivery(t *testing.T) {
	var deadline time.Time
	d := NewDispatcher(SinkFunc(func(ctx context.Context, _ Event) error {
		deadline, _ = ctx.Deadline()
		return nil
	}), nil, 50*time.Millisecond, nil)

	d.Notify(context.Background(), Event{Kind: "x", Recipient: Recipient{AccountID: 1}})
	d.Wait()
	assert.WithinDuration(t, time.Now(), deadline, time.Second)
}

func TestNotifyAdmins_FansOut(t *testing.T) {
	c := &collector{}
	dir := admins{list: []account.Account{{ID: 1, Email: "a@example.com"}, {ID: 9, Email: "b@example.com"}}}
	d := NewDispatcher(c.sink(nil), dir, time.Second, nil)

	d.NotifyAdmins(context.Background(), Event{Kind: "order.new", OrderID: 3})
	d.Wait()

	got := c.events()
	require.Len(t, got, 2)
	assert.Equal(t, Recipient{AccountID: 1, Email: "a@example.com"}, got[0].Recipient)
	assert.Equal(t, Recipient{AccountID: 9, Email: "b@example.com"}, got[1].Recipient)
}

func TestNotifyAdmins_DirectoryFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &collector{}
	d := NewDispatcher(c.sink(nil), admins{err: errors.New("unavailable")}, time.Second, zap.New(core))

	d.NotifyAdmins(context.Background(), Event{Kind: "order.new"})
	d.Wait()
	assert.Empty(t, c.events())
	assert.Equal(t, 1, logs.FilterMessage("admin notification skipped").Len())
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Kind: "x", Recipient: Recipient{AccountID: 1}})
		d.NotifyAdmins(context.Background(), Event{Kind: "x"})
		d.Wait()
	})
}

type fakeWriter struct {
	msgs   []kafkaGo.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_Deliver(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaSink{w: w}

	require.NoError(t, k.Deliver(context.Background(), Event{
		Kind: "order.paid", Severity: SeveritySuccess, OrderID: 42, Recipient: Recipient{AccountID: 4},
	}))
	require.NoError(t, k.Deliver(context.Background(), Event{Kind: "digest", Recipient: Recipient{AccountID: 1}}))
	require.NoError(t, k.Close())

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.Equal(t, "digest", string(w.msgs[1].Key))
	assert.Equal(t, []kafkaGo.Header{
		{Key: "kind", Value: []byte("order.paid")},
		{Key: "severity", Value: []byte("success")},
	}, w.msgs[0].Headers)

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, int64(4), ev.Recipient.AccountID)
	assert.True(t, w.closed)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, NewLogSink(zap.New(core)).Deliver(context.Background(), Event{Kind: "order.placed", OrderID: 5}))
	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].ContextMap()["order_id"])
}
