package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
	err    error
	block  chan struct{}
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, e domain.NotificationEvent) error {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return b.err
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *recordingBroadcaster) ids() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Message)
	}
	return out
}

func TestDispatcher_DeliversInOrderPerTask(t *testing.T) {
	b := &recordingBroadcaster{}
	d := NewDispatcher(4, 16, b, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for _, msg := range []string{"created", "updated", "deleted"} {
		d.Notify(domain.NotificationEvent{TaskID: "t1", Message: msg})
	}

	require.Eventually(t, func() bool { return b.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"created", "updated", "deleted"}, b.ids())
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	b := &recordingBroadcaster{block: make(chan struct{})}
	d := NewDispatcher(1, 1, b, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			d.Notify(domain.NotificationEvent{TaskID: "t1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked while the broadcaster was stalled")
	}

	close(b.block)
	cancel()
	d.Wait()
	assert.LessOrEqual(t, b.count(), 2)
}

func TestDispatcher_BroadcastErrorIsSwallowed(t *testing.T) {
	b := &recordingBroadcaster{err: errors.New("redis down")}
	d := NewDispatcher(1, 4, b, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Notify(domain.NotificationEvent{TaskID: "t1"})
	d.Notify(domain.NotificationEvent{TaskID: "t1"})

	require.Eventually(t, func() bool { return b.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(8, 1, &recordingBroadcaster{}, zerolog.Nop())
	first := d.shardIndex("task-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("task-42"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}
