package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"repo-sync/core/notify"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func event(action notify.Action, name string) notify.Event {
	return notify.Event{
		Action: action,
		Record: notify.Record{Owner: "alice", MachineName: name, Source: "github"},
		At:     time.Now(),
	}
}

func TestRecorder_KeepsLastEvents(t *testing.T) {
	r := notify.NewRecorder(2)
	r.Notify(context.Background(), event(notify.ActionCreated, "a"))
	r.Notify(context.Background(), event(notify.ActionUpdated, "b"))
	r.Notify(context.Background(), event(notify.ActionDeleted, "c"))

	events := r.Events()
	assert.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Record.MachineName)
	assert.Equal(t, notify.ActionDeleted, events[1].Action)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestMulti(t *testing.T) {
	a := notify.NewRecorder(0)
	b := notify.NewRecorder(0)
	notify.Multi{a, b}.Notify(context.Background(), event(notify.ActionCreated, "x"))

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	r := notify.NewRecorder(0)
	d := notify.NewDispatcher(r, 16, zap.NewNop())

	for _, name := range []string{"a", "b", "c"} {
		d.Notify(context.Background(), event(notify.ActionCreated, name))
	}
	d.Close()

	events := r.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Record.MachineName)
	assert.Equal(t, "c", events[2].Record.MachineName)
}

func TestDispatcher_DoesNotBlockWhenFull(t *testing.T) {
	release := make(chan struct{})
	var (
		mu        sync.Mutex
		delivered int
	)
	slow := notify.SinkFunc(func(context.Context, notify.Event) {
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	d := notify.NewDispatcher(slow, 1, zap.NewNop())

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(context.Background(), event(notify.ActionCreated, "x"))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(release)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, delivered, 1)
	assert.Less(t, delivered, 10)
}

func TestDispatcher_SurvivesPanickingSink(t *testing.T) {
	r := notify.NewRecorder(0)
	calls := 0
	sink := notify.SinkFunc(func(ctx context.Context, e notify.Event) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		r.Notify(ctx, e)
	})
	d := notify.NewDispatcher(sink, 4, zap.NewNop())
	d.Notify(context.Background(), event(notify.ActionCreated, "a"))
	d.Notify(context.Background(), event(notify.ActionCreated, "b"))
	d.Close()

	assert.Len(t, r.Events(), 1)
	assert.Equal(t, "b", r.Events()[0].Record.MachineName)
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	r := notify.NewRecorder(0)
	d := notify.NewDispatcher(r, 4, zap.NewNop())
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), event(notify.ActionCreated, "late"))
	})
	assert.Empty(t, r.Events())
}
