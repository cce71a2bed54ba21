package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

//ErrClosed is returned when publishing to a bus that has been closed
var ErrClosed = errors.New("bus is closed")

const defaultQueueSize = 256

type subscription struct {
	id      uint64
	handler Handler
}

//LocalBus delivers events to handlers within the current process. A single dispatcher goroutine delivers events in
//publish order, so each topic is FIFO. It is used directly by single-process deployments, and as the fan-out stage of
//the database backed bus.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64

	queue     chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	stopped   chan struct{}
}

//NewLocalBus creates a LocalBus and starts its dispatcher
func NewLocalBus() *LocalBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &LocalBus{
		subs:    make(map[Topic][]subscription),
		queue:   make(chan Event, defaultQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go b.run()
	return b
}

//Publish queues ev for delivery to subscribers of topic. It blocks only if the queue is full.
func (b *LocalBus) Publish(ctx context.Context, topic Topic, ev Event) error {
	ev.Topic = topic
	select {
	case <-b.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case b.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return ErrClosed
	}
}

//Subscribe registers h to receive events published on topic
func (b *LocalBus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		next := make([]subscription, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				next = append(next, s)
			}
		}
		b.subs[topic] = next
	}
}

//Close stops the dispatcher. Events still queued are dropped.
func (b *LocalBus) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		<-b.stopped
	})
}

func (b *LocalBus) run() {
	defer close(b.stopped)
	for {
		select {
		case <-b.ctx.Done():
			return
		case ev := <-b.queue:
			b.dispatch(b.ctx, ev)
		}
	}
}

//dispatch synchronously hands ev to every current subscriber of its topic
func (b *LocalBus) dispatch(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Topic]
	b.mu.RUnlock()
	for _, s := range subs {
		deliver(ctx, s.handler, ev)
	}
}

func deliver(ctx context.Context, h Handler, ev Event) {
	//Prevent a panicking handler from taking down the dispatcher
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Bus handler for topic %v panicked on event %v: %v", ev.Topic, ev.ID, r)
		}
	}()
	h(ctx, ev)
}
