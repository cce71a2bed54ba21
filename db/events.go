package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/callummance/hibiki/bus"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const eventsTable string = "trigger_events"

//eventRetention is how long published events are kept before PruneEvents removes them
const eventRetention = time.Hour

const changefeedRetryDelay = 5 * time.Second

//EventBus is a bus.Bus shared by every shard connected to the same database. Published events are written to the
//trigger_events table and every shard, including the publisher, receives them through a changefeed on that table.
type EventBus struct {
	conn  *Connection
	local *bus.LocalBus
}

type eventChange struct {
	NewVal *bus.Event `gorethink:"new_val"`
}

//NewEventBus creates an EventBus. Events are only delivered while Listen is running.
func NewEventBus(conn *Connection) *EventBus {
	return &EventBus{
		conn:  conn,
		local: bus.NewLocalBus(),
	}
}

//Publish writes ev to the events table
func (b *EventBus) Publish(ctx context.Context, topic bus.Topic, ev bus.Event) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	ev.Topic = topic
	if ev.PublishedAt.IsZero() {
		ev.PublishedAt = time.Now()
	}
	_, err := checkWrite(rethink.Table(eventsTable).Insert(ev).RunWrite(b.conn.session))
	if err != nil {
		logrus.Warnf("Encountered error publishing %v event %v: %v", topic, ev.ID, err)
		return fmt.Errorf("failed to publish %v event: %w", topic, err)
	}
	return nil
}

//Subscribe registers h to receive events on topic from every shard
func (b *EventBus) Subscribe(topic bus.Topic, h bus.Handler) func() {
	return b.local.Subscribe(topic, h)
}

//Listen follows the events table until ctx is cancelled, reconnecting if the changefeed drops. Events published while
//the feed was down are never seen, so every reconnect is followed by a local reload.
func (b *EventBus) Listen(ctx context.Context) {
	first := true
	for {
		err := b.follow(ctx, !first)
		if ctx.Err() != nil || errors.Is(err, bus.ErrClosed) {
			return
		}
		first = false
		logrus.Warnf("Trigger event changefeed stopped due to error %v; retrying in %v", err, changefeedRetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(changefeedRetryDelay):
		}
	}
}

func (b *EventBus) follow(ctx context.Context, reconnect bool) error {
	cursor, err := rethink.Table(eventsTable).Changes().Run(b.conn.session)
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = cursor.Close()
	}()

	if reconnect {
		logrus.Info("Trigger event changefeed reconnected; reloading to catch up on missed events")
		if err := b.forward(ctx, bus.Event{Topic: bus.TopicReload, Origin: "changefeed"}); err != nil {
			return err
		}
	}

	var change eventChange
	for cursor.Next(&change) {
		if change.NewVal != nil {
			if err := b.forward(ctx, *change.NewVal); err != nil {
				return err
			}
		}
		change = eventChange{}
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	return fmt.Errorf("changefeed closed")
}

//forward queues ev on the local bus so slow handlers never hold up the changefeed cursor
func (b *EventBus) forward(ctx context.Context, ev bus.Event) error {
	return b.local.Publish(ctx, ev.Topic, ev)
}

//PruneEvents deletes events older than the retention period, returning how many were removed
func (b *EventBus) PruneEvents(ctx context.Context) (int, error) {
	if err := ctxDone(ctx); err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-eventRetention)
	resp, err := checkWrite(rethink.Table(eventsTable).Filter(
		rethink.Row.Field("published_at").Lt(cutoff),
	).Delete().RunWrite(b.conn.session))
	if err != nil {
		logrus.Warnf("Encountered error pruning old trigger events: %v", err)
		return 0, err
	}
	return resp.Deleted, nil
}

//RunPruner calls PruneEvents every interval until ctx is cancelled
func (b *EventBus) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := b.PruneEvents(ctx); err == nil && n > 0 {
				logrus.Debugf("Pruned %d old trigger events", n)
			}
		}
	}
}

//Close stops delivering events to subscribers
func (b *EventBus) Close() {
	b.local.Close()
}
