//Package bus carries trigger change notifications between shards.
package bus

import (
	"context"
	"time"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/oklog/ulid/v2"
)

//Topic names a kind of event carried over the bus
type Topic string

const (
	//TopicReload asks every shard to reload all triggers from the store
	TopicReload Topic = "triggers.reload"
	//TopicGlobalAdd announces a newly created global trigger
	TopicGlobalAdd Topic = "triggers.global.add"
	//TopicGlobalEdit announces a changed global trigger
	TopicGlobalEdit Topic = "triggers.global.edit"
	//TopicGlobalDelete announces a deleted global trigger
	TopicGlobalDelete Topic = "triggers.global.delete"
)

//Topics lists every topic in use
var Topics = []Topic{TopicReload, TopicGlobalAdd, TopicGlobalEdit, TopicGlobalDelete}

//Event is the payload published on the bus
type Event struct {
	ID    string `gorethink:"id"`
	Topic Topic  `gorethink:"topic"`
	//Origin is the shard which published the event
	Origin string `gorethink:"origin"`
	//Trigger is set for add and edit events
	Trigger *guildmodels.Trigger `gorethink:"trigger,omitempty"`
	//TriggerID is set for delete events
	TriggerID   int64     `gorethink:"trigger_id,omitempty"`
	PublishedAt time.Time `gorethink:"published_at"`
}

//NewEvent builds an event with a fresh ID
func NewEvent(origin string) Event {
	return Event{
		ID:          ulid.Make().String(),
		Origin:      origin,
		PublishedAt: time.Now(),
	}
}

//Handler receives events for a topic
type Handler func(ctx context.Context, ev Event)

//Bus is a publish/subscribe channel shared by every shard. Delivery is at least once, and events on a topic from a
//single publisher arrive in the order they were published.
type Bus interface {
	Publish(ctx context.Context, topic Topic, ev Event) error
	//Subscribe registers h for topic, returning a function that removes the registration
	Subscribe(topic Topic, h Handler) (unsubscribe func())
}
