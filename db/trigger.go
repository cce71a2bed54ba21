package db

import (
	"context"
	"fmt"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
	"gopkg.in/gorethink/gorethink.v3/encoding"
)

const triggersTable string = "triggers"
const countersTable string = "counters"
const triggerCounterID string = "triggers"

type counter struct {
	ID    string `gorethink:"id"`
	Value int64  `gorethink:"value"`
}

//ensureTriggerCounter creates the document trigger IDs are allocated from. It fails harmlessly if it already exists.
func (db *Connection) ensureTriggerCounter() {
	_, err := rethink.Table(countersTable).Insert(counter{ID: triggerCounterID, Value: 0}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create trigger id counter due to error %v", err)
	}
}

//nextTriggerID atomically increments the trigger counter and returns the new value
func (db *Connection) nextTriggerID() (int64, error) {
	resp, err := checkWrite(rethink.Table(countersTable).Get(triggerCounterID).Update(map[string]interface{}{
		"value": rethink.Row.Field("value").Add(1),
	}, rethink.UpdateOpts{
		ReturnChanges: true,
	}).RunWrite(db.session))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate trigger id: %w", err)
	}
	if len(resp.Changes) != 1 {
		return 0, fmt.Errorf("failed to allocate trigger id: counter document is missing")
	}
	var c counter
	if err := encoding.Decode(&c, resp.Changes[0].NewValue); err != nil {
		return 0, fmt.Errorf("failed to decode trigger id counter: %w", err)
	}
	return c.Value, nil
}

//LoadAll returns every trigger in the database, both guild owned and global
func (db *Connection) LoadAll(ctx context.Context) ([]guildmodels.Trigger, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, err
	}
	res, err := rethink.Table(triggersTable).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error loading triggers: %v.", err)
		return nil, err
	}
	defer res.Close()
	var triggers []guildmodels.Trigger
	if err := res.All(&triggers); err != nil {
		logrus.Warnf("Encountered error decoding triggers: %v.", err)
		return nil, err
	}
	return triggers, nil
}

//Get returns the trigger with a given id
func (db *Connection) Get(ctx context.Context, id int64) (mo.Option[guildmodels.Trigger], error) {
	if err := ctxDone(ctx); err != nil {
		return mo.None[guildmodels.Trigger](), err
	}
	res, err := rethink.Table(triggersTable).Get(id).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up trigger %v: %v.", id, err)
		return mo.None[guildmodels.Trigger](), err
	}
	defer res.Close()
	if res.IsNil() {
		return mo.None[guildmodels.Trigger](), nil
	}
	var t guildmodels.Trigger
	if err := res.One(&t); err != nil {
		logrus.Warnf("Encountered error decoding trigger %v: %v.", id, err)
		return mo.None[guildmodels.Trigger](), err
	}
	return mo.Some(t), nil
}

//Insert stores a new trigger, assigning and returning its ID
func (db *Connection) Insert(ctx context.Context, t guildmodels.Trigger) (int64, error) {
	if err := ctxDone(ctx); err != nil {
		return 0, err
	}
	id, err := db.nextTriggerID()
	if err != nil {
		logrus.Warnf("Encountered error allocating trigger id: %v", err)
		return 0, err
	}
	t.ID = id
	_, err = checkWrite(rethink.Table(triggersTable).Insert(t).RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error inserting trigger %v into database: %v.", id, err)
		return 0, err
	}
	return id, nil
}

//Update overwrites the stored trigger with the same ID, returning false if it no longer exists
func (db *Connection) Update(ctx context.Context, t guildmodels.Trigger) (bool, error) {
	if err := ctxDone(ctx); err != nil {
		return false, err
	}
	//Every field is written, so an update leaves the row identical to t. Unlike replace it will not recreate a row
	//that was deleted in the meantime.
	resp, err := checkWrite(rethink.Table(triggersTable).Get(t.ID).Update(t).RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error updating trigger %v: %v.", t.ID, err)
		return false, err
	}
	return resp.Skipped == 0, nil
}

//Delete removes the trigger with a given ID, returning false if it did not exist
func (db *Connection) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctxDone(ctx); err != nil {
		return false, err
	}
	resp, err := checkWrite(rethink.Table(triggersTable).Get(id).Delete().RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error deleting trigger %v: %v.", id, err)
		return false, err
	}
	return resp.Deleted > 0, nil
}

//DeleteAllForGuild removes every trigger owned by a guild. An empty guild ID removes all global triggers.
func (db *Connection) DeleteAllForGuild(ctx context.Context, guildID string) (int, error) {
	if err := ctxDone(ctx); err != nil {
		return 0, err
	}
	resp, err := checkWrite(rethink.Table(triggersTable).GetAllByIndex("guild_id", guildID).Delete().RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error clearing triggers for guild %v: %v.", guildID, err)
		return 0, err
	}
	return resp.Deleted, nil
}
