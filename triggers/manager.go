//Package triggers owns every change to trigger definitions and keeps the in-memory caches in step with the store.
//
//Changes to a guild's triggers are applied straight to that guild's cache slot. Changes to global triggers are
//applied locally and then published on the bus so that every other shard applies them too.
package triggers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/callummance/hibiki/bus"
	"github.com/callummance/hibiki/cache"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/dlclark/regexp2"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

//Options configures a Manager
type Options struct {
	//ShardID identifies this process on the bus; events it published itself are not applied twice
	ShardID string
	//BotUserID is substituted for BotMentionPlaceholder in trigger text
	BotUserID string
	//AfterReload is called once the caches hold the result of a successful reload
	AfterReload func()
}

//Manager applies trigger mutations to the store and propagates them to the caches of every shard.
type Manager struct {
	//mu is held from a store write or snapshot until the caches reflect it, so a reload never swaps in a snapshot
	//that predates a mutation it raced with. Cache readers do not take it.
	mu           sync.Mutex
	store        Store
	scoped       *cache.ScopedCache
	global       *cache.GlobalCache
	bus          bus.Bus
	shardID      string
	placeholders *strings.Replacer
	afterReload  func()
	unsubscribe  []func()
}

//NewManager creates a Manager. Call Init before serving any reads.
func NewManager(store Store, scoped *cache.ScopedCache, global *cache.GlobalCache, b bus.Bus, opts Options) *Manager {
	return &Manager{
		store:        store,
		scoped:       scoped,
		global:       global,
		bus:          b,
		shardID:      opts.ShardID,
		placeholders: newPlaceholderReplacer(opts.BotUserID),
		afterReload:  opts.AfterReload,
	}
}

//Init subscribes to the bus and performs the initial full load
func (m *Manager) Init(ctx context.Context) error {
	m.unsubscribe = append(m.unsubscribe,
		m.bus.Subscribe(bus.TopicReload, m.handleReload),
		m.bus.Subscribe(bus.TopicGlobalAdd, m.handleGlobalUpsert),
		m.bus.Subscribe(bus.TopicGlobalEdit, m.handleGlobalUpsert),
		m.bus.Subscribe(bus.TopicGlobalDelete, m.handleGlobalDelete),
	)
	return m.Reload(ctx)
}

//Close removes the Manager's bus subscriptions
func (m *Manager) Close() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
}

//Reload re-reads every trigger from the store and replaces the contents of both caches
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	all, err := m.store.LoadAll(ctx)
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		logrus.Errorf("Failed to reload triggers from store due to error %v", err)
		return fmt.Errorf("failed to load triggers: %w", err)
	}

	byGuild := make(map[string][]guildmodels.Trigger)
	var globals []guildmodels.Trigger
	for _, t := range all {
		t = m.resolvePlaceholders(t)
		if t.IsGlobal() {
			globals = append(globals, t)
		} else {
			byGuild[t.GuildID] = append(byGuild[t.GuildID], t)
		}
	}

	for gid, ts := range byGuild {
		m.scoped.ReplaceAll(gid, ts)
	}
	for _, gid := range m.scoped.Guilds() {
		if _, ok := byGuild[gid]; !ok {
			m.scoped.Clear(gid)
		}
	}
	m.global.ReplaceAll(globals)
	if m.afterReload != nil {
		m.afterReload()
	}

	reloadsTotal.WithLabelValues("ok").Inc()
	cachedTriggers.Set(float64(len(all)))
	logrus.Infof("Loaded %d triggers (%d global) across %d guilds", len(all), len(globals), len(byGuild))
	return nil
}

//RequestReload asks every shard, including this one, to reload from the store
func (m *Manager) RequestReload(ctx context.Context) error {
	ev := bus.NewEvent(m.shardID)
	if err := m.bus.Publish(ctx, bus.TopicReload, ev); err != nil {
		return fmt.Errorf("failed to publish reload request: %w", err)
	}
	return nil
}

//RunPeriodicReload reloads from the store every interval until ctx is cancelled. This bounds how long a shard can
//stay out of date if it misses a bus event.
func (m *Manager) RunPeriodicReload(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			//Errors are already logged by Reload
			_ = m.Reload(ctx)
		}
	}
}

//Get returns a trigger from the caches if it belongs to guildID. An empty guildID looks in the global set.
func (m *Manager) Get(guildID string, id int64) mo.Option[guildmodels.Trigger] {
	if guildID == "" {
		return m.global.Find(id)
	}
	return m.scoped.Find(guildID, id)
}

//List returns every cached trigger belonging to guildID, or the global triggers if guildID is empty.
func (m *Manager) List(guildID string) []guildmodels.Trigger {
	if guildID == "" {
		return m.global.Get()
	}
	return m.scoped.Get(guildID)
}

//FindByCommandID returns the trigger registered as the application command with the given ID, looking in the
//guild's triggers first and then the global ones.
func (m *Manager) FindByCommandID(guildID, commandID string) mo.Option[guildmodels.Trigger] {
	if commandID == "" {
		return mo.None[guildmodels.Trigger]()
	}
	pred := func(t *guildmodels.Trigger) bool { return t.Interaction.CommandID == commandID }
	return m.findVisible(guildID, pred)
}

//FindByCommandName returns the trigger exposed as an application command of the given kind and full name
func (m *Manager) FindByCommandName(guildID string, kind guildmodels.CommandKind, name string) mo.Option[guildmodels.Trigger] {
	name = strings.ToLower(name)
	pred := func(t *guildmodels.Trigger) bool {
		return t.Interaction.Kind == kind && t.CommandName() == name
	}
	return m.findVisible(guildID, pred)
}

func (m *Manager) findVisible(guildID string, pred func(t *guildmodels.Trigger) bool) mo.Option[guildmodels.Trigger] {
	if guildID != "" {
		ts := m.scoped.Get(guildID)
		for i := range ts {
			if pred(&ts[i]) {
				return mo.Some(ts[i])
			}
		}
	}
	ts := m.global.Get()
	for i := range ts {
		if pred(&ts[i]) {
			return mo.Some(ts[i])
		}
	}
	return mo.None[guildmodels.Trigger]()
}

//Add creates a new trigger owned by guildID (or a global trigger if guildID is empty) from the template t.
func (m *Manager) Add(ctx context.Context, guildID string, t guildmodels.Trigger) (guildmodels.Trigger, error) {
	t = t.Clone()
	t.ID = 0
	t.GuildID = guildID
	if t.ValidEvents == 0 {
		t.ValidEvents = guildmodels.EventAll
	}
	t.Normalize()
	if err := validate(&t); err != nil {
		return guildmodels.Trigger{}, err
	}

	m.mu.Lock()
	id, err := m.store.Insert(ctx, t)
	if err != nil {
		m.mu.Unlock()
		logrus.Errorf("Failed to insert new trigger for guild %v due to error %v", guildID, err)
		return guildmodels.Trigger{}, fmt.Errorf("failed to insert trigger: %w", err)
	}
	t.ID = id
	m.cacheUpsert(t)
	m.mu.Unlock()

	m.publishUpsert(ctx, bus.TopicGlobalAdd, t)
	mutationsTotal.WithLabelValues("add", scopeLabel(guildID)).Inc()
	return t, nil
}

//Delete removes a trigger. Deleting a trigger that does not exist, or that belongs to another scope, returns None.
func (m *Manager) Delete(ctx context.Context, guildID string, id int64) (mo.Option[guildmodels.Trigger], error) {
	removed, err := m.remove(ctx, guildID, id)
	if err != nil || removed.IsAbsent() {
		return removed, err
	}
	if t := removed.MustGet(); t.IsGlobal() {
		ev := bus.NewEvent(m.shardID)
		ev.TriggerID = id
		m.publish(ctx, bus.TopicGlobalDelete, ev)
	}
	mutationsTotal.WithLabelValues("delete", scopeLabel(guildID)).Inc()
	return removed, nil
}

//remove deletes a trigger from the store and the local cache
func (m *Manager) remove(ctx context.Context, guildID string, id int64) (mo.Option[guildmodels.Trigger], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, err := m.lookup(ctx, guildID, id)
	if err != nil || cur.IsAbsent() {
		return cur, err
	}
	t := cur.MustGet()

	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		logrus.Errorf("Failed to delete trigger %v due to error %v", id, err)
		return mo.None[guildmodels.Trigger](), fmt.Errorf("failed to delete trigger %v: %w", id, err)
	}
	//Evict even if someone else got there first so that we are not still holding it
	m.evict(t)
	if !deleted {
		return mo.None[guildmodels.Trigger](), nil
	}
	return cur, nil
}

//ClearGuild deletes every trigger owned by guildID, returning how many were removed. Clearing the global scope
//asks every shard to reload.
func (m *Manager) ClearGuild(ctx context.Context, guildID string) (int, error) {
	m.mu.Lock()
	count, err := m.store.DeleteAllForGuild(ctx, guildID)
	if err != nil {
		m.mu.Unlock()
		logrus.Errorf("Failed to clear triggers for guild %v due to error %v", guildID, err)
		return 0, fmt.Errorf("failed to clear triggers: %w", err)
	}
	if guildID == "" {
		m.global.ReplaceAll(nil)
	} else {
		m.scoped.Clear(guildID)
	}
	m.mu.Unlock()

	if guildID == "" {
		m.publish(ctx, bus.TopicReload, bus.NewEvent(m.shardID))
	}
	mutationsTotal.WithLabelValues("clear", scopeLabel(guildID)).Inc()
	return count, nil
}

//Edit applies fn to a copy of the trigger and writes the result back. fn may return an error wrapping ErrInvalid
//to reject the change. The returned option is None if no such trigger exists in guildID.
func (m *Manager) Edit(ctx context.Context, guildID string, id int64, fn func(t *guildmodels.Trigger) error) (mo.Option[guildmodels.Trigger], error) {
	m.mu.Lock()
	cur, err := m.lookup(ctx, guildID, id)
	if err != nil || cur.IsAbsent() {
		m.mu.Unlock()
		return cur, err
	}
	t := cur.MustGet().Clone()
	if err := fn(&t); err != nil {
		m.mu.Unlock()
		return mo.None[guildmodels.Trigger](), err
	}
	//ID and scope are fixed at creation
	t.ID = id
	t.GuildID = cur.MustGet().GuildID
	t.Normalize()
	if err := validate(&t); err != nil {
		m.mu.Unlock()
		return mo.None[guildmodels.Trigger](), err
	}

	updated, err := m.store.Update(ctx, t)
	if err != nil {
		m.mu.Unlock()
		logrus.Errorf("Failed to update trigger %v due to error %v", id, err)
		return mo.None[guildmodels.Trigger](), fmt.Errorf("failed to update trigger %v: %w", id, err)
	}
	if !updated {
		//Deleted since the lookup, most likely by another shard
		m.evict(t)
		m.mu.Unlock()
		return mo.None[guildmodels.Trigger](), nil
	}
	m.cacheUpsert(t)
	m.mu.Unlock()

	m.publishUpsert(ctx, bus.TopicGlobalEdit, t)
	mutationsTotal.WithLabelValues("edit", scopeLabel(guildID)).Inc()
	return mo.Some(t), nil
}

//lookup fetches the current row for id, treating a trigger from any other scope as not found.
func (m *Manager) lookup(ctx context.Context, guildID string, id int64) (mo.Option[guildmodels.Trigger], error) {
	cur, err := m.store.Get(ctx, id)
	if err != nil {
		logrus.Warnf("Failed to look up trigger %v due to error %v", id, err)
		return mo.None[guildmodels.Trigger](), fmt.Errorf("failed to look up trigger %v: %w", id, err)
	}
	if t, ok := cur.Get(); !ok || t.GuildID != guildID {
		return mo.None[guildmodels.Trigger](), nil
	}
	return cur, nil
}

//cacheUpsert writes t to the local cache. It must be called with m.mu held.
func (m *Manager) cacheUpsert(t guildmodels.Trigger) {
	resolved := m.resolvePlaceholders(t)
	if t.IsGlobal() {
		m.global.Upsert(resolved)
	} else {
		m.scoped.Upsert(t.GuildID, resolved)
	}
}

//publishUpsert tells the other shards about a changed global trigger
func (m *Manager) publishUpsert(ctx context.Context, topic bus.Topic, t guildmodels.Trigger) {
	if !t.IsGlobal() {
		return
	}
	ev := bus.NewEvent(m.shardID)
	published := t.Clone()
	ev.Trigger = &published
	m.publish(ctx, topic, ev)
}

func (m *Manager) evict(t guildmodels.Trigger) {
	if t.IsGlobal() {
		m.global.Remove(t.ID)
	} else {
		m.scoped.Remove(t.GuildID, t.ID)
	}
}

//publish sends a global change to the other shards. The store write has already succeeded by this point, so a
//failure here only delays the other shards until their next full reload.
func (m *Manager) publish(ctx context.Context, topic bus.Topic, ev bus.Event) {
	if err := m.bus.Publish(ctx, topic, ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"topic":    topic,
			"event_id": ev.ID,
		}).Warnf("Failed to publish trigger change to other shards due to error %v", err)
	}
}

func (m *Manager) handleReload(ctx context.Context, ev bus.Event) {
	busEventsTotal.WithLabelValues(string(ev.Topic)).Inc()
	logrus.Infof("Reloading triggers as requested by shard %v", ev.Origin)
	//Errors are already logged by Reload
	_ = m.Reload(ctx)
}

func (m *Manager) handleGlobalUpsert(_ context.Context, ev bus.Event) {
	if ev.Origin == m.shardID {
		return
	}
	busEventsTotal.WithLabelValues(string(ev.Topic)).Inc()
	if ev.Trigger == nil || !ev.Trigger.IsGlobal() {
		logrus.Warnf("Ignoring %v event %v as it does not carry a global trigger", ev.Topic, ev.ID)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global.Upsert(m.resolvePlaceholders(*ev.Trigger))
}

func (m *Manager) handleGlobalDelete(_ context.Context, ev bus.Event) {
	if ev.Origin == m.shardID {
		return
	}
	busEventsTotal.WithLabelValues(string(ev.Topic)).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global.Remove(ev.TriggerID)
}

func validate(t *guildmodels.Trigger) error {
	if t.Trigger == "" {
		return fmt.Errorf("%w: trigger text may not be empty", ErrInvalid)
	}
	if t.PrefixType == guildmodels.PrefixCustom && t.CustomPrefix == "" {
		return fmt.Errorf("%w: a custom prefix type needs a prefix to be set", ErrInvalid)
	}
	if t.IsRegex {
		if _, err := regexp2.Compile(t.Trigger, regexp2.IgnoreCase); err != nil {
			return fmt.Errorf("%w: %v is not a valid regex: %v", ErrInvalid, t.Trigger, err)
		}
	}
	if t.Crosspost.WebhookURL != "" && t.Crosspost.ChannelID != "" {
		return fmt.Errorf("%w: a trigger may crosspost to a webhook or a channel, not both", ErrInvalid)
	}
	return nil
}
