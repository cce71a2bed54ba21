//Package cache holds the in-memory views of trigger definitions shared by the matcher and the mutation manager.
//
//Every slot is an immutable slice behind an atomic pointer. Writers build a new slice and swap it in while holding
//a mutex, so readers never block and always see either the old or the new slice in full.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
)

//slot is a single swappable trigger list
type slot struct {
	triggers atomic.Pointer[[]guildmodels.Trigger]
}

func (s *slot) load() []guildmodels.Trigger {
	p := s.triggers.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (s *slot) store(ts []guildmodels.Trigger) {
	s.triggers.Store(&ts)
}

//upsert must be called with the owning cache's write lock held
func (s *slot) upsert(t guildmodels.Trigger) {
	old := s.load()
	next := make([]guildmodels.Trigger, 0, len(old)+1)
	replaced := false
	for _, existing := range old {
		if existing.ID == t.ID {
			next = append(next, t)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, t)
	}
	s.store(next)
}

//remove must be called with the owning cache's write lock held
func (s *slot) remove(id int64) bool {
	old := s.load()
	idx := -1
	for i := range old {
		if old[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	next := make([]guildmodels.Trigger, 0, len(old)-1)
	next = append(next, old[:idx]...)
	next = append(next, old[idx+1:]...)
	s.store(next)
	return true
}

func find(ts []guildmodels.Trigger, id int64) mo.Option[guildmodels.Trigger] {
	for _, t := range ts {
		if t.ID == id {
			return mo.Some(t)
		}
	}
	return mo.None[guildmodels.Trigger]()
}

func cloneAll(ts []guildmodels.Trigger) []guildmodels.Trigger {
	res := make([]guildmodels.Trigger, len(ts))
	for i := range ts {
		res[i] = ts[i].Clone()
	}
	return res
}

//ScopedCache holds one trigger list per guild.
type ScopedCache struct {
	mu    sync.Mutex
	slots sync.Map // guild id -> *slot
}

//NewScopedCache creates an empty ScopedCache
func NewScopedCache() *ScopedCache {
	return &ScopedCache{}
}

func (c *ScopedCache) slot(guildID string) *slot {
	s, ok := c.slots.Load(guildID)
	if !ok {
		return nil
	}
	return s.(*slot)
}

//slotForWrite must be called with c.mu held
func (c *ScopedCache) slotForWrite(guildID string) *slot {
	s, _ := c.slots.LoadOrStore(guildID, &slot{})
	return s.(*slot)
}

//Get returns the triggers for a guild. The returned slice and the triggers in it must not be modified.
func (c *ScopedCache) Get(guildID string) []guildmodels.Trigger {
	s := c.slot(guildID)
	if s == nil {
		return nil
	}
	return s.load()
}

//Find returns the trigger with the given id in a guild, if cached
func (c *ScopedCache) Find(guildID string, id int64) mo.Option[guildmodels.Trigger] {
	return find(c.Get(guildID), id)
}

//Upsert replaces the trigger with the same ID in the guild's list, or appends it if there is none.
func (c *ScopedCache) Upsert(guildID string, t guildmodels.Trigger) {
	t = t.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slotForWrite(guildID).upsert(t)
}

//Remove evicts a trigger from a guild's list, returning false if it was not present.
func (c *ScopedCache) Remove(guildID string, id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slot(guildID)
	if s == nil {
		return false
	}
	return s.remove(id)
}

//ReplaceAll swaps out a guild's entire trigger list
func (c *ScopedCache) ReplaceAll(guildID string, ts []guildmodels.Trigger) {
	next := cloneAll(ts)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slotForWrite(guildID).store(next)
}

//Clear drops a guild's trigger list entirely
func (c *ScopedCache) Clear(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots.Delete(guildID)
}

//Guilds lists every guild which currently has a slot in the cache
func (c *ScopedCache) Guilds() []string {
	var res []string
	c.slots.Range(func(key, _ interface{}) bool {
		res = append(res, key.(string))
		return true
	})
	return res
}

//GlobalCache holds the triggers which are visible in every guild
type GlobalCache struct {
	mu sync.Mutex
	s  slot
}

//NewGlobalCache creates an empty GlobalCache
func NewGlobalCache() *GlobalCache {
	return &GlobalCache{}
}

//Get returns all global triggers. The returned slice and the triggers in it must not be modified.
func (c *GlobalCache) Get() []guildmodels.Trigger {
	return c.s.load()
}

//Find returns the global trigger with the given id, if cached
func (c *GlobalCache) Find(id int64) mo.Option[guildmodels.Trigger] {
	return find(c.Get(), id)
}

//Upsert replaces the global trigger with the same ID, or appends it if there is none.
func (c *GlobalCache) Upsert(t guildmodels.Trigger) {
	t = t.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.upsert(t)
}

//Remove evicts a global trigger, returning false if it was not present.
func (c *GlobalCache) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.remove(id)
}

//ReplaceAll swaps out the entire global trigger list
func (c *GlobalCache) ReplaceAll(ts []guildmodels.Trigger) {
	next := cloneAll(ts)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.store(next)
}
