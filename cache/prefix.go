package cache

import (
	"strings"
	"sync"

	"github.com/samber/mo"
)

//PrefixCache holds the command prefix configured for each guild so that the matcher never needs to hit the database.
type PrefixCache struct {
	prefixes sync.Map // guild id -> string
}

//NewPrefixCache creates an empty PrefixCache
func NewPrefixCache() *PrefixCache {
	return &PrefixCache{}
}

//PrefixFor returns the prefix configured for a guild, or None if the guild has not set one.
func (c *PrefixCache) PrefixFor(guildID string) mo.Option[string] {
	if guildID == "" {
		return mo.None[string]()
	}
	p, ok := c.prefixes.Load(guildID)
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(p.(string))
}

//Set records a guild's prefix. An empty prefix removes it.
func (c *PrefixCache) Set(guildID, prefix string) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		c.prefixes.Delete(guildID)
		return
	}
	c.prefixes.Store(guildID, prefix)
}
