package db

import (
	"sort"
	"sync"

	"github.com/callummance/hibiki/guildmodels"
)

//MemoryGuilds keeps guild settings in process memory, mirroring the guild methods of Connection
type MemoryGuilds struct {
	mu     sync.Mutex
	guilds map[string]guildmodels.DiscordGuild
}

//NewMemoryGuilds creates an empty MemoryGuilds
func NewMemoryGuilds() *MemoryGuilds {
	return &MemoryGuilds{guilds: make(map[string]guildmodels.DiscordGuild)}
}

//GetOrCreateGuild returns the settings for a guild, creating defaults if it has none
func (m *MemoryGuilds) GetOrCreateGuild(id string) (*guildmodels.DiscordGuild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.getOrCreate(id)
	return &g, nil
}

func (m *MemoryGuilds) getOrCreate(id string) guildmodels.DiscordGuild {
	g, ok := m.guilds[id]
	if !ok {
		g = guildmodels.DefaultGuild(id)
		m.guilds[id] = g
	}
	g.AdminRoles = append([]string(nil), g.AdminRoles...)
	return g
}

//AllGuilds returns the settings of every known guild
func (m *MemoryGuilds) AllGuilds() ([]guildmodels.DiscordGuild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]guildmodels.DiscordGuild, 0, len(m.guilds))
	for id := range m.guilds {
		res = append(res, m.getOrCreate(id))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].DiscordGID < res[j].DiscordGID })
	return res, nil
}

//AddAdminRole adds roleID to a guild's admin roles, returning 0 if it was already there
func (m *MemoryGuilds) AddAdminRole(gid string, roleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.getOrCreate(gid)
	for _, r := range g.AdminRoles {
		if r == roleID {
			return 0, nil
		}
	}
	g.AdminRoles = append(g.AdminRoles, roleID)
	m.guilds[gid] = g
	return 1, nil
}

//SetGuildPrefix stores the command prefix for a guild. An empty prefix clears it.
func (m *MemoryGuilds) SetGuildPrefix(gid string, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.getOrCreate(gid)
	g.Prefix = prefix
	m.guilds[gid] = g
	return nil
}
