package guildmodels

//DiscordGuild contains configuration for a discord guild managed by this bot
type DiscordGuild struct {
	DiscordGID string   `gorethink:"id"`
	AdminRoles []string `gorethink:"admin_roles"`
	//Prefix is the guild's own command prefix; empty if the guild has not configured one
	Prefix string `gorethink:"prefix"`
}

//DefaultGuild returns an otherwise-empty guild struct with a given ID
func DefaultGuild(gid string) DiscordGuild {
	return DiscordGuild{
		DiscordGID: gid,
		AdminRoles: nil,
	}
}
