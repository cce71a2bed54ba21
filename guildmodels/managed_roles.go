package guildmodels

import "strings"

//RoleGrantMode determines who has roles granted or removed when a trigger fires
type RoleGrantMode int

const (
	//RoleGrantNone never touches roles
	RoleGrantNone RoleGrantMode = iota
	//RoleGrantMentioned applies role changes to users mentioned in the triggering message
	RoleGrantMentioned
	//RoleGrantSender applies role changes to the author of the triggering message
	RoleGrantSender
	//RoleGrantBoth applies role changes to both the author and any mentioned users
	RoleGrantBoth
)

//ParseRoleGrantMode converts a user supplied name into a RoleGrantMode
func ParseRoleGrantMode(name string) (RoleGrantMode, bool) {
	switch strings.ToLower(name) {
	case "none":
		return RoleGrantNone, true
	case "mentioned":
		return RoleGrantMentioned, true
	case "sender":
		return RoleGrantSender, true
	case "both":
		return RoleGrantBoth, true
	default:
		return RoleGrantNone, false
	}
}

func (m RoleGrantMode) String() string {
	switch m {
	case RoleGrantMentioned:
		return "mentioned"
	case RoleGrantSender:
		return "sender"
	case RoleGrantBoth:
		return "both"
	default:
		return "none"
	}
}

//IncludesMentioned returns true if mentioned users should receive role changes
func (m RoleGrantMode) IncludesMentioned() bool {
	return m == RoleGrantMentioned || m == RoleGrantBoth
}

//IncludesSender returns true if the message author should receive role changes
func (m RoleGrantMode) IncludesSender() bool {
	return m == RoleGrantSender || m == RoleGrantBoth
}

//RoleGrant represents the role changes that should be made when a trigger fires
type RoleGrant struct {
	Mode    RoleGrantMode
	Granted []string
	Removed []string
}

//IsEmpty returns true if firing the trigger would never change anyone's roles
func (g RoleGrant) IsEmpty() bool {
	return g.Mode == RoleGrantNone || (len(g.Granted) == 0 && len(g.Removed) == 0)
}

//Targets returns the user IDs which should receive role changes for a message by authorID mentioning mentionedIDs
func (g RoleGrant) Targets(authorID string, mentionedIDs []string) []string {
	var res []string
	seen := make(map[string]bool)
	add := func(uid string) {
		if uid == "" || seen[uid] {
			return
		}
		seen[uid] = true
		res = append(res, uid)
	}
	if g.Mode.IncludesSender() {
		add(authorID)
	}
	if g.Mode.IncludesMentioned() {
		for _, uid := range mentionedIDs {
			add(uid)
		}
	}
	return res
}

//ToggleRole adds roleID to roles if absent and removes it otherwise, returning a new slice.
func ToggleRole(roles []string, roleID string) []string {
	res := make([]string, 0, len(roles)+1)
	found := false
	for _, r := range roles {
		if r == roleID {
			found = true
			continue
		}
		res = append(res, r)
	}
	if !found {
		res = append(res, roleID)
	}
	return res
}
