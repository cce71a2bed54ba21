package guildmodels

import "strings"

//Trigger represents a single automated response configured either for one guild or globally.
//Values stored in a cache must be treated as immutable; use Clone before changing anything.
type Trigger struct {
	ID            int64           `gorethink:"id"`
	GuildID       string          `gorethink:"guild_id"`
	Trigger       string          `gorethink:"trigger"`
	IsRegex       bool            `gorethink:"is_regex"`
	Response      string          `gorethink:"response"`
	PrefixType    PrefixType      `gorethink:"prefix_type"`
	CustomPrefix  string          `gorethink:"custom_prefix"`
	Flags         MatchFlags      `gorethink:"flags"`
	RoleGrantMode RoleGrantMode   `gorethink:"role_grant_mode"`
	GrantedRoles  []string        `gorethink:"granted_roles"`
	RemovedRoles  []string        `gorethink:"removed_roles"`
	Reactions     []string        `gorethink:"reactions"`
	ValidEvents   EventType       `gorethink:"valid_events"`
	Interaction   InteractionMeta `gorethink:"interaction"`
	Crosspost     Crosspost       `gorethink:"crosspost"`
}

//IsGlobal returns true if the trigger is not owned by any guild
func (t *Trigger) IsGlobal() bool {
	return t.GuildID == ""
}

//Clone returns a deep copy of the trigger so that it can be changed without affecting readers of the original.
func (t Trigger) Clone() Trigger {
	t.GrantedRoles = cloneStrings(t.GrantedRoles)
	t.RemovedRoles = cloneStrings(t.RemovedRoles)
	t.Reactions = cloneStrings(t.Reactions)
	return t
}

//Normalize lowercases literal trigger text. Regex patterns are kept as written since lowercasing them would change
//the meaning of escapes such as \S or \D; they are compiled case-insensitively instead.
func (t *Trigger) Normalize() {
	t.Trigger = strings.TrimSpace(t.Trigger)
	if !t.IsRegex {
		t.Trigger = strings.ToLower(t.Trigger)
	}
	t.CustomPrefix = strings.ToLower(t.CustomPrefix)
	t.Interaction.Name = strings.ToLower(strings.TrimSpace(t.Interaction.Name))
}

//AcceptsEvent returns true iff the trigger has declared that it may be run by the given event type
func (t *Trigger) AcceptsEvent(ev EventType) bool {
	return t.ValidEvents&ev != 0
}

//CommandName returns the full name the trigger will be registered under as an application command.
func (t *Trigger) CommandName() string {
	if t.Interaction.Name != "" {
		return t.Interaction.Name
	}
	return t.Trigger
}

//RoleGrant returns the RoleGrant rule described by this trigger
func (t *Trigger) RoleGrant() RoleGrant {
	return RoleGrant{
		Mode:    t.RoleGrantMode,
		Granted: t.GrantedRoles,
		Removed: t.RemovedRoles,
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

//PrefixType determines which prefix, if any, a message must start with before a trigger is considered
type PrefixType int

const (
	//PrefixNone means the trigger text must appear without any prefix
	PrefixNone PrefixType = iota
	//PrefixCustom uses the trigger's own CustomPrefix
	PrefixCustom
	//PrefixGuildOrNone uses the guild's prefix, and never matches if the guild has not set one
	PrefixGuildOrNone
	//PrefixGuildOrDefault uses the guild's prefix, falling back to the bot default
	PrefixGuildOrDefault
	//PrefixDefault always uses the bot default prefix
	PrefixDefault
)

var prefixTypeNames = map[string]PrefixType{
	"none":           PrefixNone,
	"custom":         PrefixCustom,
	"guild":          PrefixGuildOrNone,
	"guildordefault": PrefixGuildOrDefault,
	"default":        PrefixDefault,
}

//ParsePrefixType converts a user supplied name into a PrefixType
func ParsePrefixType(name string) (PrefixType, bool) {
	pt, ok := prefixTypeNames[strings.ToLower(name)]
	return pt, ok
}

func (p PrefixType) String() string {
	for name, pt := range prefixTypeNames {
		if pt == p {
			return name
		}
	}
	return "unknown"
}

//MatchFlags holds the independent boolean options on a trigger
type MatchFlags struct {
	ContainsAnywhere  bool `gorethink:"contains_anywhere"`
	AllowTarget       bool `gorethink:"allow_target"`
	DMResponse        bool `gorethink:"dm_response"`
	AutoDeleteTrigger bool `gorethink:"auto_delete_trigger"`
	ReactToTrigger    bool `gorethink:"react_to_trigger"`
	NoRespond         bool `gorethink:"no_respond"`
}

//Flag names a single field of MatchFlags
type Flag string

const (
	FlagContainsAnywhere  Flag = "containsanywhere"
	FlagAllowTarget       Flag = "allowtarget"
	FlagDMResponse        Flag = "dmresponse"
	FlagAutoDeleteTrigger Flag = "autodelete"
	FlagReactToTrigger    Flag = "reacttotrigger"
	FlagNoRespond         Flag = "norespond"
)

func (f *MatchFlags) field(flag Flag) *bool {
	switch flag {
	case FlagContainsAnywhere:
		return &f.ContainsAnywhere
	case FlagAllowTarget:
		return &f.AllowTarget
	case FlagDMResponse:
		return &f.DMResponse
	case FlagAutoDeleteTrigger:
		return &f.AutoDeleteTrigger
	case FlagReactToTrigger:
		return &f.ReactToTrigger
	case FlagNoRespond:
		return &f.NoRespond
	default:
		return nil
	}
}

//Toggle flips the named flag and returns its new value. ok is false if the flag name is unknown.
func (f *MatchFlags) Toggle(flag Flag) (value bool, ok bool) {
	p := f.field(flag)
	if p == nil {
		return false, false
	}
	*p = !*p
	return *p, true
}

//Get returns the current value of the named flag
func (f MatchFlags) Get(flag Flag) bool {
	p := f.field(flag)
	return p != nil && *p
}

//EventType is a set of bit flags over the kinds of event a trigger can respond to
type EventType uint8

const (
	EventMessage EventType = 1 << iota
	EventSlash
	EventButton

	//EventAll is the default set for newly created triggers
	EventAll = EventMessage | EventSlash | EventButton
)

//ParseEventType converts a user supplied name into a single EventType flag
func ParseEventType(name string) (EventType, bool) {
	switch strings.ToLower(name) {
	case "message", "msg":
		return EventMessage, true
	case "slash", "interaction":
		return EventSlash, true
	case "button":
		return EventButton, true
	default:
		return 0, false
	}
}

func (e EventType) String() string {
	var names []string
	if e&EventMessage != 0 {
		names = append(names, "message")
	}
	if e&EventSlash != 0 {
		names = append(names, "slash")
	}
	if e&EventButton != 0 {
		names = append(names, "button")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

//CommandKind is the kind of application command a trigger is exposed as
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandSlash
	CommandMessage
	CommandUser
)

//ParseCommandKind converts a user supplied name into a CommandKind
func ParseCommandKind(name string) (CommandKind, bool) {
	switch strings.ToLower(name) {
	case "none", "off":
		return CommandNone, true
	case "slash":
		return CommandSlash, true
	case "message":
		return CommandMessage, true
	case "user":
		return CommandUser, true
	default:
		return CommandNone, false
	}
}

func (k CommandKind) String() string {
	switch k {
	case CommandSlash:
		return "slash"
	case CommandMessage:
		return "message"
	case CommandUser:
		return "user"
	default:
		return "none"
	}
}

//InteractionMeta describes how a trigger is exposed as an application command
type InteractionMeta struct {
	Kind        CommandKind `gorethink:"kind"`
	Name        string      `gorethink:"name"`
	Description string      `gorethink:"description"`
	Ephemeral   bool        `gorethink:"ephemeral"`
	//CommandID is the ID discord assigned to the registered command, if any
	CommandID string `gorethink:"command_id"`
}

//Crosspost holds where a copy of each response should be sent. At most one of the fields is set.
type Crosspost struct {
	WebhookURL string `gorethink:"webhook_url"`
	ChannelID  string `gorethink:"channel_id"`
}

//SetWebhook points the crosspost at a webhook, clearing any channel
func (c *Crosspost) SetWebhook(url string) {
	c.WebhookURL = url
	c.ChannelID = ""
}

//SetChannel points the crosspost at a channel, clearing any webhook
func (c *Crosspost) SetChannel(channelID string) {
	c.ChannelID = channelID
	c.WebhookURL = ""
}

//IsSet returns true if either crosspost target is populated
func (c Crosspost) IsSet() bool {
	return c.WebhookURL != "" || c.ChannelID != ""
}
