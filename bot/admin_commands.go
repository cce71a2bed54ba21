package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/callummance/hibiki/matcher"
	"github.com/callummance/hibiki/triggers"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

//maxReactions is the most reactions a single trigger may add
const maxReactions = 6

const handleAddAdminRoleSyntax string = "`!addadminrole \"<role>\"` or `!addadminrole @<role>`"

const handleSetPrefixSyntax string = "`!setprefix <prefix>` or `!setprefix none`"

const handleTriggerSyntax string = "```" +
	`!trigger [global] <subcommand> [options]

	add "<trigger>" <response>        Creates a literal trigger
	addregex "<pattern>" <response>   Creates a regex trigger
	delete <id>
	list
	info <id>
	test <message>                    Shows which triggers a message would match
	response <id> <response>
	toggle <id> <flag>                containsanywhere, allowtarget, dmresponse, autodelete, reacttotrigger, norespond
	events <id> <message|slash|button>
	reactions <id> [emoji...]         Up to 6; no emoji clears them
	roles <id> <grant|remove> <role>
	rolemode <id> <none|mentioned|sender|both>
	prefix <id> <none|custom|guild|guildordefault|default> [prefix]
	command <id> kind <none|slash|message|user>
	command <id> name <name>
	command <id> description <text>
	command <id> ephemeral
	crosspost <id> <webhook <url>|channel <#channel>|off>
	button <id> <label>               Posts a button which runs the trigger
	clear confirm                     Deletes every trigger
	reload                            Reloads triggers on every shard
	sync                              Registers application commands

"global" manages triggers visible in every server and may only be used by the bot developer.` +
	"```"

//triggerCommand holds the context of a single !trigger invocation
type triggerCommand struct {
	b   *HibikiBot
	msg *discordgo.MessageCreate
	//scope is the guild whose triggers are being managed, or empty for the global triggers
	scope     string
	command   string
	timestamp time.Time
}

//handleTriggerCommand handles a message starting with the !trigger command
//syntax: !trigger [global] <subcommand> [options]
func (b *HibikiBot) handleTriggerCommand(msg *discordgo.MessageCreate, args string) HibikiResponse {
	c := triggerCommand{
		b:         b,
		msg:       msg,
		scope:     msg.GuildID,
		command:   "!trigger",
		timestamp: time.Now(),
	}

	sub, rest, ok := nextArg(args)
	if ok && strings.EqualFold(sub, "global") {
		if b.cfg.Discord.DevUID == "" {
			return HibikiResponseFeatureNotEnabled{
				command:         c.command,
				commandMsg:      msg.Content,
				disabledFeature: "global trigger management (no developer user configured)",
				timestamp:       c.timestamp,
			}
		}
		if !b.isDev(msg.Author.ID) {
			return c.notAllowed("Only the bot developer may manage global triggers")
		}
		c.scope = ""
		sub, rest, ok = nextArg(rest)
	} else {
		if msg.GuildID == "" {
			return c.syntaxError("Triggers can only be managed from within a server", handleTriggerSyntax)
		}
		isFromAdmin, err := b.isFromAdmin(msg.Member, msg.Author, msg.GuildID)
		if err != nil {
			logrus.Warnf("Failed to check if message came from admin due to error %v", err)
			return c.internalError(err)
		}
		if !isFromAdmin {
			return c.notAllowed("You need an admin role to manage triggers")
		}
	}
	if !ok {
		return c.syntaxError("No subcommand was given", handleTriggerSyntax)
	}

	sub = strings.ToLower(sub)
	c.command = "!trigger " + sub
	switch sub {
	case "add":
		return c.add(rest, false)
	case "addregex":
		return c.add(rest, true)
	case "list":
		return c.list()
	case "test":
		return c.test(rest)
	case "clear":
		return c.clear(rest)
	case "reload":
		return c.reload()
	case "sync":
		return c.sync()
	}

	idStr, rest, ok := nextArg(rest)
	id, validID := parseTriggerID(idStr)
	if !ok || !validID {
		return c.syntaxError(fmt.Sprintf("%q is not a trigger ID", idStr), handleTriggerSyntax)
	}
	switch sub {
	case "delete", "remove":
		return c.delete(id)
	case "info":
		return c.info(id)
	case "response":
		return c.editResult(b.manager.SetResponse(b.ctx, c.scope, id, rest))
	case "toggle":
		return c.toggle(id, rest)
	case "events":
		return c.events(id, rest)
	case "reactions":
		return c.reactions(id, rest)
	case "roles":
		return c.roles(id, rest)
	case "rolemode":
		return c.roleMode(id, rest)
	case "prefix":
		return c.prefix(id, rest)
	case "command":
		return c.interaction(id, rest)
	case "crosspost":
		return c.crosspost(id, rest)
	case "button":
		return c.button(id, rest)
	default:
		return c.syntaxError(fmt.Sprintf("Unknown subcommand %q", sub), handleTriggerSyntax)
	}
}

func (c triggerCommand) add(args string, regex bool) HibikiResponse {
	text, response, ok := nextArg(args)
	if !ok {
		return c.syntaxError("No trigger text was given", handleTriggerSyntax)
	}
	created, err := c.b.manager.Add(c.b.ctx, c.scope, guildmodels.Trigger{
		Trigger:  text,
		IsRegex:  regex,
		Response: response,
	})
	if errors.Is(err, triggers.ErrInvalid) {
		return c.syntaxError(err.Error(), handleTriggerSyntax)
	} else if err != nil {
		return c.internalError(err)
	}
	return c.success(fmt.Sprintf("Created trigger #%d", created.ID))
}

func (c triggerCommand) delete(id int64) HibikiResponse {
	deleted, err := c.b.manager.Delete(c.b.ctx, c.scope, id)
	if err != nil {
		return c.internalError(err)
	}
	if deleted.IsAbsent() {
		return c.notFound(id)
	}
	return c.success(fmt.Sprintf("Deleted trigger #%d", id))
}

func (c triggerCommand) list() HibikiResponse {
	all := c.b.manager.List(c.scope)
	fields := make([]*discordgo.MessageEmbedField, 0, len(all))
	for i := range all {
		fields = append(fields, summaryField(&all[i]))
	}
	return c.infoResponse("Triggers", fmt.Sprintf("%d triggers configured", len(all)), fields)
}

func (c triggerCommand) info(id int64) HibikiResponse {
	t, ok := c.b.manager.Get(c.scope, id).Get()
	if !ok {
		return c.notFound(id)
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Trigger", Value: orNone(t.Trigger)},
		{Name: "Regex", Value: fmt.Sprint(t.IsRegex), Inline: true},
		{Name: "Prefix", Value: prefixSummary(&t), Inline: true},
		{Name: "Events", Value: t.ValidEvents.String(), Inline: true},
		{Name: "Response", Value: orNone(t.Response)},
		{Name: "Flags", Value: flagSummary(t.Flags)},
		{Name: "Reactions", Value: orNone(strings.Join(t.Reactions, " "))},
		{Name: "Roles", Value: fmt.Sprintf("mode %v, grants %v, removes %v", t.RoleGrantMode, roleList(t.GrantedRoles), roleList(t.RemovedRoles))},
		{Name: "Command", Value: fmt.Sprintf("%v `%v` (ephemeral: %v)", t.Interaction.Kind, t.CommandName(), t.Interaction.Ephemeral)},
	}
	if t.Crosspost.IsSet() {
		target := t.Crosspost.WebhookURL
		if t.Crosspost.ChannelID != "" {
			target = "<#" + t.Crosspost.ChannelID + ">"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Crosspost", Value: target})
	}
	return c.infoResponse(fmt.Sprintf("Trigger #%d", t.ID), "", fields)
}

func (c triggerCommand) test(text string) HibikiResponse {
	if strings.TrimSpace(text) == "" {
		return c.syntaxError("No message to test was given", handleTriggerSyntax)
	}
	candidates := c.b.matcher.Candidates(matcher.Event{
		Text:    text,
		GuildID: c.msg.GuildID,
		Type:    guildmodels.EventMessage,
	}, c.b.manager.List(c.scope))
	fields := make([]*discordgo.MessageEmbedField, 0, len(candidates))
	for i := range candidates {
		f := summaryField(&candidates[i].Trigger)
		if candidates[i].Target != "" {
			f.Value += fmt.Sprintf("\ntarget: %v", candidates[i].Target)
		}
		fields = append(fields, f)
	}
	description := "No triggers would match that message"
	if len(candidates) > 1 {
		description = fmt.Sprintf("%d triggers match; one is picked at random", len(candidates))
	} else if len(candidates) == 1 {
		description = "One trigger matches"
	}
	return c.infoResponse("Matching triggers", description, fields)
}

func (c triggerCommand) toggle(id int64, args string) HibikiResponse {
	flag, _, ok := nextArg(args)
	if !ok {
		return c.syntaxError("No flag was given", handleTriggerSyntax)
	}
	return c.editResult(c.b.manager.ToggleFlag(c.b.ctx, c.scope, id, guildmodels.Flag(strings.ToLower(flag))))
}

func (c triggerCommand) events(id int64, args string) HibikiResponse {
	name, _, _ := nextArg(args)
	ev, ok := guildmodels.ParseEventType(name)
	if !ok {
		return c.syntaxError(fmt.Sprintf("%q is not an event type", name), handleTriggerSyntax)
	}
	return c.editResult(c.b.manager.ToggleValidEvent(c.b.ctx, c.scope, id, ev))
}

func (c triggerCommand) reactions(id int64, args string) HibikiResponse {
	fields := strings.Fields(args)
	if len(fields) > maxReactions {
		return c.syntaxError(fmt.Sprintf("A trigger may add at most %d reactions", maxReactions), handleTriggerSyntax)
	}
	reactions := make([]string, 0, len(fields))
	for _, f := range fields {
		emoji, ok := interpretEmoji(f)
		if !ok {
			return c.syntaxError(fmt.Sprintf("%q is not an emoji", f), handleTriggerSyntax)
		}
		reactions = append(reactions, emoji)
	}
	return c.editResult(c.b.manager.SetReactions(c.b.ctx, c.scope, id, reactions))
}

func (c triggerCommand) roles(id int64, args string) HibikiResponse {
	if c.scope == "" {
		return c.syntaxError("Global triggers cannot change roles", handleTriggerSyntax)
	}
	action, roleStr, ok := nextArg(args)
	if !ok || roleStr == "" {
		return c.syntaxError("Expected grant or remove followed by a role", handleTriggerSyntax)
	}
	role, err := c.b.interpretRoleString(roleStr, c.scope)
	if err != nil {
		return c.syntaxError(err.Error(), handleTriggerSyntax)
	}
	if role == nil {
		return HibikiResponseNotFound{command: c.command, commandMsg: c.msg.Content, subject: "role " + roleStr, timestamp: c.timestamp}
	}
	switch strings.ToLower(action) {
	case "grant":
		return c.editResult(c.b.manager.ToggleGrantedRole(c.b.ctx, c.scope, id, role.ID))
	case "remove":
		return c.editResult(c.b.manager.ToggleRemovedRole(c.b.ctx, c.scope, id, role.ID))
	default:
		return c.syntaxError(fmt.Sprintf("Expected grant or remove but got %q", action), handleTriggerSyntax)
	}
}

func (c triggerCommand) roleMode(id int64, args string) HibikiResponse {
	name, _, _ := nextArg(args)
	mode, ok := guildmodels.ParseRoleGrantMode(name)
	if !ok {
		return c.syntaxError(fmt.Sprintf("%q is not a role mode", name), handleTriggerSyntax)
	}
	return c.editResult(c.b.manager.SetRoleGrantMode(c.b.ctx, c.scope, id, mode))
}

func (c triggerCommand) prefix(id int64, args string) HibikiResponse {
	name, rest, _ := nextArg(args)
	pt, ok := guildmodels.ParsePrefixType(name)
	if !ok {
		return c.syntaxError(fmt.Sprintf("%q is not a prefix type", name), handleTriggerSyntax)
	}
	custom, _, _ := nextArg(rest)
	return c.editResult(c.b.manager.SetPrefixType(c.b.ctx, c.scope, id, pt, custom))
}

func (c triggerCommand) interaction(id int64, args string) HibikiResponse {
	field, rest, _ := nextArg(args)
	ctx := c.b.ctx
	switch strings.ToLower(field) {
	case "kind":
		name, _, _ := nextArg(rest)
		kind, ok := guildmodels.ParseCommandKind(name)
		if !ok {
			return c.syntaxError(fmt.Sprintf("%q is not a command kind", name), handleTriggerSyntax)
		}
		return c.editResult(c.b.manager.SetInteractionKind(ctx, c.scope, id, kind))
	case "name":
		return c.editResult(c.b.manager.SetInteractionName(ctx, c.scope, id, strings.Trim(rest, `"`)))
	case "description":
		return c.editResult(c.b.manager.SetInteractionDescription(ctx, c.scope, id, rest))
	case "ephemeral":
		cur, ok := c.b.manager.Get(c.scope, id).Get()
		if !ok {
			return c.notFound(id)
		}
		return c.editResult(c.b.manager.SetInteractionEphemeral(ctx, c.scope, id, !cur.Interaction.Ephemeral))
	default:
		return c.syntaxError(fmt.Sprintf("%q is not a command setting", field), handleTriggerSyntax)
	}
}

func (c triggerCommand) crosspost(id int64, args string) HibikiResponse {
	kind, target, _ := nextArg(args)
	ctx := c.b.ctx
	switch strings.ToLower(kind) {
	case "webhook":
		return c.editResult(c.b.manager.SetCrosspostWebhook(ctx, c.scope, id, strings.TrimSpace(target)))
	case "channel":
		channelID, ok := interpretChannel(target)
		if !ok {
			return c.syntaxError(fmt.Sprintf("%q is not a channel", target), handleTriggerSyntax)
		}
		return c.editResult(c.b.manager.SetCrosspostChannel(ctx, c.scope, id, channelID))
	case "off", "none":
		return c.editResult(c.b.manager.SetCrosspostChannel(ctx, c.scope, id, ""))
	default:
		return c.syntaxError("Expected webhook, channel or off", handleTriggerSyntax)
	}
}

func (c triggerCommand) button(id int64, label string) HibikiResponse {
	t, ok := c.b.manager.Get(c.scope, id).Get()
	if !ok {
		return c.notFound(id)
	}
	if label == "" {
		label = t.CommandName()
	}
	_, err := c.b.session.ChannelMessageSendComplex(c.msg.ChannelID, &discordgo.MessageSend{
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    label,
					Style:    discordgo.PrimaryButton,
					CustomID: fmt.Sprintf("%v%d", buttonPrefix, id),
				},
			}},
		},
	})
	if err != nil {
		return c.internalError(err)
	}
	if !t.AcceptsEvent(guildmodels.EventButton) {
		return HibikiResponsePartialSuccess{
			command:     c.command,
			commandMsg:  c.msg.Content,
			description: "The button was posted but the trigger does not accept button events",
			data:        map[string]string{"Fix": fmt.Sprintf("`!trigger events %d button`", id)},
			timestamp:   c.timestamp,
		}
	}
	return c.success(fmt.Sprintf("Posted a button for trigger #%d", id))
}

func (c triggerCommand) clear(args string) HibikiResponse {
	confirm, _, _ := nextArg(args)
	if !strings.EqualFold(confirm, "confirm") {
		return c.syntaxError("This deletes every trigger; add `confirm` to go ahead", handleTriggerSyntax)
	}
	n, err := c.b.manager.ClearGuild(c.b.ctx, c.scope)
	if err != nil {
		return c.internalError(err)
	}
	return c.success(fmt.Sprintf("Deleted %d triggers", n))
}

func (c triggerCommand) reload() HibikiResponse {
	if err := c.b.manager.RequestReload(c.b.ctx); err != nil {
		return c.internalError(err)
	}
	return c.success("Every shard will reload its triggers")
}

func (c triggerCommand) sync() HibikiResponse {
	problems, err := c.b.registrar.Sync(c.b.ctx, c.scope)
	if err != nil {
		return c.internalError(err)
	}
	if len(problems) > 0 {
		return HibikiResponseValidationFailed{
			command:    c.command,
			commandMsg: c.msg.Content,
			problems:   problems,
			timestamp:  c.timestamp,
		}
	}
	return c.success("Application commands are up to date")
}

//editResult converts the result of a trigger edit into a response
func (c triggerCommand) editResult(res mo.Option[guildmodels.Trigger], err error) HibikiResponse {
	if errors.Is(err, triggers.ErrInvalid) {
		return c.syntaxError(err.Error(), handleTriggerSyntax)
	} else if err != nil {
		return c.internalError(err)
	}
	t, ok := res.Get()
	if !ok {
		return HibikiResponseNotFound{command: c.command, commandMsg: c.msg.Content, subject: "that trigger", timestamp: c.timestamp}
	}
	return c.success(fmt.Sprintf("Updated trigger #%d", t.ID))
}

func (c triggerCommand) success(detail string) HibikiResponse {
	return HibikiResponseSuccess{command: c.command, commandMsg: c.msg.Content, detail: detail, timestamp: c.timestamp}
}

func (c triggerCommand) infoResponse(title, description string, fields []*discordgo.MessageEmbedField) HibikiResponse {
	return HibikiResponseInfo{
		command:     c.command,
		commandMsg:  c.msg.Content,
		title:       title,
		description: description,
		fields:      fields,
		timestamp:   c.timestamp,
	}
}

func (c triggerCommand) syntaxError(description, syntax string) HibikiResponse {
	return HibikiResponseSyntaxError{command: c.command, commandMsg: c.msg.Content, description: description, syntax: syntax, timestamp: c.timestamp}
}

func (c triggerCommand) notAllowed(description string) HibikiResponse {
	return HibikiResponseNotAllowed{command: c.command, commandMsg: c.msg.Content, description: description, timestamp: c.timestamp}
}

func (c triggerCommand) notFound(id int64) HibikiResponse {
	return HibikiResponseNotFound{command: c.command, commandMsg: c.msg.Content, subject: fmt.Sprintf("trigger #%d", id), timestamp: c.timestamp}
}

func (c triggerCommand) internalError(err error) HibikiResponse {
	return HibikiResponseInternalError{command: c.command, commandMsg: c.msg.Content, description: err.Error(), timestamp: c.timestamp}
}

//handleSetPrefix handles a message containing a set prefix command
//command format: !setprefix <prefix>
func (b *HibikiBot) handleSetPrefix(msg *discordgo.MessageCreate, args string) HibikiResponse {
	c := triggerCommand{b: b, msg: msg, scope: msg.GuildID, command: "!setprefix", timestamp: time.Now()}
	if msg.GuildID == "" {
		return c.syntaxError("Prefixes can only be set from within a server", handleSetPrefixSyntax)
	}
	isFromAdmin, err := b.isFromAdmin(msg.Member, msg.Author, msg.GuildID)
	if err != nil {
		logrus.Warnf("Failed to check if message came from admin due to error %v", err)
		return c.internalError(err)
	}
	if !isFromAdmin {
		return c.notAllowed("You need an admin role to change the prefix")
	}

	prefix, _, ok := nextArg(args)
	if !ok {
		return c.syntaxError("No prefix was given", handleSetPrefixSyntax)
	}
	if strings.EqualFold(prefix, "none") {
		prefix = ""
	}
	prefix = strings.ToLower(prefix)
	if err := b.guilds.SetGuildPrefix(msg.GuildID, prefix); err != nil {
		return c.internalError(err)
	}
	b.prefixes.Set(msg.GuildID, prefix)
	if prefix == "" {
		return c.success(fmt.Sprintf("Cleared the server prefix; commands now use `%v`", b.cfg.DefaultPrefix))
	}
	return c.success(fmt.Sprintf("Commands now use `%v`", prefix))
}

//handleAddAdminRole handles a message containing an add admin role command
//command format: !addadminrole <role>
func (b *HibikiBot) handleAddAdminRole(msg *discordgo.MessageCreate, args string) HibikiResponse {
	c := triggerCommand{b: b, msg: msg, scope: msg.GuildID, command: "!addadminrole", timestamp: time.Now()}
	if msg.GuildID == "" {
		return c.syntaxError("Admin roles can only be added from within a server", handleAddAdminRoleSyntax)
	}
	//Check sender is admin
	isFromAdmin, err := b.isFromAdmin(msg.Member, msg.Author, msg.GuildID)
	if err != nil {
		logrus.Warnf("Failed to check if message came from admin due to error %v", err)
		return c.internalError(err)
	} else if !isFromAdmin {
		return c.notAllowed("You need an admin role to add admin roles")
	}

	//Interpret and run the command
	argString := strings.TrimSpace(args)
	matchingRole, err := b.interpretRoleString(argString, msg.GuildID)
	if err != nil {
		return c.syntaxError(err.Error(), handleAddAdminRoleSyntax)
	} else if matchingRole == nil {
		return HibikiResponseNotFound{command: c.command, commandMsg: msg.Content, subject: "role " + argString, timestamp: c.timestamp}
	}

	//Make sure guild exists
	if _, err := b.guilds.GetOrCreateGuild(msg.GuildID); err != nil {
		logrus.Warnf("Encountered error %v when trying to add role %v to admins on server %v", err, matchingRole.ID, msg.GuildID)
		return c.internalError(err)
	}
	noUpdated, err := b.guilds.AddAdminRole(msg.GuildID, matchingRole.ID)
	if err != nil {
		logrus.Warnf("Encountered error %v when trying to add role %v to admins on server %v", err, matchingRole.ID, msg.GuildID)
		return c.internalError(err)
	} else if noUpdated == 0 {
		return c.success(fmt.Sprintf("%v was already an admin role", matchingRole.Name))
	}
	return c.success(fmt.Sprintf("%v is now an admin role", matchingRole.Name))
}

/**************************
/     Utility Functions
/**************************/

func (b *HibikiBot) isFromAdmin(member *discordgo.Member, user *discordgo.User, guildID string) (bool, error) {
	//Works if from dev
	if b.isDev(user.ID) {
		return true, nil
	}
	//Works if from server owner
	guild, err := b.session.Guild(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild object from Discord API when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	} else if guild.OwnerID == user.ID {
		return true, nil
	}
	if member == nil {
		return false, nil
	}
	//Works if user has an admin role
	localGuild, err := b.guilds.GetOrCreateGuild(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild object from Database when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	}
	for _, adminRole := range localGuild.AdminRoles {
		for _, senderRole := range member.Roles {
			if adminRole == senderRole {
				return true, nil
			}
		}
	}
	return false, nil
}

func (b *HibikiBot) isDev(userID string) bool {
	return b.cfg.Discord.DevUID != "" && userID == b.cfg.Discord.DevUID
}

func summaryField(t *guildmodels.Trigger) *discordgo.MessageEmbedField {
	kind := "literal"
	if t.IsRegex {
		kind = "regex"
	}
	return &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("#%d %v", t.ID, truncate(t.Trigger, 64)),
		Value: fmt.Sprintf("%v, prefix %v, %v", kind, prefixSummary(t), orNone(truncate(t.Response, 200))),
	}
}

func prefixSummary(t *guildmodels.Trigger) string {
	if t.PrefixType == guildmodels.PrefixCustom {
		return fmt.Sprintf("custom `%v`", t.CustomPrefix)
	}
	return t.PrefixType.String()
}

func flagSummary(f guildmodels.MatchFlags) string {
	var set []string
	for _, flag := range []guildmodels.Flag{
		guildmodels.FlagContainsAnywhere,
		guildmodels.FlagAllowTarget,
		guildmodels.FlagDMResponse,
		guildmodels.FlagAutoDeleteTrigger,
		guildmodels.FlagReactToTrigger,
		guildmodels.FlagNoRespond,
	} {
		if f.Get(flag) {
			set = append(set, string(flag))
		}
	}
	return orNone(strings.Join(set, ", "))
}

func roleList(roles []string) string {
	if len(roles) == 0 {
		return "nothing"
	}
	mentions := make([]string, len(roles))
	for i, r := range roles {
		mentions[i] = "<@&" + r + ">"
	}
	return strings.Join(mentions, " ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
