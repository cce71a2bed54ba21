package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/commandtree"
	"github.com/callummance/hibiki/discord"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/callummance/hibiki/matcher"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

//buttonPrefix starts the custom ID of buttons which run a trigger
const buttonPrefix = "trigger:"

//HandleMessage is called upon every recieved message. It checks if the message is a command, and executes it.
//Anything that is not a command is checked against the configured triggers.
func (b *HibikiBot) HandleMessage(msg *discordgo.MessageCreate) {
	if !b.ready.Load() || msg.Content == "" {
		return
	}
	if command, args, ok := b.splitCommand(msg.GuildID, msg.Content); ok {
		switch command {
		case "trigger", "triggers":
			b.respondToCommand(msg, b.handleTriggerCommand(msg, args))
			return
		case "setprefix":
			b.respondToCommand(msg, b.handleSetPrefix(msg, args))
			return
		case "addadminrole":
			b.respondToCommand(msg, b.handleAddAdminRole(msg, args))
			return
		}
	}

	match := b.matcher.Match(matcher.Event{
		Text:    msg.Content,
		GuildID: msg.GuildID,
		Type:    guildmodels.EventMessage,
	})
	res, ok := match.Get()
	if !ok {
		return
	}
	mentioned := make([]string, 0, len(msg.Mentions))
	for _, u := range msg.Mentions {
		mentioned = append(mentioned, u.ID)
	}
	b.responder.Respond(b.ctx, discord.Invocation{
		Trigger:          res.Trigger,
		Target:           res.Target,
		GuildID:          msg.GuildID,
		ChannelID:        msg.ChannelID,
		MessageID:        msg.ID,
		Author:           msg.Author,
		MentionedUserIDs: mentioned,
	})
}

//splitCommand returns the command word and arguments if content starts with the guild's admin command prefix
func (b *HibikiBot) splitCommand(guildID, content string) (string, string, bool) {
	prefix := b.prefixes.PrefixFor(guildID).OrElse(b.cfg.DefaultPrefix)
	//Compare on the original bytes since lowercasing may change the length of what comes before the prefix ends
	if prefix == "" || len(content) < len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return "", "", false
	}
	command, args, ok := nextArg(content[len(prefix):])
	if !ok {
		return "", "", false
	}
	return strings.ToLower(command), args, true
}

//HandleInteraction runs the trigger behind an application command or trigger button
func (b *HibikiBot) HandleInteraction(i *discordgo.InteractionCreate) {
	if !b.ready.Load() {
		return
	}
	var inv mo.Option[discord.Invocation]
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		inv = b.commandInvocation(i)
	case discordgo.InteractionMessageComponent:
		inv = b.buttonInvocation(i)
	default:
		return
	}

	res, ok := inv.Get()
	if !ok {
		err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "That command is no longer available.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			logrus.Warnf("Failed to respond to stale interaction %v due to error %v", i.ID, err)
		}
		return
	}
	b.responder.Respond(b.ctx, res)
}

func (b *HibikiBot) commandInvocation(i *discordgo.InteractionCreate) mo.Option[discord.Invocation] {
	data := i.ApplicationCommandData()
	name, opts := commandtree.Invocation(data)

	kind := guildmodels.CommandSlash
	switch data.CommandType {
	case discordgo.UserApplicationCommand:
		kind = guildmodels.CommandUser
	case discordgo.MessageApplicationCommand:
		kind = guildmodels.CommandMessage
	}

	found := b.manager.FindByCommandName(i.GuildID, kind, name)
	if found.IsAbsent() {
		found = b.manager.FindByCommandID(i.GuildID, data.ID)
	}
	t, ok := found.Get()
	if !ok || !t.AcceptsEvent(guildmodels.EventSlash) {
		return mo.None[discord.Invocation]()
	}

	inv := b.interactionBase(i, t)
	switch kind {
	case guildmodels.CommandUser:
		inv.Target = "<@" + data.TargetID + ">"
		inv.MentionedUserIDs = []string{data.TargetID}
	case guildmodels.CommandMessage:
		if data.Resolved != nil {
			if m, ok := data.Resolved.Messages[data.TargetID]; ok && m.Author != nil {
				inv.Target = m.Author.Mention()
				inv.MentionedUserIDs = []string{m.Author.ID}
			}
		}
	default:
		if target, ok := commandtree.StringOption(opts, commandtree.TargetOption); ok {
			inv.Target = target
			if uid, ok := interpretUserMention(target); ok {
				inv.MentionedUserIDs = []string{uid}
			}
		}
	}
	return mo.Some(inv)
}

func (b *HibikiBot) buttonInvocation(i *discordgo.InteractionCreate) mo.Option[discord.Invocation] {
	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, buttonPrefix) {
		return mo.None[discord.Invocation]()
	}
	id, ok := parseTriggerID(strings.TrimPrefix(customID, buttonPrefix))
	if !ok {
		return mo.None[discord.Invocation]()
	}
	found := b.manager.Get(i.GuildID, id)
	if found.IsAbsent() {
		found = b.manager.Get("", id)
	}
	t, ok := found.Get()
	if !ok || !t.AcceptsEvent(guildmodels.EventButton) {
		return mo.None[discord.Invocation]()
	}
	return mo.Some(b.interactionBase(i, t))
}

func (b *HibikiBot) interactionBase(i *discordgo.InteractionCreate, t guildmodels.Trigger) discord.Invocation {
	author := i.User
	if i.Member != nil && i.Member.User != nil {
		author = i.Member.User
	}
	return discord.Invocation{
		Trigger:     t,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Author:      author,
		Interaction: i.Interaction,
	}
}

func (b *HibikiBot) respondToCommand(msg *discordgo.MessageCreate, result HibikiResponse) {
	result.WriteToLog()
	resp := result.DiscordResponse()
	resp.Reference = &discordgo.MessageReference{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
	_, err := b.session.ChannelMessageSendComplex(msg.ChannelID, resp)
	if err != nil {
		logrus.Errorf("Failed to send response to command due to error %v", err)
	}
}
