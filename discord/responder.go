package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/sirupsen/logrus"
)

//Placeholders available in trigger responses
const (
	PlaceholderUserMention = "%user.mention%"
	PlaceholderUserName    = "%user.name%"
	PlaceholderTarget      = "%target%"
	PlaceholderBotMention  = "%bot.mention%"
	PlaceholderChannel     = "%channel%"
)

//API is the subset of *discordgo.Session used to carry out trigger responses
type API interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

//Invocation describes a trigger that matched, and the event that caused it
type Invocation struct {
	Trigger   guildmodels.Trigger
	Target    string
	GuildID   string
	ChannelID string
	//MessageID is the triggering message; empty for interactions
	MessageID        string
	Author           *discordgo.User
	MentionedUserIDs []string
	//Interaction is set when the trigger was run by an application command or button
	Interaction *discordgo.Interaction
}

//Responder carries out the side effects of a matched trigger. Every step is best-effort: failures are logged and
//the remaining steps still run.
type Responder struct {
	api       API
	botUserID string
}

//NewResponder creates a Responder sending requests through api
func NewResponder(api API, botUserID string) *Responder {
	return &Responder{api: api, botUserID: botUserID}
}

//Respond runs every action configured on inv.Trigger
func (r *Responder) Respond(ctx context.Context, inv Invocation) {
	t := &inv.Trigger
	log := logrus.WithFields(logrus.Fields{
		"trigger_id": t.ID,
		"guild_id":   inv.GuildID,
		"channel_id": inv.ChannelID,
	})
	content := r.Render(t.Response, inv)

	var sent *discordgo.Message
	switch {
	case inv.Interaction != nil:
		r.respondInteraction(log, inv, content)
	case t.Flags.NoRespond || content == "":
	case t.Flags.DMResponse:
		sent = r.sendDM(log, authorID(inv), content)
	default:
		sent = r.send(log, "send", inv.ChannelID, content)
	}

	if ctx.Err() != nil {
		return
	}

	if len(t.Reactions) > 0 {
		switch {
		case t.Flags.ReactToTrigger && inv.MessageID != "":
			r.react(log, inv.ChannelID, inv.MessageID, t.Reactions)
		case sent != nil:
			r.react(log, sent.ChannelID, sent.ID, t.Reactions)
		}
	}

	if t.Flags.AutoDeleteTrigger && inv.MessageID != "" {
		if err := r.api.ChannelMessageDelete(inv.ChannelID, inv.MessageID); err != nil {
			r.failed(log, "delete", err)
		}
	}

	r.applyRoles(log, inv)

	if t.Crosspost.IsSet() && content != "" && !t.Flags.NoRespond {
		r.crosspost(log, t.Crosspost, content)
	}
}

//Render substitutes the placeholders in a response template
func (r *Responder) Render(template string, inv Invocation) string {
	if !strings.Contains(template, "%") {
		return template
	}
	var userMention, userName string
	if inv.Author != nil {
		userMention = inv.Author.Mention()
		userName = inv.Author.Username
	}
	target := inv.Target
	if target == "" {
		target = userMention
	}
	return strings.NewReplacer(
		PlaceholderUserMention, userMention,
		PlaceholderUserName, userName,
		PlaceholderTarget, target,
		PlaceholderBotMention, fmt.Sprintf("<@%v>", r.botUserID),
		PlaceholderChannel, fmt.Sprintf("<#%v>", inv.ChannelID),
	).Replace(template)
}

func (r *Responder) respondInteraction(log *logrus.Entry, inv Invocation, content string) {
	t := &inv.Trigger
	data := &discordgo.InteractionResponseData{Content: content}
	if t.Interaction.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if t.Flags.NoRespond || content == "" {
		data.Content = "Done."
		data.Flags = discordgo.MessageFlagsEphemeral
	} else if t.Flags.DMResponse {
		r.sendDM(log, authorID(inv), content)
		data.Content = "Sent you a DM."
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.api.InteractionRespond(inv.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		r.failed(log, "interaction_respond", err)
	}
}

func (r *Responder) send(log *logrus.Entry, action, channelID, content string) *discordgo.Message {
	msg, err := r.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	})
	if err != nil {
		r.failed(log, action, err)
		return nil
	}
	return msg
}

func (r *Responder) sendDM(log *logrus.Entry, userID, content string) *discordgo.Message {
	if userID == "" {
		return nil
	}
	ch, err := r.api.UserChannelCreate(userID)
	if err != nil {
		r.failed(log, "dm", err)
		return nil
	}
	return r.send(log, "dm", ch.ID, content)
}

func (r *Responder) react(log *logrus.Entry, channelID, messageID string, reactions []string) {
	for _, emoji := range reactions {
		if err := r.api.MessageReactionAdd(channelID, messageID, emoji); err != nil {
			r.failed(log.WithField("emoji", emoji), "react", err)
		}
	}
}

func (r *Responder) applyRoles(log *logrus.Entry, inv Invocation) {
	grant := inv.Trigger.RoleGrant()
	if grant.IsEmpty() || inv.GuildID == "" {
		return
	}
	for _, uid := range grant.Targets(authorID(inv), inv.MentionedUserIDs) {
		for _, rid := range grant.Granted {
			if err := r.api.GuildMemberRoleAdd(inv.GuildID, uid, rid); err != nil {
				r.failed(log.WithFields(logrus.Fields{"user_id": uid, "role_id": rid}), "role_add", err)
			}
		}
		for _, rid := range grant.Removed {
			if err := r.api.GuildMemberRoleRemove(inv.GuildID, uid, rid); err != nil {
				r.failed(log.WithFields(logrus.Fields{"user_id": uid, "role_id": rid}), "role_remove", err)
			}
		}
	}
}

func (r *Responder) crosspost(log *logrus.Entry, target guildmodels.Crosspost, content string) {
	if target.ChannelID != "" {
		r.send(log, "crosspost", target.ChannelID, content)
		return
	}
	id, token, err := ParseWebhookURL(target.WebhookURL)
	if err != nil {
		r.failed(log, "crosspost", err)
		return
	}
	if _, err := r.api.WebhookExecute(id, token, false, &discordgo.WebhookParams{Content: content}); err != nil {
		r.failed(log, "crosspost", err)
	}
}

func (r *Responder) failed(log *logrus.Entry, action string, err error) {
	actionErrors.WithLabelValues(action).Inc()
	log.Warnf("Failed to %v while responding to trigger due to error %v", action, err)
}

//ParseWebhookURL extracts the ID and token from a discord webhook URL
func ParseWebhookURL(raw string) (id string, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("%v is not a discord webhook URL", raw)
}

func authorID(inv Invocation) string {
	if inv.Author == nil {
		return ""
	}
	return inv.Author.ID
}
