package discord

import (
	"fmt"
	"net/url"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const botScope = "bot applications.commands"
const permissions = discordgo.PermissionAllText | discordgo.PermissionManageRoles | discordgo.PermissionManageWebhooks

//EventHandler is a struct which can handle all the events the discord listener generates.
type EventHandler interface {
	HandleMessage(*discordgo.MessageCreate)
	HandleInteraction(*discordgo.InteractionCreate)
}

//EventSource represents a connection to the Discord gateway
type EventSource struct {
	discordClient *discordgo.Session
	handler       EventHandler
}

//GatewayOptions holds what is needed to connect to the discord gateway
type GatewayOptions struct {
	Token string
	//ShardIndex and ShardCount split guilds between processes so that each guild is only seen by one of them
	ShardIndex int
	ShardCount int
}

//newEventSource creates the gateway session and registers handlers without connecting
func newEventSource(opts GatewayOptions, handler EventHandler) (*EventSource, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("no discord bot token was provided")
	}
	if opts.ShardCount < 1 {
		opts.ShardCount = 1
	}
	if opts.ShardIndex < 0 || opts.ShardIndex >= opts.ShardCount {
		return nil, fmt.Errorf("shard index %d is outside a shard count of %d", opts.ShardIndex, opts.ShardCount)
	}

	//Create new client
	dc, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		logrus.Warnf("Failed to create Discord gateway client due to %v", err)
		return nil, err
	}
	dc.ShardID = opts.ShardIndex
	dc.ShardCount = opts.ShardCount
	dispatch := &EventSource{
		discordClient: dc,
		handler:       handler,
	}

	//Register event handlers
	dc.AddHandler(dispatch.dispatchMessageCreateEvent)
	dc.AddHandler(dispatch.dispatchInteractionCreateEvent)

	//Register intents
	dc.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return dispatch, nil
}

//StartDiscordListener initializes an EventSource and starts listening for events from the discord gateway
func StartDiscordListener(opts GatewayOptions, handler EventHandler) (*EventSource, error) {
	dispatch, err := newEventSource(opts, handler)
	if err != nil {
		return nil, err
	}
	dc := dispatch.discordClient

	//Open a websocket connection
	logrus.Infof("Connecting to discord as shard %d of %d", opts.ShardIndex, dc.ShardCount)
	err = dc.Open()
	if err != nil {
		logrus.Errorf("Failed to connect to discord websockets gateway; encountered error %v", err)
		return nil, err
	}
	return dispatch, nil
}

//BotUser fetches the bot's own user account
func (d *EventSource) BotUser() (*discordgo.User, error) {
	return d.discordClient.User("@me")
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (d *EventSource) BotAddURL() (*url.URL, error) {
	user, err := d.BotUser()
	if err != nil {
		return nil, err
	}
	clientID := user.ID

	url, err := url.Parse("https://discord.com/api/oauth2/authorize")
	if err != nil {
		return nil, err
	}
	q := url.Query()
	q.Set("client_id", clientID)
	q.Set("scope", botScope)
	q.Set("permissions", fmt.Sprintf("%d", permissions))
	url.RawQuery = q.Encode()

	return url, nil
}

//Close cleanly terminates the Discord connection
func (d *EventSource) Close() {
	logrus.Info("Terminating discord event listener...")
	_ = d.discordClient.Close()
}

//Session returns a handle to the underlying discordgo session
func (d *EventSource) Session() *discordgo.Session {
	return d.discordClient
}

func (d *EventSource) dispatchMessageCreateEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	//Ignore messages created by bots, including ourselves
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	//Prevent panic from crashing the whole bot
	defer recoverHandler("message")

	//Dispatch to bot handlers
	d.handler.HandleMessage(m)
	logrus.Debugf("Got message `%v`", m.Content)
}

func (d *EventSource) dispatchInteractionCreateEvent(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler("interaction")
	d.handler.HandleInteraction(i)
}

func recoverHandler(kind string) {
	if r := recover(); r != nil {
		handlerPanics.WithLabelValues(kind).Inc()
		logrus.Errorf("Bot %v handler thread panicked: %v", kind, r)
	}
}
