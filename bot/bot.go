package bot

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/bus"
	"github.com/callummance/hibiki/cache"
	"github.com/callummance/hibiki/config"
	"github.com/callummance/hibiki/db"
	"github.com/callummance/hibiki/discord"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/callummance/hibiki/matcher"
	"github.com/callummance/hibiki/triggers"
	"github.com/sirupsen/logrus"
)

const eventPruneInterval = 10 * time.Minute

//GuildStore holds per-guild settings
type GuildStore interface {
	GetOrCreateGuild(id string) (*guildmodels.DiscordGuild, error)
	AllGuilds() ([]guildmodels.DiscordGuild, error)
	AddAdminRole(gid string, roleID string) (int, error)
	SetGuildPrefix(gid string, prefix string) error
}

//Session is the part of the discord API the bot calls directly. *discordgo.Session satisfies it.
type Session interface {
	discord.API
	discord.CommandAPI
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

//Responder carries out the actions of a matched trigger
type Responder interface {
	Respond(ctx context.Context, inv discord.Invocation)
}

//HibikiBot represents an instance of the discord bot, containing handles to the various external connections.
type HibikiBot struct {
	cfg *config.AppConfig

	DiscordConnection *discord.EventSource
	DBConnection      *db.Connection

	session   Session
	store     triggers.Store
	guilds    GuildStore
	bus       bus.Bus
	prefixes  *cache.PrefixCache
	manager   *triggers.Manager
	matcher   *matcher.Matcher
	responder Responder
	registrar *discord.Registrar

	ctx     context.Context
	cancel  context.CancelFunc
	closers []func()
	//ready is set once everything above has been wired; events arriving earlier are dropped
	ready atomic.Bool
}

//Init creates a new HibikiBot instance
func Init(cfg *config.AppConfig) (*HibikiBot, error) {
	ctx, cancel := context.WithCancel(context.Background())
	res := &HibikiBot{cfg: cfg, ctx: ctx, cancel: cancel}

	if cfg.Database.IsConfigured() {
		//Start database connection
		conn, err := db.Init(db.Options{Address: cfg.Database.Address, Database: cfg.Database.Name})
		if err != nil {
			logrus.Errorf("Cannot start bot due to error initializing database connection: %v", err)
			cancel()
			return nil, err
		}
		eventBus := db.NewEventBus(conn)
		go eventBus.Listen(ctx)
		go eventBus.RunPruner(ctx, eventPruneInterval)

		res.DBConnection = conn
		res.store = conn
		res.guilds = conn
		res.bus = eventBus
		res.closers = append(res.closers, eventBus.Close, conn.Close)
	} else {
		localBus := bus.NewLocalBus()
		res.store = db.NewMemoryStore()
		res.guilds = db.NewMemoryGuilds()
		res.bus = localBus
		res.closers = append(res.closers, localBus.Close)
	}

	//Start discord connection
	disc, err := discord.StartDiscordListener(discord.GatewayOptions{
		Token:      cfg.Discord.BotToken,
		ShardIndex: cfg.Discord.ShardIndex,
		ShardCount: cfg.Discord.ShardCount,
	}, res)
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing discord connection: %v", err)
		res.Close()
		return nil, err
	}
	res.DiscordConnection = disc
	res.closers = append([]func(){disc.Close}, res.closers...)

	self, err := disc.BotUser()
	if err != nil {
		logrus.Errorf("Cannot start bot as its own user could not be fetched: %v", err)
		res.Close()
		return nil, err
	}

	if err := res.wire(disc.Session(), self.ID); err != nil {
		res.Close()
		return nil, err
	}
	go res.manager.RunPeriodicReload(ctx, cfg.ReloadInterval)
	return res, nil
}

//wire builds the trigger engine on top of the already connected stores and marks the bot ready
func (b *HibikiBot) wire(session Session, botUserID string) error {
	b.session = session
	b.prefixes = cache.NewPrefixCache()
	guilds, err := b.guilds.AllGuilds()
	if err != nil {
		logrus.Errorf("Cannot start bot as guild settings could not be loaded: %v", err)
		return err
	}
	for _, g := range guilds {
		b.prefixes.Set(g.DiscordGID, g.Prefix)
	}

	scoped := cache.NewScopedCache()
	global := cache.NewGlobalCache()
	b.matcher = matcher.New(scoped, global, b.prefixes, matcher.Options{
		DefaultPrefix: b.cfg.DefaultPrefix,
		RegexTimeout:  b.cfg.RegexTimeout,
	})
	b.manager = triggers.NewManager(b.store, scoped, global, b.bus, triggers.Options{
		ShardID:     b.cfg.ShardID,
		BotUserID:   botUserID,
		AfterReload: b.matcher.PruneRegexes,
	})
	if err := b.manager.Init(b.ctx); err != nil {
		return fmt.Errorf("failed to load triggers: %w", err)
	}
	b.closers = append([]func(){b.manager.Close}, b.closers...)
	if b.responder == nil {
		b.responder = discord.NewResponder(session, botUserID)
	}
	//Bot accounts share their ID with their application
	b.registrar = discord.NewRegistrar(session, botUserID, b.manager)

	b.ready.Store(true)
	logrus.Infof("Shard %v ready", b.cfg.ShardID)
	return nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (b *HibikiBot) BotAddURL() (*url.URL, error) {
	return b.DiscordConnection.BotAddURL()
}

//Close cleanly terminates the bot instance
func (b *HibikiBot) Close() {
	logrus.Info("Terminating bot...")
	b.ready.Store(false)
	b.cancel()
	for _, closer := range b.closers {
		closer()
	}
}
