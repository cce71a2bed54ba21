package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/commandtree"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultRegistrationConcurrency = 4

//CommandAPI is the subset of *discordgo.Session used to register application commands
type CommandAPI interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

//TriggerSource lists the triggers of a scope and records the command IDs discord assigns to them
type TriggerSource interface {
	List(guildID string) []guildmodels.Trigger
	SetCommandID(ctx context.Context, guildID string, id int64, commandID string) (mo.Option[guildmodels.Trigger], error)
}

//Registrar keeps discord's application commands in step with the triggers of each scope
type Registrar struct {
	api         CommandAPI
	appID       string
	triggers    TriggerSource
	concurrency int
}

//NewRegistrar creates a Registrar registering commands for the application appID
func NewRegistrar(api CommandAPI, appID string, triggers TriggerSource) *Registrar {
	return &Registrar{
		api:         api,
		appID:       appID,
		triggers:    triggers,
		concurrency: defaultRegistrationConcurrency,
	}
}

//Sync rebuilds the command tree for guildID (or the global commands if guildID is empty) and replaces the registered
//commands with it. If the tree has any problems nothing is registered and the problems are returned instead.
func (r *Registrar) Sync(ctx context.Context, guildID string) ([]commandtree.Error, error) {
	scope := guildID
	if scope == "" {
		scope = "global"
	}
	log := logrus.WithField("scope", scope)

	tree, problems := commandtree.Build(r.triggers.List(guildID))
	if len(problems) > 0 {
		commandRegistrations.WithLabelValues(scopeLabel(guildID), "invalid").Inc()
		log.Warnf("Not registering application commands as the command tree has %d problems", len(problems))
		return problems, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	registered, err := r.api.ApplicationCommandBulkOverwrite(r.appID, guildID, tree.ApplicationCommands())
	if err != nil {
		commandRegistrations.WithLabelValues(scopeLabel(guildID), "error").Inc()
		log.Errorf("Failed to register application commands due to error %v", err)
		return nil, fmt.Errorf("failed to register commands for %v: %w", scope, err)
	}
	commandRegistrations.WithLabelValues(scopeLabel(guildID), "ok").Inc()

	type key struct {
		kind discordgo.ApplicationCommandType
		name string
	}
	ids := make(map[key]string, len(registered))
	for _, cmd := range registered {
		ids[key{cmd.Type, cmd.Name}] = cmd.ID
	}
	for _, leaf := range tree.Leaves() {
		cmdID, ok := ids[key{commandType(leaf.Kind), leaf.RootName}]
		if !ok || leaf.Trigger.Interaction.CommandID == cmdID {
			continue
		}
		if _, err := r.triggers.SetCommandID(ctx, guildID, leaf.Trigger.ID, cmdID); err != nil {
			log.Warnf("Failed to record command ID for trigger %v due to error %v", leaf.Trigger.ID, err)
		}
	}
	log.Infof("Registered %d application commands", len(registered))
	return nil, nil
}

//SyncAll syncs the global commands and those of every listed guild. Guilds whose trees have problems are skipped
//and reported in the returned map.
func (r *Registrar) SyncAll(ctx context.Context, guildIDs []string) (map[string][]commandtree.Error, error) {
	scopes := append([]string{""}, guildIDs...)
	results := make([][]commandtree.Error, len(scopes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, gid := range scopes {
		g.Go(func() error {
			problems, err := r.Sync(ctx, gid)
			results[i] = problems
			return err
		})
	}
	err := g.Wait()

	problems := make(map[string][]commandtree.Error)
	for i, p := range results {
		if len(p) > 0 {
			problems[scopes[i]] = p
		}
	}
	return problems, err
}

func commandType(kind guildmodels.CommandKind) discordgo.ApplicationCommandType {
	switch kind {
	case guildmodels.CommandMessage:
		return discordgo.MessageApplicationCommand
	case guildmodels.CommandUser:
		return discordgo.UserApplicationCommand
	default:
		return discordgo.ChatApplicationCommand
	}
}

func scopeLabel(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild"
}
