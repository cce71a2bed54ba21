package commandtree

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/guildmodels"
)

//TargetOption is the optional string option added to slash commands whose trigger accepts a target
const TargetOption = "target"

//ApplicationCommands converts the tree into the commands to register with discord
func (t *Tree) ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, t.Len())
	for _, n := range t.Slash {
		cmd := &discordgo.ApplicationCommand{
			Type:        discordgo.ChatApplicationCommand,
			Name:        n.Name,
			Description: n.description(),
		}
		if n.IsLeaf() {
			cmd.Options = leafOptions(n.Trigger)
		} else {
			cmd.Options = groupOptions(n)
		}
		cmds = append(cmds, cmd)
	}
	for _, n := range t.Message {
		cmds = append(cmds, &discordgo.ApplicationCommand{Type: discordgo.MessageApplicationCommand, Name: n.Name})
	}
	for _, n := range t.User {
		cmds = append(cmds, &discordgo.ApplicationCommand{Type: discordgo.UserApplicationCommand, Name: n.Name})
	}
	return cmds
}

func groupOptions(n *Node) []*discordgo.ApplicationCommandOption {
	opts := make([]*discordgo.ApplicationCommandOption, 0, len(n.Children))
	for _, c := range n.Children {
		opt := &discordgo.ApplicationCommandOption{
			Name:        c.Name,
			Description: c.description(),
		}
		if c.IsLeaf() {
			opt.Type = discordgo.ApplicationCommandOptionSubCommand
			opt.Options = leafOptions(c.Trigger)
		} else {
			opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
			opt.Options = groupOptions(c)
		}
		opts = append(opts, opt)
	}
	return opts
}

func leafOptions(t *guildmodels.Trigger) []*discordgo.ApplicationCommandOption {
	if !t.Flags.AllowTarget {
		return nil
	}
	return []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        TargetOption,
		Description: "Who or what the command is aimed at",
		Required:    false,
	}}
}

func (n *Node) description() string {
	if n.IsLeaf() {
		if d := n.Trigger.Interaction.Description; d != "" {
			return d
		}
		return fmt.Sprintf("Runs trigger %d", n.Trigger.ID)
	}
	return fmt.Sprintf("%v commands", n.Name)
}

//Invocation returns the full name of the command an interaction invoked, along with the options passed to the
//leaf. Subcommand groups and subcommands arrive as nested options on the top-level command.
func Invocation(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if data.CommandType != discordgo.ChatApplicationCommand && data.CommandType != 0 {
		return data.Name, data.Options
	}
	parts := []string{data.Name}
	opts := data.Options
	for len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommand) {
		parts = append(parts, opts[0].Name)
		opts = opts[0].Options
	}
	return strings.Join(parts, " "), opts
}

//StringOption returns the value of a named string option
func StringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
	}
	return "", false
}
