package commandtree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slash(id int64, name string) guildmodels.Trigger {
	return guildmodels.Trigger{
		ID:      id,
		Trigger: "t" + fmt.Sprint(id),
		Interaction: guildmodels.InteractionMeta{
			Kind: guildmodels.CommandSlash,
			Name: name,
		},
	}
}

func contextMenu(id int64, kind guildmodels.CommandKind, name string) guildmodels.Trigger {
	t := slash(id, name)
	t.Interaction.Kind = kind
	return t
}

func keys(errs []Error) []string {
	var res []string
	for _, e := range errs {
		res = append(res, e.Key)
	}
	return res
}

func TestBuildThreeLevels(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{
		slash(1, "a b c"),
		slash(2, "a b d"),
		slash(3, "a e"),
		slash(4, "f"),
	})
	require.Empty(t, errs)
	require.Len(t, tree.Slash, 2)

	a := tree.Find("a")
	require.NotNil(t, a)
	assert.False(t, a.IsLeaf())
	assert.Equal(t, 3, a.Depth())
	assert.ElementsMatch(t, []int64{1, 2, 3}, a.TriggerIDs())

	leaf := tree.Find("a b d")
	require.NotNil(t, leaf)
	require.True(t, leaf.IsLeaf())
	assert.Equal(t, int64(2), leaf.Trigger.ID)

	assert.True(t, tree.Find("f").IsLeaf())
	assert.Nil(t, tree.Find("a x"))
	assert.Nil(t, tree.Find(""))
}

func TestBuildSubcommandMatchingParent(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{slash(1, "a"), slash(2, "a b")})
	require.Len(t, errs, 1)
	assert.Equal(t, KeySubcommandMatchParent, errs[0].Key)
	assert.Equal(t, []int64{1, 2}, errs[0].IDs)
	assert.Equal(t, []string{"a", "a b"}, errs[0].Names)

	//The shadowed record is left out; the subcommand is still placed
	a := tree.Find("a")
	require.NotNil(t, a)
	assert.False(t, a.IsLeaf())
	assert.Equal(t, []int64{2}, a.TriggerIDs())
}

func TestBuildChainOfParentsStillProducesThreeLevels(t *testing.T) {
	//Reporting each shadowed parent wins over building a, a b and a b c silently; only a b c is placed
	tree, errs := Build([]guildmodels.Trigger{slash(1, "a"), slash(2, "a b"), slash(3, "a b c")})
	assert.Equal(t, []string{KeySubcommandMatchParent, KeySubcommandMatchParent}, keys(errs))
	require.Len(t, tree.Slash, 1)
	assert.Equal(t, 3, tree.Slash[0].Depth())
}

func TestBuildTooManyChildren(t *testing.T) {
	var triggers []guildmodels.Trigger
	var want []int64
	for i := 1; i <= 27; i++ {
		triggers = append(triggers, slash(int64(i), fmt.Sprintf("group x%d", i)))
		want = append(want, int64(i))
	}

	_, errs := Build(triggers)
	require.Len(t, errs, 1)
	assert.Equal(t, KeyTooManyChildren, errs[0].Key)
	assert.ElementsMatch(t, want, errs[0].IDs)
	assert.Len(t, errs[0].Names, 27)
}

func TestBuildTwentyFiveChildrenIsFine(t *testing.T) {
	var triggers []guildmodels.Trigger
	for i := 1; i <= 25; i++ {
		triggers = append(triggers, slash(int64(i), fmt.Sprintf("group x%d", i)))
	}
	_, errs := Build(triggers)
	assert.Empty(t, errs)
}

func TestBuildDuplicates(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{slash(5, "hi"), slash(3, "hi"), slash(9, "hi")})
	require.Len(t, errs, 1)
	assert.Equal(t, KeyDuplicate, errs[0].Key)
	assert.Equal(t, []int64{3, 5, 9}, errs[0].IDs)

	//Lowest ID wins the slot
	assert.Equal(t, int64(3), tree.Find("hi").Trigger.ID)
}

func TestBuildSameNameDifferentKindsIsNotDuplicate(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{
		slash(1, "hug"),
		contextMenu(2, guildmodels.CommandUser, "hug"),
		contextMenu(3, guildmodels.CommandMessage, "hug"),
	})
	assert.Empty(t, errs)
	assert.Equal(t, 3, tree.Len())
}

func TestBuildInvalidNames(t *testing.T) {
	cases := []guildmodels.Trigger{
		slash(1, "has.dot"),
		slash(2, strings.Repeat("x", 33)),
		slash(3, "a b c d"),
		slash(4, "UPPER"),
		contextMenu(5, guildmodels.CommandMessage, strings.Repeat("y", 33)),
	}
	for _, c := range cases {
		//Build normally sees normalized names; force the raw value through to check the pattern itself
		_, errs := Build([]guildmodels.Trigger{c})
		require.Len(t, errs, 1, "trigger %d", c.ID)
		assert.Equal(t, KeyInvalidName, errs[0].Key)
		assert.Equal(t, []int64{c.ID}, errs[0].IDs)
	}
}

func TestBuildContextMenuNamesAreNotSplit(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{
		contextMenu(1, guildmodels.CommandMessage, "Quote This!"),
		contextMenu(2, guildmodels.CommandUser, "give a hug"),
	})
	require.Empty(t, errs)
	require.Len(t, tree.Message, 1)
	assert.Equal(t, "Quote This!", tree.Message[0].Name)
	require.Len(t, tree.User, 1)
	assert.Equal(t, "give a hug", tree.User[0].Name)
	assert.Empty(t, tree.Slash)
}

func TestBuildTooManyContextMenuCommands(t *testing.T) {
	var triggers []guildmodels.Trigger
	for i := 1; i <= 6; i++ {
		triggers = append(triggers, contextMenu(int64(i), guildmodels.CommandUser, fmt.Sprintf("u%d", i)))
	}
	_, errs := Build(triggers)
	require.Len(t, errs, 1)
	assert.Equal(t, KeyTooManyCommands, errs[0].Key)
	assert.Len(t, errs[0].IDs, 6)
}

func TestBuildIgnoresTriggersWithoutCommands(t *testing.T) {
	plain := guildmodels.Trigger{ID: 1, Trigger: "hello"}
	tree, errs := Build([]guildmodels.Trigger{plain})
	assert.Empty(t, errs)
	assert.Zero(t, tree.Len())
}

func TestBuildFallsBackToTriggerText(t *testing.T) {
	tr := guildmodels.Trigger{ID: 1, Trigger: "wave", Interaction: guildmodels.InteractionMeta{Kind: guildmodels.CommandSlash}}
	tree, errs := Build([]guildmodels.Trigger{tr})
	require.Empty(t, errs)
	assert.NotNil(t, tree.Find("wave"))
}

func TestLeaves(t *testing.T) {
	tree, errs := Build([]guildmodels.Trigger{
		slash(1, "a b"),
		slash(2, "c"),
		contextMenu(3, guildmodels.CommandUser, "poke"),
	})
	require.Empty(t, errs)

	leaves := tree.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, "a", leaves[0].RootName)
	assert.Equal(t, "a b", leaves[0].FullName)
	assert.Equal(t, guildmodels.CommandSlash, leaves[0].Kind)
	assert.Equal(t, "c", leaves[1].RootName)
	assert.Equal(t, guildmodels.CommandUser, leaves[2].Kind)
}

func TestApplicationCommands(t *testing.T) {
	withTarget := slash(3, "hug")
	withTarget.Flags.AllowTarget = true
	withTarget.Interaction.Description = "Hug someone"

	tree, errs := Build([]guildmodels.Trigger{
		slash(1, "fun dance slow"),
		slash(2, "fun wave"),
		withTarget,
		contextMenu(4, guildmodels.CommandMessage, "quote"),
	})
	require.Empty(t, errs)

	cmds := tree.ApplicationCommands()
	require.Len(t, cmds, 3)

	fun := cmds[0]
	assert.Equal(t, "fun", fun.Name)
	assert.Equal(t, discordgo.ChatApplicationCommand, fun.Type)
	require.Len(t, fun.Options, 2)
	assert.Equal(t, "dance", fun.Options[0].Name)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, fun.Options[0].Type)
	require.Len(t, fun.Options[0].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, fun.Options[0].Options[0].Type)
	assert.Equal(t, "Runs trigger 1", fun.Options[0].Options[0].Description)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, fun.Options[1].Type)

	hug := cmds[1]
	assert.Equal(t, "hug", hug.Name)
	assert.Equal(t, "Hug someone", hug.Description)
	require.Len(t, hug.Options, 1)
	assert.Equal(t, TargetOption, hug.Options[0].Name)

	assert.Equal(t, discordgo.MessageApplicationCommand, cmds[2].Type)
	assert.Empty(t, cmds[2].Description)
}

func TestInvocation(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name:        "fun",
		CommandType: discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "dance",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "slow",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name:  TargetOption,
					Type:  discordgo.ApplicationCommandOptionString,
					Value: "everyone",
				}},
			}},
		}},
	}

	name, opts := Invocation(data)
	assert.Equal(t, "fun dance slow", name)
	target, ok := StringOption(opts, TargetOption)
	assert.True(t, ok)
	assert.Equal(t, "everyone", target)

	name, _ = Invocation(discordgo.ApplicationCommandInteractionData{Name: "quote this", CommandType: discordgo.MessageApplicationCommand})
	assert.Equal(t, "quote this", name)
}
