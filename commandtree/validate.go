package commandtree

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/callummance/hibiki/guildmodels"
)

//Error keys reported by Build
const (
	KeyInvalidName           = "invalid_name"
	KeyDuplicate             = "duplicate"
	KeySubcommandMatchParent = "subcommand_match_parent"
	KeyTooManyChildren       = "too_many_children"
	KeyTooManyCommands       = "too_many_commands"
)

//Discord limits
const (
	maxNameLength     = 32
	maxDepth          = 3
	maxChildren       = 25
	maxSlashCommands  = 100
	maxContextMenuCmd = 5
)

var slashTokenRegex = regexp.MustCompile(`^[-_\p{Ll}\p{Lo}\p{N}]{1,32}$`)

//Error describes one problem that prevents the tree from being registered
type Error struct {
	Key   string
	IDs   []int64
	Names []string
}

func (e Error) Error() string {
	return fmt.Sprintf("%v: triggers %v (%v)", e.Key, e.IDs, strings.Join(e.Names, ", "))
}

//splitName validates a trigger's command name and returns its path through the tree. Message and user commands
//are never nested so their path is always the whole name.
func splitName(t *guildmodels.Trigger) ([]string, bool) {
	name := t.CommandName()
	if t.Interaction.Kind != guildmodels.CommandSlash {
		n := utf8.RuneCountInString(name)
		return []string{name}, n >= 1 && n <= maxNameLength
	}
	tokens := strings.Fields(name)
	if len(tokens) == 0 || len(tokens) > maxDepth {
		return tokens, false
	}
	for _, tok := range tokens {
		if !slashTokenRegex.MatchString(tok) {
			return tokens, false
		}
	}
	return tokens, true
}

func invalidName(t *guildmodels.Trigger) Error {
	return Error{Key: KeyInvalidName, IDs: []int64{t.ID}, Names: []string{t.CommandName()}}
}

//checkLimits reports every group with more children than discord allows, as well as too many top-level commands.
func checkLimits(tree *Tree) []Error {
	var errs []Error
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.IsLeaf() {
			return
		}
		if len(n.Children) > maxChildren {
			errs = append(errs, limitError(KeyTooManyChildren, n.Children))
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, root := range tree.Slash {
		visit(root)
	}

	if len(tree.Slash) > maxSlashCommands {
		errs = append(errs, limitError(KeyTooManyCommands, tree.Slash))
	}
	if len(tree.Message) > maxContextMenuCmd {
		errs = append(errs, limitError(KeyTooManyCommands, tree.Message))
	}
	if len(tree.User) > maxContextMenuCmd {
		errs = append(errs, limitError(KeyTooManyCommands, tree.User))
	}
	return errs
}

func limitError(key string, nodes []*Node) Error {
	e := Error{Key: key}
	for _, n := range nodes {
		n.walk(func(leaf *Node) {
			e.IDs = append(e.IDs, leaf.Trigger.ID)
			e.Names = append(e.Names, leaf.Trigger.CommandName())
		})
	}
	return e
}
