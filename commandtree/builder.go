package commandtree

import (
	"sort"
	"strings"

	"github.com/callummance/hibiki/guildmodels"
)

type entry struct {
	trigger guildmodels.Trigger
	path    []string
	key     string
}

//Build arranges every trigger with an interaction kind into a command tree. The tree is always returned, but if
//any errors are reported it must not be registered. Triggers named in an error are left out of the tree.
func Build(triggers []guildmodels.Trigger) (*Tree, []Error) {
	var errs []Error

	sorted := make([]guildmodels.Trigger, 0, len(triggers))
	for _, t := range triggers {
		if t.Interaction.Kind != guildmodels.CommandNone {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	//Group by full name so duplicates are reported once with every ID involved
	byName := make(map[string][]entry)
	var order []string
	for _, t := range sorted {
		path, ok := splitName(&t)
		if !ok {
			errs = append(errs, invalidName(&t))
			continue
		}
		key := t.Interaction.Kind.String() + ":" + strings.Join(path, " ")
		if _, seen := byName[key]; !seen {
			order = append(order, key)
		}
		byName[key] = append(byName[key], entry{trigger: t, path: path, key: key})
	}

	var entries []entry
	for _, key := range order {
		group := byName[key]
		if len(group) > 1 {
			dup := Error{Key: KeyDuplicate}
			for _, e := range group {
				dup.IDs = append(dup.IDs, e.trigger.ID)
				dup.Names = append(dup.Names, e.trigger.CommandName())
			}
			errs = append(errs, dup)
		}
		entries = append(entries, group[0])
	}

	//A slash command whose name is also the prefix of another command cannot be invoked
	parents := make(map[string][]entry)
	for _, e := range entries {
		if e.trigger.Interaction.Kind != guildmodels.CommandSlash {
			continue
		}
		for depth := 1; depth < len(e.path); depth++ {
			prefix := guildmodels.CommandSlash.String() + ":" + strings.Join(e.path[:depth], " ")
			parents[prefix] = append(parents[prefix], e)
		}
	}

	slash := &Node{}
	message := &Node{}
	user := &Node{}
	for _, e := range entries {
		switch e.trigger.Interaction.Kind {
		case guildmodels.CommandMessage:
			message.attach(leaf(e))
		case guildmodels.CommandUser:
			user.attach(leaf(e))
		default:
			if children, ok := parents[e.key]; ok {
				conflict := Error{
					Key:   KeySubcommandMatchParent,
					IDs:   []int64{e.trigger.ID},
					Names: []string{e.trigger.CommandName()},
				}
				for _, c := range children {
					conflict.IDs = append(conflict.IDs, c.trigger.ID)
					conflict.Names = append(conflict.Names, c.trigger.CommandName())
				}
				errs = append(errs, conflict)
				continue
			}
			node := slash
			for _, tok := range e.path[:len(e.path)-1] {
				node = node.group(tok)
			}
			node.attach(leaf(e))
		}
	}

	for _, root := range []*Node{slash, message, user} {
		root.sort()
	}
	tree := &Tree{Slash: slash.Children, Message: message.Children, User: user.Children}
	errs = append(errs, checkLimits(tree)...)
	return tree, errs
}

func leaf(e entry) *Node {
	t := e.trigger
	return &Node{Name: e.path[len(e.path)-1], Trigger: &t}
}
