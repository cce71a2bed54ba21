//Package commandtree turns the flat set of triggers visible in one scope into the nested application commands
//discord expects: up to three levels of group, subgroup and leaf.
package commandtree

import (
	"sort"
	"strings"

	"github.com/callummance/hibiki/guildmodels"
)

//Node is either a leaf, which runs a single trigger, or a group of further nodes. Exactly one of Trigger and
//Children is set.
type Node struct {
	Name     string
	Trigger  *guildmodels.Trigger
	Children []*Node

	index map[string]*Node
}

//IsLeaf returns true if the node runs a trigger directly
func (n *Node) IsLeaf() bool {
	return n.Trigger != nil
}

//Depth returns the number of levels in the subtree rooted at n, counting n itself
func (n *Node) Depth() int {
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

//Child returns the direct child with the given name, or nil
func (n *Node) Child(name string) *Node {
	return n.index[name]
}

//TriggerIDs returns the IDs of every trigger at or below n
func (n *Node) TriggerIDs() []int64 {
	var ids []int64
	n.walk(func(leaf *Node) { ids = append(ids, leaf.Trigger.ID) })
	return ids
}

func (n *Node) walk(fn func(leaf *Node)) {
	if n.IsLeaf() {
		fn(n)
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

func (n *Node) group(name string) *Node {
	if child, ok := n.index[name]; ok {
		return child
	}
	child := &Node{Name: name, index: make(map[string]*Node)}
	n.attach(child)
	return child
}

func (n *Node) attach(child *Node) {
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	n.index[child.Name] = child
	n.Children = append(n.Children, child)
}

func (n *Node) sort() {
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	for _, c := range n.Children {
		c.sort()
	}
}

//Tree holds the top-level commands of each kind for one scope
type Tree struct {
	Slash   []*Node
	Message []*Node
	User    []*Node
}

//Leaf pairs a trigger with the top-level command it is reached through
type Leaf struct {
	Trigger  guildmodels.Trigger
	Kind     guildmodels.CommandKind
	RootName string
	FullName string
}

//Leaves lists every trigger in the tree
func (t *Tree) Leaves() []Leaf {
	var res []Leaf
	collect := func(kind guildmodels.CommandKind, roots []*Node) {
		for _, root := range roots {
			root.walk(func(leaf *Node) {
				res = append(res, Leaf{
					Trigger:  *leaf.Trigger,
					Kind:     kind,
					RootName: root.Name,
					FullName: leaf.Trigger.CommandName(),
				})
			})
		}
	}
	collect(guildmodels.CommandSlash, t.Slash)
	collect(guildmodels.CommandMessage, t.Message)
	collect(guildmodels.CommandUser, t.User)
	return res
}

//Find walks the slash commands along a full command name, returning nil if there is no such node
func (t *Tree) Find(fullName string) *Node {
	root := &Node{Children: t.Slash}
	node := root
	for _, tok := range strings.Fields(fullName) {
		var next *Node
		for _, c := range node.Children {
			if c.Name == tok {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	if node == root {
		return nil
	}
	return node
}

//Len returns the total number of top-level commands
func (t *Tree) Len() int {
	return len(t.Slash) + len(t.Message) + len(t.User)
}
