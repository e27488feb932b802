// Package nodes is the tree behind the catalogue views: a root, a trash,
// folders, catalogues and events. A node has exactly one parent and is moved
// by detaching it first; attaching a node that still has a parent fails.
package nodes

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/justyntemme/tscat/internal/entity"
)

var (
	ErrReparent = errors.New("node already has a parent")
	ErrNotChild = errors.New("node is not a child")
	ErrRow      = errors.New("row out of range")
)

type Kind int

const (
	KindRoot Kind = iota
	KindTrash
	KindFolder
	KindCatalogue
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindTrash:
		return "trash"
	case KindFolder:
		return "folder"
	case KindCatalogue:
		return "catalogue"
	case KindEvent:
		return "event"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Flags describe what a view may do with a node.
type Flags int

const (
	FlagSelectable Flags = 1 << iota
	FlagDragEnabled
	FlagDropEnabled
)

// TrashName is the display name of the trash node.
const TrashName = "Trash"

type Node struct {
	kind     Kind
	id       string
	name     string
	entity   entity.Entity
	assigned bool

	parent   *Node
	children []*Node
}

func NewRoot() *Node  { return &Node{kind: KindRoot, id: "root"} }
func NewTrash() *Node { return &Node{kind: KindTrash, id: "trash", name: TrashName} }

// NewFolder makes a folder node with a fresh local id.
func NewFolder(name string) *Node {
	return &Node{kind: KindFolder, id: "folder-" + uuid.NewString(), name: name}
}

func NewCatalogue(c *entity.Catalogue) *Node {
	return &Node{kind: KindCatalogue, id: c.ID, entity: c}
}

// NewEvent wraps an event listed by a catalogue. assigned is false when the
// event is only there because the catalogue predicate matches it.
func NewEvent(e *entity.Event, assigned bool) *Node {
	return &Node{kind: KindEvent, id: e.ID, entity: e, assigned: assigned}
}

func (n *Node) Kind() Kind            { return n.kind }
func (n *Node) ID() string            { return n.id }
func (n *Node) Parent() *Node         { return n.parent }
func (n *Node) Entity() entity.Entity { return n.entity }
func (n *Node) Assigned() bool        { return n.assigned }

func (n *Node) SetAssigned(assigned bool) { n.assigned = assigned }

// SetEntity swaps in a newer snapshot of the same entity.
func (n *Node) SetEntity(e entity.Entity) {
	if e.UUID() != n.id {
		panic(fmt.Sprintf("nodes: entity %s set on node %s", e.UUID(), n.id))
	}
	n.entity = e
}

// Catalogue returns the wrapped catalogue, or nil.
func (n *Node) Catalogue() *entity.Catalogue {
	c, _ := n.entity.(*entity.Catalogue)
	return c
}

// Event returns the wrapped event, or nil.
func (n *Node) Event() *entity.Event {
	e, _ := n.entity.(*entity.Event)
	return e
}

func (n *Node) Name() string {
	if n.entity != nil {
		return n.entity.DisplayName()
	}
	return n.name
}

func (n *Node) Flags() Flags {
	switch n.kind {
	case KindCatalogue:
		return FlagSelectable | FlagDragEnabled | FlagDropEnabled
	case KindEvent:
		return FlagSelectable | FlagDragEnabled
	case KindFolder, KindTrash:
		return FlagSelectable | FlagDropEnabled
	}
	return FlagSelectable
}

func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the child at row, or nil.
func (n *Node) Child(row int) *Node {
	if row < 0 || row >= len(n.children) {
		return nil
	}
	return n.children[row]
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Row is the index of n in its parent, 0 for a detached node.
func (n *Node) Row() int {
	if n.parent == nil {
		return 0
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return 0
}

func (n *Node) AppendChild(c *Node) error {
	return n.InsertChild(len(n.children), c)
}

// AppendChildren attaches all nodes or none.
func (n *Node) AppendChildren(cs ...*Node) error {
	for _, c := range cs {
		if c.parent != nil {
			return fmt.Errorf("%w: %s under %s", ErrReparent, c.id, c.parent.id)
		}
	}
	for _, c := range cs {
		c.parent = n
	}
	n.children = append(n.children, cs...)
	return nil
}

func (n *Node) InsertChild(row int, c *Node) error {
	if c.parent != nil {
		return fmt.Errorf("%w: %s under %s", ErrReparent, c.id, c.parent.id)
	}
	if row < 0 || row > len(n.children) {
		return fmt.Errorf("%w: %d of %d", ErrRow, row, len(n.children))
	}
	n.children = append(n.children, nil)
	copy(n.children[row+1:], n.children[row:])
	n.children[row] = c
	c.parent = n
	return nil
}

// RemoveChild detaches c and returns the row it occupied.
func (n *Node) RemoveChild(c *Node) (int, error) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s of %s", ErrNotChild, c.id, n.id)
}

// RemoveChildren detaches every child.
func (n *Node) RemoveChildren() []*Node {
	out := n.children
	for _, c := range out {
		c.parent = nil
	}
	n.children = nil
	return out
}

// FullPath lists the folder names from the top of the tree down to n.
func (n *Node) FullPath() []string {
	var path []string
	for p := n; p != nil; p = p.parent {
		if p.kind == KindFolder {
			path = append([]string{p.name}, path...)
		}
	}
	return path
}

// Folder returns the direct child folder called name, or nil.
func (n *Node) Folder(name string) *Node {
	for _, c := range n.children {
		if c.kind == KindFolder && c.name == name {
			return c
		}
	}
	return nil
}

// NodeFromPath resolves a folder path below n. Missing folders are appended
// when create is set, otherwise nil is returned.
func (n *Node) NodeFromPath(path []string, create bool) *Node {
	cur := n
	for _, name := range path {
		next := cur.Folder(name)
		if next == nil {
			if !create {
				return nil
			}
			next = NewFolder(name)
			cur.children = append(cur.children, next)
			next.parent = cur
		}
		cur = next
	}
	return cur
}

// Walk visits n and its descendants depth first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node below n (n included) with the given id.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.id == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// HasCatalogue reports whether a catalogue node exists below n.
func (n *Node) HasCatalogue() bool {
	return !n.Walk(func(c *Node) bool { return c.kind != KindCatalogue })
}
