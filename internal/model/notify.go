// Package model projects the driver's completed actions onto node trees: the
// folder/catalogue hierarchy with its trash, and the event table of each
// catalogue. Every structural change is announced by a begin/end pair of
// notifications around the exact rows it touches.
package model

import (
	"fmt"
	"log"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/nodes"
)

type NotificationKind int

const (
	InsertBegin NotificationKind = iota
	InsertEnd
	RemoveBegin
	RemoveEnd
	ResetBegin
	ResetEnd
	DataChanged
	ColumnsChanged
)

func (k NotificationKind) String() string {
	switch k {
	case InsertBegin:
		return "insert-begin"
	case InsertEnd:
		return "insert-end"
	case RemoveBegin:
		return "remove-begin"
	case RemoveEnd:
		return "remove-end"
	case ResetBegin:
		return "reset-begin"
	case ResetEnd:
		return "reset-end"
	case DataChanged:
		return "data-changed"
	case ColumnsChanged:
		return "columns-changed"
	}
	return fmt.Sprintf("NotificationKind(%d)", int(k))
}

// Notification describes rows First..Last (inclusive) under Parent. Node is
// the inserted, removed or changed child for single row notifications.
type Notification struct {
	Kind   NotificationKind
	Parent *nodes.Node
	First  int
	Last   int
	Node   *nodes.Node
}

type Observer func(n Notification)

type notifier struct {
	observers []Observer
}

// Observe registers fn for every notification.
func (n *notifier) Observe(fn Observer) {
	n.observers = append(n.observers, fn)
}

func (n *notifier) emit(note Notification) {
	debug.Log(debug.MODEL_NOTIFY, "%s %s [%d,%d]", note.Kind, note.Parent.ID(), note.First, note.Last)
	for _, fn := range n.observers {
		fn(note)
	}
}

func (n *notifier) insert(parent *nodes.Node, row int, child *nodes.Node) {
	n.emit(Notification{Kind: InsertBegin, Parent: parent, First: row, Last: row, Node: child})
	if err := parent.InsertChild(row, child); err != nil {
		log.Printf("Model Error: %v", err)
	}
	n.emit(Notification{Kind: InsertEnd, Parent: parent, First: row, Last: row, Node: child})
}

func (n *notifier) remove(child *nodes.Node) {
	parent := child.Parent()
	if parent == nil {
		return
	}
	row := child.Row()
	n.emit(Notification{Kind: RemoveBegin, Parent: parent, First: row, Last: row, Node: child})
	if _, err := parent.RemoveChild(child); err != nil {
		log.Printf("Model Error: %v", err)
	}
	n.emit(Notification{Kind: RemoveEnd, Parent: parent, First: row, Last: row, Node: child})
}

func (n *notifier) changed(child *nodes.Node) {
	parent := child.Parent()
	if parent == nil {
		return
	}
	row := child.Row()
	n.emit(Notification{Kind: DataChanged, Parent: parent, First: row, Last: row, Node: child})
}

// reset brackets a wholesale replacement of parent's children.
func (n *notifier) reset(parent *nodes.Node, rebuild func()) {
	n.emit(Notification{Kind: ResetBegin, Parent: parent, First: 0, Last: parent.ChildCount() - 1})
	rebuild()
	n.emit(Notification{Kind: ResetEnd, Parent: parent, First: 0, Last: parent.ChildCount() - 1})
}
