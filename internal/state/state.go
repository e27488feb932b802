// Package state holds the selection shared by the views and the undo stack
// that commands are pushed onto.
package state

import (
	"slices"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/entity"
)

// Update names the kind of change announced through AppState.Updated.
type Update string

const (
	ActiveSelect  Update = "active_select"
	PassiveSelect Update = "passive_select"
	Changed       Update = "changed"
	Inserted      Update = "inserted"
	Deleted       Update = "deleted"
	Moved         Update = "moved"
)

// Selection is what the user is looking at.
type Selection struct {
	Selected           []string
	Type               entity.Kind
	SelectedCatalogues []string
	CurrentPath        []string
}

// Clone deep-copies s.
func (s Selection) Clone() Selection {
	return Selection{
		Selected:           slices.Clone(s.Selected),
		Type:               s.Type,
		SelectedCatalogues: slices.Clone(s.SelectedCatalogues),
		CurrentPath:        slices.Clone(s.CurrentPath),
	}
}

// Equal compares uuid lists and paths element-wise.
func (s Selection) Equal(o Selection) bool {
	return s.Type == o.Type &&
		slices.Equal(s.Selected, o.Selected) &&
		slices.Equal(s.SelectedCatalogues, o.SelectedCatalogues) &&
		slices.Equal(s.CurrentPath, o.CurrentPath)
}

type Listener func(action Update, kind entity.Kind, uuids []string)

// AppState is owned by the driver's owner goroutine.
type AppState struct {
	selection Selection
	listeners []Listener
	stack     *Stack
}

func New() *AppState {
	return &AppState{
		selection: Selection{Type: entity.KindCatalogue},
		stack:     NewStack(),
	}
}

// Selection returns a deep copy of the current selection.
func (s *AppState) Selection() Selection { return s.selection.Clone() }

func (s *AppState) Stack() *Stack { return s.stack }

// Subscribe registers fn for every update.
func (s *AppState) Subscribe(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Updated records a change and tells the listeners. An active selection
// replaces the selected uuids, and the selected catalogues when kind is
// catalogue.
func (s *AppState) Updated(action Update, kind entity.Kind, uuids []string) {
	if action == ActiveSelect {
		if !slices.Equal(uuids, s.selection.Selected) || kind != s.selection.Type {
			s.selection.Selected = slices.Clone(uuids)
			s.selection.Type = kind
			if kind == entity.KindCatalogue {
				s.selection.SelectedCatalogues = slices.Clone(uuids)
			}
		} else {
			debug.Log(debug.STATE, "Already active: %v", uuids)
		}
	}
	debug.Log(debug.STATE, "Updated action:%s kind:%s uuids:%v", action, kind, uuids)
	s.emit(action, kind, uuids)
}

// SetCurrentPath moves the folder the next catalogue is created in.
func (s *AppState) SetCurrentPath(path []string) {
	s.selection.CurrentPath = slices.Clone(path)
}

// Restore puts back a selection snapshot and announces it as an active
// selection.
func (s *AppState) Restore(sel Selection) {
	s.selection = sel.Clone()
	debug.Log(debug.STATE, "Restored selection %v", sel.Selected)
	s.emit(ActiveSelect, sel.Type, slices.Clone(sel.Selected))
}

func (s *AppState) emit(action Update, kind entity.Kind, uuids []string) {
	for _, fn := range s.listeners {
		fn(action, kind, uuids)
	}
}

// PushCommand applies cmd and records it for undo.
func (s *AppState) PushCommand(cmd Command) { s.stack.Push(cmd) }

func (s *AppState) Undo() { s.stack.Undo() }
func (s *AppState) Redo() { s.stack.Redo() }
