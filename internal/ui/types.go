package ui

import "github.com/justyntemme/tscat/internal/nodes"

type UIAction int

const (
	ActionNone UIAction = iota
	ActionSelectCatalogue
	ActionSelectEvent
	ActionToggleFolder
	ActionNewCatalogue
	ActionNewEvent
	ActionMoveToTrash
	ActionRestoreFromTrash
	ActionDeletePermanently
	ActionUndo
	ActionRedo
	ActionSave
	ActionRefresh
)

// UIEvent is what a frame asks the orchestrator to do. ID is the node the
// action applies to.
type UIEvent struct {
	Action UIAction
	ID     string
}

// TreeRow is one visible line of the catalogue outline.
type TreeRow struct {
	ID       string
	Name     string
	Kind     nodes.Kind
	Depth    int
	Expanded bool
	InTrash  bool
	Dynamic  bool
}

// EventRow is one line of the event table, already formatted.
type EventRow struct {
	ID     string
	Cells  []string
	Dimmed bool
}

// State is everything a frame renders. It is rebuilt by the orchestrator
// whenever a model announces a change.
type State struct {
	Tree    []TreeRow
	Columns []string
	Events  []EventRow

	SelectedCatalogue string
	SelectedEvent     string

	CanUndo  bool
	CanRedo  bool
	UndoText string
	RedoText string
	Clean    bool
}

func (s *State) treeIndex(id string) int {
	for i, row := range s.Tree {
		if row.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) eventIndex(id string) int {
	for i, row := range s.Events {
		if row.ID == id {
			return i
		}
	}
	return -1
}
