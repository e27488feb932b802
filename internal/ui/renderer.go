package ui

import (
	"image/color"
	"strings"

	"gioui.org/font"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/justyntemme/tscat/internal/config"
	"github.com/justyntemme/tscat/internal/nodes"
)

// Renderer draws the catalogue outline on the left and the event table of
// the selected catalogue on the right.
type Renderer struct {
	Theme   *material.Theme
	Hotkeys *config.HotkeyMatcher

	treeList  layout.List
	tableList layout.List
	clicks    map[string]*widget.Clickable

	newCatBtn   widget.Clickable
	newEventBtn widget.Clickable
	trashBtn    widget.Clickable
	restoreBtn  widget.Clickable
	deleteBtn   widget.Clickable
	undoBtn     widget.Clickable
	redoBtn     widget.Clickable
	saveBtn     widget.Clickable
	refreshBtn  widget.Clickable

	toast toast
}

func NewRenderer(hotkeys *config.HotkeyMatcher) *Renderer {
	r := &Renderer{
		Theme:   material.NewTheme(),
		Hotkeys: hotkeys,
		clicks:  make(map[string]*widget.Clickable),
	}
	r.treeList.Axis = layout.Vertical
	r.tableList.Axis = layout.Vertical
	return r
}

// click keeps one Clickable per node so presses survive a state rebuild.
func (r *Renderer) click(id string) *widget.Clickable {
	c, ok := r.clicks[id]
	if !ok {
		c = new(widget.Clickable)
		r.clicks[id] = c
	}
	return c
}

// Prune drops the widget state of rows that state no longer shows.
func (r *Renderer) Prune(state *State) {
	for id := range r.clicks {
		if state.treeIndex(id) < 0 && state.eventIndex(id) < 0 {
			delete(r.clicks, id)
		}
	}
}

func setEvent(out *UIEvent, evt UIEvent) {
	if out.Action == ActionNone {
		*out = evt
	}
}

// Layout renders one frame and returns the first action requested in it.
func (r *Renderer) Layout(gtx layout.Context, state *State) UIEvent {
	var out UIEvent
	r.processHotkeys(gtx, state, &out)

	layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return r.layoutToolbar(gtx, state, &out)
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
						layout.Flexed(0.3, func(gtx layout.Context) layout.Dimensions {
							return r.layoutTree(gtx, state, &out)
						}),
						layout.Flexed(0.7, func(gtx layout.Context) layout.Dimensions {
							return r.layoutTable(gtx, state, &out)
						}),
					)
				}),
			)
		}),
		layout.Stacked(r.layoutToast),
	)
	return out
}

func (r *Renderer) processHotkeys(gtx layout.Context, state *State, out *UIEvent) {
	if r.Hotkeys == nil {
		return
	}
	filters := r.Hotkeys.Filters(nil)
	if len(filters) == 0 {
		return
	}
	for {
		e, ok := gtx.Event(filters...)
		if !ok {
			break
		}
		k, ok := e.(key.Event)
		if !ok || k.State != key.Press {
			continue
		}
		h := r.Hotkeys
		switch {
		case h.Undo.Matches(k):
			setEvent(out, UIEvent{Action: ActionUndo})
		case h.Redo.Matches(k):
			setEvent(out, UIEvent{Action: ActionRedo})
		case h.Save.Matches(k):
			setEvent(out, UIEvent{Action: ActionSave})
		case h.NewCatalogue.Matches(k):
			setEvent(out, UIEvent{Action: ActionNewCatalogue})
		case h.NewEvent.Matches(k):
			setEvent(out, UIEvent{Action: ActionNewEvent})
		case h.MoveToTrash.Matches(k):
			setEvent(out, UIEvent{Action: ActionMoveToTrash, ID: selectedID(state)})
		case h.PermanentDelete.Matches(k):
			setEvent(out, UIEvent{Action: ActionDeletePermanently, ID: selectedID(state)})
		case h.Refresh.Matches(k):
			setEvent(out, UIEvent{Action: ActionRefresh})
		case h.Up.Matches(k), h.Down.Matches(k):
			if len(state.Events) == 0 {
				continue
			}
			i := state.eventIndex(state.SelectedEvent)
			if h.Up.Matches(k) {
				i = max(i-1, 0)
			} else {
				i = min(i+1, len(state.Events)-1)
			}
			r.tableList.ScrollTo(i)
			setEvent(out, UIEvent{Action: ActionSelectEvent, ID: state.Events[i].ID})
		}
	}
}

// selectedID prefers the selected event over the selected catalogue.
func selectedID(state *State) string {
	if state.SelectedEvent != "" {
		return state.SelectedEvent
	}
	return state.SelectedCatalogue
}

func (r *Renderer) button(gtx layout.Context, btn *widget.Clickable, label string, enabled bool, out *UIEvent, evt UIEvent) layout.Dimensions {
	if enabled && btn.Clicked(gtx) {
		setEvent(out, evt)
	}
	if !enabled {
		gtx = gtx.Disabled()
	}
	return layout.UniformInset(unit.Dp(4)).Layout(gtx, material.Button(r.Theme, btn, label).Layout)
}

func (r *Renderer) layoutToolbar(gtx layout.Context, state *State, out *UIEvent) layout.Dimensions {
	sel := selectedID(state)
	inTrash := false
	if i := state.treeIndex(state.SelectedCatalogue); i >= 0 && state.SelectedEvent == "" {
		inTrash = state.Tree[i].InTrash
	}
	undoLabel, redoLabel := "Undo", "Redo"
	if state.UndoText != "" {
		undoLabel = "Undo " + state.UndoText
	}
	if state.RedoText != "" {
		redoLabel = "Redo " + state.RedoText
	}
	saveLabel := "Save"
	if !state.Clean {
		saveLabel = "Save*"
	}

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.newCatBtn, "New Catalogue", true, out, UIEvent{Action: ActionNewCatalogue})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.newEventBtn, "New Event", state.SelectedCatalogue != "", out, UIEvent{Action: ActionNewEvent})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.trashBtn, "Move to Trash", sel != "" && !inTrash, out, UIEvent{Action: ActionMoveToTrash, ID: sel})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.restoreBtn, "Restore", sel != "" && inTrash, out, UIEvent{Action: ActionRestoreFromTrash, ID: sel})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.deleteBtn, "Delete", sel != "", out, UIEvent{Action: ActionDeletePermanently, ID: sel})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.undoBtn, undoLabel, state.CanUndo, out, UIEvent{Action: ActionUndo})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.redoBtn, redoLabel, state.CanRedo, out, UIEvent{Action: ActionRedo})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.saveBtn, saveLabel, !state.Clean, out, UIEvent{Action: ActionSave})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.button(gtx, &r.refreshBtn, "Refresh", true, out, UIEvent{Action: ActionRefresh})
		}),
	)
}

func fill(gtx layout.Context, c color.NRGBA) layout.Dimensions {
	paint.FillShape(gtx.Ops, c, clip.Rect{Max: gtx.Constraints.Min}.Op())
	return layout.Dimensions{Size: gtx.Constraints.Min}
}

func (r *Renderer) layoutTree(gtx layout.Context, state *State, out *UIEvent) layout.Dimensions {
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions { return fill(gtx, colSidebar) }),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return r.treeList.Layout(gtx, len(state.Tree), func(gtx layout.Context, i int) layout.Dimensions {
				return r.layoutTreeRow(gtx, &state.Tree[i], state.SelectedCatalogue == state.Tree[i].ID, out)
			})
		}),
	)
}

func (r *Renderer) layoutTreeRow(gtx layout.Context, row *TreeRow, selected bool, out *UIEvent) layout.Dimensions {
	btn := r.click(row.ID)
	if btn.Clicked(gtx) {
		if row.Kind == nodes.KindCatalogue {
			setEvent(out, UIEvent{Action: ActionSelectCatalogue, ID: row.ID})
		} else {
			setEvent(out, UIEvent{Action: ActionToggleFolder, ID: row.ID})
		}
	}

	name := row.Name
	textColor := colBlack
	weight := font.Normal
	switch {
	case row.Kind == nodes.KindFolder || row.Kind == nodes.KindTrash:
		marker := "▸ "
		if row.Expanded {
			marker = "▾ "
		}
		name = marker + name
		textColor = colFolder
		weight = font.Bold
	case row.InTrash:
		textColor = colDisabled
	case row.Dynamic:
		textColor = colDynamic
	}

	return material.Clickable(gtx, btn, func(gtx layout.Context) layout.Dimensions {
		return layout.Stack{}.Layout(gtx,
			layout.Expanded(func(gtx layout.Context) layout.Dimensions {
				if selected {
					return fill(gtx, colSelected)
				}
				return layout.Dimensions{}
			}),
			layout.Stacked(func(gtx layout.Context) layout.Dimensions {
				return layout.Inset{
					Top: unit.Dp(6), Bottom: unit.Dp(6), Left: unit.Dp(8 + 16*float32(row.Depth)), Right: unit.Dp(8),
				}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					gtx.Constraints.Min.X = gtx.Constraints.Max.X
					lbl := material.Body1(r.Theme, name)
					lbl.Color = textColor
					lbl.Font.Weight = weight
					lbl.MaxLines = 1
					return lbl.Layout(gtx)
				})
			}),
		)
	})
}

func (r *Renderer) layoutCells(gtx layout.Context, cells []string, c color.NRGBA, weight font.Weight) layout.Dimensions {
	children := make([]layout.FlexChild, len(cells))
	for i, cell := range cells {
		children[i] = layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			lbl := material.Body2(r.Theme, cell)
			lbl.Color = c
			lbl.Font.Weight = weight
			lbl.MaxLines = 1
			return layout.Inset{Left: unit.Dp(6), Right: unit.Dp(6)}.Layout(gtx, lbl.Layout)
		})
	}
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

func (r *Renderer) layoutTable(gtx layout.Context, state *State, out *UIEvent) layout.Dimensions {
	if state.SelectedCatalogue == "" {
		return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			lbl := material.Body1(r.Theme, "Select a catalogue")
			lbl.Color = colGray
			return lbl.Layout(gtx)
		})
	}
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Stack{}.Layout(gtx,
				layout.Expanded(func(gtx layout.Context) layout.Dimensions { return fill(gtx, colHeaderBg) }),
				layout.Stacked(func(gtx layout.Context) layout.Dimensions {
					gtx.Constraints.Min.X = gtx.Constraints.Max.X
					return layout.UniformInset(unit.Dp(6)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						return r.layoutCells(gtx, headers(state.Columns), colBlack, font.Bold)
					})
				}),
			)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return r.tableList.Layout(gtx, len(state.Events), func(gtx layout.Context, i int) layout.Dimensions {
				row := &state.Events[i]
				btn := r.click(row.ID)
				if btn.Clicked(gtx) {
					setEvent(out, UIEvent{Action: ActionSelectEvent, ID: row.ID})
				}
				textColor := colBlack
				if row.Dimmed {
					textColor = colDisabled
				}
				return material.Clickable(gtx, btn, func(gtx layout.Context) layout.Dimensions {
					return layout.Stack{}.Layout(gtx,
						layout.Expanded(func(gtx layout.Context) layout.Dimensions {
							if row.ID == state.SelectedEvent {
								return fill(gtx, colSelected)
							}
							return layout.Dimensions{}
						}),
						layout.Stacked(func(gtx layout.Context) layout.Dimensions {
							gtx.Constraints.Min.X = gtx.Constraints.Max.X
							return layout.UniformInset(unit.Dp(6)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
								return r.layoutCells(gtx, row.Cells, textColor, font.Normal)
							})
						}),
					)
				})
			})
		}),
	)
}

func headers(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if c != "" {
			out[i] = strings.ToUpper(c[:1]) + c[1:]
		}
	}
	return out
}
