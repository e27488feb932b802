// Package gui hosts the catalogue window.
package gui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"

	tscat "github.com/justyntemme/tscat/internal/app"
	"github.com/justyntemme/tscat/internal/config"
	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/model"
	"github.com/justyntemme/tscat/internal/nodes"
	"github.com/justyntemme/tscat/internal/state"
	"github.com/justyntemme/tscat/internal/ui"
	"github.com/justyntemme/tscat/internal/undo"
)

// Orchestrator hosts the catalogue window. The window's event loop is the
// owner goroutine of the session: completions are dispatched there at the
// start of every frame.
type Orchestrator struct {
	window  *app.Window
	configs *config.Manager
	session *tscat.Session
	model   *model.RootModel
	ui      *ui.Renderer
	state   ui.State

	expanded map[string]bool
	catalog  *model.CatalogModel
	observed map[*model.CatalogModel]bool
	dirty    bool

	imports []string
	watcher *tscat.FileWatcher
	reload  atomic.Bool
	done    chan struct{}
}

// NewOrchestrator builds the window host. imports are read into the store
// once the window runs.
func NewOrchestrator(configs *config.Manager, session *tscat.Session, imports []string) *Orchestrator {
	return &Orchestrator{
		imports:  imports,
		window:   new(app.Window),
		configs:  configs,
		session:  session,
		ui:       ui.NewRenderer(config.NewHotkeyMatcher(configs.Get().Hotkeys)),
		expanded: make(map[string]bool),
		observed: make(map[*model.CatalogModel]bool),
		dirty:    true,
		done:     make(chan struct{}),
	}
}

func (o *Orchestrator) Run() error {
	o.window.Option(app.Title("tscat"), app.Size(unit.Dp(1100), unit.Dp(700)))

	o.model = o.session.Model()
	o.model.Observe(func(model.Notification) { o.dirty = true })
	o.session.State().Subscribe(o.onStateUpdated)
	o.session.State().Stack().OnCleanChanged(func(bool) { o.dirty = true })
	o.session.Driver().Subscribe(o.onActionDone, driver.General)

	if w, err := tscat.NewFileWatcher(0); err != nil {
		log.Printf("Config watcher: %v", err)
	} else if err := w.Watch(o.configs.Path()); err != nil {
		log.Printf("Config watcher: %v", err)
		w.Close()
	} else {
		o.watcher = w
		defer w.Close()
	}
	go o.wake()
	defer close(o.done)
	for _, path := range o.imports {
		o.importFile(path)
	}

	var ops op.Ops
	for {
		switch e := o.window.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			o.session.Driver().Dispatch()
			if o.reload.Swap(false) {
				o.reloadConfig()
			}
			if o.dirty {
				o.rebuild()
			}

			gtx := app.NewContext(&ops, e)
			evt := o.ui.Layout(gtx, &o.state)
			if evt.Action != ui.ActionNone {
				debug.Log(debug.APP, "UI action %d on %q", evt.Action, evt.ID)
				o.handleUIEvent(evt)
				o.window.Invalidate()
			}
			e.Frame(gtx.Ops)
		}
	}
}

// wake invalidates the window whenever the driver or the config watcher has
// something for the owner goroutine.
func (o *Orchestrator) wake() {
	var changed <-chan string
	if o.watcher != nil {
		changed = o.watcher.Notify()
	}
	completions := o.session.Driver().Completions()
	for {
		select {
		case <-o.done:
			return
		case <-completions:
			o.window.Invalidate()
		case path := <-changed:
			debug.Log(debug.CONFIG, "Config file changed: %s", path)
			o.reload.Store(true)
			o.window.Invalidate()
		}
	}
}

func (o *Orchestrator) reloadConfig() {
	if err := o.configs.LoadFrom(o.configs.Path()); err != nil {
		o.ui.ShowError(fmt.Sprintf("Config: %v", err))
		return
	}
	if err := o.configs.ParseError(); err != nil {
		o.ui.ShowError(fmt.Sprintf("Config: %v", err))
	}
	cfg := o.configs.Get()
	o.session.Configure(cfg)
	o.ui.Hotkeys = config.NewHotkeyMatcher(cfg.Hotkeys)
	o.ui.ShowToast("Configuration reloaded", ui.ToastInfo)
}

func (o *Orchestrator) onActionDone(a driver.Action) {
	if err := a.Err(); err != nil {
		o.ui.ShowError(fmt.Sprintf("%s failed: %v", a, err))
	}
}

// importFile pushes an undoable import of path once the worker has read it.
func (o *Orchestrator) importFile(path string) {
	o.session.ImportAsync(path, "", func(err error) {
		if err != nil {
			o.ui.ShowError(fmt.Sprintf("Import %s: %v", filepath.Base(path), err))
			return
		}
		o.ui.ShowSuccess(fmt.Sprintf("Imported %s", filepath.Base(path)))
	})
}

// onStateUpdated follows active selections, including the ones restored by
// undo, into the window.
func (o *Orchestrator) onStateUpdated(action state.Update, kind entity.Kind, uuids []string) {
	o.dirty = true
	if action != state.ActiveSelect {
		return
	}
	sel := o.session.State().Selection()
	cat := ""
	if len(sel.SelectedCatalogues) > 0 {
		cat = sel.SelectedCatalogues[0]
	}
	o.selectCatalogue(cat)

	o.state.SelectedEvent = ""
	if sel.Type == entity.KindEvent && len(sel.Selected) > 0 {
		o.state.SelectedEvent = sel.Selected[0]
	}
}

func (o *Orchestrator) selectCatalogue(uuid string) {
	o.state.SelectedCatalogue = uuid
	o.catalog = nil
	if uuid == "" {
		return
	}
	node := o.model.Node(uuid)
	if node == nil {
		return
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		o.expanded[p.ID()] = true
	}
	o.catalog = o.model.Catalog(uuid)
	if !o.observed[o.catalog] {
		o.observed[o.catalog] = true
		o.catalog.Observe(func(model.Notification) { o.dirty = true })
	}
}

func (o *Orchestrator) handleUIEvent(evt ui.UIEvent) {
	st := o.session.State()
	env := o.session.Env()

	switch evt.Action {
	case ui.ActionSelectCatalogue:
		if node := o.model.Node(evt.ID); node != nil {
			st.SetCurrentPath(node.FullPath())
		}
		st.Updated(state.ActiveSelect, entity.KindCatalogue, []string{evt.ID})
	case ui.ActionSelectEvent:
		st.Updated(state.ActiveSelect, entity.KindEvent, []string{evt.ID})
	case ui.ActionToggleFolder:
		o.expanded[evt.ID] = !o.expanded[evt.ID]
		if node := o.model.Root().Find(evt.ID); node != nil && node.Kind() == nodes.KindFolder {
			st.SetCurrentPath(node.FullPath())
		}
		o.dirty = true
	case ui.ActionNewCatalogue:
		st.PushCommand(undo.NewCatalogue(env))
	case ui.ActionNewEvent:
		start := time.Now().UTC().Truncate(time.Minute)
		st.PushCommand(undo.NewEvent(env, o.state.SelectedCatalogue, start, start.Add(time.Hour)))
	case ui.ActionMoveToTrash:
		if evt.ID != "" {
			st.PushCommand(undo.MoveEntityToTrash(env, []string{evt.ID}))
		}
	case ui.ActionRestoreFromTrash:
		if evt.ID != "" {
			st.PushCommand(undo.RestoreEntityFromTrash(env, []string{evt.ID}))
		}
	case ui.ActionDeletePermanently:
		if evt.ID != "" {
			st.PushCommand(undo.DeletePermanently(env, []string{evt.ID}))
		}
	case ui.ActionUndo:
		st.Undo()
	case ui.ActionRedo:
		st.Redo()
	case ui.ActionSave:
		o.session.Save(func(err error) {
			if err != nil {
				o.ui.ShowError(fmt.Sprintf("Save failed: %v", err))
				return
			}
			o.ui.ShowSuccess("Saved")
		})
	case ui.ActionRefresh:
		o.model.Refresh()
	}
}

// rebuild derives the frame state from the models and the undo stack.
func (o *Orchestrator) rebuild() {
	o.dirty = false

	if o.catalog != nil && (o.catalog.Released() || o.model.Node(o.catalog.UUID()) == nil) {
		o.catalog = nil
		o.state.SelectedCatalogue = ""
	}
	o.state.Tree = ui.Flatten(o.model.Root(), o.expanded)
	o.state.Columns = nil
	o.state.Events = nil
	if o.catalog != nil {
		o.state.Columns = o.catalog.Columns()
		o.state.Events = ui.EventRows(o.catalog)
	}
	if o.state.SelectedEvent != "" && !hasEvent(o.state.Events, o.state.SelectedEvent) {
		o.state.SelectedEvent = ""
	}

	stack := o.session.State().Stack()
	o.state.CanUndo = stack.CanUndo()
	o.state.CanRedo = stack.CanRedo()
	o.state.UndoText = stack.UndoText()
	o.state.RedoText = stack.RedoText()
	o.state.Clean = stack.IsClean()
	o.ui.Prune(&o.state)
}

func hasEvent(rows []ui.EventRow, id string) bool {
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Main runs the window on its own goroutine and hands the main goroutine to
// gio, which needs it on some platforms.
func Main(configs *config.Manager, session *tscat.Session, imports []string) {
	go func() {
		o := NewOrchestrator(configs, session, imports)
		err := o.Run()
		if cerr := session.Close(); cerr != nil {
			log.Printf("Close: %v", cerr)
		}
		if err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
