package undo

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/state"
)

const (
	DefaultAuthor        = "Author"
	DefaultCatalogueName = "New Catalogue"
)

func (env *Env) author() string {
	if env.Author != "" {
		return env.Author
	}
	return DefaultAuthor
}

// NewCatalogue creates a catalogue in the current folder and selects it. The
// uuid is fixed up front so redo after undo recreates the same catalogue.
func NewCatalogue(env *Env) *Command {
	id := uuid.NewString()
	c := newCommand(env, []string{id})
	c.text = "Create new Catalogue"

	name := env.CatalogueName
	if name == "" {
		name = DefaultCatalogueName
	}
	path := c.selection.CurrentPath

	c.redo = func(done func()) {
		fields := entity.NewAttributes()
		fields.Set(entity.FieldUUID, entity.String(id))
		fields.Set(entity.FieldName, entity.String(name))
		fields.Set(entity.FieldAuthor, entity.String(env.author()))
		if len(path) > 0 {
			fields.Set(entity.FieldPath, entity.Strings(path))
		}
		c.chain(done, func() {
			c.notify(state.Inserted, entity.KindCatalogue, c.targets)
			env.State.Updated(state.ActiveSelect, entity.KindCatalogue, c.targets)
			done()
		}, &driver.CreateEntityAction{Kind: entity.KindCatalogue, Fields: fields})
	}
	c.undo = func(done func()) {
		c.chain(done, func() {
			c.notify(state.Deleted, entity.KindCatalogue, c.targets)
			c.restore(done)
		}, &driver.DeletePermanentlyAction{UUIDs: c.targets})
	}
	return c
}

// NewEvent creates an event from start to stop and, when catalogue is set or
// a catalogue is selected, assigns it there.
func NewEvent(env *Env, catalogue string, start, stop time.Time) *Command {
	id := uuid.NewString()
	c := newCommand(env, []string{id})
	c.text = "Create new Event"
	if catalogue == "" && len(c.selection.SelectedCatalogues) > 0 {
		catalogue = c.selection.SelectedCatalogues[0]
	}

	c.redo = func(done func()) {
		fields := entity.NewAttributes()
		fields.Set(entity.FieldUUID, entity.String(id))
		fields.Set(entity.FieldStart, entity.Time(start))
		fields.Set(entity.FieldStop, entity.Time(stop))
		fields.Set(entity.FieldAuthor, entity.String(env.author()))

		actions := []driver.Action{&driver.CreateEntityAction{Kind: entity.KindEvent, Fields: fields}}
		if catalogue != "" {
			actions = append(actions, &driver.AddEventsToCatalogueAction{Catalogue: catalogue, UUIDs: c.targets})
		}
		c.chain(done, func() {
			c.notify(state.Inserted, entity.KindEvent, c.targets)
			env.State.Updated(state.ActiveSelect, entity.KindEvent, c.targets)
			done()
		}, actions...)
	}
	c.undo = func(done func()) {
		c.chain(done, func() {
			c.notify(state.Deleted, entity.KindEvent, c.targets)
			c.restore(done)
		}, &driver.DeletePermanentlyAction{UUIDs: c.targets})
	}
	return c
}

// snapshot reads the current value of name on each target. Targets lacking
// the attribute report an invalid Value.
func (c *Command) snapshot(name string) []entity.Value {
	values := make([]entity.Value, len(c.targets))
	for i, id := range c.targets {
		if v, ok := c.env.Driver.EntityFromUUID(id).Field(name); ok {
			values[i] = v
		}
	}
	return values
}

func repeat(v entity.Value, n int) []entity.Value {
	out := make([]entity.Value, n)
	for i := range out {
		out[i] = v.Clone()
	}
	return out
}

// assign builds the actions that give each target its value back, deleting
// the attribute where the value is invalid.
func (c *Command) assign(name string, values []entity.Value) []driver.Action {
	var setIDs, delIDs []string
	var setValues []entity.Value
	for i, id := range c.targets {
		if values[i].IsValid() {
			setIDs = append(setIDs, id)
			setValues = append(setValues, values[i])
		} else {
			delIDs = append(delIDs, id)
		}
	}
	var actions []driver.Action
	if len(setIDs) > 0 {
		actions = append(actions, &driver.SetAttributeAction{UUIDs: setIDs, Name: name, Values: setValues})
	}
	if len(delIDs) > 0 {
		actions = append(actions, &driver.DeleteAttributeAction{UUIDs: delIDs, Name: name})
	}
	return actions
}

// changed announces the change to the targets and brings the selection back.
func (c *Command) changed(done func()) func() {
	return func() {
		c.notify(state.Changed, c.kindOf(c.targets), c.targets)
		c.restore(done)
	}
}

// SetAttributeValue sets name to value on uuids, or on the selection when
// uuids is nil.
func SetAttributeValue(env *Env, uuids []string, name string, value entity.Value) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Change %s to %s in %s", name, value, c.names(c.targets))
	previous := c.snapshot(name)

	c.redo = func(done func()) {
		c.chain(done, c.changed(done), &driver.SetAttributeAction{UUIDs: c.targets, Name: name, Values: repeat(value, len(c.targets))})
	}
	c.undo = func(done func()) {
		c.chain(done, c.changed(done), c.assign(name, previous)...)
	}
	return c
}

// NewAttribute adds a variable attribute.
func NewAttribute(env *Env, uuids []string, name string, value entity.Value) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Create attribute %s in %s", name, c.names(c.targets))

	c.redo = func(done func()) {
		c.chain(done, c.changed(done), &driver.SetAttributeAction{UUIDs: c.targets, Name: name, Values: repeat(value, len(c.targets))})
	}
	c.undo = func(done func()) {
		c.chain(done, c.changed(done), &driver.DeleteAttributeAction{UUIDs: c.targets, Name: name})
	}
	return c
}

// RenameAttribute moves the value of oldName to newName.
func RenameAttribute(env *Env, uuids []string, oldName, newName string) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Rename attribute from %s to %s in %s", oldName, newName, c.names(c.targets))
	values := c.snapshot(oldName)

	move := func(from, to string) step {
		return func(done func()) {
			c.chain(done, c.changed(done),
				&driver.SetAttributeAction{UUIDs: c.targets, Name: to, Values: values},
				&driver.DeleteAttributeAction{UUIDs: c.targets, Name: from},
			)
		}
	}
	c.redo = move(oldName, newName)
	c.undo = move(newName, oldName)
	return c
}

// DeleteAttribute removes a variable attribute, keeping its values for undo.
func DeleteAttribute(env *Env, uuids []string, name string) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Delete attribute %s from %s", name, c.names(c.targets))
	values := c.snapshot(name)

	c.redo = func(done func()) {
		c.chain(done, c.changed(done), &driver.DeleteAttributeAction{UUIDs: c.targets, Name: name})
	}
	c.undo = func(done func()) {
		c.chain(done, c.changed(done), c.assign(name, values)...)
	}
	return c
}

func (c *Command) moved(done func()) func() {
	return func() {
		c.notify(state.Moved, c.kindOf(c.targets), c.targets)
		c.restore(done)
	}
}

// MoveEntityToTrash moves uuids, or the selection, to the trash.
func MoveEntityToTrash(env *Env, uuids []string) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Move %s to Trash", c.names(c.targets))

	c.redo = func(done func()) {
		c.chain(done, c.moved(done), &driver.MoveToTrashAction{UUIDs: c.targets})
	}
	c.undo = func(done func()) {
		c.chain(done, c.moved(done), &driver.RestoreFromTrashAction{UUIDs: c.targets})
	}
	return c
}

// RestoreEntityFromTrash takes uuids, or the selection, out of the trash.
func RestoreEntityFromTrash(env *Env, uuids []string) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Restore %s from Trash", c.names(c.targets))

	c.redo = func(done func()) {
		c.chain(done, c.moved(done), &driver.RestoreFromTrashAction{UUIDs: c.targets})
	}
	c.undo = func(done func()) {
		c.chain(done, c.moved(done), &driver.MoveToTrashAction{UUIDs: c.targets})
	}
	return c
}

// DeletePermanently deletes uuids, or the selection, from the store. Undo
// recreates them from the snapshot taken by the delete.
func DeletePermanently(env *Env, uuids []string) *Command {
	c := newCommand(env, uuids)
	c.text = fmt.Sprintf("Delete %s permanently", c.names(c.targets))
	kind := c.kindOf(c.targets)
	var deleted []driver.DeletedEntity

	c.redo = func(done func()) {
		a := &driver.DeletePermanentlyAction{UUIDs: c.targets}
		c.chain(done, func() {
			deleted = a.Deleted()
			c.notify(state.Deleted, kind, c.targets)
			done()
		}, a)
	}
	c.undo = func(done func()) {
		c.chain(done, func() {
			c.notify(state.Inserted, kind, c.targets)
			c.restore(done)
		}, &driver.RestorePermanentlyDeletedAction{Deleted: deleted})
	}
	return c
}

// AddEventsToCatalogue assigns events. Undo only unassigns the events that
// were not assigned before.
func AddEventsToCatalogue(env *Env, catalogue string, events []string) *Command {
	c := newCommand(env, events)
	c.text = fmt.Sprintf("Add %d events to %s", len(c.targets), c.name(catalogue))
	var added []string

	c.redo = func(done func()) {
		a := &driver.AddEventsToCatalogueAction{Catalogue: catalogue, UUIDs: c.targets}
		c.chain(done, func() {
			added = a.Added()
			c.notify(state.Changed, entity.KindCatalogue, []string{catalogue})
			c.restore(done)
		}, a)
	}
	c.undo = func(done func()) {
		var actions []driver.Action
		if len(added) > 0 {
			actions = append(actions, &driver.RemoveEventsFromCatalogueAction{Catalogue: catalogue, UUIDs: added})
		}
		c.chain(done, func() {
			c.notify(state.Changed, entity.KindCatalogue, []string{catalogue})
			c.restore(done)
		}, actions...)
	}
	return c
}

// RemoveEventsFromCatalogue unassigns events, or the selected events.
func RemoveEventsFromCatalogue(env *Env, catalogue string, events []string) *Command {
	c := newCommand(env, events)
	c.text = fmt.Sprintf("Remove %d events from %s", len(c.targets), c.name(catalogue))
	var removed []string

	c.redo = func(done func()) {
		a := &driver.RemoveEventsFromCatalogueAction{Catalogue: catalogue, UUIDs: c.targets}
		c.chain(done, func() {
			removed = a.Removed()
			c.notify(state.Changed, entity.KindCatalogue, []string{catalogue})
			c.restore(done)
		}, a)
	}
	c.undo = func(done func()) {
		var actions []driver.Action
		if len(removed) > 0 {
			actions = append(actions, &driver.AddEventsToCatalogueAction{Catalogue: catalogue, UUIDs: removed})
		}
		c.chain(done, func() {
			c.notify(state.Changed, entity.KindCatalogue, []string{catalogue})
			c.restore(done)
		}, actions...)
	}
	return c
}

// Import writes a canonical dictionary to the store. Undo deletes the
// entities the import created and puts back the ones it overwrote.
func Import(env *Env, source string, d *exchange.Dict) *Command {
	c := newCommand(env, []string{})
	c.targets = d.CatalogueUUIDs()
	c.text = fmt.Sprintf("Import %s", source)
	var (
		created  []string
		replaced []driver.DeletedEntity
	)

	c.redo = func(done func()) {
		a := &driver.ImportCanonicalizedDictAction{Dict: d}
		c.chain(done, func() {
			created, replaced = a.Created(), a.Replaced()
			c.notify(state.Inserted, entity.KindCatalogue, c.targets)
			done()
		}, a)
	}
	c.undo = func(done func()) {
		all := slices.Clone(created)
		var kept []string
		for _, r := range replaced {
			all = append(all, r.UUID())
			if r.Kind == entity.KindCatalogue {
				kept = append(kept, r.UUID())
			}
		}
		actions := []driver.Action{&driver.DeletePermanentlyAction{UUIDs: all}}
		if len(replaced) > 0 {
			actions = append(actions, &driver.RestorePermanentlyDeletedAction{Deleted: replaced})
		}
		c.chain(done, func() {
			c.notify(state.Deleted, entity.KindCatalogue, without(c.targets, kept))
			c.notify(state.Changed, entity.KindCatalogue, kept)
			c.restore(done)
		}, actions...)
	}
	return c
}

// without returns the uuids of ids not in drop.
func without(ids, drop []string) []string {
	var out []string
	for _, id := range ids {
		if !slices.Contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}
