package undo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/state"
	"github.com/justyntemme/tscat/internal/store"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tscat.db"))
	require.NoError(t, err)
	d := driver.New(s)
	d.Start()
	t.Cleanup(func() {
		d.Stop(time.Second)
		s.Close()
	})
	return &Env{Driver: d, State: state.New(), Author: "Jane"}
}

func do(t *testing.T, d *driver.Driver, a driver.Action) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Do(ctx, a))
}

// settle dispatches completions until c has no pending transition.
func settle(t *testing.T, d *driver.Driver, c *Command) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for c.Phase() == RedoPending || c.Phase() == UndoPending {
		select {
		case <-d.Completions():
			d.Dispatch()
		case <-deadline:
			t.Fatalf("%q still %s", c.Text(), c.Phase())
		}
	}
}

func push(t *testing.T, env *Env, c *Command) {
	t.Helper()
	env.State.PushCommand(c)
	settle(t, env.Driver, c)
	require.Equal(t, Applied, c.Phase())
}

func undo(t *testing.T, env *Env, c *Command) {
	t.Helper()
	env.State.Undo()
	settle(t, env.Driver, c)
	require.Equal(t, Reverted, c.Phase())
}

func redo(t *testing.T, env *Env, c *Command) {
	t.Helper()
	env.State.Redo()
	settle(t, env.Driver, c)
	require.Equal(t, Applied, c.Phase())
}

func createCatalogue(t *testing.T, d *driver.Driver, pairs ...any) *entity.Catalogue {
	t.Helper()
	fields, err := entity.AttributesOf(pairs...)
	require.NoError(t, err)
	a := &driver.CreateEntityAction{Kind: entity.KindCatalogue, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Catalogue)
}

func createEvent(t *testing.T, d *driver.Driver, pairs ...any) *entity.Event {
	t.Helper()
	now := time.Now()
	fields, err := entity.AttributesOf(append([]any{entity.FieldStart, now, entity.FieldStop, now}, pairs...)...)
	require.NoError(t, err)
	a := &driver.CreateEntityAction{Kind: entity.KindEvent, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Event)
}

func catalogueEvents(t *testing.T, d *driver.Driver, uuid string) []entity.CatalogueEvent {
	t.Helper()
	a := &driver.GetCatalogueAction{UUID: uuid}
	do(t, d, a)
	return a.Events()
}

func TestUndoRestoresSelection(t *testing.T) {
	env := newTestEnv(t)
	c := createCatalogue(t, env.Driver, entity.FieldName, "before")
	env.State.Updated(state.ActiveSelect, entity.KindCatalogue, []string{c.ID})

	cmd := SetAttributeValue(env, nil, entity.FieldName, entity.String("X"))
	assert.Equal(t, "Change name to X in before", cmd.Text())
	push(t, env, cmd)
	assert.Equal(t, "X", env.Driver.CatalogueFromUUID(c.ID).Name)

	env.State.Updated(state.ActiveSelect, entity.KindEvent, []string{"somewhere-else"})
	undo(t, env, cmd)

	sel := env.State.Selection()
	assert.Equal(t, []string{c.ID}, sel.Selected)
	assert.Equal(t, entity.KindCatalogue, sel.Type)
	assert.Equal(t, "before", env.Driver.CatalogueFromUUID(c.ID).Name)
}

func TestNewCatalogueThenEvent(t *testing.T) {
	env := newTestEnv(t)
	env.State.SetCurrentPath([]string{"project"})

	newCat := NewCatalogue(env)
	push(t, env, newCat)
	id := newCat.Targets()[0]
	cat := env.Driver.CatalogueFromUUID(id)
	assert.Equal(t, "Jane", cat.Author)
	assert.Equal(t, DefaultCatalogueName, cat.Name)
	assert.Equal(t, []string{"project"}, cat.Path)
	assert.Equal(t, []string{id}, env.State.Selection().SelectedCatalogues)

	now := time.Now()
	newEv := NewEvent(env, "", now, now)
	push(t, env, newEv)
	evID := newEv.Targets()[0]

	events := catalogueEvents(t, env.Driver, id)
	require.Len(t, events, 1)
	assert.Equal(t, evID, events[0].Event.ID)
	assert.True(t, events[0].Assigned)
	assert.Equal(t, []string{evID}, env.State.Selection().Selected)

	undo(t, env, newEv)
	_, ok := env.Driver.Lookup(evID)
	assert.False(t, ok)
	assert.Empty(t, catalogueEvents(t, env.Driver, id))
	assert.Equal(t, []string{id}, env.State.Selection().Selected)

	redo(t, env, newEv)
	events = catalogueEvents(t, env.Driver, id)
	require.Len(t, events, 1)
	assert.Equal(t, evID, events[0].Event.ID)

	undo(t, env, newEv)
	undo(t, env, newCat)
	_, ok = env.Driver.Lookup(id)
	assert.False(t, ok)
	redo(t, env, newCat)
	assert.Equal(t, DefaultCatalogueName, env.Driver.CatalogueFromUUID(id).Name)
}

func TestDeletePermanentlyUndo(t *testing.T) {
	env := newTestEnv(t)
	e1 := createEvent(t, env.Driver, entity.FieldAuthor, "a")
	e2 := createEvent(t, env.Driver, entity.FieldAuthor, "b")
	c := createCatalogue(t, env.Driver, entity.FieldName, "keep", "quality", int64(3))
	do(t, env.Driver, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e1.ID, e2.ID}})
	env.State.Updated(state.ActiveSelect, entity.KindCatalogue, []string{c.ID})

	cmd := DeletePermanently(env, nil)
	push(t, env, cmd)
	_, ok := env.Driver.Lookup(c.ID)
	require.False(t, ok)

	undo(t, env, cmd)
	restored := env.Driver.CatalogueFromUUID(c.ID)
	assert.Equal(t, "keep", restored.Name)
	assert.True(t, c.Variable().Equal(restored.Variable()))

	var linked []string
	for _, ce := range catalogueEvents(t, env.Driver, c.ID) {
		linked = append(linked, ce.Event.ID)
	}
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, linked)
}

func TestRequestsWhilePendingAreQueued(t *testing.T) {
	env := newTestEnv(t)
	cmd := NewCatalogue(env)

	env.State.PushCommand(cmd)
	env.State.Undo()
	env.State.Redo()
	assert.Equal(t, RedoPending, cmd.Phase())

	settle(t, env.Driver, cmd)
	assert.Equal(t, Applied, cmd.Phase())
	_, ok := env.Driver.Lookup(cmd.Targets()[0])
	assert.True(t, ok)
}

func TestAttributeCommands(t *testing.T) {
	env := newTestEnv(t)
	e := createEvent(t, env.Driver, entity.FieldAuthor, "a", "quality", int64(1))
	env.State.Updated(state.ActiveSelect, entity.KindEvent, []string{e.ID})

	has := func(name string) bool {
		_, ok := env.Driver.EventFromUUID(e.ID).Field(name)
		return ok
	}

	rename := RenameAttribute(env, nil, "quality", "grade")
	push(t, env, rename)
	assert.True(t, has("grade"))
	assert.False(t, has("quality"))
	undo(t, env, rename)
	assert.True(t, has("quality"))
	assert.False(t, has("grade"))

	del := DeleteAttribute(env, nil, "quality")
	push(t, env, del)
	assert.False(t, has("quality"))
	undo(t, env, del)
	v, _ := env.Driver.EventFromUUID(e.ID).Field("quality")
	assert.Equal(t, int64(1), v.AsInt())

	add := NewAttribute(env, nil, "flag", entity.Bool(true))
	push(t, env, add)
	assert.True(t, has("flag"))
	undo(t, env, add)
	assert.False(t, has("flag"))

	set := SetAttributeValue(env, nil, "fresh", entity.String("x"))
	push(t, env, set)
	assert.True(t, has("fresh"))
	undo(t, env, set)
	assert.False(t, has("fresh"))
}

func TestSetPredicateUndoMakesStatic(t *testing.T) {
	env := newTestEnv(t)
	c := createCatalogue(t, env.Driver, entity.FieldName, "static")
	require.False(t, c.Dynamic())

	cmd := SetAttributeValue(env, []string{c.ID}, entity.FieldPredicate, entity.PredicateValue(entity.Has("x")))
	push(t, env, cmd)
	assert.True(t, env.Driver.CatalogueFromUUID(c.ID).Dynamic())

	undo(t, env, cmd)
	assert.False(t, env.Driver.CatalogueFromUUID(c.ID).Dynamic())

	// The store agrees with the cache.
	a := &driver.GetCatalogueAction{UUID: c.ID}
	do(t, env.Driver, a)
	assert.False(t, a.Catalogue().Dynamic())

	redo(t, env, cmd)
	assert.True(t, env.Driver.CatalogueFromUUID(c.ID).Dynamic())
}

func TestTrashCommands(t *testing.T) {
	env := newTestEnv(t)
	c := createCatalogue(t, env.Driver, entity.FieldName, "c")

	move := MoveEntityToTrash(env, []string{c.ID})
	assert.Equal(t, "Move c to Trash", move.Text())
	push(t, env, move)
	assert.True(t, env.Driver.CatalogueFromUUID(c.ID).Removed())
	undo(t, env, move)
	assert.False(t, env.Driver.CatalogueFromUUID(c.ID).Removed())

	redo(t, env, move)
	restore := RestoreEntityFromTrash(env, []string{c.ID})
	push(t, env, restore)
	assert.False(t, env.Driver.CatalogueFromUUID(c.ID).Removed())
	undo(t, env, restore)
	assert.True(t, env.Driver.CatalogueFromUUID(c.ID).Removed())
}

func TestAddEventsUndoKeepsEarlierAssignments(t *testing.T) {
	env := newTestEnv(t)
	e1 := createEvent(t, env.Driver)
	e2 := createEvent(t, env.Driver)
	c := createCatalogue(t, env.Driver, entity.FieldName, "c")
	do(t, env.Driver, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e1.ID}})

	add := AddEventsToCatalogue(env, c.ID, []string{e1.ID, e2.ID})
	push(t, env, add)
	assert.Len(t, catalogueEvents(t, env.Driver, c.ID), 2)

	undo(t, env, add)
	events := catalogueEvents(t, env.Driver, c.ID)
	require.Len(t, events, 1)
	assert.Equal(t, e1.ID, events[0].Event.ID)

	remove := RemoveEventsFromCatalogue(env, c.ID, []string{e1.ID})
	push(t, env, remove)
	assert.Empty(t, catalogueEvents(t, env.Driver, c.ID))
	undo(t, env, remove)
	assert.Len(t, catalogueEvents(t, env.Driver, c.ID), 1)
}

func TestImportUndo(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	d := &exchange.Dict{
		Catalogues: []exchange.CatalogueRecord{{
			UUID:       "c-import",
			Name:       "imported",
			Author:     "someone",
			Tags:       []string{},
			Path:       []string{},
			Attributes: entity.NewAttributes(),
			Events:     []string{"e-import"},
		}},
		Events: []exchange.EventRecord{{
			UUID:       "e-import",
			Start:      start,
			Stop:       start.Add(time.Hour),
			Author:     "someone",
			Tags:       []string{},
			Products:   []string{},
			Attributes: entity.NewAttributes(),
		}},
	}

	cmd := Import(env, "file.json", d)
	assert.Equal(t, "Import file.json", cmd.Text())
	push(t, env, cmd)
	assert.Len(t, catalogueEvents(t, env.Driver, "c-import"), 1)

	undo(t, env, cmd)
	for _, id := range []string{"c-import", "e-import"} {
		_, ok := env.Driver.Lookup(id)
		assert.False(t, ok, id)
	}

	redo(t, env, cmd)
	assert.Len(t, catalogueEvents(t, env.Driver, "c-import"), 1)
}

func TestImportOverExistingEntities(t *testing.T) {
	env := newTestEnv(t)
	c := createCatalogue(t, env.Driver, entity.FieldName, "mine", entity.FieldAuthor, "Jane")
	kept := createEvent(t, env.Driver, entity.FieldAuthor, "Jane")
	do(t, env.Driver, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{kept.ID}})

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	d := &exchange.Dict{
		Catalogues: []exchange.CatalogueRecord{{
			UUID:       c.ID,
			Name:       "theirs",
			Author:     "someone",
			Tags:       []string{},
			Path:       []string{},
			Attributes: entity.NewAttributes(),
			Events:     []string{"e-new"},
		}},
		Events: []exchange.EventRecord{{
			UUID:       "e-new",
			Start:      start,
			Stop:       start.Add(time.Hour),
			Author:     "someone",
			Tags:       []string{},
			Products:   []string{},
			Attributes: entity.NewAttributes(),
		}},
	}

	cmd := Import(env, "file.json", d)
	push(t, env, cmd)
	assert.Equal(t, "theirs", env.Driver.CatalogueFromUUID(c.ID).Name)
	assert.Len(t, catalogueEvents(t, env.Driver, c.ID), 2)

	undo(t, env, cmd)
	restored := env.Driver.CatalogueFromUUID(c.ID)
	require.NotNil(t, restored)
	assert.Equal(t, "mine", restored.Name)
	assert.Equal(t, "Jane", restored.Author)
	events := catalogueEvents(t, env.Driver, c.ID)
	require.Len(t, events, 1)
	assert.Equal(t, kept.ID, events[0].Event.ID)
	_, ok := env.Driver.Lookup("e-new")
	assert.False(t, ok)

	redo(t, env, cmd)
	assert.Equal(t, "theirs", env.Driver.CatalogueFromUUID(c.ID).Name)
}

func TestFailedActionStillSettles(t *testing.T) {
	env := newTestEnv(t)
	c := createCatalogue(t, env.Driver, entity.FieldName, "c")

	cmd := AddEventsToCatalogue(env, c.ID, []string{"missing"})
	push(t, env, cmd)
	assert.Empty(t, catalogueEvents(t, env.Driver, c.ID))
}
