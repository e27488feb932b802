package model

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/nodes"
	"github.com/justyntemme/tscat/internal/store"
)

func newTestDriver(t *testing.T) *driver.Driver {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tscat.db"))
	require.NoError(t, err)
	d := driver.New(s)
	d.Start()
	t.Cleanup(func() {
		d.Stop(time.Second)
		s.Close()
	})
	return d
}

func do(t *testing.T, d *driver.Driver, a driver.Action) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Do(ctx, a))
}

func pump(t *testing.T, d *driver.Driver, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for n > 0 {
		select {
		case <-d.Completions():
			n -= d.Dispatch()
		case <-deadline:
			t.Fatalf("%d completions still missing", n)
		}
	}
}

func newTestModel(t *testing.T, d *driver.Driver) *RootModel {
	t.Helper()
	m := NewRootModel(d)
	t.Cleanup(m.Close)
	pump(t, d, 2)
	return m
}

func catalog(t *testing.T, d *driver.Driver, m *RootModel, uuid string) *CatalogModel {
	t.Helper()
	cm := m.Catalog(uuid)
	pump(t, d, 2)
	return cm
}

func createCatalogue(t *testing.T, d *driver.Driver, pairs ...any) *entity.Catalogue {
	t.Helper()
	fields, err := entity.AttributesOf(pairs...)
	require.NoError(t, err)
	a := &driver.CreateEntityAction{Kind: entity.KindCatalogue, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Catalogue)
}

func createEvent(t *testing.T, d *driver.Driver, start time.Time, pairs ...any) *entity.Event {
	t.Helper()
	fields, err := entity.AttributesOf(append([]any{entity.FieldStart, start, entity.FieldStop, start.Add(time.Minute)}, pairs...)...)
	require.NoError(t, err)
	a := &driver.CreateEntityAction{Kind: entity.KindEvent, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Event)
}

type recorder struct {
	notes []Notification
}

func (r *recorder) observe(n Notification) { r.notes = append(r.notes, n) }

func (r *recorder) kinds() []NotificationKind {
	var out []NotificationKind
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

func names(n *nodes.Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Name())
	}
	return out
}

func TestRootModelLayout(t *testing.T) {
	d := newTestDriver(t)
	createCatalogue(t, d, entity.FieldName, "beta", entity.FieldPath, []string{"x", "y"})
	createCatalogue(t, d, entity.FieldName, "Alpha")
	m := newTestModel(t, d)

	createCatalogue(t, d, entity.FieldName, "gamma", entity.FieldPath, []string{"x"})
	createCatalogue(t, d, entity.FieldName, "aardvark")

	assert.Equal(t, []string{"x", "aardvark", "Alpha", nodes.TrashName}, names(m.Root()))
	x := m.Root().Folder("x")
	require.NotNil(t, x)
	assert.Equal(t, []string{"y", "gamma"}, names(x))
	assert.Equal(t, []string{"beta"}, names(x.Folder("y")))
	assert.Same(t, m.Trash(), m.Root().Child(m.Root().ChildCount()-1))
}

func TestTrashMovesPruneAndRecreateFolders(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "deep", entity.FieldPath, []string{"p", "q"})
	m := newTestModel(t, d)

	rec := &recorder{}
	m.Observe(rec.observe)
	do(t, d, &driver.MoveToTrashAction{UUIDs: []string{c.ID}})

	assert.Equal(t, []string{nodes.TrashName}, names(m.Root()))
	assert.Equal(t, []string{"deep"}, names(m.Trash()))
	require.Len(t, rec.notes, 4)
	assert.Equal(t, []NotificationKind{RemoveBegin, RemoveEnd, InsertBegin, InsertEnd}, rec.kinds())
	assert.Same(t, m.Root(), rec.notes[0].Parent)
	assert.Equal(t, "p", rec.notes[0].Node.Name())
	assert.Same(t, m.Trash(), rec.notes[2].Parent)

	rec.notes = nil
	do(t, d, &driver.RestoreFromTrashAction{UUIDs: []string{c.ID}})

	assert.Equal(t, []NotificationKind{RemoveBegin, RemoveEnd, InsertBegin, InsertEnd}, rec.kinds())
	assert.Same(t, m.Root(), rec.notes[2].Parent)
	assert.Equal(t, 0, rec.notes[2].First)
	node := m.Node(c.ID)
	require.NotNil(t, node)
	assert.Equal(t, []string{"p", "q"}, node.FullPath())
	assert.Equal(t, 0, m.Trash().ChildCount())
}

func TestFolderKeptWhileItHoldsCatalogues(t *testing.T) {
	d := newTestDriver(t)
	a := createCatalogue(t, d, entity.FieldName, "a", entity.FieldPath, []string{"shared"})
	createCatalogue(t, d, entity.FieldName, "b", entity.FieldPath, []string{"shared"})
	m := newTestModel(t, d)

	rec := &recorder{}
	m.Observe(rec.observe)
	do(t, d, &driver.SetAttributeAction{UUIDs: []string{a.ID}, Name: entity.FieldPath, Values: []entity.Value{entity.Strings(nil)}})

	shared := m.Root().Folder("shared")
	require.NotNil(t, shared)
	assert.Equal(t, []string{"b"}, names(shared))
	assert.Same(t, shared, rec.notes[0].Parent)
	assert.Equal(t, []string{"shared", "a", nodes.TrashName}, names(m.Root()))
}

func TestRenameKeepsCollatedOrder(t *testing.T) {
	d := newTestDriver(t)
	a := createCatalogue(t, d, entity.FieldName, "alpha")
	createCatalogue(t, d, entity.FieldName, "beta")
	createCatalogue(t, d, entity.FieldName, "gamma")
	m := newTestModel(t, d)
	require.Equal(t, []string{"alpha", "beta", "gamma", nodes.TrashName}, names(m.Root()))

	do(t, d, &driver.SetAttributeAction{UUIDs: []string{a.ID}, Name: entity.FieldName, Values: []entity.Value{entity.String("zeta")}})
	assert.Equal(t, []string{"beta", "gamma", "zeta", nodes.TrashName}, names(m.Root()))
	node := m.Node(a.ID)
	require.NotNil(t, node)
	assert.Equal(t, "zeta", node.Name())
}

func TestEventAuthorChangeIsASingleDataChange(t *testing.T) {
	d := newTestDriver(t)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := createEvent(t, d, start, entity.FieldAuthor, "ann")
	e2 := createEvent(t, d, start.Add(time.Hour), entity.FieldAuthor, "ann")
	c := createCatalogue(t, d, entity.FieldName, "static")
	do(t, d, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e1.ID, e2.ID}})

	m := newTestModel(t, d)
	cm := catalog(t, d, m, c.ID)
	require.Equal(t, 2, cm.RowCount())

	rootRec, catRec := &recorder{}, &recorder{}
	m.Observe(rootRec.observe)
	cm.Observe(catRec.observe)
	do(t, d, &driver.SetAttributeAction{UUIDs: []string{e2.ID}, Name: entity.FieldAuthor, Values: []entity.Value{entity.String("bob")}})

	assert.Empty(t, rootRec.notes)
	require.Len(t, catRec.notes, 1)
	assert.Equal(t, DataChanged, catRec.notes[0].Kind)
	assert.Equal(t, 1, catRec.notes[0].First)
	assert.Equal(t, 1, catRec.notes[0].Last)

	author, ok := cm.Data(1, 2)
	require.True(t, ok)
	assert.Equal(t, "bob", author.AsString())
}

func TestCatalogColumnsFollowVariableAttributes(t *testing.T) {
	d := newTestDriver(t)
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	e := createEvent(t, d, start, entity.FieldAuthor, "ann", "zeta", int64(1))
	c := createCatalogue(t, d, entity.FieldName, "cols")
	do(t, d, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e.ID}})

	m := newTestModel(t, d)
	cm := catalog(t, d, m, c.ID)
	assert.Equal(t, append(append([]string(nil), FixedColumns...), "zeta"), cm.Columns())

	rec := &recorder{}
	cm.Observe(rec.observe)
	do(t, d, &driver.SetAttributeAction{UUIDs: []string{e.ID}, Name: "alpha", Values: []entity.Value{entity.Bool(true)}})

	assert.Equal(t, []NotificationKind{DataChanged, ColumnsChanged}, rec.kinds())
	assert.Equal(t, "alpha", cm.Header(len(FixedColumns)))
	assert.Equal(t, "zeta", cm.Header(len(FixedColumns)+1))
	_, ok := cm.Data(0, len(FixedColumns))
	assert.True(t, ok)
	assert.Equal(t, "", cm.Header(cm.ColumnCount()))
}

func TestRemovedPredicateMatchStaysDimmed(t *testing.T) {
	d := newTestDriver(t)
	start := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	bob := createEvent(t, d, start, entity.FieldAuthor, "bob")
	c := createCatalogue(t, d,
		entity.FieldName, "dyn",
		entity.FieldPredicate, entity.Comparison("==", entity.FieldRef(entity.FieldAuthor), entity.String("bob")),
	)

	m := newTestModel(t, d)
	cm := catalog(t, d, m, c.ID)
	require.Equal(t, 1, cm.RowCount())
	assert.True(t, cm.Dimmed(0))

	do(t, d, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{bob.ID}})
	assert.False(t, cm.Dimmed(0))

	do(t, d, &driver.RemoveEventsFromCatalogueAction{Catalogue: c.ID, UUIDs: []string{bob.ID}})
	require.Equal(t, 1, cm.RowCount())
	assert.True(t, cm.Dimmed(0))
}

func TestEventTrashMovesBetweenRoots(t *testing.T) {
	d := newTestDriver(t)
	e := createEvent(t, d, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), entity.FieldAuthor, "ann")
	c := createCatalogue(t, d, entity.FieldName, "c")
	do(t, d, &driver.AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e.ID}})

	m := newTestModel(t, d)
	cm := catalog(t, d, m, c.ID)
	require.Equal(t, 1, cm.RowCount())

	do(t, d, &driver.MoveToTrashAction{UUIDs: []string{e.ID}})
	assert.Equal(t, 0, cm.RowCount())
	require.Equal(t, 1, cm.Trash().ChildCount())
	assert.True(t, cm.Trash().Child(0).Assigned())

	do(t, d, &driver.RestoreFromTrashAction{UUIDs: []string{e.ID}})
	assert.Equal(t, 1, cm.RowCount())
	assert.Equal(t, 0, cm.Trash().ChildCount())
}

func TestPermanentDeleteReleasesCatalog(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "doomed", entity.FieldPath, []string{"f"})
	m := newTestModel(t, d)
	cm := catalog(t, d, m, c.ID)

	del := &driver.DeletePermanentlyAction{UUIDs: []string{c.ID}}
	do(t, d, del)

	assert.True(t, cm.Released())
	assert.False(t, m.HasCatalog(c.ID))
	assert.Nil(t, m.Node(c.ID))
	assert.Nil(t, m.Root().Folder("f"))

	do(t, d, &driver.RestorePermanentlyDeletedAction{Deleted: del.Deleted()})
	node := m.Node(c.ID)
	require.NotNil(t, node)
	assert.Equal(t, []string{"f"}, node.FullPath())
	assert.NotSame(t, cm, m.Catalog(c.ID))
}

func TestFailedActionsLeaveModelsAlone(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c")
	m := newTestModel(t, d)

	rec := &recorder{}
	m.Observe(rec.observe)
	a := &driver.DeleteAttributeAction{UUIDs: []string{c.ID}, Name: "missing"}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Error(t, d.Do(ctx, a))
	assert.Empty(t, rec.notes)
}
