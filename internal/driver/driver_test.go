package driver

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/store"
)

func newTestDriver(t *testing.T, opts ...Option) *Driver {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tscat.db"))
	require.NoError(t, err)
	d := New(s, opts...)
	d.Start()
	t.Cleanup(func() {
		d.Stop(time.Second)
		s.Close()
	})
	return d
}

func do(t *testing.T, d *Driver, a Action) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Do(ctx, a))
}

// pump dispatches until n completions have been delivered.
func pump(t *testing.T, d *Driver, n int) {
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

func createCatalogue(t *testing.T, d *Driver, pairs ...any) *entity.Catalogue {
	t.Helper()
	fields, err := entity.AttributesOf(pairs...)
	require.NoError(t, err)
	a := &CreateEntityAction{Kind: entity.KindCatalogue, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Catalogue)
}

func createEvent(t *testing.T, d *Driver, author string) *entity.Event {
	t.Helper()
	now := time.Now()
	fields, err := entity.AttributesOf(entity.FieldStart, now, entity.FieldStop, now, entity.FieldAuthor, author)
	require.NoError(t, err)
	a := &CreateEntityAction{Kind: entity.KindEvent, Fields: fields}
	do(t, d, a)
	return a.Entity().(*entity.Event)
}

func TestCallbacksFireInSubmissionOrder(t *testing.T) {
	delays := []time.Duration{5, 0, 3, 0, 1, 4, 0, 2}
	var mu sync.Mutex
	cost := map[Action]time.Duration{}
	d := newTestDriver(t, WithTrace(func(a Action) {
		mu.Lock()
		delay := cost[a]
		mu.Unlock()
		time.Sleep(delay * time.Millisecond)
	}))

	var order []int
	for i, delay := range delays {
		i := i
		a := &GetCataloguesAction{}
		a.Callback = func(Action) { order = append(order, i) }
		mu.Lock()
		cost[a] = delay
		mu.Unlock()
		d.Submit(a)
	}
	pump(t, d, len(delays))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}

func TestFIFOProperty(t *testing.T) {
	var mu sync.Mutex
	cost := map[Action]time.Duration{}
	d := newTestDriver(t, WithTrace(func(a Action) {
		mu.Lock()
		delay := cost[a]
		mu.Unlock()
		time.Sleep(delay)
	}))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("completions follow submissions", prop.ForAll(
		func(delays []uint8) bool {
			var got []uint64
			var want []uint64
			for _, delay := range delays {
				var a Action
				if delay%2 == 0 {
					a = &GetCataloguesAction{}
				} else {
					a = &SaveAction{}
				}
				a.base().Callback = func(done Action) { got = append(got, done.base().Seq()) }
				mu.Lock()
				cost[a] = time.Duration(delay) * 4 * time.Microsecond
				mu.Unlock()
				d.Submit(a)
				want = append(want, a.base().Seq())
			}
			pump(t, d, len(delays))
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestListenerTiers(t *testing.T) {
	d := newTestDriver(t)

	var calls []string
	d.Subscribe(func(Action) { calls = append(calls, "general") }, General)
	d.Subscribe(func(Action) { calls = append(calls, "prioritized") }, Prioritized)
	sub := d.Subscribe(func(Action) { calls = append(calls, "dropped") }, General)
	sub.Unsubscribe()

	a := &GetCataloguesAction{}
	a.Callback = func(Action) { calls = append(calls, "callback") }
	do(t, d, a)

	assert.Equal(t, []string{"callback", "prioritized", "general"}, calls)
}

func TestCacheFollowsActions(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "Storms", entity.FieldAuthor, "me")

	cached := d.EntityFromUUID(c.UUID())
	assert.True(t, c.Fields().Equal(cached.Fields()))

	set := &SetAttributeAction{UUIDs: []string{c.UUID()}, Name: "quality", Values: []entity.Value{entity.Int(5)}}
	do(t, d, set)
	require.Len(t, set.Entities(), 1)
	assert.True(t, set.Entities()[0].Fields().Equal(d.EntityFromUUID(c.UUID()).Fields()))

	del := &DeleteAttributeAction{UUIDs: []string{c.UUID()}, Name: "quality"}
	do(t, d, del)
	_, ok := d.EntityFromUUID(c.UUID()).Field("quality")
	assert.False(t, ok)

	// Callers get copies.
	mutated := d.CatalogueFromUUID(c.UUID())
	mutated.Name = "changed"
	assert.Equal(t, "Storms", d.CatalogueFromUUID(c.UUID()).Name)
}

func TestDeleteMissingAttributeFails(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c")

	del := &DeleteAttributeAction{UUIDs: []string{c.UUID()}, Name: "missing"}
	err := d.Do(context.Background(), del)
	assert.ErrorIs(t, err, entity.ErrNoSuchAttribute)

	// The worker keeps going.
	get := &GetCataloguesAction{}
	do(t, d, get)
	assert.Len(t, get.Catalogues(), 1)
}

func TestUnknownUUIDPanics(t *testing.T) {
	d := newTestDriver(t)
	assert.Panics(t, func() { d.EntityFromUUID("nope") })
	_, ok := d.Lookup("nope")
	assert.False(t, ok)
}

func TestPanicIsRecovered(t *testing.T) {
	d := newTestDriver(t, WithTrace(func(a Action) {
		if _, ok := a.(*SaveAction); ok {
			panic("boom")
		}
	}))

	err := d.Do(context.Background(), &SaveAction{})
	assert.ErrorIs(t, err, ErrActionPanicked)
	do(t, d, &GetCataloguesAction{})
}

func TestOutputsBeforeCompletion(t *testing.T) {
	a := &GetCataloguesAction{}
	a.catalogues = []*entity.Catalogue{{ID: "x"}}
	assert.Nil(t, a.Catalogues())
	assert.NoError(t, a.Err())
	assert.False(t, a.Completed())
}

func TestResubmitPanics(t *testing.T) {
	d := newTestDriver(t)
	a := &SaveAction{}
	do(t, d, a)
	assert.Panics(t, func() { d.Submit(a) })
}

func TestAddEventsIsIdempotent(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c")
	e1 := createEvent(t, d, "a")
	e2 := createEvent(t, d, "b")

	first := &AddEventsToCatalogueAction{Catalogue: c.UUID(), UUIDs: []string{e1.ID, e2.ID}}
	do(t, d, first)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, first.Added())

	second := &AddEventsToCatalogueAction{Catalogue: c.UUID(), UUIDs: []string{e1.ID, e2.ID}}
	do(t, d, second)
	assert.Empty(t, second.Added())

	get := &GetCatalogueAction{UUID: c.UUID()}
	do(t, d, get)
	assert.Len(t, get.Events(), 2)
}

func TestRemoveEventsReportsPredicateMatches(t *testing.T) {
	d := newTestDriver(t)
	bob := createEvent(t, d, "bob")
	alice := createEvent(t, d, "alice")
	c := createCatalogue(t, d,
		entity.FieldName, "dyn",
		entity.FieldPredicate, entity.Comparison("==", entity.FieldRef(entity.FieldAuthor), entity.String("bob")),
	)
	do(t, d, &AddEventsToCatalogueAction{Catalogue: c.UUID(), UUIDs: []string{bob.ID, alice.ID}})

	rm := &RemoveEventsFromCatalogueAction{Catalogue: c.UUID(), UUIDs: []string{bob.ID, alice.ID, "never-linked"}}
	do(t, d, rm)
	assert.ElementsMatch(t, []string{bob.ID, alice.ID}, rm.Removed())
	assert.Equal(t, []string{bob.ID}, rm.StillMatching())
}

func TestNewCatalogueScenario(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "New Catalogue", entity.FieldAuthor, "Author")
	assert.Equal(t, "Author", c.Author)
	assert.Equal(t, "New Catalogue", c.Name)
	assert.NotEmpty(t, c.ID)

	e := createEvent(t, d, "Author")
	assert.Equal(t, e.Start, e.Stop)

	add := &AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e.ID}}
	do(t, d, add)
	assert.Equal(t, []string{e.ID}, add.Added())

	get := &GetCatalogueAction{UUID: c.ID}
	do(t, d, get)
	require.Len(t, get.Events(), 1)
	assert.Equal(t, e.ID, get.Events()[0].Event.ID)
	assert.True(t, get.Events()[0].Assigned)
}

func TestTrashRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c", "note", "kept")
	before := d.EntityFromUUID(c.ID).Fields()

	do(t, d, &MoveToTrashAction{UUIDs: []string{c.ID}})
	assert.True(t, d.EntityFromUUID(c.ID).Removed())

	do(t, d, &RestoreFromTrashAction{UUIDs: []string{c.ID}})
	after := d.EntityFromUUID(c.ID)
	assert.False(t, after.Removed())
	assert.True(t, before.Equal(after.Fields()))
}

func TestPermanentDeleteRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c", entity.FieldPath, []string{"a"}, "score", 1.5)
	e1 := createEvent(t, d, "x")
	e2 := createEvent(t, d, "y")
	do(t, d, &AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e1.ID, e2.ID}})
	do(t, d, &MoveToTrashAction{UUIDs: []string{c.ID}})
	before := d.EntityFromUUID(c.ID).Fields()

	del := &DeletePermanentlyAction{UUIDs: []string{c.ID}}
	do(t, d, del)
	require.Len(t, del.Deleted(), 1)
	snap := del.Deleted()[0]
	assert.True(t, snap.InTrash)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, snap.Links)
	_, ok := d.Lookup(c.ID)
	assert.False(t, ok)

	restore := &RestorePermanentlyDeletedAction{Deleted: del.Deleted()}
	do(t, d, restore)
	restored := d.EntityFromUUID(c.ID)
	assert.True(t, before.Equal(restored.Fields()))
	assert.True(t, restored.Removed())

	get := &GetCatalogueAction{UUID: c.ID}
	do(t, d, get)
	var ids []string
	for _, ce := range get.Events() {
		ids = append(ids, ce.Event.ID)
	}
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, ids)
}

func TestExportImportRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "exported", entity.FieldTags, []string{"t"})
	e := createEvent(t, d, "z")
	do(t, d, &AddEventsToCatalogueAction{Catalogue: c.ID, UUIDs: []string{e.ID}})

	path := filepath.Join(t.TempDir(), "out.json")
	do(t, d, &ExportAction{Path: path, UUIDs: []string{c.ID}})
	do(t, d, &DeletePermanentlyAction{UUIDs: []string{c.ID, e.ID}})

	canon := &CanonicalizeImportAction{Path: path}
	do(t, d, canon)
	require.NotNil(t, canon.Dict())
	assert.Equal(t, []string{c.ID}, canon.Dict().CatalogueUUIDs())

	imp := &ImportCanonicalizedDictAction{Dict: canon.Dict()}
	do(t, d, imp)
	require.Len(t, imp.Catalogues(), 1)
	assert.Equal(t, "exported", d.CatalogueFromUUID(c.ID).Name)
	assert.Equal(t, "z", d.EventFromUUID(e.ID).Author)
}

func TestExportFailureIsReported(t *testing.T) {
	d := newTestDriver(t)
	c := createCatalogue(t, d, entity.FieldName, "c")

	exp := &ExportAction{Path: filepath.Join(t.TempDir(), "missing", "out.json"), UUIDs: []string{c.ID}}
	err := d.Do(context.Background(), exp)
	assert.Error(t, err)

	bad := &CanonicalizeImportAction{Path: filepath.Join(t.TempDir(), "nothing.json")}
	assert.Error(t, d.Do(context.Background(), bad))
	assert.Nil(t, bad.Dict())

	imp := &ImportCanonicalizedDictAction{}
	assert.ErrorIs(t, d.Do(context.Background(), imp), exchange.ErrInvalidDocument)
}

func TestStop(t *testing.T) {
	release := make(chan struct{})
	d := newTestDriver(t, WithTrace(func(a Action) {
		if _, ok := a.(*SaveAction); ok {
			<-release
		}
	}))
	defer close(release)

	d.Submit(&SaveAction{})
	queued := &GetCataloguesAction{}
	d.Submit(queued)
	time.Sleep(20 * time.Millisecond)

	assert.ErrorIs(t, d.Stop(20*time.Millisecond), ErrShutdownTimeout)
	assert.ErrorIs(t, d.Do(context.Background(), &GetCataloguesAction{}), ErrStopped)
	assert.False(t, queued.Completed())
	assert.NoError(t, d.Stop(time.Millisecond))
}

func TestStopIdle(t *testing.T) {
	d := newTestDriver(t)
	assert.NoError(t, d.Stop(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, &SaveAction{})
	assert.True(t, errors.Is(err, ErrStopped))
}
