package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tscat/internal/entity"
)

type fakeCommand struct {
	text string
	log  *[]string
}

func (c *fakeCommand) Text() string { return c.text }
func (c *fakeCommand) Redo()        { *c.log = append(*c.log, "redo "+c.text) }
func (c *fakeCommand) Undo()        { *c.log = append(*c.log, "undo "+c.text) }

func TestSelectionIsACopy(t *testing.T) {
	s := New()
	s.Updated(ActiveSelect, entity.KindCatalogue, []string{"c1"})

	sel := s.Selection()
	sel.Selected[0] = "mutated"
	sel.SelectedCatalogues = append(sel.SelectedCatalogues, "extra")

	assert.Equal(t, []string{"c1"}, s.Selection().Selected)
	assert.Equal(t, []string{"c1"}, s.Selection().SelectedCatalogues)
}

func TestActiveSelectOfEventsKeepsCatalogues(t *testing.T) {
	s := New()
	var seen []Update
	s.Subscribe(func(action Update, kind entity.Kind, uuids []string) { seen = append(seen, action) })

	s.Updated(ActiveSelect, entity.KindCatalogue, []string{"c1"})
	s.Updated(ActiveSelect, entity.KindEvent, []string{"e1", "e2"})
	s.Updated(Changed, entity.KindEvent, []string{"e1"})

	sel := s.Selection()
	assert.Equal(t, []string{"e1", "e2"}, sel.Selected)
	assert.Equal(t, entity.KindEvent, sel.Type)
	assert.Equal(t, []string{"c1"}, sel.SelectedCatalogues)
	assert.Equal(t, []Update{ActiveSelect, ActiveSelect, Changed}, seen)
}

func TestRestore(t *testing.T) {
	s := New()
	s.SetCurrentPath([]string{"a", "b"})
	s.Updated(ActiveSelect, entity.KindCatalogue, []string{"c1"})
	snapshot := s.Selection()

	s.Updated(ActiveSelect, entity.KindEvent, []string{"e1"})
	s.SetCurrentPath(nil)
	s.Restore(snapshot)

	assert.True(t, snapshot.Equal(s.Selection()))
}

func TestStackNavigation(t *testing.T) {
	var log []string
	st := NewStack()
	assert.True(t, st.IsClean())
	assert.False(t, st.CanUndo())

	st.Push(&fakeCommand{text: "one", log: &log})
	st.Push(&fakeCommand{text: "two", log: &log})
	assert.Equal(t, "two", st.UndoText())
	assert.Equal(t, "", st.RedoText())

	st.Undo()
	assert.Equal(t, 1, st.Index())
	assert.Equal(t, "two", st.RedoText())

	st.Push(&fakeCommand{text: "three", log: &log})
	assert.Equal(t, 2, st.Count())
	assert.False(t, st.CanRedo())

	st.Undo()
	st.Undo()
	st.Undo()
	assert.Equal(t, 0, st.Index())
	st.Redo()

	assert.Equal(t, []string{"redo one", "redo two", "undo two", "redo three", "undo three", "undo one", "redo one"}, log)
}

func TestStackCleanState(t *testing.T) {
	var log []string
	var changes []bool
	st := NewStack()
	st.OnCleanChanged(func(clean bool) { changes = append(changes, clean) })

	st.Push(&fakeCommand{text: "one", log: &log})
	st.SetClean()
	st.Push(&fakeCommand{text: "two", log: &log})
	st.Undo()
	require.True(t, st.IsClean())

	st.Undo()
	st.Push(&fakeCommand{text: "three", log: &log})
	st.Undo()
	assert.False(t, st.IsClean())

	assert.Equal(t, []bool{false, true, false, true, false}, changes)
}
