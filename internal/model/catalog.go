package model

import (
	"slices"
	"sort"

	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/nodes"
)

// FixedColumns lead every event table.
var FixedColumns = []string{
	entity.FieldStart,
	entity.FieldStop,
	entity.FieldAuthor,
	entity.FieldTags,
	entity.FieldProducts,
	entity.FieldRating,
}

// CatalogModel is the event table of one catalogue. Events in the trash are
// kept under a separate root.
type CatalogModel struct {
	notifier

	driver   *driver.Driver
	uuid     string
	events   *nodes.Node
	trash    *nodes.Node
	columns  []string
	released bool
}

func newCatalogModel(d *driver.Driver, uuid string) *CatalogModel {
	m := &CatalogModel{
		driver:  d,
		uuid:    uuid,
		events:  nodes.NewRoot(),
		trash:   nodes.NewTrash(),
		columns: append([]string(nil), FixedColumns...),
	}
	m.Refresh()
	return m
}

// Refresh reloads both event lists from the store.
func (m *CatalogModel) Refresh() {
	m.driver.Submit(&driver.GetCatalogueAction{UUID: m.uuid, Removed: false})
	m.driver.Submit(&driver.GetCatalogueAction{UUID: m.uuid, Removed: true})
}

func (m *CatalogModel) UUID() string        { return m.uuid }
func (m *CatalogModel) Events() *nodes.Node { return m.events }
func (m *CatalogModel) Trash() *nodes.Node  { return m.trash }

// Released reports whether the catalogue was deleted for good.
func (m *CatalogModel) Released() bool { return m.released }

func (m *CatalogModel) RowCount() int    { return m.events.ChildCount() }
func (m *CatalogModel) ColumnCount() int { return len(m.columns) }

// Row returns the event node at row i, or nil.
func (m *CatalogModel) Row(i int) *nodes.Node { return m.events.Child(i) }

// Columns returns a copy of the column names.
func (m *CatalogModel) Columns() []string {
	return append([]string(nil), m.columns...)
}

func (m *CatalogModel) Header(col int) string {
	if col < 0 || col >= len(m.columns) {
		return ""
	}
	return m.columns[col]
}

// Data returns the value of column col in row. Variable attributes an event
// does not carry report false.
func (m *CatalogModel) Data(row, col int) (entity.Value, bool) {
	n := m.Row(row)
	if n == nil || col < 0 || col >= len(m.columns) {
		return entity.Value{}, false
	}
	return n.Event().Field(m.columns[col])
}

// Dimmed reports whether row matches the predicate without being assigned.
func (m *CatalogModel) Dimmed(row int) bool {
	n := m.Row(row)
	return n != nil && !n.Assigned()
}

func (m *CatalogModel) rootOf(e *entity.Event) *nodes.Node {
	if e.Removed() {
		return m.trash
	}
	return m.events
}

func (m *CatalogModel) find(uuid string) *nodes.Node {
	if n := m.events.Find(uuid); n != nil {
		return n
	}
	return m.trash.Find(uuid)
}

func eventLess(a, b *entity.Event) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}

func (m *CatalogModel) rowFor(parent *nodes.Node, e *entity.Event) int {
	return sort.Search(parent.ChildCount(), func(i int) bool {
		return eventLess(e, parent.Child(i).Event())
	})
}

func (m *CatalogModel) load(removed bool, list []entity.CatalogueEvent) {
	parent := m.events
	if removed {
		parent = m.trash
	}
	sorted := make([]entity.CatalogueEvent, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool { return eventLess(sorted[i].Event, sorted[j].Event) })

	m.reset(parent, func() {
		parent.RemoveChildren()
		for _, ce := range sorted {
			_ = parent.AppendChild(nodes.NewEvent(ce.Event, ce.Assigned))
		}
	})
	m.updateColumns()
}

func (m *CatalogModel) insertEvent(e *entity.Event, assigned bool) {
	parent := m.rootOf(e)
	m.insert(parent, m.rowFor(parent, e), nodes.NewEvent(e, assigned))
}

func (m *CatalogModel) eventsAdded(list []*entity.Event) {
	for _, e := range list {
		if n := m.find(e.ID); n != nil {
			n.SetAssigned(true)
			n.SetEntity(e)
			m.changed(n)
			continue
		}
		m.insertEvent(e, true)
	}
	m.updateColumns()
}

func (m *CatalogModel) eventsRemoved(removed, stillMatching []string) {
	keep := make(map[string]bool, len(stillMatching))
	for _, id := range stillMatching {
		keep[id] = true
	}
	for _, id := range removed {
		n := m.find(id)
		if n == nil {
			continue
		}
		if keep[id] {
			n.SetAssigned(false)
			m.changed(n)
			continue
		}
		m.remove(n)
	}
	m.updateColumns()
}

func (m *CatalogModel) eventDeleted(uuid string) {
	if n := m.find(uuid); n != nil {
		m.remove(n)
		m.updateColumns()
	}
}

// eventUpdated patches the row of e in place, or moves it when its position
// or trash state changed.
func (m *CatalogModel) eventUpdated(e *entity.Event) {
	n := m.find(e.ID)
	if n == nil {
		return
	}
	old := n.Event()
	if old.Removed() != e.Removed() || !old.Start.Equal(e.Start) {
		assigned := n.Assigned()
		m.remove(n)
		m.insertEvent(e, assigned)
	} else {
		n.SetEntity(e)
		m.changed(n)
	}
	m.updateColumns()
}

func (m *CatalogModel) variableNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, root := range []*nodes.Node{m.events, m.trash} {
		for _, n := range root.Children() {
			for _, name := range n.Event().Attributes.Keys() {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	sort.Strings(names)
	return names
}

func (m *CatalogModel) updateColumns() {
	columns := append(append([]string(nil), FixedColumns...), m.variableNames()...)
	if slices.Equal(columns, m.columns) {
		return
	}
	m.columns = columns
	m.emit(Notification{Kind: ColumnsChanged, Parent: m.events, First: 0, Last: len(columns) - 1})
}
