package model

import (
	"log"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/nodes"
)

// RootModel is the folder/catalogue hierarchy. The root lists folders, then
// catalogues, then the trash as its last row; the trash lists trashed
// catalogues flat.
type RootModel struct {
	notifier

	driver   *driver.Driver
	sub      driver.Subscription
	root     *nodes.Node
	trash    *nodes.Node
	catalogs map[string]*CatalogModel
	collator *collate.Collator
}

// NewRootModel subscribes to d and requests the catalogues in and out of the
// trash.
func NewRootModel(d *driver.Driver) *RootModel {
	m := &RootModel{
		driver:   d,
		root:     nodes.NewRoot(),
		trash:    nodes.NewTrash(),
		catalogs: make(map[string]*CatalogModel),
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
	if err := m.root.AppendChild(m.trash); err != nil {
		panic(err)
	}
	m.sub = d.Subscribe(m.onActionDone, driver.Prioritized)
	m.Refresh()
	return m
}

// Refresh reloads the catalogue lists and the events of every live catalog
// model from the store.
func (m *RootModel) Refresh() {
	m.driver.Submit(&driver.GetCataloguesAction{Removed: false})
	m.driver.Submit(&driver.GetCataloguesAction{Removed: true})
	for _, c := range m.catalogs {
		c.Refresh()
	}
}

// Close detaches the model and its catalog models from the driver.
func (m *RootModel) Close() {
	m.sub.Unsubscribe()
	for id := range m.catalogs {
		m.release(id)
	}
}

func (m *RootModel) Root() *nodes.Node  { return m.root }
func (m *RootModel) Trash() *nodes.Node { return m.trash }

// Node finds the node of a catalogue in the tree or the trash.
func (m *RootModel) Node(uuid string) *nodes.Node {
	return m.root.Find(uuid)
}

// Catalogues lists the catalogue nodes below parent in display order.
func (m *RootModel) Catalogues(parent *nodes.Node) []*nodes.Node {
	var out []*nodes.Node
	for _, c := range parent.Children() {
		c.Walk(func(n *nodes.Node) bool {
			if n.Kind() == nodes.KindCatalogue {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

// Catalog returns the event model of a catalogue, creating it on first use.
func (m *RootModel) Catalog(uuid string) *CatalogModel {
	if c, ok := m.catalogs[uuid]; ok {
		return c
	}
	c := newCatalogModel(m.driver, uuid)
	m.catalogs[uuid] = c
	debug.Log(debug.MODEL, "Catalog model for %s created", uuid)
	return c
}

// HasCatalog reports whether the event model of uuid is alive.
func (m *RootModel) HasCatalog(uuid string) bool {
	_, ok := m.catalogs[uuid]
	return ok
}

func (m *RootModel) release(uuid string) {
	if c, ok := m.catalogs[uuid]; ok {
		c.released = true
		delete(m.catalogs, uuid)
		debug.Log(debug.MODEL, "Catalog model for %s released", uuid)
	}
}

func (m *RootModel) onActionDone(a driver.Action) {
	if a.Err() != nil {
		return
	}
	a.Accept(rootPatcher{m})
}

// less orders folders before catalogues and keeps the trash last.
func (m *RootModel) less(a, b *nodes.Node) bool {
	rank := func(n *nodes.Node) int {
		switch n.Kind() {
		case nodes.KindFolder:
			return 0
		case nodes.KindCatalogue:
			return 1
		}
		return 2
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra < rb
	}
	if cmp := m.collator.CompareString(a.Name(), b.Name()); cmp != 0 {
		return cmp < 0
	}
	return a.ID() < b.ID()
}

func (m *RootModel) rowFor(parent, n *nodes.Node) int {
	for i, c := range parent.Children() {
		if m.less(n, c) {
			return i
		}
	}
	return parent.ChildCount()
}

// place works out where c goes: the parent to insert into, the row, and the
// node to insert there, which is either the catalogue node itself or the top
// of a detached chain of new folders ending in it.
func (m *RootModel) place(c *entity.Catalogue, node *nodes.Node) (parent *nodes.Node, row int, top *nodes.Node) {
	if c.Removed() {
		return m.trash, m.rowFor(m.trash, node), node
	}

	parent = m.root
	i := 0
	for ; i < len(c.Path); i++ {
		next := parent.Folder(c.Path[i])
		if next == nil {
			break
		}
		parent = next
	}

	top = node
	if i < len(c.Path) {
		top = nodes.NewFolder(c.Path[i])
		bottom := top
		for _, name := range c.Path[i+1:] {
			f := nodes.NewFolder(name)
			_ = bottom.AppendChild(f)
			bottom = f
		}
		_ = bottom.AppendChild(node)
	}
	return parent, m.rowFor(parent, top), top
}

func (m *RootModel) insertCatalogue(c *entity.Catalogue) {
	if existing := m.Node(c.ID); existing != nil {
		m.removeCatalogue(existing)
	}
	node := nodes.NewCatalogue(c)
	parent, row, top := m.place(c, node)
	m.insert(parent, row, top)
}

// removeCatalogue detaches a catalogue node together with the folders that
// would be left without catalogues.
func (m *RootModel) removeCatalogue(node *nodes.Node) {
	top := node
	for p := node.Parent(); p != nil && p.Kind() == nodes.KindFolder; p = p.Parent() {
		if len(m.Catalogues(p)) > 1 {
			break
		}
		top = p
	}
	m.remove(top)
}

func (m *RootModel) rebuild(parent *nodes.Node, cats []*entity.Catalogue) {
	m.reset(parent, func() {
		for _, child := range parent.Children() {
			if child != m.trash {
				if _, err := parent.RemoveChild(child); err != nil {
					log.Printf("Model Error: %v", err)
				}
			}
		}
		for _, c := range cats {
			node := nodes.NewCatalogue(c)
			p, row, top := m.place(c, node)
			if err := p.InsertChild(row, top); err != nil {
				log.Printf("Model Error: %v", err)
			}
		}
	})
}

func (m *RootModel) updateCatalogue(c *entity.Catalogue, field string) {
	node := m.Node(c.ID)
	if node == nil {
		return
	}
	old := node.Catalogue()
	// a new name or path moves the row
	if field == entity.FieldPath || old.Name != c.Name || old.Removed() != c.Removed() {
		m.insertCatalogue(c)
	} else {
		node.SetEntity(c)
		m.changed(node)
	}
	if cm, ok := m.catalogs[c.ID]; ok && !old.Predicate.Equal(c.Predicate) {
		cm.Refresh()
	}
}

// eachCatalog visits the live catalog models.
func (m *RootModel) eachCatalog(fn func(cm *CatalogModel)) {
	for _, cm := range m.catalogs {
		fn(cm)
	}
}

func (m *RootModel) refreshDynamic() {
	m.eachCatalog(func(cm *CatalogModel) {
		if c, ok := m.driver.Lookup(cm.uuid); ok && c.(*entity.Catalogue).Dynamic() {
			cm.Refresh()
		}
	})
}

type rootPatcher struct{ m *RootModel }

func (p rootPatcher) VisitGetCatalogues(a *driver.GetCataloguesAction) {
	parent := p.m.root
	if a.Removed {
		parent = p.m.trash
	}
	p.m.rebuild(parent, a.Catalogues())
}

func (p rootPatcher) VisitGetCatalogue(a *driver.GetCatalogueAction) {
	c := a.Catalogue()
	if node := p.m.Node(c.ID); node != nil && !node.Catalogue().Fields().Equal(c.Fields()) {
		node.SetEntity(c)
		p.m.changed(node)
	}
	if cm, ok := p.m.catalogs[c.ID]; ok {
		cm.load(a.Removed, a.Events())
	}
}

func (p rootPatcher) VisitCreateEntity(a *driver.CreateEntityAction) {
	switch e := a.Entity().(type) {
	case *entity.Catalogue:
		p.m.insertCatalogue(e)
	case *entity.Event:
		p.m.refreshDynamic()
	}
}

func (p rootPatcher) VisitRemoveEntities(a *driver.RemoveEntitiesAction) {
	for _, id := range a.Removed() {
		p.m.dropEntity(id)
	}
}

func (p rootPatcher) VisitAddEventsToCatalogue(a *driver.AddEventsToCatalogueAction) {
	if cm, ok := p.m.catalogs[a.Catalogue]; ok {
		cm.eventsAdded(a.Events())
	}
	p.m.refreshDynamicExcept(a.Catalogue)
}

func (p rootPatcher) VisitRemoveEventsFromCatalogue(a *driver.RemoveEventsFromCatalogueAction) {
	if cm, ok := p.m.catalogs[a.Catalogue]; ok {
		cm.eventsRemoved(a.Removed(), a.StillMatching())
	}
	p.m.refreshDynamicExcept(a.Catalogue)
}

func (p rootPatcher) VisitSetAttribute(a *driver.SetAttributeAction) {
	p.m.entitiesChanged(a.Entities(), a.Name)
}

func (p rootPatcher) VisitDeleteAttribute(a *driver.DeleteAttributeAction) {
	p.m.entitiesChanged(a.Entities(), a.Name)
}

func (p rootPatcher) VisitSave(a *driver.SaveAction) {}

func (p rootPatcher) VisitMoveToTrash(a *driver.MoveToTrashAction) {
	p.m.entitiesChanged(a.Entities(), "")
}

func (p rootPatcher) VisitRestoreFromTrash(a *driver.RestoreFromTrashAction) {
	p.m.entitiesChanged(a.Entities(), "")
}

func (p rootPatcher) VisitDeletePermanently(a *driver.DeletePermanentlyAction) {
	for _, d := range a.Deleted() {
		p.m.dropEntity(d.UUID())
	}
}

func (p rootPatcher) VisitRestorePermanentlyDeleted(a *driver.RestorePermanentlyDeletedAction) {
	linked := make(map[string]bool)
	for _, d := range a.Deleted {
		if d.Kind == entity.KindEvent {
			for _, cat := range d.Links {
				linked[cat] = true
			}
		}
	}
	for _, e := range a.Entities() {
		if c, ok := e.(*entity.Catalogue); ok {
			p.m.insertCatalogue(c)
		}
	}
	p.m.eachCatalog(func(cm *CatalogModel) {
		if linked[cm.uuid] {
			cm.Refresh()
		}
	})
	p.m.refreshDynamic()
}

func (p rootPatcher) VisitCanonicalizeImport(a *driver.CanonicalizeImportAction) {}

func (p rootPatcher) VisitImportCanonicalizedDict(a *driver.ImportCanonicalizedDictAction) {
	for _, c := range a.Catalogues() {
		p.m.insertCatalogue(c)
		if cm, ok := p.m.catalogs[c.ID]; ok {
			cm.Refresh()
		}
	}
	if len(a.Events()) > 0 {
		p.m.refreshDynamic()
	}
}

func (p rootPatcher) VisitExport(a *driver.ExportAction) {}

func (m *RootModel) refreshDynamicExcept(uuid string) {
	m.eachCatalog(func(cm *CatalogModel) {
		if cm.uuid == uuid {
			return
		}
		if c, ok := m.driver.Lookup(cm.uuid); ok && c.(*entity.Catalogue).Dynamic() {
			cm.Refresh()
		}
	})
}

func (m *RootModel) dropEntity(uuid string) {
	if node := m.Node(uuid); node != nil && node.Kind() == nodes.KindCatalogue {
		m.removeCatalogue(node)
		m.release(uuid)
		return
	}
	m.eachCatalog(func(cm *CatalogModel) { cm.eventDeleted(uuid) })
}

func (m *RootModel) entitiesChanged(list []entity.Entity, field string) {
	events := false
	for _, e := range list {
		switch x := e.(type) {
		case *entity.Catalogue:
			m.updateCatalogue(x, field)
		case *entity.Event:
			events = true
			m.eachCatalog(func(cm *CatalogModel) { cm.eventUpdated(x) })
		}
	}
	// membership of predicate catalogues may have changed
	if events {
		m.refreshDynamic()
	}
}
