package driver

import (
	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/entity"
)

// cache keeps the last known snapshot of every entity an action touched.
// It is only used on the owner goroutine.
type cache struct {
	entities map[string]entity.Entity
}

func newCache() *cache {
	return &cache{entities: make(map[string]entity.Entity)}
}

func (c *cache) put(e entity.Entity) {
	if e == nil {
		return
	}
	debug.Log(debug.DRIVER_CACHE, "put %s %s", e.Kind(), e.UUID())
	c.entities[e.UUID()] = e.Clone()
}

func (c *cache) putAll(list []entity.Entity) {
	for _, e := range list {
		c.put(e)
	}
}

func (c *cache) drop(uuid string) {
	debug.Log(debug.DRIVER_CACHE, "drop %s", uuid)
	delete(c.entities, uuid)
}

// A failed action leaves the cache alone.

func (c *cache) VisitGetCatalogues(a *GetCataloguesAction) {
	for _, cat := range a.catalogues {
		c.put(cat)
	}
}

func (c *cache) VisitGetCatalogue(a *GetCatalogueAction) {
	if a.catalogue != nil {
		c.put(a.catalogue)
	}
	for _, ce := range a.events {
		c.put(ce.Event)
	}
}

func (c *cache) VisitCreateEntity(a *CreateEntityAction) { c.put(a.entity) }

func (c *cache) VisitRemoveEntities(a *RemoveEntitiesAction) {
	for _, id := range a.removed {
		c.drop(id)
	}
}

func (c *cache) VisitAddEventsToCatalogue(a *AddEventsToCatalogueAction) {
	for _, e := range a.events {
		c.put(e)
	}
}

func (c *cache) VisitRemoveEventsFromCatalogue(a *RemoveEventsFromCatalogueAction) {}

func (c *cache) VisitSetAttribute(a *SetAttributeAction)       { c.putAll(a.entities) }
func (c *cache) VisitDeleteAttribute(a *DeleteAttributeAction) { c.putAll(a.entities) }
func (c *cache) VisitSave(a *SaveAction)                         {}
func (c *cache) VisitMoveToTrash(a *MoveToTrashAction)           { c.putAll(a.entities) }
func (c *cache) VisitRestoreFromTrash(a *RestoreFromTrashAction) { c.putAll(a.entities) }

func (c *cache) VisitDeletePermanently(a *DeletePermanentlyAction) {
	for _, d := range a.deleted {
		c.drop(d.UUID())
	}
}

func (c *cache) VisitRestorePermanentlyDeleted(a *RestorePermanentlyDeletedAction) {
	c.putAll(a.entities)
}

func (c *cache) VisitCanonicalizeImport(a *CanonicalizeImportAction) {}

func (c *cache) VisitImportCanonicalizedDict(a *ImportCanonicalizedDictAction) {
	for _, cat := range a.catalogues {
		c.put(cat)
	}
	for _, e := range a.events {
		c.put(e)
	}
}

func (c *cache) VisitExport(a *ExportAction) {}
