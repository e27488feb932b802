package driver

import (
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
)

// Exported fields are inputs, frozen once the action is submitted. Outputs
// are read through methods after completion.

// GetCataloguesAction lists the catalogues in or out of the trash.
type GetCataloguesAction struct {
	Base
	Removed bool

	catalogues []*entity.Catalogue
}

func (a *GetCataloguesAction) String() string   { return "GetCatalogues" }
func (a *GetCataloguesAction) Accept(v Visitor) { v.VisitGetCatalogues(a) }

func (a *GetCataloguesAction) Catalogues() []*entity.Catalogue {
	if !a.ready("Catalogues") {
		return nil
	}
	return a.catalogues
}

// GetCatalogueAction fetches one catalogue and its events in or out of the
// trash.
type GetCatalogueAction struct {
	Base
	UUID    string
	Removed bool

	catalogue *entity.Catalogue
	events    []entity.CatalogueEvent
}

func (a *GetCatalogueAction) String() string   { return "GetCatalogue" }
func (a *GetCatalogueAction) Accept(v Visitor) { v.VisitGetCatalogue(a) }

func (a *GetCatalogueAction) Catalogue() *entity.Catalogue {
	if !a.ready("Catalogue") {
		return nil
	}
	return a.catalogue
}

func (a *GetCatalogueAction) Events() []entity.CatalogueEvent {
	if !a.ready("Events") {
		return nil
	}
	return a.events
}

// CreateEntityAction creates a catalogue or event from an attribute dump.
// A uuid in Fields is kept, which makes a repeated creation idempotent.
type CreateEntityAction struct {
	Base
	Kind   entity.Kind
	Fields *entity.Attributes

	entity entity.Entity
}

func (a *CreateEntityAction) String() string   { return "CreateEntity" }
func (a *CreateEntityAction) Accept(v Visitor) { v.VisitCreateEntity(a) }

func (a *CreateEntityAction) Entity() entity.Entity {
	if !a.ready("Entity") {
		return nil
	}
	return a.entity
}

// RemoveEntitiesAction deletes entities for good without keeping a snapshot.
type RemoveEntitiesAction struct {
	Base
	UUIDs []string

	removed []string
}

func (a *RemoveEntitiesAction) String() string   { return "RemoveEntities" }
func (a *RemoveEntitiesAction) Accept(v Visitor) { v.VisitRemoveEntities(a) }

func (a *RemoveEntitiesAction) Removed() []string {
	if !a.ready("Removed") {
		return nil
	}
	return a.removed
}

// AddEventsToCatalogueAction links events to a catalogue. Events that are
// already linked are skipped.
type AddEventsToCatalogueAction struct {
	Base
	Catalogue string
	UUIDs     []string

	added  []string
	events []*entity.Event
}

func (a *AddEventsToCatalogueAction) String() string   { return "AddEventsToCatalogue" }
func (a *AddEventsToCatalogueAction) Accept(v Visitor) { v.VisitAddEventsToCatalogue(a) }

// Added lists the uuids that were not linked before.
func (a *AddEventsToCatalogueAction) Added() []string {
	if !a.ready("Added") {
		return nil
	}
	return a.added
}

// Events holds snapshots of the newly linked events.
func (a *AddEventsToCatalogueAction) Events() []*entity.Event {
	if !a.ready("Events") {
		return nil
	}
	return a.events
}

type RemoveEventsFromCatalogueAction struct {
	Base
	Catalogue string
	UUIDs     []string

	removed       []string
	stillMatching []string
}

func (a *RemoveEventsFromCatalogueAction) String() string   { return "RemoveEventsFromCatalogue" }
func (a *RemoveEventsFromCatalogueAction) Accept(v Visitor) { v.VisitRemoveEventsFromCatalogue(a) }

// Removed lists the uuids whose link was deleted.
func (a *RemoveEventsFromCatalogueAction) Removed() []string {
	if !a.ready("Removed") {
		return nil
	}
	return a.removed
}

// StillMatching lists removed events the catalogue predicate still selects.
func (a *RemoveEventsFromCatalogueAction) StillMatching() []string {
	if !a.ready("StillMatching") {
		return nil
	}
	return a.stillMatching
}

// SetAttributeAction sets Name on each entity; Values[i] goes to UUIDs[i].
type SetAttributeAction struct {
	Base
	UUIDs  []string
	Name   string
	Values []entity.Value

	entities []entity.Entity
}

func (a *SetAttributeAction) String() string   { return "SetAttribute" }
func (a *SetAttributeAction) Accept(v Visitor) { v.VisitSetAttribute(a) }

func (a *SetAttributeAction) Entities() []entity.Entity {
	if !a.ready("Entities") {
		return nil
	}
	return a.entities
}

// DeleteAttributeAction removes a variable attribute. A missing attribute
// fails the whole action.
type DeleteAttributeAction struct {
	Base
	UUIDs []string
	Name  string

	entities []entity.Entity
}

func (a *DeleteAttributeAction) String() string   { return "DeleteAttribute" }
func (a *DeleteAttributeAction) Accept(v Visitor) { v.VisitDeleteAttribute(a) }

func (a *DeleteAttributeAction) Entities() []entity.Entity {
	if !a.ready("Entities") {
		return nil
	}
	return a.entities
}

// SaveAction flushes the store to disk.
type SaveAction struct {
	Base
}

func (a *SaveAction) String() string   { return "Save" }
func (a *SaveAction) Accept(v Visitor) { v.VisitSave(a) }

type MoveToTrashAction struct {
	Base
	UUIDs []string

	entities []entity.Entity
}

func (a *MoveToTrashAction) String() string   { return "MoveToTrash" }
func (a *MoveToTrashAction) Accept(v Visitor) { v.VisitMoveToTrash(a) }

func (a *MoveToTrashAction) Entities() []entity.Entity {
	if !a.ready("Entities") {
		return nil
	}
	return a.entities
}

type RestoreFromTrashAction struct {
	Base
	UUIDs []string

	entities []entity.Entity
}

func (a *RestoreFromTrashAction) String() string   { return "RestoreFromTrash" }
func (a *RestoreFromTrashAction) Accept(v Visitor) { v.VisitRestoreFromTrash(a) }

func (a *RestoreFromTrashAction) Entities() []entity.Entity {
	if !a.ready("Entities") {
		return nil
	}
	return a.entities
}

// DeletedEntity is everything needed to recreate a permanently deleted
// entity: its attribute dump, trash flag and the uuids it was linked to.
type DeletedEntity struct {
	Kind    entity.Kind
	InTrash bool
	Fields  *entity.Attributes
	Links   []string
}

// UUID of the deleted entity.
func (d DeletedEntity) UUID() string {
	v, _ := d.Fields.Get(entity.FieldUUID)
	return v.AsString()
}

// DeletePermanentlyAction snapshots then deletes entities.
type DeletePermanentlyAction struct {
	Base
	UUIDs []string

	deleted []DeletedEntity
}

func (a *DeletePermanentlyAction) String() string   { return "DeletePermanently" }
func (a *DeletePermanentlyAction) Accept(v Visitor) { v.VisitDeletePermanently(a) }

func (a *DeletePermanentlyAction) Deleted() []DeletedEntity {
	if !a.ready("Deleted") {
		return nil
	}
	return a.deleted
}

// RestorePermanentlyDeletedAction recreates entities under their previous
// uuids and relinks them.
type RestorePermanentlyDeletedAction struct {
	Base
	Deleted []DeletedEntity

	entities []entity.Entity
}

func (a *RestorePermanentlyDeletedAction) String() string   { return "RestorePermanentlyDeleted" }
func (a *RestorePermanentlyDeletedAction) Accept(v Visitor) { v.VisitRestorePermanentlyDeleted(a) }

func (a *RestorePermanentlyDeletedAction) Entities() []entity.Entity {
	if !a.ready("Entities") {
		return nil
	}
	return a.entities
}

// CanonicalizeImportAction reads a file or directory into an import
// dictionary. It does not touch the store.
type CanonicalizeImportAction struct {
	Base
	Path   string
	Format exchange.Format

	dict *exchange.Dict
}

func (a *CanonicalizeImportAction) String() string   { return "CanonicalizeImport" }
func (a *CanonicalizeImportAction) Accept(v Visitor) { v.VisitCanonicalizeImport(a) }

func (a *CanonicalizeImportAction) Dict() *exchange.Dict {
	if !a.ready("Dict") {
		return nil
	}
	return a.dict
}

// ImportCanonicalizedDictAction writes an import dictionary into the store.
// An entity whose uuid is already stored is overwritten; its previous state
// is kept in Replaced.
type ImportCanonicalizedDictAction struct {
	Base
	Dict *exchange.Dict

	catalogues []*entity.Catalogue
	events     []*entity.Event
	created    []string
	replaced   []DeletedEntity
}

func (a *ImportCanonicalizedDictAction) String() string   { return "ImportCanonicalizedDict" }
func (a *ImportCanonicalizedDictAction) Accept(v Visitor) { v.VisitImportCanonicalizedDict(a) }

func (a *ImportCanonicalizedDictAction) Catalogues() []*entity.Catalogue {
	if !a.ready("Catalogues") {
		return nil
	}
	return a.catalogues
}

func (a *ImportCanonicalizedDictAction) Events() []*entity.Event {
	if !a.ready("Events") {
		return nil
	}
	return a.events
}

// Created lists the uuids that did not exist before the import.
func (a *ImportCanonicalizedDictAction) Created() []string {
	if !a.ready("Created") {
		return nil
	}
	return a.created
}

// Replaced holds the stored state of the entities the import overwrote.
func (a *ImportCanonicalizedDictAction) Replaced() []DeletedEntity {
	if !a.ready("Replaced") {
		return nil
	}
	return a.replaced
}

// ExportAction writes catalogues with their assigned events to Path.
type ExportAction struct {
	Base
	Path   string
	Format exchange.Format
	UUIDs  []string
}

func (a *ExportAction) String() string   { return "Export" }
func (a *ExportAction) Accept(v Visitor) { v.VisitExport(a) }
