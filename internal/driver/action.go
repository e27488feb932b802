package driver

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/justyntemme/tscat/internal/store"
)

// Action is one unit of work executed on the driver worker. The set of actions
// is closed: every variant is declared in this package and dispatched through
// Visitor.
type Action interface {
	Accept(v Visitor)
	// String is a short label for logs.
	String() string
	Err() error
	Completed() bool
	SetCallback(cb Callback)

	base() *Base
	execute(ctx context.Context, s *store.Store) error
}

// Callback runs on the owner goroutine once the action has completed.
type Callback func(a Action)

// Base carries the completion state shared by all actions. Set Callback
// before submitting.
type Base struct {
	Callback Callback

	seq       uint64
	err       error
	done      atomic.Bool
	delivered bool // owner goroutine only
}

func (b *Base) base() *Base { return b }

// SetCallback replaces the callback. Call it before Submit.
func (b *Base) SetCallback(cb Callback) { b.Callback = cb }

// Completed reports whether the worker has finished the action.
func (b *Base) Completed() bool { return b.done.Load() }

// Seq is the submission sequence number, starting at 1.
func (b *Base) Seq() uint64 { return b.seq }

// Err is the execution error. Import and export failures land here too.
func (b *Base) Err() error {
	if !b.ready("Err") {
		return nil
	}
	return b.err
}

// ready guards output accessors. Reading an output before completion is an
// ordering bug in the caller; it is logged and the zero value returned.
func (b *Base) ready(field string) bool {
	if b.done.Load() {
		return true
	}
	log.Printf("Driver: %s read before action #%d completed", field, b.seq)
	return false
}

// Visitor has one method per action variant.
type Visitor interface {
	VisitGetCatalogues(a *GetCataloguesAction)
	VisitGetCatalogue(a *GetCatalogueAction)
	VisitCreateEntity(a *CreateEntityAction)
	VisitRemoveEntities(a *RemoveEntitiesAction)
	VisitAddEventsToCatalogue(a *AddEventsToCatalogueAction)
	VisitRemoveEventsFromCatalogue(a *RemoveEventsFromCatalogueAction)
	VisitSetAttribute(a *SetAttributeAction)
	VisitDeleteAttribute(a *DeleteAttributeAction)
	VisitSave(a *SaveAction)
	VisitMoveToTrash(a *MoveToTrashAction)
	VisitRestoreFromTrash(a *RestoreFromTrashAction)
	VisitDeletePermanently(a *DeletePermanentlyAction)
	VisitRestorePermanentlyDeleted(a *RestorePermanentlyDeletedAction)
	VisitCanonicalizeImport(a *CanonicalizeImportAction)
	VisitImportCanonicalizedDict(a *ImportCanonicalizedDictAction)
	VisitExport(a *ExportAction)
}
