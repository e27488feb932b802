package driver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/store"
)

// Everything below runs on the worker goroutine and writes only the
// action's own output fields.

func (a *GetCataloguesAction) execute(ctx context.Context, s *store.Store) error {
	cats, err := s.Catalogues(ctx, a.Removed)
	if err != nil {
		return err
	}
	a.catalogues = cats
	return nil
}

func (a *GetCatalogueAction) execute(ctx context.Context, s *store.Store) error {
	c, err := catalogueOf(ctx, s, a.UUID)
	if err != nil {
		return err
	}
	events, err := s.CatalogueEvents(ctx, a.UUID, a.Removed)
	if err != nil {
		return err
	}
	a.catalogue, a.events = c, events
	return nil
}

func catalogueOf(ctx context.Context, s *store.Store, uuid string) (*entity.Catalogue, error) {
	e, err := s.Entity(ctx, uuid)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*entity.Catalogue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is an event", ErrWrongKind, uuid)
	}
	return c, nil
}

func (a *CreateEntityAction) execute(ctx context.Context, s *store.Store) error {
	e, err := entity.New(a.Kind, a.Fields)
	if err != nil {
		return err
	}
	created, err := s.Create(ctx, e)
	if err != nil {
		return err
	}
	a.entity = created
	return nil
}

func (a *RemoveEntitiesAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		var removed []string
		for _, id := range a.UUIDs {
			if err := tx.Delete(ctx, id); err != nil {
				return err
			}
			removed = append(removed, id)
		}
		a.removed = removed
		return nil
	})
}

func (a *AddEventsToCatalogueAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		if _, err := catalogueOf(ctx, tx, a.Catalogue); err != nil {
			return err
		}
		assigned, err := tx.AssignedEventUUIDs(ctx, a.Catalogue)
		if err != nil {
			return err
		}
		skip := make(map[string]bool, len(assigned))
		for _, id := range assigned {
			skip[id] = true
		}

		var added []string
		var events []*entity.Event
		for _, id := range a.UUIDs {
			if skip[id] {
				continue
			}
			skip[id] = true
			e, err := tx.Entity(ctx, id)
			if err != nil {
				return err
			}
			ev, ok := e.(*entity.Event)
			if !ok {
				return fmt.Errorf("%w: %s is a catalogue", ErrWrongKind, id)
			}
			added = append(added, id)
			events = append(events, ev)
		}
		if err := tx.AddEvents(ctx, a.Catalogue, added); err != nil {
			return err
		}
		a.added, a.events = added, events
		return nil
	})
}

func (a *RemoveEventsFromCatalogueAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		c, err := catalogueOf(ctx, tx, a.Catalogue)
		if err != nil {
			return err
		}
		assigned, err := tx.AssignedEventUUIDs(ctx, a.Catalogue)
		if err != nil {
			return err
		}
		linked := make(map[string]bool, len(assigned))
		for _, id := range assigned {
			linked[id] = true
		}
		var removed []string
		for _, id := range a.UUIDs {
			if linked[id] {
				removed = append(removed, id)
				linked[id] = false
			}
		}
		if err := tx.RemoveEvents(ctx, a.Catalogue, removed); err != nil {
			return err
		}

		var still []string
		if c.Dynamic() && len(removed) > 0 {
			listed := make(map[string]bool)
			for _, inTrash := range []bool{false, true} {
				events, err := tx.CatalogueEvents(ctx, a.Catalogue, inTrash)
				if err != nil {
					return err
				}
				for _, ce := range events {
					listed[ce.Event.ID] = true
				}
			}
			for _, id := range removed {
				if listed[id] {
					still = append(still, id)
				}
			}
		}
		a.removed, a.stillMatching = removed, still
		return nil
	})
}

func (a *SetAttributeAction) execute(ctx context.Context, s *store.Store) error {
	if len(a.UUIDs) != len(a.Values) {
		return fmt.Errorf("set %s: %d uuids for %d values", a.Name, len(a.UUIDs), len(a.Values))
	}
	return s.WithTx(ctx, func(tx *store.Store) error {
		var out []entity.Entity
		for i, id := range a.UUIDs {
			e, err := tx.Entity(ctx, id)
			if err != nil {
				return err
			}
			if err := e.SetField(a.Name, a.Values[i]); err != nil {
				return fmt.Errorf("set %s on %s: %w", a.Name, id, err)
			}
			if err := tx.Update(ctx, e); err != nil {
				return err
			}
			out = append(out, e)
		}
		a.entities = out
		return nil
	})
}

func (a *DeleteAttributeAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		var out []entity.Entity
		for _, id := range a.UUIDs {
			e, err := tx.Entity(ctx, id)
			if err != nil {
				return err
			}
			if err := e.DeleteField(a.Name); err != nil {
				return fmt.Errorf("delete %s on %s: %w", a.Name, id, err)
			}
			if err := tx.Update(ctx, e); err != nil {
				return err
			}
			out = append(out, e)
		}
		a.entities = out
		return nil
	})
}

func (a *SaveAction) execute(ctx context.Context, s *store.Store) error {
	return s.Save(ctx)
}

func setRemoved(ctx context.Context, s *store.Store, uuids []string, removed bool) ([]entity.Entity, error) {
	var out []entity.Entity
	err := s.WithTx(ctx, func(tx *store.Store) error {
		for _, id := range uuids {
			if err := tx.SetRemoved(ctx, id, removed); err != nil {
				return err
			}
			e, err := tx.Entity(ctx, id)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (a *MoveToTrashAction) execute(ctx context.Context, s *store.Store) error {
	entities, err := setRemoved(ctx, s, a.UUIDs, true)
	if err != nil {
		return err
	}
	a.entities = entities
	return nil
}

func (a *RestoreFromTrashAction) execute(ctx context.Context, s *store.Store) error {
	entities, err := setRemoved(ctx, s, a.UUIDs, false)
	if err != nil {
		return err
	}
	a.entities = entities
	return nil
}

func (a *DeletePermanentlyAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		var deleted []DeletedEntity
		for _, id := range a.UUIDs {
			d, err := dump(ctx, tx, id)
			if err != nil {
				return err
			}
			deleted = append(deleted, d)
			if err := tx.Delete(ctx, id); err != nil {
				return err
			}
		}
		a.deleted = deleted
		return nil
	})
}

// dump snapshots the stored entity id with its links.
func dump(ctx context.Context, tx *store.Store, id string) (DeletedEntity, error) {
	e, err := tx.Entity(ctx, id)
	if err != nil {
		return DeletedEntity{}, err
	}
	var links []string
	if e.Kind() == entity.KindCatalogue {
		links, err = tx.AssignedEventUUIDs(ctx, id)
	} else {
		links, err = tx.CataloguesOfEvent(ctx, id)
	}
	if err != nil {
		return DeletedEntity{}, err
	}
	return DeletedEntity{
		Kind:    e.Kind(),
		InTrash: e.Removed(),
		Fields:  e.Fields(),
		Links:   links,
	}, nil
}

func (a *RestorePermanentlyDeletedAction) execute(ctx context.Context, s *store.Store) error {
	return s.WithTx(ctx, func(tx *store.Store) error {
		var out []entity.Entity
		for _, d := range a.Deleted {
			e, err := entity.New(d.Kind, d.Fields)
			if err != nil {
				return err
			}
			created, err := tx.Create(ctx, entity.WithRemoved(e, d.InTrash))
			if err != nil {
				return err
			}
			out = append(out, created)
		}

		// Links are restored once every entity exists; targets deleted since
		// are skipped.
		for _, d := range a.Deleted {
			for _, other := range d.Links {
				if _, err := tx.Entity(ctx, other); errors.Is(err, store.ErrNotFound) {
					continue
				} else if err != nil {
					return err
				}
				var err error
				if d.Kind == entity.KindCatalogue {
					err = tx.AddEvents(ctx, d.UUID(), []string{other})
				} else {
					err = tx.AddEvents(ctx, other, []string{d.UUID()})
				}
				if err != nil {
					return err
				}
			}
		}
		a.entities = out
		return nil
	})
}

func (a *CanonicalizeImportAction) execute(ctx context.Context, s *store.Store) error {
	d, err := exchange.CanonicalizePath(a.Path, a.Format)
	if err != nil {
		return err
	}
	a.dict = d
	return nil
}

func (a *ImportCanonicalizedDictAction) execute(ctx context.Context, s *store.Store) error {
	if a.Dict == nil {
		return fmt.Errorf("import: %w", exchange.ErrInvalidDocument)
	}
	if err := a.Dict.Check(); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *store.Store) error {
		var fresh []string
		var replaced []DeletedEntity
		for _, id := range append(a.Dict.EventUUIDs(), a.Dict.CatalogueUUIDs()...) {
			d, err := dump(ctx, tx, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fresh = append(fresh, id)
			case err != nil:
				return err
			default:
				replaced = append(replaced, d)
			}
		}

		var events []*entity.Event
		for _, r := range a.Dict.Events {
			created, err := tx.Create(ctx, r.Entity())
			if err != nil {
				return err
			}
			events = append(events, created.(*entity.Event))
		}
		var cats []*entity.Catalogue
		for _, r := range a.Dict.Catalogues {
			created, err := tx.Create(ctx, r.Entity())
			if err != nil {
				return err
			}
			if err := tx.AddEvents(ctx, r.UUID, r.Events); err != nil {
				return err
			}
			cats = append(cats, created.(*entity.Catalogue))
		}
		a.catalogues, a.events = cats, events
		a.created, a.replaced = fresh, replaced
		return nil
	})
}

func (a *ExportAction) execute(ctx context.Context, s *store.Store) error {
	format := a.Format
	if format == "" {
		var err error
		if format, err = exchange.FormatFromPath(a.Path); err != nil {
			return err
		}
	}

	d := &exchange.Dict{}
	seen := make(map[string]bool)
	for _, id := range a.UUIDs {
		c, err := catalogueOf(ctx, s, id)
		if err != nil {
			return err
		}
		events, err := s.CatalogueEvents(ctx, id, false)
		if err != nil {
			return err
		}
		var linked []string
		for _, ce := range events {
			if !ce.Assigned {
				continue
			}
			linked = append(linked, ce.Event.ID)
			if !seen[ce.Event.ID] {
				seen[ce.Event.ID] = true
				d.Events = append(d.Events, exchange.EventRecordOf(ce.Event))
			}
		}
		d.Catalogues = append(d.Catalogues, exchange.CatalogueRecordOf(c, linked))
	}

	f, err := os.Create(a.Path)
	if err != nil {
		return err
	}
	if err := exchange.Encode(f, d, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
