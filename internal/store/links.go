package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/justyntemme/tscat/internal/entity"
)

// AddEvents links events to a catalogue. Existing links are left alone.
func (s *Store) AddEvents(ctx context.Context, catalogue string, events []string) error {
	if len(events) == 0 {
		return nil
	}
	b := sq.Insert("catalogue_events").Columns("catalogue_uuid", "event_uuid")
	for _, ev := range events {
		b = b.Values(catalogue, ev)
	}
	b = b.Suffix("ON CONFLICT (catalogue_uuid, event_uuid) DO NOTHING")
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("add events to %s: %w", catalogue, err)
	}
	return nil
}

func (s *Store) RemoveEvents(ctx context.Context, catalogue string, events []string) error {
	if len(events) == 0 {
		return nil
	}
	_, err := s.exec(ctx, sq.Delete("catalogue_events").Where(squirrel.Eq{
		"catalogue_uuid": catalogue,
		"event_uuid":     events,
	}))
	if err != nil {
		return fmt.Errorf("remove events from %s: %w", catalogue, err)
	}
	return nil
}

func (s *Store) column(ctx context.Context, b squirrel.SelectBuilder) ([]string, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AssignedEventUUIDs lists the events explicitly linked to a catalogue.
func (s *Store) AssignedEventUUIDs(ctx context.Context, catalogue string) ([]string, error) {
	out, err := s.column(ctx, sq.Select("event_uuid").
		From("catalogue_events").
		Where(squirrel.Eq{"catalogue_uuid": catalogue}).
		OrderBy("event_uuid"))
	if err != nil {
		return nil, fmt.Errorf("events of %s: %w", catalogue, err)
	}
	return out, nil
}

// CataloguesOfEvent lists the catalogues an event is linked to.
func (s *Store) CataloguesOfEvent(ctx context.Context, event string) ([]string, error) {
	out, err := s.column(ctx, sq.Select("catalogue_uuid").
		From("catalogue_events").
		Where(squirrel.Eq{"event_uuid": event}).
		OrderBy("catalogue_uuid"))
	if err != nil {
		return nil, fmt.Errorf("catalogues of %s: %w", event, err)
	}
	return out, nil
}

func (s *Store) membership(ctx context.Context) (entity.Membership, error) {
	rows, err := s.query(ctx, sq.Select("catalogue_uuid", "event_uuid").From("catalogue_events"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[[2]string]bool)
	for rows.Next() {
		var c, e string
		if err := rows.Scan(&c, &e); err != nil {
			return nil, err
		}
		links[[2]string{c, e}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return func(catalogue, event string) bool { return links[[2]string{catalogue, event}] }, nil
}

// CatalogueEvents lists the events of a catalogue that are in or out of the
// trash. For a dynamic catalogue the predicate matches are included with
// Assigned unset.
func (s *Store) CatalogueEvents(ctx context.Context, catalogue string, removed bool) ([]entity.CatalogueEvent, error) {
	c, err := s.catalogue(ctx, catalogue)
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", catalogue, err)
	}

	assigned, err := s.AssignedEventUUIDs(ctx, catalogue)
	if err != nil {
		return nil, err
	}
	isAssigned := make(map[string]bool, len(assigned))
	for _, id := range assigned {
		isAssigned[id] = true
	}

	var candidates []*entity.Event
	if c.Predicate == nil {
		if len(assigned) == 0 {
			return nil, nil
		}
		candidates, err = s.selectEvents(ctx, squirrel.Eq{"uuid": assigned, "removed": removed})
	} else {
		candidates, err = s.selectEvents(ctx, squirrel.Eq{"removed": removed})
	}
	if err != nil {
		return nil, fmt.Errorf("events of %s: %w", catalogue, err)
	}

	var member entity.Membership
	if c.Predicate != nil {
		if member, err = s.membership(ctx); err != nil {
			return nil, err
		}
	}

	var out []entity.CatalogueEvent
	for _, e := range candidates {
		switch {
		case isAssigned[e.ID]:
			out = append(out, entity.CatalogueEvent{Event: e, Assigned: true})
		case c.Predicate != nil && c.Predicate.Eval(e, member):
			out = append(out, entity.CatalogueEvent{Event: e})
		}
	}
	return out, nil
}
