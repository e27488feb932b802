package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"

	"github.com/justyntemme/tscat/internal/entity"
)

var catalogueColumns = []string{"uuid", "name", "author", "tags", "path", "predicate", "attributes", "removed"}

func scanCatalogue(row scanner) (*entity.Catalogue, error) {
	var (
		c                      entity.Catalogue
		tags, path, attributes string
		predicate              sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Author, &tags, &path, &predicate, &attributes, &c.IsRemoved); err != nil {
		return nil, err
	}
	var err error
	if c.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if c.Path, err = decodeStrings(path); err != nil {
		return nil, err
	}
	if c.Predicate, err = decodePredicate(predicate); err != nil {
		return nil, err
	}
	if c.Attributes, err = decodeAttributes(attributes); err != nil {
		return nil, err
	}
	return &c, nil
}

func catalogueValues(c *entity.Catalogue) ([]any, error) {
	predicate, err := encodePredicate(c.Predicate)
	if err != nil {
		return nil, err
	}
	attributes, err := encodeAttributes(c.Attributes)
	if err != nil {
		return nil, err
	}
	return []any{c.ID, c.Name, c.Author, encodeStrings(c.Tags), encodeStrings(c.Path), predicate, attributes, c.IsRemoved}, nil
}

// Catalogues lists the catalogues in or out of the trash, collated by name.
func (s *Store) Catalogues(ctx context.Context, removed bool) ([]*entity.Catalogue, error) {
	rows, err := s.query(ctx, sq.Select(catalogueColumns...).
		From("catalogues").
		Where(squirrel.Eq{"removed": removed}))
	if err != nil {
		return nil, fmt.Errorf("list catalogues: %w", err)
	}
	defer rows.Close()

	var out []*entity.Catalogue
	for rows.Next() {
		c, err := scanCatalogue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if cmp := s.collator.CompareString(out[i].Name, out[j].Name); cmp != 0 {
			return cmp < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) catalogue(ctx context.Context, uuid string) (*entity.Catalogue, error) {
	rows, err := s.query(ctx, sq.Select(catalogueColumns...).
		From("catalogues").
		Where(squirrel.Eq{"uuid": uuid}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanCatalogue(rows)
}

// Entity finds a catalogue or event by uuid, in the trash or not.
func (s *Store) Entity(ctx context.Context, uuid string) (entity.Entity, error) {
	c, err := s.catalogue(ctx, uuid)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("entity %s: %w", uuid, err)
	}
	e, err := s.event(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", uuid, err)
	}
	return e, nil
}

// Create inserts e. An empty uuid is replaced by a fresh one; an existing row
// with the same uuid is overwritten so that replaying a creation is harmless.
func (s *Store) Create(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	if e.UUID() == "" {
		e = entity.WithUUID(e, newUUID())
	} else {
		e = e.Clone()
	}

	var (
		b   squirrel.InsertBuilder
		err error
	)
	switch x := e.(type) {
	case *entity.Catalogue:
		b, err = catalogueUpsert(x)
	case *entity.Event:
		b, err = eventUpsert(x)
	default:
		return nil, fmt.Errorf("create: unsupported entity %T", e)
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, b); err != nil {
		return nil, fmt.Errorf("create %s %s: %w", e.Kind(), e.UUID(), err)
	}
	return e, nil
}

func catalogueUpsert(c *entity.Catalogue) (squirrel.InsertBuilder, error) {
	values, err := catalogueValues(c)
	if err != nil {
		return squirrel.InsertBuilder{}, err
	}
	return sq.Insert("catalogues").
		Columns(catalogueColumns...).
		Values(values...).
		Suffix(upsertSuffix(catalogueColumns)), nil
}

// Update rewrites every column of an existing entity.
func (s *Store) Update(ctx context.Context, e entity.Entity) error {
	var (
		table   string
		columns []string
		values  []any
		err     error
	)
	switch x := e.(type) {
	case *entity.Catalogue:
		table, columns = "catalogues", catalogueColumns
		values, err = catalogueValues(x)
	case *entity.Event:
		table, columns = "events", eventColumns
		values, err = eventValues(x)
	default:
		return fmt.Errorf("update: unsupported entity %T", e)
	}
	if err != nil {
		return err
	}

	b := sq.Update(table).Where(squirrel.Eq{"uuid": e.UUID()})
	for i, col := range columns {
		if col == "uuid" {
			continue
		}
		b = b.Set(col, values[i])
	}
	res, err := s.exec(ctx, b)
	if err != nil {
		return fmt.Errorf("update %s: %w", e.UUID(), err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", e.UUID(), ErrNotFound)
	}
	return nil
}

// SetRemoved moves an entity into or out of the trash.
func (s *Store) SetRemoved(ctx context.Context, uuid string, removed bool) error {
	for _, table := range []string{"catalogues", "events"} {
		res, err := s.exec(ctx, sq.Update(table).
			Set("removed", removed).
			Where(squirrel.Eq{"uuid": uuid}))
		if err != nil {
			return fmt.Errorf("trash %s: %w", uuid, err)
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n > 0 {
			return nil
		}
	}
	return fmt.Errorf("trash %s: %w", uuid, ErrNotFound)
}

// Delete removes an entity for good, along with its catalogue links.
func (s *Store) Delete(ctx context.Context, uuid string) error {
	for _, table := range []string{"catalogues", "events"} {
		res, err := s.exec(ctx, sq.Delete(table).Where(squirrel.Eq{"uuid": uuid}))
		if err != nil {
			return fmt.Errorf("delete %s: %w", uuid, err)
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n > 0 {
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", uuid, ErrNotFound)
}

func upsertSuffix(columns []string) string {
	suffix := "ON CONFLICT(uuid) DO UPDATE SET "
	first := true
	for _, col := range columns {
		if col == "uuid" {
			continue
		}
		if !first {
			suffix += ", "
		}
		suffix += col + " = excluded." + col
		first = false
	}
	return suffix
}
