package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/justyntemme/tscat/internal/entity"
)

var eventColumns = []string{"uuid", "start", "stop", "author", "tags", "products", "rating", "attributes", "removed"}

func newUUID() string { return uuid.NewString() }

func scanEvent(row scanner) (*entity.Event, error) {
	var (
		e                          entity.Event
		start, stop                int64
		tags, products, attributes string
	)
	if err := row.Scan(&e.ID, &start, &stop, &e.Author, &tags, &products, &e.Rating, &attributes, &e.IsRemoved); err != nil {
		return nil, err
	}
	e.Start, e.Stop = decodeTime(start), decodeTime(stop)
	var err error
	if e.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if e.Products, err = decodeStrings(products); err != nil {
		return nil, err
	}
	if e.Attributes, err = decodeAttributes(attributes); err != nil {
		return nil, err
	}
	return &e, nil
}

func eventValues(e *entity.Event) ([]any, error) {
	attributes, err := encodeAttributes(e.Attributes)
	if err != nil {
		return nil, err
	}
	return []any{
		e.ID, encodeTime(e.Start), encodeTime(e.Stop), e.Author,
		encodeStrings(e.Tags), encodeStrings(e.Products), e.Rating, attributes, e.IsRemoved,
	}, nil
}

func eventUpsert(e *entity.Event) (squirrel.InsertBuilder, error) {
	values, err := eventValues(e)
	if err != nil {
		return squirrel.InsertBuilder{}, err
	}
	return sq.Insert("events").
		Columns(eventColumns...).
		Values(values...).
		Suffix(upsertSuffix(eventColumns)), nil
}

func (s *Store) selectEvents(ctx context.Context, where squirrel.Sqlizer) ([]*entity.Event, error) {
	b := sq.Select(eventColumns...).From("events").OrderBy("start", "uuid")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events lists every event in or out of the trash, ordered by start.
func (s *Store) Events(ctx context.Context, removed bool) ([]*entity.Event, error) {
	events, err := s.selectEvents(ctx, squirrel.Eq{"removed": removed})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Store) event(ctx context.Context, uuid string) (*entity.Event, error) {
	events, err := s.selectEvents(ctx, squirrel.Eq{"uuid": uuid})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events[0], nil
}
