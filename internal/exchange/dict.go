// Package exchange converts catalogue files to and from the neutral import
// dictionary. Nothing here touches the store.
package exchange

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/justyntemme/tscat/internal/entity"
)

var (
	ErrInvalidDocument = errors.New("invalid catalogue document")
	ErrDuplicateUUID   = errors.New("duplicate uuid")
	ErrUnknownFormat   = errors.New("unknown exchange format")
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatVOTable Format = "votable"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "votable", "xml", "vot":
		return FormatVOTable, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format by file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

type CatalogueRecord struct {
	UUID       string             `json:"uuid"`
	Name       string             `json:"name"`
	Author     string             `json:"author"`
	Tags       []string           `json:"tags"`
	Path       []string           `json:"path"`
	Predicate  *entity.Predicate  `json:"predicate,omitempty"`
	Attributes *entity.Attributes `json:"attributes"`
	Events     []string           `json:"events"`
}

type EventRecord struct {
	UUID       string             `json:"uuid"`
	Start      time.Time          `json:"start"`
	Stop       time.Time          `json:"stop"`
	Author     string             `json:"author"`
	Tags       []string           `json:"tags"`
	Products   []string           `json:"products"`
	Rating     int64              `json:"rating"`
	Attributes *entity.Attributes `json:"attributes"`
}

// Dict is the canonical form every import format is reduced to.
type Dict struct {
	Catalogues []CatalogueRecord `json:"catalogues"`
	Events     []EventRecord     `json:"events"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func CatalogueRecordOf(c *entity.Catalogue, events []string) CatalogueRecord {
	return CatalogueRecord{
		UUID:       c.ID,
		Name:       c.Name,
		Author:     c.Author,
		Tags:       nonNil(append([]string(nil), c.Tags...)),
		Path:       nonNil(append([]string(nil), c.Path...)),
		Predicate:  c.Predicate.Clone(),
		Attributes: c.Attributes.Clone(),
		Events:     nonNil(append([]string(nil), events...)),
	}
}

func EventRecordOf(e *entity.Event) EventRecord {
	return EventRecord{
		UUID:       e.ID,
		Start:      e.Start.UTC(),
		Stop:       e.Stop.UTC(),
		Author:     e.Author,
		Tags:       nonNil(append([]string(nil), e.Tags...)),
		Products:   nonNil(append([]string(nil), e.Products...)),
		Rating:     e.Rating,
		Attributes: e.Attributes.Clone(),
	}
}

func (r CatalogueRecord) Entity() *entity.Catalogue {
	return &entity.Catalogue{
		ID:         r.UUID,
		Name:       r.Name,
		Author:     r.Author,
		Tags:       append([]string(nil), r.Tags...),
		Path:       append([]string(nil), r.Path...),
		Predicate:  r.Predicate.Clone(),
		Attributes: r.Attributes.Clone(),
	}
}

func (r EventRecord) Entity() *entity.Event {
	return &entity.Event{
		ID:         r.UUID,
		Start:      r.Start.UTC(),
		Stop:       r.Stop.UTC(),
		Author:     r.Author,
		Tags:       append([]string(nil), r.Tags...),
		Products:   append([]string(nil), r.Products...),
		Rating:     r.Rating,
		Attributes: r.Attributes.Clone(),
	}
}

func (d *Dict) CatalogueUUIDs() []string {
	out := make([]string, len(d.Catalogues))
	for i, c := range d.Catalogues {
		out[i] = c.UUID
	}
	return out
}

func (d *Dict) EventUUIDs() []string {
	out := make([]string, len(d.Events))
	for i, e := range d.Events {
		out[i] = e.UUID
	}
	return out
}

// Check verifies that uuids are present and unique and that every linked
// event is part of the dictionary.
func (d *Dict) Check() error {
	seen := make(map[string]bool)
	events := make(map[string]bool)
	for _, e := range d.Events {
		if e.UUID == "" {
			return fmt.Errorf("%w: event without uuid", ErrInvalidDocument)
		}
		if seen[e.UUID] {
			return fmt.Errorf("%w: %s", ErrDuplicateUUID, e.UUID)
		}
		if e.Stop.Before(e.Start) {
			return fmt.Errorf("%w: event %s: %v", ErrInvalidDocument, e.UUID, entity.ErrInvalidTimeRange)
		}
		seen[e.UUID] = true
		events[e.UUID] = true
	}
	for _, c := range d.Catalogues {
		if c.UUID == "" {
			return fmt.Errorf("%w: catalogue %q without uuid", ErrInvalidDocument, c.Name)
		}
		if seen[c.UUID] {
			return fmt.Errorf("%w: %s", ErrDuplicateUUID, c.UUID)
		}
		seen[c.UUID] = true
		if c.Predicate != nil {
			if err := c.Predicate.Validate(); err != nil {
				return fmt.Errorf("%w: catalogue %s: %v", ErrInvalidDocument, c.UUID, err)
			}
		}
		for _, id := range c.Events {
			if !events[id] {
				return fmt.Errorf("%w: catalogue %s links unknown event %s", ErrInvalidDocument, c.UUID, id)
			}
		}
		if err := checkNames(c.Attributes); err != nil {
			return fmt.Errorf("%w: catalogue %s: %v", ErrInvalidDocument, c.UUID, err)
		}
	}
	for _, e := range d.Events {
		if err := checkNames(e.Attributes); err != nil {
			return fmt.Errorf("%w: event %s: %v", ErrInvalidDocument, e.UUID, err)
		}
	}
	return nil
}

func checkNames(a *entity.Attributes) error {
	for _, name := range a.Keys() {
		if !entity.ValidAttributeName(name) {
			return fmt.Errorf("%w: %q", entity.ErrInvalidName, name)
		}
	}
	return nil
}

// Merge concatenates dictionaries. An event listed by several inputs is kept
// once when its records are identical.
func Merge(dicts ...*Dict) (*Dict, error) {
	out := &Dict{Catalogues: []CatalogueRecord{}, Events: []EventRecord{}}
	events := make(map[string]EventRecord)
	for _, d := range dicts {
		for _, e := range d.Events {
			if prev, ok := events[e.UUID]; ok {
				if !sameEvent(prev, e) {
					return nil, fmt.Errorf("%w: event %s differs between files", ErrDuplicateUUID, e.UUID)
				}
				continue
			}
			events[e.UUID] = e
			out.Events = append(out.Events, e)
		}
		out.Catalogues = append(out.Catalogues, d.Catalogues...)
	}
	if err := out.Check(); err != nil {
		return nil, err
	}
	return out, nil
}

func sameEvent(a, b EventRecord) bool {
	return a.Entity().Fields().Equal(b.Entity().Fields())
}

// normalized replaces nil lists so the encoded document satisfies the schema.
func (d *Dict) normalized() *Dict {
	out := &Dict{
		Catalogues: make([]CatalogueRecord, len(d.Catalogues)),
		Events:     make([]EventRecord, len(d.Events)),
	}
	for i, c := range d.Catalogues {
		c.Tags, c.Path, c.Events = nonNil(c.Tags), nonNil(c.Path), nonNil(c.Events)
		if c.Attributes == nil {
			c.Attributes = entity.NewAttributes()
		}
		out.Catalogues[i] = c
	}
	for i, e := range d.Events {
		e.Tags, e.Products = nonNil(e.Tags), nonNil(e.Products)
		if e.Attributes == nil {
			e.Attributes = entity.NewAttributes()
		}
		out.Events[i] = e
	}
	return out
}
