package entity

import (
	"fmt"
	"time"
)

type Event struct {
	ID         string
	Start      time.Time
	Stop       time.Time
	Author     string
	Tags       []string
	Products   []string
	Rating     int64
	Attributes *Attributes
	IsRemoved  bool
}

func (e *Event) UUID() string  { return e.ID }
func (e *Event) Kind() Kind    { return KindEvent }
func (e *Event) Removed() bool { return e.IsRemoved }

func (e *Event) DisplayName() string {
	return e.Start.Format(time.RFC3339) + " " + e.Stop.Format(time.RFC3339)
}

func (e *Event) Field(name string) (Value, bool) {
	switch name {
	case FieldUUID:
		return String(e.ID), true
	case FieldStart:
		return Time(e.Start), true
	case FieldStop:
		return Time(e.Stop), true
	case FieldAuthor:
		return String(e.Author), true
	case FieldTags:
		return Strings(e.Tags), true
	case FieldProducts:
		return Strings(e.Products), true
	case FieldRating:
		return Int(e.Rating), true
	}
	return e.Attributes.Get(name)
}

func (e *Event) SetField(name string, v Value) error {
	switch name {
	case FieldUUID:
		return fmt.Errorf("%w: %s", ErrImmutable, name)
	case FieldStart:
		if err := checkType(name, v, TypeTime); err != nil {
			return err
		}
		e.Start = v.AsTime()
	case FieldStop:
		if err := checkType(name, v, TypeTime); err != nil {
			return err
		}
		e.Stop = v.AsTime()
	case FieldAuthor:
		if err := checkType(name, v, TypeString); err != nil {
			return err
		}
		e.Author = v.AsString()
	case FieldTags:
		if err := checkType(name, v, TypeStrings); err != nil {
			return err
		}
		e.Tags = v.AsStrings()
	case FieldProducts:
		if err := checkType(name, v, TypeStrings); err != nil {
			return err
		}
		e.Products = v.AsStrings()
	case FieldRating:
		if err := checkType(name, v, TypeInt); err != nil {
			return err
		}
		e.Rating = v.AsInt()
	default:
		if e.Attributes == nil {
			e.Attributes = NewAttributes()
		}
		return setVariable(e.Attributes, name, v)
	}
	return nil
}

func (e *Event) DeleteField(name string) error {
	return deleteVariable(KindEvent, e.Attributes, name)
}

func (e *Event) Fields() *Attributes {
	out := NewAttributes()
	for _, name := range FixedFields(KindEvent) {
		v, _ := e.Field(name)
		out.Set(name, v)
	}
	e.Attributes.Range(func(name string, v Value) bool {
		out.Set(name, v.Clone())
		return true
	})
	return out
}

func (e *Event) Variable() *Attributes { return e.Attributes.Clone() }

func (e *Event) Clone() Entity {
	cp := *e
	cp.Tags = cloneStrings(e.Tags)
	cp.Products = cloneStrings(e.Products)
	cp.Attributes = e.Attributes.Clone()
	return &cp
}

// CatalogueEvent is an event as listed by a catalogue. Assigned is false for
// events present only because the catalogue predicate matches them.
type CatalogueEvent struct {
	Event    *Event
	Assigned bool
}
