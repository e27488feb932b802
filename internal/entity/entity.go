// Package entity defines the catalogue and event records shared by the store,
// the driver cache and the projection models.
package entity

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrFixedAttribute   = errors.New("fixed attribute cannot be deleted")
	ErrNoSuchAttribute  = errors.New("no such attribute")
	ErrImmutable        = errors.New("attribute is immutable")
	ErrTypeMismatch     = errors.New("attribute type mismatch")
	ErrInvalidName      = errors.New("invalid attribute name")
	ErrInvalidTimeRange = errors.New("event stops before it starts")
)

type Kind int

const (
	KindCatalogue Kind = iota
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindCatalogue:
		return "catalogue"
	case KindEvent:
		return "event"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "catalogue":
		return KindCatalogue, nil
	case "event":
		return KindEvent, nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Fixed attribute names.
const (
	FieldUUID      = "uuid"
	FieldName      = "name"
	FieldAuthor    = "author"
	FieldTags      = "tags"
	FieldPath      = "path"
	FieldPredicate = "predicate"
	FieldStart     = "start"
	FieldStop      = "stop"
	FieldProducts  = "products"
	FieldRating    = "rating"
)

// Entity is implemented by *Catalogue and *Event.
type Entity interface {
	UUID() string
	Kind() Kind
	Removed() bool
	DisplayName() string

	// Field reads a fixed or variable attribute.
	Field(name string) (Value, bool)
	// SetField writes a fixed attribute or creates/replaces a variable one.
	SetField(name string, v Value) error
	// DeleteField removes a variable attribute.
	DeleteField(name string) error
	// Fields dumps fixed attributes followed by variable ones.
	Fields() *Attributes
	Variable() *Attributes
	Clone() Entity
}

var attributeName = regexp.MustCompile(`^[A-Za-z][A-Za-z_0-9]*$`)

// ValidAttributeName reports whether name may be used for a variable attribute.
func ValidAttributeName(name string) bool {
	return attributeName.MatchString(name)
}

// FixedFields lists the fixed attribute names of a kind in dump order.
func FixedFields(kind Kind) []string {
	if kind == KindCatalogue {
		return []string{FieldUUID, FieldName, FieldAuthor, FieldTags, FieldPath, FieldPredicate}
	}
	return []string{FieldUUID, FieldStart, FieldStop, FieldAuthor, FieldTags, FieldProducts, FieldRating}
}

// IsFixed reports whether name is a fixed attribute of kind.
func IsFixed(kind Kind, name string) bool {
	for _, f := range FixedFields(kind) {
		if f == name {
			return true
		}
	}
	return false
}

// New builds an entity from an attribute dump as produced by Fields.
// The uuid attribute is optional; the store assigns one when it is empty.
func New(kind Kind, fields *Attributes) (Entity, error) {
	var e Entity
	switch kind {
	case KindCatalogue:
		e = &Catalogue{Attributes: NewAttributes()}
	case KindEvent:
		e = &Event{Attributes: NewAttributes()}
	default:
		return nil, fmt.Errorf("new entity: %v", kind)
	}

	var err error
	fields.Range(func(name string, v Value) bool {
		if name == FieldUUID {
			if v.Type() != TypeString {
				err = fmt.Errorf("%w: uuid must be a string", ErrTypeMismatch)
				return false
			}
			setUUID(e, v.AsString())
			return true
		}
		err = e.SetField(name, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if ev, ok := e.(*Event); ok && ev.Stop.Before(ev.Start) {
		return nil, ErrInvalidTimeRange
	}
	return e, nil
}

func setUUID(e Entity, id string) {
	switch x := e.(type) {
	case *Catalogue:
		x.ID = id
	case *Event:
		x.ID = id
	}
}

// WithUUID returns a copy of e carrying id.
func WithUUID(e Entity, id string) Entity {
	c := e.Clone()
	setUUID(c, id)
	return c
}

// WithRemoved returns a copy of e with its trash flag set.
func WithRemoved(e Entity, removed bool) Entity {
	c := e.Clone()
	switch x := c.(type) {
	case *Catalogue:
		x.IsRemoved = removed
	case *Event:
		x.IsRemoved = removed
	}
	return c
}

func checkType(name string, v Value, want ValueType) error {
	if v.Type() != want {
		return fmt.Errorf("%w: %s wants %v, got %v", ErrTypeMismatch, name, want, v.Type())
	}
	return nil
}

func setVariable(attrs *Attributes, name string, v Value) error {
	if !ValidAttributeName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !v.IsValid() {
		return fmt.Errorf("%w: %s has no value", ErrTypeMismatch, name)
	}
	attrs.Set(name, v.Clone())
	return nil
}

func deleteVariable(kind Kind, attrs *Attributes, name string) error {
	if IsFixed(kind, name) {
		return fmt.Errorf("%w: %s", ErrFixedAttribute, name)
	}
	if !attrs.Delete(name) {
		return fmt.Errorf("%w: %s", ErrNoSuchAttribute, name)
	}
	return nil
}
