package entity

import "fmt"

// Catalogue is a named collection of events. A catalogue with a Predicate is
// dynamic: it also lists every event the predicate matches.
type Catalogue struct {
	ID         string
	Name       string
	Author     string
	Tags       []string
	Path       []string
	Predicate  *Predicate
	Attributes *Attributes
	IsRemoved  bool
}

func (c *Catalogue) UUID() string  { return c.ID }
func (c *Catalogue) Kind() Kind    { return KindCatalogue }
func (c *Catalogue) Removed() bool { return c.IsRemoved }

func (c *Catalogue) DisplayName() string { return c.Name }

func (c *Catalogue) Field(name string) (Value, bool) {
	switch name {
	case FieldUUID:
		return String(c.ID), true
	case FieldName:
		return String(c.Name), true
	case FieldAuthor:
		return String(c.Author), true
	case FieldTags:
		return Strings(c.Tags), true
	case FieldPath:
		return Strings(c.Path), true
	case FieldPredicate:
		if c.Predicate == nil {
			return Value{}, false
		}
		return PredicateValue(c.Predicate), true
	}
	return c.Attributes.Get(name)
}

func (c *Catalogue) SetField(name string, v Value) error {
	switch name {
	case FieldUUID:
		return fmt.Errorf("%w: %s", ErrImmutable, name)
	case FieldName:
		if err := checkType(name, v, TypeString); err != nil {
			return err
		}
		c.Name = v.AsString()
	case FieldAuthor:
		if err := checkType(name, v, TypeString); err != nil {
			return err
		}
		c.Author = v.AsString()
	case FieldTags:
		if err := checkType(name, v, TypeStrings); err != nil {
			return err
		}
		c.Tags = v.AsStrings()
	case FieldPath:
		if err := checkType(name, v, TypeStrings); err != nil {
			return err
		}
		c.Path = v.AsStrings()
	case FieldPredicate:
		if err := checkType(name, v, TypePredicate); err != nil {
			return err
		}
		if err := v.AsPredicate().Validate(); err != nil {
			return err
		}
		c.Predicate = v.AsPredicate().Clone()
	default:
		if c.Attributes == nil {
			c.Attributes = NewAttributes()
		}
		return setVariable(c.Attributes, name, v)
	}
	return nil
}

// DeleteField removes a variable attribute. The predicate is the one fixed
// field that can be removed, which makes the catalogue static again.
func (c *Catalogue) DeleteField(name string) error {
	if name == FieldPredicate {
		if c.Predicate == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchAttribute, name)
		}
		c.Predicate = nil
		return nil
	}
	return deleteVariable(KindCatalogue, c.Attributes, name)
}

func (c *Catalogue) Fields() *Attributes {
	out := NewAttributes()
	for _, name := range FixedFields(KindCatalogue) {
		if v, ok := c.Field(name); ok {
			out.Set(name, v)
		}
	}
	c.Attributes.Range(func(name string, v Value) bool {
		out.Set(name, v.Clone())
		return true
	})
	return out
}

func (c *Catalogue) Variable() *Attributes { return c.Attributes.Clone() }

// Dynamic reports whether the catalogue carries a predicate.
func (c *Catalogue) Dynamic() bool { return c.Predicate != nil }

func (c *Catalogue) Clone() Entity {
	cp := *c
	cp.Tags = cloneStrings(c.Tags)
	cp.Path = cloneStrings(c.Path)
	cp.Predicate = c.Predicate.Clone()
	cp.Attributes = c.Attributes.Clone()
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
