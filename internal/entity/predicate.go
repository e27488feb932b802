package entity

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var ErrInvalidPredicate = errors.New("invalid predicate")

type PredicateKind string

const (
	PredComparison  PredicateKind = "comparison"
	PredMatch       PredicateKind = "match"
	PredHas         PredicateKind = "has"
	PredIn          PredicateKind = "in"
	PredInCatalogue PredicateKind = "in_catalogue"
	PredAll         PredicateKind = "all"
	PredAny         PredicateKind = "any"
	PredNot         PredicateKind = "not"
)

var comparisonOps = []string{"<", "<=", "==", ">", ">=", "!="}

// Operand names the event attribute a predicate reads. Attribute selects the
// variable attributes, otherwise a fixed field is read.
type Operand struct {
	Name      string `json:"name"`
	Attribute bool   `json:"attribute,omitempty"`
}

func FieldRef(name string) Operand     { return Operand{Name: name} }
func AttributeRef(name string) Operand { return Operand{Name: name, Attribute: true} }

func (o Operand) String() string {
	if o.Attribute {
		return "attributes." + o.Name
	}
	return o.Name
}

func (o Operand) read(e *Event) (Value, bool) {
	if o.Attribute {
		return e.Attributes.Get(o.Name)
	}
	if o.Name == FieldUUID {
		return String(e.ID), true
	}
	return e.Field(o.Name)
}

// Predicate is a filter over events, serializable as JSON.
type Predicate struct {
	Kind      PredicateKind `json:"kind"`
	Op        string        `json:"op,omitempty"`
	Operand   *Operand      `json:"operand,omitempty"`
	Value     *Value        `json:"value,omitempty"`
	Pattern   string        `json:"pattern,omitempty"`
	Catalogue string        `json:"catalogue,omitempty"`
	Children  []*Predicate  `json:"children,omitempty"`
}

func Comparison(op string, o Operand, v Value) *Predicate {
	return &Predicate{Kind: PredComparison, Op: op, Operand: &o, Value: &v}
}

// Match tests a string operand against a regular expression. Negate selects !~.
func Match(o Operand, pattern string, negate bool) *Predicate {
	op := "=~"
	if negate {
		op = "!~"
	}
	return &Predicate{Kind: PredMatch, Op: op, Operand: &o, Pattern: pattern}
}

func Has(attribute string) *Predicate {
	o := AttributeRef(attribute)
	return &Predicate{Kind: PredHas, Operand: &o}
}

// In tests whether s is an element of a string-list operand.
func In(s string, o Operand) *Predicate {
	v := String(s)
	return &Predicate{Kind: PredIn, Operand: &o, Value: &v}
}

func InCatalogue(uuid string) *Predicate {
	return &Predicate{Kind: PredInCatalogue, Catalogue: uuid}
}

func All(children ...*Predicate) *Predicate { return &Predicate{Kind: PredAll, Children: children} }
func Any(children ...*Predicate) *Predicate { return &Predicate{Kind: PredAny, Children: children} }
func Not(p *Predicate) *Predicate           { return &Predicate{Kind: PredNot, Children: []*Predicate{p}} }

// Validate checks structure and compiles regular expressions.
func (p *Predicate) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil", ErrInvalidPredicate)
	}
	switch p.Kind {
	case PredComparison:
		if p.Operand == nil || p.Value == nil || !slices.Contains(comparisonOps, p.Op) {
			return fmt.Errorf("%w: comparison %q", ErrInvalidPredicate, p.Op)
		}
	case PredMatch:
		if p.Operand == nil || (p.Op != "=~" && p.Op != "!~") {
			return fmt.Errorf("%w: match %q", ErrInvalidPredicate, p.Op)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPredicate, err)
		}
	case PredHas:
		if p.Operand == nil {
			return fmt.Errorf("%w: has without attribute", ErrInvalidPredicate)
		}
	case PredIn:
		if p.Operand == nil || p.Value == nil || p.Value.Type() != TypeString {
			return fmt.Errorf("%w: in", ErrInvalidPredicate)
		}
	case PredInCatalogue:
		if p.Catalogue == "" {
			return fmt.Errorf("%w: in_catalogue without uuid", ErrInvalidPredicate)
		}
	case PredAll, PredAny:
		for _, c := range p.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	case PredNot:
		if len(p.Children) != 1 {
			return fmt.Errorf("%w: not takes one operand", ErrInvalidPredicate)
		}
		return p.Children[0].Validate()
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidPredicate, p.Kind)
	}
	return nil
}

// Membership reports whether an event is assigned to a catalogue.
type Membership func(catalogue, event string) bool

// Eval evaluates p against e. Operands of a mismatched type never match.
func (p *Predicate) Eval(e *Event, member Membership) bool {
	switch p.Kind {
	case PredComparison:
		v, ok := p.Operand.read(e)
		if !ok {
			return false
		}
		c, ok := compare(v, *p.Value)
		if !ok {
			return false
		}
		switch p.Op {
		case "<":
			return c < 0
		case "<=":
			return c <= 0
		case "==":
			return c == 0
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "!=":
			return c != 0
		}
	case PredMatch:
		v, ok := p.Operand.read(e)
		if !ok || v.Type() != TypeString {
			return false
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(v.AsString()) == (p.Op == "=~")
	case PredHas:
		return e.Attributes.Has(p.Operand.Name)
	case PredIn:
		v, ok := p.Operand.read(e)
		if !ok || v.Type() != TypeStrings {
			return false
		}
		return slices.Contains(v.AsStrings(), p.Value.AsString())
	case PredInCatalogue:
		return member != nil && member(p.Catalogue, e.ID)
	case PredAll:
		for _, c := range p.Children {
			if !c.Eval(e, member) {
				return false
			}
		}
		return true
	case PredAny:
		for _, c := range p.Children {
			if c.Eval(e, member) {
				return true
			}
		}
		return false
	case PredNot:
		return !p.Children[0].Eval(e, member)
	}
	return false
}

// compare orders two values of compatible type. Booleans only support equality.
func compare(a, b Value) (int, bool) {
	switch {
	case isNumber(a) && isNumber(b):
		x, y := number(a), number(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case a.Type() != b.Type():
		return 0, false
	}
	switch a.Type() {
	case TypeString:
		return strings.Compare(a.AsString(), b.AsString()), true
	case TypeTime:
		return a.AsTime().Compare(b.AsTime()), true
	case TypeBool:
		if a.AsBool() == b.AsBool() {
			return 0, true
		}
		return 1, true
	case TypeStrings:
		return slices.Compare(a.AsStrings(), b.AsStrings()), true
	}
	return 0, false
}

func isNumber(v Value) bool { return v.Type() == TypeInt || v.Type() == TypeFloat }

func number(v Value) float64 {
	if v.Type() == TypeInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Clone deep-copies the predicate tree. Clone of nil is nil.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return nil
	}
	c := *p
	if p.Operand != nil {
		o := *p.Operand
		c.Operand = &o
	}
	if p.Value != nil {
		v := p.Value.Clone()
		c.Value = &v
	}
	if p.Children != nil {
		c.Children = make([]*Predicate, len(p.Children))
		for i, ch := range p.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return &c
}

func (p *Predicate) Equal(o *Predicate) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.String() == o.String()
}

func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	if p.Validate() != nil {
		return fmt.Sprintf("invalid(%s)", p.Kind)
	}
	switch p.Kind {
	case PredComparison:
		return fmt.Sprintf("%s %s %s", p.Operand, p.Op, quote(*p.Value))
	case PredMatch:
		return fmt.Sprintf("%s %s %s", p.Operand, p.Op, strconv.Quote(p.Pattern))
	case PredHas:
		return fmt.Sprintf("has(%s)", p.Operand.Name)
	case PredIn:
		return fmt.Sprintf("%s in %s", strconv.Quote(p.Value.AsString()), p.Operand)
	case PredInCatalogue:
		return fmt.Sprintf("in_catalogue(%s)", p.Catalogue)
	case PredAll, PredAny:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", p.Kind, strings.Join(parts, ", "))
	case PredNot:
		return fmt.Sprintf("not(%s)", p.Children[0])
	}
	return string(p.Kind)
}

func quote(v Value) string {
	switch v.Type() {
	case TypeString, TypeTime:
		return strconv.Quote(v.String())
	case TypeStrings:
		return fmt.Sprintf("%q", v.AsStrings())
	}
	return v.String()
}
