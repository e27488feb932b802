package entity

import (
	"encoding/json"
	"fmt"
)

// Attributes is an insertion-ordered map from attribute name to Value.
// A nil *Attributes reads as empty.
type Attributes struct {
	keys   []string
	values map[string]Value
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]Value)}
}

// AttributesOf builds Attributes from alternating name/value pairs.
func AttributesOf(pairs ...any) (*Attributes, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("attributes: odd number of arguments")
	}
	a := NewAttributes()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("attributes: name at %d is %T", i, pairs[i])
		}
		v, err := ValueOf(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("attributes: %s: %w", name, err)
		}
		a.Set(name, v)
	}
	return a, nil
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

func (a *Attributes) Get(name string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.values[name]
	return v, ok
}

func (a *Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the value in place or appends a new key.
func (a *Attributes) Set(name string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.values[name] = v
}

// Delete removes name and reports whether it was present.
func (a *Attributes) Delete(name string) bool {
	if a == nil {
		return false
	}
	if _, ok := a.values[name]; !ok {
		return false
	}
	delete(a.values, name)
	for i, k := range a.keys {
		if k == name {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the names in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Range calls fn in insertion order until fn returns false.
func (a *Attributes) Range(fn func(name string, v Value) bool) {
	if a == nil {
		return
	}
	for _, k := range a.keys {
		if !fn(k, a.values[k]) {
			return
		}
	}
}

func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	a.Range(func(name string, v Value) bool {
		c.Set(name, v.Clone())
		return true
	})
	return c
}

// Equal compares names and values. Order is ignored.
func (a *Attributes) Equal(o *Attributes) bool {
	if a.Len() != o.Len() {
		return false
	}
	equal := true
	a.Range(func(name string, v Value) bool {
		ov, ok := o.Get(name)
		if !ok || !v.Equal(ov) {
			equal = false
		}
		return equal
	})
	return equal
}

type namedValue struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

func (a *Attributes) MarshalJSON() ([]byte, error) {
	list := make([]namedValue, 0, a.Len())
	a.Range(func(name string, v Value) bool {
		list = append(list, namedValue{Name: name, Value: v})
		return true
	})
	return json.Marshal(list)
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var list []namedValue
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*a = Attributes{values: make(map[string]Value, len(list))}
	for _, nv := range list {
		a.Set(nv.Name, nv.Value)
	}
	return nil
}
