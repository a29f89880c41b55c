package formula

// Access marks whether an exposed field is writable.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// Input describes one field a Callable exposes to the evaluator.
type Input struct {
	Name   string
	Access Access
}

// Callable is the capability contract every queryable game object implements.
// Unknown fields must resolve to Null, never an error.
type Callable interface {
	GetValue(key string) Value
	Inputs() []Input
}

// SlotCallable is implemented by callables with stable slot-indexed fields.
type SlotCallable interface {
	Callable
	GetSlot(slot int) Value
}

// MutableCallable is implemented by callables that accept writes. Writes
// happen only through Command execution, never during evaluation.
type MutableCallable interface {
	Callable
	SetValue(key string, v Value)
}

// MapCallable is a name→value context with an optional fallback consulted
// for unknown names. It backs resolution contexts and combinator scopes:
// the nearest scope shadows, the fallback chain supplies the rest.
type MapCallable struct {
	values   map[string]Value
	fallback Callable
}

// NewMapCallable creates an empty context with the given fallback (may be
// nil).
func NewMapCallable(fallback Callable) *MapCallable {
	return &MapCallable{values: make(map[string]Value), fallback: fallback}
}

// Add binds a name in this scope, shadowing the fallback.
func (m *MapCallable) Add(key string, v Value) *MapCallable {
	m.values[key] = v
	return m
}

func (m *MapCallable) GetValue(key string) Value {
	if v, ok := m.values[key]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback.GetValue(key)
	}
	return Null
}

func (m *MapCallable) SetValue(key string, v Value) {
	m.values[key] = v
}

func (m *MapCallable) Inputs() []Input {
	var inputs []Input
	for k := range m.values {
		inputs = append(inputs, Input{Name: k, Access: ReadWrite})
	}
	if m.fallback != nil {
		inputs = append(inputs, m.fallback.Inputs()...)
	}
	return inputs
}

// VarStore is slot-backed named storage. Units keep two of these (persistent
// vars and per-turn vars); they survive serialization round-trips.
type VarStore struct {
	slots map[string]int
	vals  []Value
}

// NewVarStore creates an empty store.
func NewVarStore() *VarStore {
	return &VarStore{slots: make(map[string]int)}
}

func (s *VarStore) GetValue(key string) Value {
	if i, ok := s.slots[key]; ok {
		return s.vals[i]
	}
	return Null
}

func (s *VarStore) GetSlot(slot int) Value {
	if slot < 0 || slot >= len(s.vals) {
		return Null
	}
	return s.vals[slot]
}

func (s *VarStore) SetValue(key string, v Value) {
	if i, ok := s.slots[key]; ok {
		s.vals[i] = v
		return
	}
	s.slots[key] = len(s.vals)
	s.vals = append(s.vals, v)
}

func (s *VarStore) Inputs() []Input {
	inputs := make([]Input, 0, len(s.slots))
	for k := range s.slots {
		inputs = append(inputs, Input{Name: k, Access: ReadWrite})
	}
	return inputs
}

// Each visits every binding. Iteration order is not stable; callers needing
// stable order sort the names themselves.
func (s *VarStore) Each(fn func(key string, v Value)) {
	for k, i := range s.slots {
		fn(k, s.vals[i])
	}
}

// Len reports the number of bindings.
func (s *VarStore) Len() int { return len(s.vals) }

// itemCallable exposes a list element during combinator iteration. Field
// lookups try the element itself first (when it is an object or map), then
// the conventional name, then the outer context.
type itemCallable struct {
	item  Value
	name  string
	outer Callable
}

func newItemCallable(item Value, name string, outer Callable) *itemCallable {
	return &itemCallable{item: item, name: name, outer: outer}
}

func (c *itemCallable) GetValue(key string) Value {
	if key == c.name {
		return c.item
	}
	switch c.item.Kind() {
	case KindObject, KindMap:
		if v := c.item.Lookup(key); !v.IsNull() {
			return v
		}
	}
	if c.outer != nil {
		return c.outer.GetValue(key)
	}
	return Null
}

func (c *itemCallable) Inputs() []Input {
	inputs := []Input{{Name: c.name}}
	if obj := c.item.AsCallable(); obj != nil {
		inputs = append(inputs, obj.Inputs()...)
	}
	if c.outer != nil {
		inputs = append(inputs, c.outer.Inputs()...)
	}
	return inputs
}
