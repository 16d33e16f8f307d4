package evaluator

import "sync"

// Binding is one name slot: the value plus whether reassignment is allowed.
type Binding struct {
	Value   Object
	Mutable bool
}

// Environment is a chained lexical scope. Closures hold Environments by
// reference, so writes through one closure are visible through any other
// closure sharing the scope.
type Environment struct {
	mu    sync.RWMutex
	store map[string]*Binding
	outer *Environment
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*Binding)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Define installs a binding in this scope, shadowing any outer binding of
// the same name.
func (e *Environment) Define(name string, val Object, mutable bool) {
	e.mu.Lock()
	e.store[name] = &Binding{Value: val, Mutable: mutable}
	e.mu.Unlock()
}

// Get walks the chain outward.
func (e *Environment) Get(name string) (Object, bool) {
	e.mu.RLock()
	b, ok := e.store[name]
	e.mu.RUnlock()
	if ok {
		return b.Value, true
	}
	if e.outer != nil {
		return e.outer.Get(name)
	}
	return nil, false
}

// AssignResult reports what happened on an assignment attempt.
type AssignResult int

const (
	AssignOK AssignResult = iota
	AssignUndefined
	AssignImmutable
)

// Assign finds the owning scope and updates the binding there. It never
// creates a binding.
func (e *Environment) Assign(name string, val Object) AssignResult {
	e.mu.Lock()
	b, ok := e.store[name]
	if ok {
		if !b.Mutable {
			e.mu.Unlock()
			return AssignImmutable
		}
		b.Value = val
		e.mu.Unlock()
		return AssignOK
	}
	e.mu.Unlock()
	if e.outer != nil {
		return e.outer.Assign(name, val)
	}
	return AssignUndefined
}

// IsMutable reports the mutability of the nearest binding of name.
func (e *Environment) IsMutable(name string) (bool, bool) {
	e.mu.RLock()
	b, ok := e.store[name]
	e.mu.RUnlock()
	if ok {
		return b.Mutable, true
	}
	if e.outer != nil {
		return e.outer.IsMutable(name)
	}
	return false, false
}

// Names returns the names bound directly in this scope.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	return names
}
