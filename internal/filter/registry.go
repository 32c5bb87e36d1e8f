// Package filter maps normalized column types to validate/sanitize pairs.
// Tables run a column's filter before every write: values that fail
// Validate are replaced with Sanitize(value). Sanitize never fails.
package filter

import "sync"

// Filter checks and coerces values for one column type.
type Filter interface {
	// Validate reports whether v already belongs to the type's domain.
	// nil always validates so NULL reaches the backend untouched.
	Validate(v interface{}) bool

	// Sanitize coerces v into the domain, falling back to a safe default.
	Sanitize(v interface{}) interface{}
}

// Funcs adapts plain functions to a Filter. A nil ValidateFunc accepts
// everything; a nil SanitizeFunc returns the value unchanged.
type Funcs struct {
	ValidateFunc func(v interface{}) bool
	SanitizeFunc func(v interface{}) interface{}
}

func (f Funcs) Validate(v interface{}) bool {
	if f.ValidateFunc == nil {
		return true
	}
	return f.ValidateFunc(v)
}

func (f Funcs) Sanitize(v interface{}) interface{} {
	if f.SanitizeFunc == nil {
		return v
	}
	return f.SanitizeFunc(v)
}

// Passthrough is used for types without a registered filter.
var Passthrough Filter = Funcs{}

// Registry is a concurrency safe type -> filter table.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// NewRegistry returns a registry holding the built-in filters.
func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]Filter)}
	r.Register("int", Int{})
	r.Register("float", Float{})
	r.Register("string", String{})
	r.Register("time", Time{})
	r.Register("date", Date{})
	r.Register("bool", Bool{})
	return r
}

// Register binds f to typ, replacing any previous filter.
func (r *Registry) Register(typ string, f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[typ] = f
}

// Get returns the filter for typ, or Passthrough.
func (r *Registry) Get(typ string) Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.filters[typ]; ok {
		return f
	}
	return Passthrough
}

// Apply returns v if it validates for typ, otherwise its sanitized form.
func (r *Registry) Apply(typ string, v interface{}) interface{} {
	f := r.Get(typ)
	if f.Validate(v) {
		return v
	}
	return f.Sanitize(v)
}
