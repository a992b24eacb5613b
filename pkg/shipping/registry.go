package shipping

import (
	"sort"
	"sync"
)

// Registry maps carrier codes to their registered binding.
type Registry struct {
	bindings map[Code]Binding
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[Code]Binding),
	}
}

// Register adds or replaces the binding for a carrier code. A binding may be
// registered without builders; Lookup reports that case as ErrMissingBuilders.
func (r *Registry) Register(code Code, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[code] = b
}

// Lookup returns the binding for code. It fails with ErrUnsupportedCarrier when
// no provider is registered and ErrMissingBuilders when the provider has no
// builders or normalizer.
func (r *Registry) Lookup(code Code) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[code]
	if !ok || b.Provider == nil {
		return Binding{}, ErrUnsupportedCarrier
	}
	if b.Builders == nil || b.Normalizer == nil {
		return Binding{}, ErrMissingBuilders
	}
	return b, nil
}

// Codes returns the registered carrier codes in sorted order.
func (r *Registry) Codes() []Code {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]Code, 0, len(r.bindings))
	for code := range r.bindings {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
