package thumb

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps mimetypes and "<type>/*" families to supplier factories.
// It is filled during startup and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register associates pattern, an exact mimetype or a "<type>/*" family,
// with factory. A later registration for the same pattern replaces the earlier one.
func (r *Registry) Register(pattern string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[pattern] = factory
}

// Resolve finds the factory for mimetype. An exact registration wins over the family one.
func (r *Registry) Resolve(mimetype string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.factories[mimetype]; ok {
		return f, nil
	}
	if f, ok := r.factories[Wildcard(mimetype)]; ok {
		return f, nil
	}
	return nil, &UnknownFiletypeError{Mimetype: mimetype, Message: "filetype has no associated thumbnail supplier"}
}

// Patterns returns registered patterns in sorted order.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pp := make([]string, 0, len(r.factories))
	for p := range r.factories {
		pp = append(pp, p)
	}
	sort.Strings(pp)
	return pp
}

// Wildcard replaces the subtype of mimetype with "*": application/json -> application/*.
// Values without a type and a subtype are returned unchanged.
func Wildcard(mimetype string) string {
	i := strings.LastIndex(mimetype, "/")
	if i <= 0 || i == len(mimetype)-1 {
		return mimetype
	}
	return mimetype[:i+1] + "*"
}
