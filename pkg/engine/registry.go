package engine

import (
	"slices"
	"sync"
)

// CheckFactory builds a [FileCheck] from its configuration module.
type CheckFactory func(cfg Config) (FileCheck, error)

// Registry maps module names to check factories.
type Registry struct {
	factories map[string]CheckFactory
	mu        sync.RWMutex
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]CheckFactory),
	}
}

// DefaultRegistry returns a new [Registry] populated with the built-in
// checks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CheckLineLength, newLineLengthCheck)
	r.Register(CheckTrailingWhitespace, newTrailingWhitespaceCheck)
	r.Register(CheckTabCharacter, newTabCharacterCheck)
	r.Register(CheckRegexpSingleline, newRegexpSinglelineCheck)
	r.Register(CheckNewlineAtEndOfFile, newNewlineAtEndOfFileCheck)
	r.Register(CheckFileLength, newFileLengthCheck)
	r.Register(CheckExpression, newExpressionCheck)

	return r
}

// Register adds a factory under the given module name, replacing any
// previous registration.
func (r *Registry) Register(name string, f CheckFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (CheckFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]

	return f, ok
}

// Names returns all registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
