package host

import (
	"errors"
	"fmt"
	"sync"
)

var ErrAlreadyRegistered = errors.New("host: already registered")

// MemoryRegistry is an in-process Registry for embedding hosts and tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	schemas   map[string]ConfigSchema
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		providers: make(map[string]Provider),
		schemas:   make(map[string]ConfigSchema),
	}
}

func (r *MemoryRegistry) RegisterProvider(id string, p Provider) (Unregister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; ok {
		return nil, fmt.Errorf("%w: provider %q", ErrAlreadyRegistered, id)
	}
	r.providers[id] = p
	return func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.providers, id)
		return nil
	}, nil
}

func (r *MemoryRegistry) RegisterConfigSchema(id string, schema ConfigSchema) (Unregister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[id]; ok {
		return nil, fmt.Errorf("%w: config schema %q", ErrAlreadyRegistered, id)
	}
	r.schemas[id] = schema
	return func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.schemas, id)
		return nil
	}, nil
}

func (r *MemoryRegistry) Provider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

func (r *MemoryRegistry) ConfigSchema(id string) (ConfigSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	return s, ok
}
