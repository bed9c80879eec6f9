package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrOwnerKindNotRegistered = errors.New("owner kind not registered")

// Tokenable is implemented by any entity that can own temporary tokens.
type Tokenable interface {
	TokenableType() string
	TokenableID() string
}

// Owner is a plain (kind, id) reference for callers that do not hold the
// owning entity itself.
type Owner struct {
	Type string
	ID   string
}

func (o Owner) TokenableType() string {
	return o.Type
}

func (o Owner) TokenableID() string {
	return o.ID
}

// ResolverFunc loads an owning entity by its identifier.
type ResolverFunc func(ctx context.Context, id string) (any, error)

// Registry maps owner kinds to lookup functions, replacing reflection-based
// resolution of the tokenable reference. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]ResolverFunc
}

func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]ResolverFunc),
	}
}

func (r *Registry) Register(kind string, resolver ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[kind] = resolver
}

// Resolve loads the owning entity behind the given reference.
func (r *Registry) Resolve(ctx context.Context, owner Tokenable) (any, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[owner.TokenableType()]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOwnerKindNotRegistered, owner.TokenableType())
	}

	return resolver(ctx, owner.TokenableID())
}
