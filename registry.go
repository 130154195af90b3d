package ustore

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/ustore/data"
)

// registry is the process-wide named operator store callers may opt
// into. Its lifecycle is explicit: Register/SetDefault on startup,
// Teardown on shutdown. Nothing registers implicitly.
var registry = struct {
	mu        sync.RWMutex
	operators map[string]*Operator
	fallback  string
}{
	operators: make(map[string]*Operator),
}

// Register stores an operator under a name.
// The first registered operator becomes the default.
func Register(name string, op *Operator) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.operators[name]; exists {
		return data.NewError(data.KindAlreadyExists, "", "").
			WithCause(fmt.Errorf("operator '%s' already registered", name))
	}

	registry.operators[name] = op
	if registry.fallback == "" {
		registry.fallback = name
	}

	return nil
}

// Lookup returns the operator registered under name.
func Lookup(name string) (*Operator, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	op, exists := registry.operators[name]
	return op, exists
}

// SetDefault marks a registered operator as the default.
func SetDefault(name string) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.operators[name]; !exists {
		return data.NewError(data.KindNotFound, "", "").
			WithCause(fmt.Errorf("operator '%s' not registered", name))
	}

	registry.fallback = name
	return nil
}

// Default returns the default operator, if one is registered.
func Default() (*Operator, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	op, exists := registry.operators[registry.fallback]
	return op, exists
}

// Teardown closes every registered operator and clears the registry.
func Teardown(ctx context.Context) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	errs := data.Errors{}
	for _, op := range registry.operators {
		errs.Add(op.Close(ctx))
	}

	registry.operators = make(map[string]*Operator)
	registry.fallback = ""

	return errs.Errors()
}
