// Package transform implements the C4 transformation registry and engine:
// a name-keyed set of step factories applied in order to an extracted
// TabularData table (§4.4).
package transform

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Step is one registered transformation's executable form. Apply receives
// its own deep copy of the table (the engine clones once per step) and the
// step's resolved config.
type Step interface {
	Apply(table *model.TabularData, config map[string]any) (*model.TabularData, error)
}

// Factory builds a Step. The engine calls the factory once per step
// application, so every application gets a fresh Step instance.
type Factory func() Step

// Registry is the name -> Factory lookup the engine consults when applying
// a dataset's TransformationSpec list. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	steps  map[string]Factory
	order  []string
	frozen bool
	logger *zap.Logger
}

// NewRegistry builds a Registry seeded with the built-in steps, in
// registration order: DataCleansing, DataValidation, then
// PassthroughColumnRename.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		steps:  make(map[string]Factory),
		logger: logger,
	}
	r.Register("DataCleansing", func() Step { return &dataCleansingStep{} })
	r.Register("DataValidation", func() Step { return &dataValidationStep{} })
	r.Register("PassthroughColumnRename", func() Step { return &columnRenameStep{} })
	return r
}

// Register adds a named step factory. First registration of a name wins;
// registering any name after Freeze, or a duplicate name at any point, is
// a no-op logged at WARN (third-party steps are expected to
// register during startup wiring, before Freeze).
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[name]; exists {
		r.logger.Warn("transform step already registered, ignoring duplicate", zap.String("name", name))
		return
	}
	if r.frozen {
		r.logger.Warn("registry frozen, ignoring late registration", zap.String("name", name))
		return
	}
	r.steps[name] = factory
	r.order = append(r.order, name)
}

// Freeze closes the registry to further registrations. Calling it more
// than once is harmless.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup resolves a registered factory by name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transformation type %q", model.ErrTransform, name)
	}
	return factory, nil
}

// Names returns registered step names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
