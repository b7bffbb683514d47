package transform

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// orderedSpec pairs a TransformationSpec with its original index in the
// dataset's Transformations slice, so a stable sort can break order ties
// by declaration position (§4.4: "ties broken by declaration order").
type orderedSpec struct {
	spec  model.TransformationSpec
	index int
}

// Engine applies a dataset's transformation chain to an extracted table.
type Engine struct {
	registry *Registry
	env      string
	logger   *zap.Logger
}

// NewEngine builds an Engine bound to registry and the current deployment
// environment tag (compared against each step's Environments allow-list).
func NewEngine(registry *Registry, env string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: registry, env: env, logger: logger}
}

// Run applies specs, in ascending Order (ties by declaration order), to
// table. Disabled steps and steps whose Environments list doesn't include
// the engine's env are skipped. Each step receives a deep copy of its
// input so a failing or buggy step can never corrupt the caller's table.
// Cancellation is checked between steps, not mid-step.
func (e *Engine) Run(ctx context.Context, table *model.TabularData, specs []model.TransformationSpec) (*model.TabularData, error) {
	ordered := make([]orderedSpec, 0, len(specs))
	for i, s := range specs {
		ordered = append(ordered, orderedSpec{spec: s, index: i})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].spec.Order != ordered[j].spec.Order {
			return ordered[i].spec.Order < ordered[j].spec.Order
		}
		return ordered[i].index < ordered[j].index
	})

	current := table
	for _, os := range ordered {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", model.ErrCancelled, ctx.Err())
		default:
		}

		spec := os.spec
		if !spec.Enabled {
			e.logger.Info("transformation step disabled, skipping", zap.String("type", spec.Type))
			continue
		}
		if !e.environmentMatches(spec.Environments) {
			e.logger.Info("transformation step not gated for this environment, skipping",
				zap.String("type", spec.Type), zap.Strings("environments", spec.Environments), zap.String("env", e.env))
			continue
		}

		factory, err := e.registry.Lookup(spec.Type)
		if err != nil {
			return nil, err
		}
		step := factory()

		input := current.Clone()
		output, err := step.Apply(input, spec.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: step %q: %v", model.ErrTransform, spec.Type, err)
		}
		current = output
	}
	return current, nil
}

func (e *Engine) environmentMatches(environments []string) bool {
	if len(environments) == 0 {
		return true
	}
	for _, env := range environments {
		if env == e.env {
			return true
		}
	}
	return false
}
