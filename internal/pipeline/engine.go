package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Engine runs the fixed five-stage chain over one JobExecution.
type Engine struct {
	stages []Stage
	logger *zap.Logger
}

// stageStates gives the ExecutionState the engine sets before running each
// named stage, so exec.State always reflects the stage currently (or most
// recently) in flight.
var stageStates = map[string]model.ExecutionState{
	"Extract":           model.StateExtracting,
	"Transform":         model.StateTransforming,
	"Pack":              model.StatePacking,
	"GenerateControl":   model.StateGeneratingControl,
	"Publish":           model.StatePublishing,
}

// NewEngine builds the stage chain in the order Extract, Transform, Pack,
// GenerateControl, Publish (§4.8). Tests inside this package that need a
// different set of stages build an Engine literal with their own stages.
func NewEngine(extract, transform, pack, generateControl, publish Stage, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		stages: []Stage{extract, transform, pack, generateControl, publish},
		logger: logger,
	}
}

// Run executes every stage in order against exec and spec. It returns the
// execution's terminal ExecutionState; the caller is responsible for
// persisting it (see internal/execstore).
func (e *Engine) Run(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) model.ExecutionState {
	for _, stage := range e.stages {
		if exec.HasCritical() {
			exec.State = model.StateAborted
			e.logger.Warn("aborting execution: prior stage recorded a critical error",
				zap.String("execution_id", exec.ExecutionID), zap.String("stage", stage.Name()))
			return exec.State
		}

		if state, ok := stageStates[stage.Name()]; ok {
			exec.State = state
		}
		result := e.runStageSafely(ctx, stage, exec, spec)

		e.logger.Info("stage completed",
			zap.String("execution_id", exec.ExecutionID),
			zap.String("stage", stage.Name()),
			zap.Bool("success", result.Success),
			zap.String("message", result.Message),
			zap.Any("metrics", result.Metrics))

		if !result.ShouldContinue {
			if exec.HasCritical() {
				exec.State = model.StateAborted
			} else {
				exec.State = model.StateFailed
			}
			return exec.State
		}
	}
	exec.State = model.StateSucceeded
	return exec.State
}

// runStageSafely wraps Execute in a panic boundary: an uncaught panic is
// recorded as a Critical PipelineError naming the stage, per §4.8's
// "wrap Execute in a panic/exception boundary" rule, and the chain stops
// exactly as it would for any other Critical failure.
func (e *Engine) runStageSafely(ctx context.Context, stage Stage, exec *model.JobExecution, spec model.DatasetSpec) (result StageResult) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic in stage %s: %v", stage.Name(), r)
			exec.AddError(stage.Name(), fmt.Sprintf("unrecoverable failure: %v", r), err, model.SeverityCritical)
			result = StageResult{Success: false, ShouldContinue: false}
		}
	}()
	return stage.Execute(ctx, exec, spec)
}
