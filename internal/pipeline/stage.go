// Package pipeline implements the C8 pipeline engine: the five-stage
// chain Extract → Transform → Pack → GenerateControl → Publish that turns
// one JobExecution's inputs into a published artifact (§4.8).
package pipeline

import (
	"context"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// StageResult is what a Stage reports back to the engine after Execute.
type StageResult struct {
	Success        bool
	Message        string
	ShouldContinue bool
	Metrics        map[string]any
}

// Stage is one link of the chain. Execute mutates exec in place (storing
// its output on the execution) and reports what happened.
type Stage interface {
	Name() string
	Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult
}
