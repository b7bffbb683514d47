package pipeline

import (
	"context"
	"time"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/transform"
)

// TransformStage is stage 2: applies the dataset's registered
// transformation chain (C4) to the extracted table. An empty extracted
// table is a no-op continue, not a failure (§4.8 item 2).
type TransformStage struct {
	Engine *transform.Engine
}

func (s *TransformStage) Name() string { return "Transform" }

func (s *TransformStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	start := time.Now()

	if exec.ExtractedTable == nil || exec.ExtractedTable.RecordCount() == 0 {
		return StageResult{
			Success:        true,
			Message:        "extracted table is empty, skipping transformation",
			ShouldContinue: true,
			Metrics:        map[string]any{"row_count": 0, "elapsed_ms": time.Since(start).Milliseconds()},
		}
	}

	transformed, err := s.Engine.Run(ctx, exec.ExtractedTable, spec.Transformations)
	if err != nil {
		exec.AddError(s.Name(), "transformation failed", err, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	exec.ExtractedTable = transformed
	return StageResult{
		Success:        true,
		Message:        "transformation succeeded",
		ShouldContinue: true,
		Metrics: map[string]any{
			"row_count":  transformed.RecordCount(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	}
}
