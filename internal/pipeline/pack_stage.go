package pipeline

import (
	"context"
	"time"

	"github.com/leapstack-labs/ingestiond/internal/columnar"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// PackStage is stage 3: serializes the (possibly transformed) extracted
// table into the columnar artifact's bytes (§4.8 item 3). A nil table at
// this point is a Critical failure — Transform always leaves a table in
// place, even when it skipped as a no-op.
type PackStage struct{}

func (s *PackStage) Name() string { return "Pack" }

func (s *PackStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	start := time.Now()

	if exec.ExtractedTable == nil {
		exec.AddError(s.Name(), "no extracted table to pack", nil, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	packed, err := columnar.Write(ctx, exec.ExtractedTable, spec.Output)
	if err != nil {
		exec.AddError(s.Name(), "packing failed", err, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	exec.PackedBytes = packed
	return StageResult{
		Success:        true,
		Message:        "packing succeeded",
		ShouldContinue: true,
		Metrics: map[string]any{
			"bytes":      len(packed),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	}
}
