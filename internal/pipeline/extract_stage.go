package pipeline

import (
	"context"
	"time"

	"github.com/leapstack-labs/ingestiond/internal/datasource"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// ExtractStage is stage 1: reads SourceType/ConnectionString/Query/
// Parameters from the execution's metadata, calls the matching C3 driver,
// and stores the result on ExtractedTable (§4.8 item 1).
type ExtractStage struct {
	Factory datasource.Factory
}

func (s *ExtractStage) Name() string { return "Extract" }

func (s *ExtractStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	start := time.Now()
	sourceType, connString, query, params, timeoutSec := exec.ExtractionInput()

	driver, err := s.Factory.Create(model.SourceKind(sourceType))
	if err != nil {
		exec.AddError(s.Name(), "unknown source kind", err, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	table, err := driver.Extract(ctx, connString, query, params, timeoutSec)
	if err != nil {
		exec.AddError(s.Name(), "extraction failed", err, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	exec.ExtractedTable = table
	return StageResult{
		Success:        true,
		Message:        "extraction succeeded",
		ShouldContinue: true,
		Metrics: map[string]any{
			"row_count":  table.RecordCount(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	}
}
