package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/leapstack-labs/ingestiond/internal/control"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// GenerateControlStage is stage 4: computes the SHA-256 checksum of the
// packed bytes and writes the CSV control record sidecar (§4.8 item 4,
// §3.2 invariant 3: checksum must be over exactly packedBytes).
type GenerateControlStage struct{}

func (s *GenerateControlStage) Name() string { return "GenerateControl" }

func (s *GenerateControlStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	start := time.Now()

	sum := sha256.Sum256(exec.PackedBytes)
	checksum := hex.EncodeToString(sum[:])

	datasetName := fmt.Sprintf("%s_%s", spec.ID, exec.StartTime.UTC().Format("20060102150405"))
	sourceType, _, _, _, _ := exec.ExtractionInput()

	record := model.ControlRecord{
		RecordCount: exec.ExtractedTable.RecordCount(),
		RefDate:     exec.StartTime.UTC().Format(time.RFC3339),
		Checksum:    checksum,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DatasetName: datasetName,
		Source:      sourceType,
	}

	bytes, err := control.Write(ctx, record)
	if err != nil {
		exec.AddError(s.Name(), "control record generation failed", err, model.SeverityCritical)
		return StageResult{Success: false, ShouldContinue: false}
	}

	exec.ControlBytes = bytes
	exec.ControlFileName = datasetName + ".ctl"

	return StageResult{
		Success:        true,
		Message:        "control record generated",
		ShouldContinue: true,
		Metrics: map[string]any{
			"checksum":   checksum,
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	}
}
