package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/upload"
)

// ProviderFactory builds the upload.Provider a dataset's DestinationSpec
// names. One provider instance is built per execution and used for both
// uploads (§3.2 invariant 6: "both share one provider instance for one
// execution").
type ProviderFactory interface {
	Create(dest model.DestinationSpec) (upload.Provider, error)
}

// PublishStage is stage 5: uploads the packed artifact, then the control
// record, through one provider instance; optionally mirrors both to a
// local copy path (§4.7, §4.8 item 5). A publish failure is recorded as
// Error severity, not Critical — it fails the execution but is
// distinguishable from a data-corruption failure upstream.
type PublishStage struct {
	Providers ProviderFactory
	Logger    *zap.Logger
}

func (s *PublishStage) Name() string { return "Publish" }

func (s *PublishStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	start := time.Now()
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := s.Providers.Create(spec.Destination)
	if err != nil {
		exec.AddError(s.Name(), "building upload provider failed", err, model.SeverityError)
		return StageResult{Success: false, ShouldContinue: false}
	}

	artifactResult, err := provider.Upload(ctx, spec.Destination.DestinationPath, exec.ArtifactFileName, exec.PackedBytes)
	if err != nil {
		exec.AddError(s.Name(), "publishing artifact failed", err, model.SeverityError)
		return StageResult{Success: false, ShouldContinue: false}
	}

	if _, err := provider.Upload(ctx, spec.Destination.DestinationPath, exec.ControlFileName, exec.ControlBytes); err != nil {
		exec.AddError(s.Name(), "publishing control record failed", err, model.SeverityError)
		return StageResult{Success: false, ShouldContinue: false}
	}

	exec.PublishedURI = artifactResult.Path

	if spec.KeepLocalCopy {
		if err := writeLocalCopy(spec.LocalCopyPath, exec.ArtifactFileName, exec.PackedBytes); err != nil {
			logger.Error("writing local copy of artifact failed", zap.String("execution_id", exec.ExecutionID), zap.Error(err))
		}
		if err := writeLocalCopy(spec.LocalCopyPath, exec.ControlFileName, exec.ControlBytes); err != nil {
			logger.Error("writing local copy of control record failed", zap.String("execution_id", exec.ExecutionID), zap.Error(err))
		}
	}

	return StageResult{
		Success:        true,
		Message:        "publish succeeded",
		ShouldContinue: true,
		Metrics: map[string]any{
			"published_uri": exec.PublishedURI,
			"bytes":         artifactResult.BytesWritten,
			"elapsed_ms":    time.Since(start).Milliseconds(),
		},
	}
}

// writeLocalCopy is a best-effort mirror of published bytes; its errors
// are logged, never propagated (§4.7: "does NOT fail the execution").
func writeLocalCopy(dir, fileName string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating local copy directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0o644)
}
