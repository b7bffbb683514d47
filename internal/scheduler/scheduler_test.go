package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/connstring"
	"github.com/leapstack-labs/ingestiond/internal/dataset"
	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/pipeline"
)

type fakeVaultClient struct{}

func (fakeVaultClient) GetSecret(ctx context.Context, path string) (string, error) { return "secretvalue", nil }
func (fakeVaultClient) ProviderName() string                                      { return "fake" }

type countingStage struct {
	name    string
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *countingStage) Name() string { return s.name }

func (s *countingStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) pipeline.StageResult {
	s.calls.Add(1)
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return pipeline.StageResult{Success: true, ShouldContinue: true}
}

type noopStage struct{ name string }

func (s *noopStage) Name() string { return s.name }
func (s *noopStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) pipeline.StageResult {
	return pipeline.StageResult{Success: true, ShouldContinue: true}
}

const testDatasetJSON = `{
	"id": "ds1",
	"enabled": true,
	"cron": "0 0 2 * * ?",
	"source": {"kind": "rela", "connectionKey": "tr", "extractionKind": "procedure", "procedure": "dbo.sp_Get"},
	"output": {"fileNamePattern": "ds1_{date:yyyyMMdd}.parquet"},
	"destination": {"provider": "fs", "basePath": "/tmp"}
}`

func newTestScheduler(t *testing.T, extract *countingStage) (*Scheduler, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataset-ds1.json"), []byte(testDatasetJSON), 0o644))

	loader := dataset.New(dir, nil, nil)
	resolver := connstring.New(fakeVaultClient{})
	engine := pipeline.NewEngine(extract, &noopStage{name: "Transform"}, &noopStage{name: "Pack"}, &noopStage{name: "GenerateControl"}, &noopStage{name: "Publish"}, nil)

	s := New(Deps{
		Loader:   loader,
		Resolver: resolver,
		ConnTemplate: func(key string) (string, bool) {
			return "Server=db1;Password={vault:secret/tr}", true
		},
		Engine: engine,
	})
	return s, dir
}

func TestFire_SecondOverlappingFireIsSkipped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	extract := &countingStage{name: "Extract", started: started, release: release}
	s, _ := newTestScheduler(t, extract)
	require.NoError(t, s.reload())

	go s.fire("ds1")
	<-started

	s.fire("ds1") // second fire while the first is blocked in Extract

	close(release)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), extract.calls.Load())
}

func TestFire_SequentialFiresBothRun(t *testing.T) {
	extract := &countingStage{name: "Extract"}
	s, _ := newTestScheduler(t, extract)
	require.NoError(t, s.reload())

	s.fire("ds1")
	s.fire("ds1")

	assert.Equal(t, int32(2), extract.calls.Load())
}

func TestQueryText_ProcedureKind(t *testing.T) {
	q, err := queryText(model.SourceSpec{ExtractionKind: model.ExtractionProcedure, Procedure: "dbo.sp_Get"})
	require.NoError(t, err)
	assert.Equal(t, "dbo.sp_Get", q)
}

func TestQueryText_QueryKindReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT * FROM trades"), 0o644))

	q, err := queryText(model.SourceSpec{ExtractionKind: model.ExtractionQuery, SqlFile: path})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM trades", q)
}

func TestReload_UnschedulesRemovedDataset(t *testing.T) {
	extract := &countingStage{name: "Extract"}
	s, dir := newTestScheduler(t, extract)
	require.NoError(t, s.reload())
	assert.Len(t, s.entries, 1)

	require.NoError(t, os.Remove(filepath.Join(dir, "dataset-ds1.json")))
	require.NoError(t, s.reload())
	assert.Len(t, s.entries, 0)
}

func TestReload_DisabledDatasetRegistersNoEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataset-ds1.json"), []byte(`{
		"id": "ds1", "enabled": false, "cron": "0 0 2 * * ?",
		"source": {"kind": "rela"}, "output": {"fileNamePattern": "x"},
		"destination": {"provider": "fs"}
	}`), 0o644))

	loader := dataset.New(dir, nil, nil)
	s := New(Deps{Loader: loader, Resolver: connstring.New(fakeVaultClient{}), ConnTemplate: func(string) (string, bool) { return "", false }})
	require.NoError(t, s.reload())
	assert.Len(t, s.entries, 0)
}
