package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/datasource"
	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/transform"
	"github.com/leapstack-labs/ingestiond/internal/upload"
)

type fakeDriver struct {
	table *model.TabularData
	err   error
}

func (d *fakeDriver) Extract(ctx context.Context, connectionString, query string, parameters model.ParameterList, commandTimeoutSec int) (*model.TabularData, error) {
	return d.table, d.err
}

type fakeFactory struct {
	driver datasource.Driver
	err    error
}

func (f *fakeFactory) Create(kind model.SourceKind) (datasource.Driver, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.driver, nil
}

func TestExtractStage_Success(t *testing.T) {
	table := &model.TabularData{Columns: []model.ColumnSchema{{Name: "a", Type: model.TypeString}}, Rows: [][]any{{"x"}}}
	stage := &ExtractStage{Factory: &fakeFactory{driver: &fakeDriver{table: table}}}
	exec := newExec()
	exec.SetExtractionInput("rela", "conn", "dbo.sp", nil, 0)

	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	assert.True(t, result.Success)
	assert.Equal(t, table, exec.ExtractedTable)
}

func TestExtractStage_UnknownKindIsCritical(t *testing.T) {
	stage := &ExtractStage{Factory: &fakeFactory{err: assert.AnError}}
	exec := newExec()
	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	assert.False(t, result.Success)
	assert.True(t, exec.HasCritical())
}

func TestTransformStage_EmptyTableIsNoOpContinue(t *testing.T) {
	stage := &TransformStage{Engine: transform.NewEngine(transform.NewRegistry(nil), "prod", nil)}
	exec := newExec()
	exec.ExtractedTable = &model.TabularData{Columns: []model.ColumnSchema{{Name: "a"}}}

	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	assert.True(t, result.Success)
	assert.True(t, result.ShouldContinue)
}

func TestPackStage_NilTableIsCritical(t *testing.T) {
	stage := &PackStage{}
	exec := newExec()
	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	assert.False(t, result.Success)
	assert.True(t, exec.HasCritical())
}

func TestPackStage_Success(t *testing.T) {
	stage := &PackStage{}
	exec := newExec()
	exec.ExtractedTable = &model.TabularData{
		Columns: []model.ColumnSchema{{Name: "a", Type: model.TypeInt64}},
		Rows:    [][]any{{int64(1)}},
	}
	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	require.True(t, result.Success)
	assert.NotEmpty(t, exec.PackedBytes)
}

func TestGenerateControlStage_ProducesChecksumAndFileName(t *testing.T) {
	stage := &GenerateControlStage{}
	exec := newExec()
	exec.ExtractedTable = &model.TabularData{Rows: [][]any{{1}, {2}}}
	exec.PackedBytes = []byte("packed-bytes")
	exec.SetExtractionInput("rela", "conn", "q", nil, 0)

	result := stage.Execute(context.Background(), exec, model.DatasetSpec{ID: "ds1"})
	require.True(t, result.Success)
	assert.NotEmpty(t, exec.ControlBytes)
	assert.Contains(t, exec.ControlFileName, "ds1_")
	assert.Contains(t, exec.ControlFileName, ".ctl")
}

type fakeProvider struct {
	uploaded []string
	err      error
}

func (p *fakeProvider) Upload(ctx context.Context, destinationPath, fileName string, data []byte) (upload.Result, error) {
	if p.err != nil {
		return upload.Result{}, p.err
	}
	p.uploaded = append(p.uploaded, fileName)
	return upload.Result{Success: true, Path: "fake://" + fileName, BytesWritten: len(data)}, nil
}

type fakeProviderFactory struct {
	provider *fakeProvider
}

func (f *fakeProviderFactory) Create(dest model.DestinationSpec) (upload.Provider, error) {
	return f.provider, nil
}

func TestPublishStage_UploadsArtifactThenControl(t *testing.T) {
	provider := &fakeProvider{}
	stage := &PublishStage{Providers: &fakeProviderFactory{provider: provider}}
	exec := newExec()
	exec.ArtifactFileName = "out.parquet"
	exec.ControlFileName = "out.ctl"
	exec.PackedBytes = []byte("data")
	exec.ControlBytes = []byte("ctl")

	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	require.True(t, result.Success)
	assert.Equal(t, []string{"out.parquet", "out.ctl"}, provider.uploaded)
	assert.Equal(t, "fake://out.parquet", exec.PublishedURI)
}

func TestPublishStage_FailureIsErrorSeverityNotCritical(t *testing.T) {
	provider := &fakeProvider{err: assert.AnError}
	stage := &PublishStage{Providers: &fakeProviderFactory{provider: provider}}
	exec := newExec()
	exec.ArtifactFileName = "out.parquet"
	exec.ControlFileName = "out.ctl"

	result := stage.Execute(context.Background(), exec, model.DatasetSpec{})
	assert.False(t, result.Success)
	assert.False(t, exec.HasCritical())
	require.Len(t, exec.Errors, 1)
	assert.Equal(t, model.SeverityError, exec.Errors[0].Severity)
}
