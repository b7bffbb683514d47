package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

const validSpec = `{
	"id": "tr1",
	"enabled": true,
	"cron": "0/5 * * * * ?",
	"source": {"kind": "RELA", "connectionKey": "tr", "extractionKind": "Procedure", "procedure": "dbo.sp_GetDailyTrades",
		"parameters": {"StartDate": "2024-01-01", "EndDate": "2025-12-31"}},
	"output": {"fileNamePattern": "tr_{date:yyyyMMdd}.parquet", "compression": "SNAPPY"},
	"destination": {"provider": "FS", "basePath": "/tmp/out", "destinationPath": ""}
}`

const missingIDSpec = `{"cron": "0 0 2 * * ?", "source": {"kind": "rela"}, "output": {"fileNamePattern": "x"}, "destination": {"provider": "fs"}}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_ParsesValidSpecWithCaseInsensitiveEnums(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dataset-tr1.json", validSpec)

	specs, err := New(dir, nil, nil).Load()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, model.SourceRelA, specs[0].Source.Kind)
	assert.Equal(t, model.CompressionSnappy, specs[0].Output.Compression)
	assert.Equal(t, model.DestinationFS, specs[0].Destination.Provider)
}

func TestLoad_SkipsInvalidFileButLoadsOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dataset-bad.json", missingIDSpec)
	writeFile(t, dir, "dataset-good.json", validSpec)

	specs, err := New(dir, nil, nil).Load()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "tr1", specs[0].ID)
}

func TestLoad_CoercesParameterScalars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dataset-tr1.json", `{
		"id": "tr2", "cron": "0 0 2 * * ?",
		"source": {"kind": "rela", "parameters": {"Limit": 100, "Ratio": 1.5}},
		"output": {"fileNamePattern": "x"},
		"destination": {"provider": "fs"}
	}`)
	specs, err := New(dir, nil, nil).Load()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	limit, ok := specs[0].Source.Parameters.Get("Limit")
	require.True(t, ok)
	assert.Equal(t, int32(100), limit)
	ratio, ok := specs[0].Source.Parameters.Get("Ratio")
	require.True(t, ok)
	assert.Equal(t, "1.5", ratio)
}

func TestLoad_PreservesSourceParameterDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dataset-tr1.json", `{
		"id": "tr3", "cron": "0 0 2 * * ?",
		"source": {"kind": "rela", "extractionKind": "procedure", "procedure": "dbo.sp_GetDailyTrades",
			"parameters": {"EndDate": "2025-12-31", "StartDate": "2024-01-01"}},
		"output": {"fileNamePattern": "x"},
		"destination": {"provider": "fs"}
	}`)
	specs, err := New(dir, nil, nil).Load()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Len(t, specs[0].Source.Parameters, 2)
	assert.Equal(t, "EndDate", specs[0].Source.Parameters[0].Name)
	assert.Equal(t, "StartDate", specs[0].Source.Parameters[1].Name)
}

type fakeTransformNamer struct{ names []string }

func (f fakeTransformNamer) Names() []string { return f.names }

func TestLoad_RejectsUnregisteredTransformationTypeAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dataset-tr1.json", `{
		"id": "tr4", "cron": "0 0 2 * * ?",
		"source": {"kind": "rela"},
		"transformations": [{"type": "typo_d_transform"}],
		"output": {"fileNamePattern": "x"},
		"destination": {"provider": "fs"}
	}`)
	specs, err := New(dir, nil, fakeTransformNamer{names: []string{"rename_column"}}).Load()
	require.NoError(t, err)
	assert.Empty(t, specs, "dataset with an unregistered transformation type must be rejected before any job runs")
}
