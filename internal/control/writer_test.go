package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

func TestWrite_HeaderAndRow(t *testing.T) {
	data, err := Write(context.Background(), model.ControlRecord{
		RecordCount: 42,
		RefDate:     "2026-08-01",
		Checksum:    "abc123",
		Timestamp:   "2026-08-02T00:00:00Z",
		DatasetName: "daily-trades",
		Source:      "relb",
	})
	require.NoError(t, err)
	assert.Equal(t, "RecordCount,RefDate,Checksum,Timestamp,DatasetName,Source\n42,2026-08-01,abc123,2026-08-02T00:00:00Z,daily-trades,relb\n", string(data))
}

func TestWrite_QuotesEmbeddedComma(t *testing.T) {
	data, err := Write(context.Background(), model.ControlRecord{
		DatasetName: "weird, name",
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weird, name"`)
}

func TestWrite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Write(ctx, model.ControlRecord{})
	assert.ErrorIs(t, err, model.ErrCancelled)
}
