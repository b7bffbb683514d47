package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderFileName_SubstitutesFormattedAndBareTokens(t *testing.T) {
	at := time.Date(2026, 8, 2, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "tr_20260802.parquet", renderFileName("tr_{date:yyyyMMdd}.parquet", at))
	assert.Equal(t, "tr_20260802_143005.parquet", renderFileName("tr_{date}_{time}.parquet", at))
	assert.Equal(t, "tr_143005.parquet", renderFileName("tr_{time:HHmmss}.parquet", at))
}
