// Package control implements the C6 control record writer: one RFC-4180
// CSV sidecar describing a packed columnar artifact (§4.6).
package control

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

var header = []string{"RecordCount", "RefDate", "Checksum", "Timestamp", "DatasetName", "Source"}

// Write renders record as CSV bytes: the literal header row followed by
// one data row. Cancellation is honored before any work begins — the
// writer itself never blocks long enough to need a mid-write check.
func Write(ctx context.Context, record model.ControlRecord) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", model.ErrCancelled, ctx.Err())
	default:
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("%w: writing header: %v", model.ErrControl, err)
	}

	row := []string{
		strconv.Itoa(record.RecordCount),
		record.RefDate,
		record.Checksum,
		record.Timestamp,
		record.DatasetName,
		record.Source,
	}
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("%w: writing data row: %v", model.ErrControl, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: flushing: %v", model.ErrControl, err)
	}
	return buf.Bytes(), nil
}
