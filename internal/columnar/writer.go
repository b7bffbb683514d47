// Package columnar implements the C5 columnar writer: TabularData goes in,
// a Parquet file (Arrow under the hood) comes out.
package columnar

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Write packs table into a Parquet file and returns its bytes. Compression
// defaults to Snappy; codec and compression may be overridden per dataset
// via output. An empty table (no rows) still produces a valid, empty file
// with the schema intact. ctx is checked before the (CPU-bound) write
// begins so a cancelled job doesn't pack an artifact nobody will publish.
func Write(ctx context.Context, table *model.TabularData, output model.OutputSpec) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if table == nil {
		return nil, fmt.Errorf("%w: nil table", model.ErrPack)
	}

	schema, builders := newBuilders(table.Columns)
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			if err := appendValue(builders[i], col, row[i]); err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", model.ErrPack, col.Name, err)
			}
		}
	}

	arrays := make([]arrow.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.NewArray()
		defer arrays[i].Release()
	}
	record := array.NewRecord(schema, arrays, int64(len(table.Rows)))
	defer record.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(output.Compression)),
		parquet.WithMaxRowGroupLength(rowGroupLength(output.RowGroupHint)),
	)
	writer, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("%w: opening writer: %v", model.ErrPack, err)
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("%w: writing record batch: %v", model.ErrPack, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing writer: %v", model.ErrPack, err)
	}
	return buf.Bytes(), nil
}

func rowGroupLength(hint int64) int64 {
	if hint > 0 {
		return hint
	}
	return parquet.DefaultMaxRowGroupLen
}

func compressionCodec(codec model.CompressionCodec) compress.Compression {
	switch codec {
	case model.CompressionGzip:
		return compress.Codecs.Gzip
	case model.CompressionZstd:
		return compress.Codecs.Zstd
	case model.CompressionNone:
		return compress.Codecs.Uncompressed
	case model.CompressionSnappy, "":
		return compress.Codecs.Snappy
	default:
		return compress.Codecs.Snappy
	}
}

func newBuilders(columns []model.ColumnSchema) (*arrow.Schema, []array.Builder) {
	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	builders := make([]array.Builder, len(columns))
	for i, col := range columns {
		dt := physicalType(col.Type)
		nullable := col.Nullable || col.Type == model.TypeString
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: nullable}
		builders[i] = array.NewBuilder(pool, dt)
	}
	return arrow.NewSchema(fields, nil), builders
}

// physicalType maps a TabularData logical type to its Arrow physical type,
// per the table in §4.5. Unknown logical types fall back to UTF-8 string.
func physicalType(logical model.LogicalType) arrow.DataType {
	switch logical {
	case model.TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case model.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case model.TypeDecimal:
		return &arrow.Decimal128Type{Precision: 38, Scale: 9}
	case model.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case model.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case model.TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case model.TypeBinary:
		return arrow.BinaryTypes.Binary
	case model.TypeString:
		return arrow.BinaryTypes.String
	default:
		return arrow.BinaryTypes.String
	}
}
