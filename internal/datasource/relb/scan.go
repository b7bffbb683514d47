package relb

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/leapstack-labs/ingestiond/internal/datasource/dsutil"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// randomSuffix names a per-call cursor so concurrent extractions on the
// same connection (or overlapping FETCHes across retries) never collide.
func randomSuffix() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func scanPgxRows(rows pgx.Rows) (*model.TabularData, error) {
	fields := rows.FieldDescriptions()
	columns := make([]model.ColumnSchema, len(fields))
	for i, f := range fields {
		columns[i] = model.ColumnSchema{
			Name:     f.Name,
			Type:     inferLogicalType(f.DataTypeOID),
			Nullable: true,
		}
	}

	table := &model.TabularData{Columns: columns}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = normalize(v, columns[i].Type)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return table, nil
}

func inferLogicalType(oid uint32) model.LogicalType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID:
		return model.TypeInt32
	case pgtype.Int8OID:
		return model.TypeInt64
	case pgtype.NumericOID:
		return model.TypeDecimal
	case pgtype.Float4OID, pgtype.Float8OID:
		return model.TypeFloat64
	case pgtype.BoolOID:
		return model.TypeBool
	case pgtype.TimestampOID, pgtype.TimestamptzOID, pgtype.DateOID:
		return model.TypeTimestamp
	case pgtype.ByteaOID:
		return model.TypeBinary
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.UUIDOID, pgtype.BPCharOID:
		return model.TypeString
	default:
		return model.TypeString
	}
}

func normalize(v any, logical model.LogicalType) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case time.Time:
		return dsutil.NormalizeTimestamp(val)
	case [16]byte:
		if logical == model.TypeString {
			return fmt.Sprintf("%x", val)
		}
		return val
	case fmt.Stringer:
		if logical == model.TypeString {
			return val.String()
		}
		return v
	default:
		if logical == model.TypeString {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
		return v
	}
}
