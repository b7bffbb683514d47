package dsutil

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// ScanRows drains a database/sql *sql.Rows result set into a TabularData,
// inferring each column's LogicalType from the driver-reported schema and
// normalizing offset-bearing timestamps to naive UTC (§4.3.3).
func ScanRows(rows *sql.Rows) (*model.TabularData, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	columns := make([]model.ColumnSchema, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		columns[i] = model.ColumnSchema{
			Name:     ct.Name(),
			Type:     inferLogicalType(ct),
			Nullable: nullable || true, // all columns tolerate NULL on read
		}
	}

	table := &model.TabularData{Columns: columns}

	scanDest := make([]any, len(columns))
	scanBuf := make([]sql.RawBytes, len(columns))
	holders := make([]any, len(columns))
	for i := range holders {
		holders[i] = new(any)
	}

	for rows.Next() {
		for i := range scanDest {
			scanDest[i] = holders[i]
		}
		_ = scanBuf
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make([]any, len(columns))
		for i, h := range holders {
			row[i] = normalizeScanned(*(h.(*any)), columns[i].Type)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return table, nil
}

func inferLogicalType(ct *sql.ColumnType) model.LogicalType {
	switch strings.ToUpper(ct.DatabaseTypeName()) {
	case "TINYINT", "SMALLINT", "INT", "INTEGER", "MEDIUMINT":
		return model.TypeInt32
	case "BIGINT":
		return model.TypeInt64
	case "DECIMAL", "NUMERIC":
		return model.TypeDecimal
	case "FLOAT", "DOUBLE", "REAL":
		return model.TypeFloat64
	case "BOOL", "BOOLEAN":
		return model.TypeBool
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "DATE":
		return model.TypeTimestamp
	case "BLOB", "BINARY", "VARBINARY", "BYTEA":
		return model.TypeBinary
	case "CHAR", "VARCHAR", "TEXT", "LONGTEXT", "UUID":
		return model.TypeString
	default:
		switch ct.ScanType() {
		case reflect.TypeOf(int64(0)):
			return model.TypeInt64
		case reflect.TypeOf(float64(0)):
			return model.TypeFloat64
		case reflect.TypeOf(time.Time{}):
			return model.TypeTimestamp
		case reflect.TypeOf(bool(false)):
			return model.TypeBool
		}
		return model.TypeString
	}
}

// normalizeScanned applies the §4.3.3 coercions a driver's generic scan
// target needs: offset-bearing time.Time -> naive UTC, UUID/unknown ->
// string, everything else passed through.
func normalizeScanned(v any, logical model.LogicalType) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case time.Time:
		return NormalizeTimestamp(val)
	case []byte:
		if logical == model.TypeString {
			return string(val)
		}
		return val
	case fmt.Stringer:
		if logical == model.TypeString {
			return val.String()
		}
		return v
	default:
		return v
	}
}
