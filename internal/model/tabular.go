package model

// LogicalType is one of the column types TabularData, the columnar writer,
// and the drivers all agree on (§3.1).
type LogicalType string

const (
	TypeInt32     LogicalType = "int32"
	TypeInt64     LogicalType = "int64"
	TypeDecimal   LogicalType = "decimal"
	TypeFloat64   LogicalType = "float64"
	TypeBool      LogicalType = "bool"
	TypeString    LogicalType = "string"
	TypeTimestamp LogicalType = "timestamp"
	TypeBinary    LogicalType = "binary"
)

// ColumnSchema describes one column of a TabularData table.
type ColumnSchema struct {
	Name     string
	Type     LogicalType
	Nullable bool
}

// TabularData is schema + rows. A row is a slice of values in schema order;
// a nil entry is SQL NULL.
type TabularData struct {
	Columns []ColumnSchema
	Rows    [][]any
}

// Clone returns a deep copy suitable for handing to a transformation step
// (engine's "input is a deep copy of the extracted table", §4.4).
func (t *TabularData) Clone() *TabularData {
	if t == nil {
		return nil
	}
	cols := make([]ColumnSchema, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]any, len(row))
		copy(r, row)
		rows[i] = r
	}
	return &TabularData{Columns: cols, Rows: rows}
}

// ColumnIndex returns the position of name in the schema, or -1.
func (t *TabularData) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// RecordCount is the number of rows (used by ControlRecord.RecordCount).
func (t *TabularData) RecordCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
