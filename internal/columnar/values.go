package columnar

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// arrowTimestamp converts a naive-UTC time.Time (dsutil.NormalizeTimestamp
// already stripped the offset) to microsecond Arrow ticks, per §4.5's
// "64-bit integer timestamp (naive UTC)".
func arrowTimestamp(t time.Time) arrow.Timestamp {
	return arrow.Timestamp(t.UnixMicro())
}

// appendValue appends v (already coerced by the data-source driver, or nil
// for SQL NULL) to builder according to col's logical type. Every builder
// array-go produces here carries a validity bitmap, so a nil value is
// always written with AppendNull (the per-column null mask of §4.5) and
// no default sentinel is ever materialized.
func appendValue(builder array.Builder, col model.ColumnSchema, v any) error {
	if v == nil {
		builder.AppendNull()
		return nil
	}

	switch col.Type {
	case model.TypeInt32:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		builder.(*array.Int32Builder).Append(int32(n))
	case model.TypeInt64:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		builder.(*array.Int64Builder).Append(n)
	case model.TypeDecimal:
		s := fmt.Sprintf("%v", v)
		dec, err := decimal128.FromString(s, 38, 9)
		if err != nil {
			return fmt.Errorf("parsing decimal %q: %w", s, err)
		}
		builder.(*array.Decimal128Builder).Append(dec)
	case model.TypeFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		builder.(*array.Float64Builder).Append(f)
	case model.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		builder.(*array.BooleanBuilder).Append(b)
	case model.TypeTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", v)
		}
		builder.(*array.TimestampBuilder).Append(arrowTimestamp(t))
	case model.TypeBinary:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", v)
		}
		builder.(*array.BinaryBuilder).Append(b)
	case model.TypeString:
		builder.(*array.StringBuilder).Append(fmt.Sprintf("%v", v))
	default:
		builder.(*array.StringBuilder).Append(fmt.Sprintf("%v", v))
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected float, got %T", v)
	}
}
