package dsutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceJSONScalar(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"int32", json.Number("42"), int32(42)},
		{"int64", json.Number("9999999999"), int64(9999999999)},
		{"decimal", json.Number("19.99"), "19.99"},
		{"bool", true, true},
		{"nil", nil, nil},
		{"string", "abc", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CoerceJSONScalar(tc.in))
		})
	}
}

func TestIsRawSQL(t *testing.T) {
	assert.True(t, IsRawSQL("  select * from t"))
	assert.True(t, IsRawSQL("WITH cte AS (SELECT 1) SELECT * FROM cte"))
	assert.False(t, IsRawSQL("dbo.sp_GetDailyTrades"))
}

func TestIsPackageQualified(t *testing.T) {
	assert.True(t, IsPackageQualified("pkg.get_data"))
	assert.False(t, IsPackageQualified("get_data"))
	assert.False(t, IsPackageQualified("SELECT * FROM pkg.tbl"))
}
