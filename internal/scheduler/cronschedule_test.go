package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_AcceptsRequiredExamples(t *testing.T) {
	examples := []string{
		"0 0 2 * * ?",
		"0 */15 * * * ?",
		"0 0 6 ? * MON-FRI",
		"0 0 0 1 * ?",
	}
	for _, expr := range examples {
		_, err := ParseSchedule(expr)
		assert.NoError(t, err, "expression %q should parse", expr)
	}
}

func TestParseSchedule_RejectsWrongFieldCount(t *testing.T) {
	_, err := ParseSchedule("* * * *")
	assert.Error(t, err)
}

func TestParseSchedule_SevenFieldYearRestrictsFutureFire(t *testing.T) {
	sched, err := ParseSchedule("0 0 0 1 1 ? 2099")
	require.NoError(t, err)

	next := sched.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2099, next.Year()) // no fire time is produced in a year outside the year field
	assert.True(t, next.Equal(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseSchedule_YearWildcardFiresNormally(t *testing.T) {
	sched, err := ParseSchedule("0 0 2 * * ? *")
	require.NoError(t, err)

	next := sched.Next(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, next.Year())
	assert.Equal(t, 2, next.Hour())
}

func TestParseYearField_Range(t *testing.T) {
	m, err := parseYearField("2024-2026")
	require.NoError(t, err)
	assert.True(t, m.matches(2025))
	assert.False(t, m.matches(2027))
}
