package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

func sampleTable() *model.TabularData {
	return &model.TabularData{
		Columns: []model.ColumnSchema{
			{Name: "Name", Type: model.TypeString, Nullable: true},
			{Name: "Amount", Type: model.TypeFloat64},
		},
		Rows: [][]any{
			{"  Alice  ", 1.5},
			{"", 2.0},
		},
	}
}

func TestRegistry_DuplicateRegistrationIsNoOp(t *testing.T) {
	r := NewRegistry(nil)
	called := false
	r.Register("DataCleansing", func() Step { called = true; return &dataCleansingStep{} })
	assert.False(t, called, "factory should not be invoked at registration time")

	f, err := r.Lookup("DataCleansing")
	require.NoError(t, err)
	_, ok := f().(*dataCleansingStep)
	assert.True(t, ok, "original DataCleansing registration should win")
}

func TestRegistry_FreezeBlocksLateRegistration(t *testing.T) {
	r := NewRegistry(nil)
	r.Freeze()
	r.Register("CustomStep", func() Step { return nil })
	_, err := r.Lookup("CustomStep")
	assert.Error(t, err)
}

func TestEngine_OrdersByOrderThenDeclaration(t *testing.T) {
	r := NewRegistry(nil)
	e := NewEngine(r, "prod", nil)
	table := sampleTable()

	specs := []model.TransformationSpec{
		{Type: "DataCleansing", Enabled: true, Order: 1, Config: map[string]any{"removeEmptyStrings": true}},
		{Type: "PassthroughColumnRename", Enabled: true, Order: 0, Config: map[string]any{"from": "Name", "to": "FullName"}},
	}
	out, err := e.Run(context.Background(), table, specs)
	require.NoError(t, err)
	assert.Equal(t, "FullName", out.Columns[0].Name)
	assert.Equal(t, "Alice", out.Rows[0][0])
	assert.Nil(t, out.Rows[1][0])
}

func TestEngine_SkipsDisabledStep(t *testing.T) {
	r := NewRegistry(nil)
	e := NewEngine(r, "prod", nil)
	table := sampleTable()

	specs := []model.TransformationSpec{
		{Type: "DataCleansing", Enabled: false, Order: 0},
	}
	out, err := e.Run(context.Background(), table, specs)
	require.NoError(t, err)
	assert.Equal(t, "  Alice  ", out.Rows[0][0])
}

func TestEngine_SkipsStepNotGatedForEnvironment(t *testing.T) {
	r := NewRegistry(nil)
	e := NewEngine(r, "staging", nil)
	table := sampleTable()

	specs := []model.TransformationSpec{
		{Type: "DataCleansing", Enabled: true, Order: 0, Environments: []string{"prod"}},
	}
	out, err := e.Run(context.Background(), table, specs)
	require.NoError(t, err)
	assert.Equal(t, "  Alice  ", out.Rows[0][0])
}

func TestEngine_UnknownStepTypeFails(t *testing.T) {
	r := NewRegistry(nil)
	e := NewEngine(r, "prod", nil)
	_, err := e.Run(context.Background(), sampleTable(), []model.TransformationSpec{
		{Type: "DoesNotExist", Enabled: true},
	})
	assert.ErrorIs(t, err, model.ErrTransform)
}

func TestEngine_CancelledContextStopsBeforeNextStep(t *testing.T) {
	r := NewRegistry(nil)
	e := NewEngine(r, "prod", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, sampleTable(), []model.TransformationSpec{
		{Type: "DataCleansing", Enabled: true},
	})
	assert.ErrorIs(t, err, model.ErrCancelled)
}

func TestDataValidation_MissingRequiredColumn(t *testing.T) {
	step := &dataValidationStep{}
	_, err := step.Apply(sampleTable(), map[string]any{"requiredColumns": []any{"DoesNotExist"}})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDataValidation_RequiredColumnPresent(t *testing.T) {
	step := &dataValidationStep{}
	out, err := step.Apply(sampleTable(), map[string]any{"requiredColumns": []any{"Name"}})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestColumnRename_UnknownColumn(t *testing.T) {
	step := &columnRenameStep{}
	_, err := step.Apply(sampleTable(), map[string]any{"from": "Nope", "to": "X"})
	assert.ErrorIs(t, err, model.ErrTransform)
}
