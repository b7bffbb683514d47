package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

type fakeStage struct {
	name    string
	result  StageResult
	panics  bool
	records func(*model.JobExecution)
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Execute(ctx context.Context, exec *model.JobExecution, spec model.DatasetSpec) StageResult {
	if f.panics {
		panic("boom")
	}
	if f.records != nil {
		f.records(exec)
	}
	return f.result
}

func newExec() *model.JobExecution {
	return model.NewJobExecution(context.Background(), "ds1", time.Now(), "ds1.20260802000000-aaaaaaaa")
}

func TestEngine_AllStagesSucceed(t *testing.T) {
	ok := StageResult{Success: true, ShouldContinue: true}
	e := &Engine{
		stages: []Stage{
			&fakeStage{name: "Extract", result: ok},
			&fakeStage{name: "Transform", result: ok},
			&fakeStage{name: "Pack", result: ok},
			&fakeStage{name: "GenerateControl", result: ok},
			&fakeStage{name: "Publish", result: ok},
		},
	}
	exec := newExec()
	state := e.Run(context.Background(), exec, model.DatasetSpec{})
	assert.Equal(t, model.StateSucceeded, state)
}

func TestEngine_AbortsOnCriticalError(t *testing.T) {
	e := &Engine{
		stages: []Stage{
			&fakeStage{name: "Extract", result: StageResult{Success: false, ShouldContinue: false},
				records: func(exec *model.JobExecution) { exec.AddError("Extract", "boom", nil, model.SeverityCritical) }},
			&fakeStage{name: "Transform", result: StageResult{Success: true, ShouldContinue: true}},
		},
	}
	exec := newExec()
	state := e.Run(context.Background(), exec, model.DatasetSpec{})
	assert.Equal(t, model.StateAborted, state)
}

func TestEngine_StagePanicIsRecordedAsCritical(t *testing.T) {
	e := &Engine{
		stages: []Stage{
			&fakeStage{name: "Extract", panics: true},
		},
	}
	exec := newExec()
	state := e.Run(context.Background(), exec, model.DatasetSpec{})
	assert.Equal(t, model.StateAborted, state)
	assert.True(t, exec.HasCritical())
}

func TestEngine_NonCriticalFailureMarksFailed(t *testing.T) {
	e := &Engine{
		stages: []Stage{
			&fakeStage{name: "Extract", result: StageResult{Success: true, ShouldContinue: true}},
			&fakeStage{name: "Publish", result: StageResult{Success: false, ShouldContinue: false}},
		},
	}
	exec := newExec()
	state := e.Run(context.Background(), exec, model.DatasetSpec{})
	assert.Equal(t, model.StateFailed, state)
}
