package model

import (
	"context"
	"fmt"
	"time"
)

// ExecutionState is the JobExecution lifecycle (§3.1).
type ExecutionState string

const (
	StateExtracting       ExecutionState = "Extracting"
	StateTransforming     ExecutionState = "Transforming"
	StatePacking          ExecutionState = "Packing"
	StateGeneratingControl ExecutionState = "GeneratingControl"
	StatePublishing       ExecutionState = "Publishing"
	StateSucceeded        ExecutionState = "Succeeded"
	StateFailed           ExecutionState = "Failed"
	StateAborted          ExecutionState = "Aborted"
)

// Severity classifies a PipelineError (§3.1, §7).
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
)

// PipelineError records one stage failure.
type PipelineError struct {
	Stage     string
	Message   string
	Cause     error
	Timestamp time.Time
	Severity  Severity
}

// ControlRecord is the CSV sidecar describing a packed artifact (§3.1, §4.6).
type ControlRecord struct {
	RecordCount int
	RefDate     string
	Checksum    string
	Timestamp   string
	DatasetName string
	Source      string
}

// metadata keys used by the stage chain to read/write the execution's
// typed-but-bag-carried inputs and outputs (§9 "untyped metadata bag").
const (
	metaSourceType  = "SourceType"
	metaConnString  = "ConnectionString"
	metaQuery       = "Query"
	metaParameters  = "Parameters"
	metaCommandTimeout = "CommandTimeoutSec"
)

// JobExecution is one concrete run of a dataset's pipeline (§3.1).
type JobExecution struct {
	ExecutionID string
	DatasetID   string
	StartTime   time.Time
	EndTime     time.Time

	ctx    context.Context
	cancel context.CancelFunc

	Metadata map[string]any

	State ExecutionState

	// ArtifactFileName is the packed artifact's name, rendered by the
	// scheduler at trigger fire from the dataset's fileNamePattern with
	// {date:yyyyMMdd}/{time:HHmmss} substituted against the execution's
	// start time (§4.9).
	ArtifactFileName string

	ExtractedTable  *TabularData
	PackedBytes     []byte
	ControlBytes    []byte
	ControlFileName string
	PublishedURI    string

	Errors []PipelineError
}

// NewJobExecution builds a fresh execution with a cancellation context
// derived from parent, per dataset datasetID, stamped at startTime.
func NewJobExecution(parent context.Context, datasetID string, startTime time.Time, executionID string) *JobExecution {
	ctx, cancel := context.WithCancel(parent)
	return &JobExecution{
		ExecutionID: executionID,
		DatasetID:   datasetID,
		StartTime:   startTime,
		ctx:         ctx,
		cancel:      cancel,
		Metadata:    make(map[string]any),
		State:       StateExtracting,
	}
}

// Context returns the execution's cancellation-bearing context.
func (e *JobExecution) Context() context.Context { return e.ctx }

// Cancel signals the execution's cancellation context.
func (e *JobExecution) Cancel() {
	if e.cancel != nil {
		e.cancel()
	}
}

// SetExtractionInput stores the typed inputs stage 1 (Extract) needs,
// keeping the bag's keys private to this file per §9's typed-accessor
// guidance.
func (e *JobExecution) SetExtractionInput(sourceType string, connString string, query string, params ParameterList, timeoutSec int) {
	e.Metadata[metaSourceType] = sourceType
	e.Metadata[metaConnString] = connString
	e.Metadata[metaQuery] = query
	e.Metadata[metaParameters] = params
	e.Metadata[metaCommandTimeout] = timeoutSec
}

// ExtractionInput reads back the stage-1 inputs.
func (e *JobExecution) ExtractionInput() (sourceType, connString, query string, params ParameterList, timeoutSec int) {
	sourceType, _ = e.Metadata[metaSourceType].(string)
	connString, _ = e.Metadata[metaConnString].(string)
	query, _ = e.Metadata[metaQuery].(string)
	params, _ = e.Metadata[metaParameters].(ParameterList)
	timeoutSec, _ = e.Metadata[metaCommandTimeout].(int)
	return
}

// AddError appends a PipelineError with the current time.
func (e *JobExecution) AddError(stage, message string, cause error, severity Severity) {
	e.Errors = append(e.Errors, PipelineError{
		Stage:     stage,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now().UTC(),
		Severity:  severity,
	})
}

// HasCritical reports whether any recorded error is Critical severity
// (engine's "abort immediately if any prior stage recorded a Critical
// severity error", §4.8).
func (e *JobExecution) HasCritical() bool {
	for _, pe := range e.Errors {
		if pe.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// NewExecutionID builds the globally-unique, sortable id of §3.1:
// "{datasetId}.{yyyyMMddHHmmss}-{8-hex}".
func NewExecutionID(datasetID string, at time.Time, hexSuffix string) string {
	return fmt.Sprintf("%s.%s-%s", datasetID, at.UTC().Format("20060102150405"), hexSuffix)
}
