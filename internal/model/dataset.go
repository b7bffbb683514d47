// Package model holds the domain types shared by every ingestion component:
// dataset specifications, job executions, tabular data, and control records.
package model

// SourceKind identifies the data-source driver family (§4.3).
type SourceKind string

const (
	SourceRelA SourceKind = "rela"
	SourceRelB SourceKind = "relb"
)

// ExtractionKind selects how Query/Procedure/Package/SqlFile is interpreted.
type ExtractionKind string

const (
	ExtractionProcedure ExtractionKind = "procedure"
	ExtractionPackage   ExtractionKind = "package"
	ExtractionQuery     ExtractionKind = "query"
)

// CompressionCodec names the columnar writer's compression codec (§4.5).
type CompressionCodec string

const (
	CompressionSnappy CompressionCodec = "snappy"
	CompressionGzip   CompressionCodec = "gzip"
	CompressionZstd   CompressionCodec = "zstd"
	CompressionNone   CompressionCodec = "none"
)

// DestinationKind selects the upload provider (§4.7).
type DestinationKind string

const (
	DestinationFS   DestinationKind = "fs"
	DestinationBlob DestinationKind = "blob"
)

// SourceSpec describes where and how a dataset is extracted (§3.1).
type SourceSpec struct {
	Kind              SourceKind         `json:"kind"`
	ConnectionKey     string             `json:"connectionKey"`
	ExtractionKind    ExtractionKind     `json:"extractionKind"`
	Procedure         string             `json:"procedure,omitempty"`
	Package           string             `json:"package,omitempty"`
	SqlFile           string             `json:"sqlFile,omitempty"`
	Parameters        ParameterList      `json:"parameters,omitempty"`
	CommandTimeoutSec int                `json:"commandTimeoutSec,omitempty"`
}

// TransformationSpec configures one registered transformation step (§3.1).
type TransformationSpec struct {
	Type         string         `json:"type"`
	Enabled      bool           `json:"enabled"`
	Order        int            `json:"order"`
	Environments []string       `json:"environments,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// OutputSpec configures the columnar artifact (§3.1, §4.5).
type OutputSpec struct {
	FileNamePattern string           `json:"fileNamePattern"`
	Compression     CompressionCodec `json:"compression,omitempty"`
	RowGroupHint    int64            `json:"rowGroupHint,omitempty"`
}

// DestinationSpec configures where the artifacts are published (§3.1, §4.7).
type DestinationSpec struct {
	Provider DestinationKind `json:"provider"`
	// fs
	BasePath        string `json:"basePath,omitempty"`
	DestinationPath string `json:"destinationPath,omitempty"`
	// blob
	Bucket string `json:"bucket,omitempty"`
}

// DatasetSpec is the immutable-at-runtime recipe for one recurring ingestion
// flow, loaded from a dataset-*.json file (§3.1, §6.1).
type DatasetSpec struct {
	ID              string                `json:"id"`
	Enabled         bool                  `json:"enabled"`
	Cron            string                `json:"cron"`
	Source          SourceSpec            `json:"source"`
	Transformations []TransformationSpec  `json:"transformations,omitempty"`
	Output          OutputSpec            `json:"output"`
	Destination     DestinationSpec       `json:"destination"`
	KeepLocalCopy   bool                  `json:"keepLocalCopy,omitempty"`
	LocalCopyPath   string                `json:"localCopyPath,omitempty"`
}
