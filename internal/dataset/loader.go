// Package dataset implements the C10 dataset configuration loader:
// parses dataset-*.json files under a directory into model.DatasetSpec
// values, isolating a bad file to a skipped-and-logged error rather than
// failing the whole load (§4.10).
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/datasource/dsutil"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// TransformNamer supplies the currently-registered transformation type
// names. The loader consults it so a dataset naming an unregistered
// transformation type is rejected at load time, before any job built
// from it runs (§4.4 "Unregistered names requested at job build time
// raise a hard error before the job runs") — the alternative, catching
// this from Transform.Engine.Run mid-pipeline, would let Extract and any
// earlier transform steps already execute first.
type TransformNamer interface {
	Names() []string
}

// Loader reads dataset-*.json files from one directory.
type Loader struct {
	dir      string
	logger   *zap.Logger
	registry TransformNamer
}

// New builds a Loader rooted at dir. registry is consulted to validate
// each dataset's transformation types; a nil registry skips that check
// (only ever appropriate in tests that don't exercise transformations).
func New(dir string, logger *zap.Logger, registry TransformNamer) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger, registry: registry}
}

// Dir returns the directory this loader globs dataset-*.json from, for
// callers (e.g. the scheduler's fsnotify watch) that need to watch it.
func (l *Loader) Dir() string { return l.dir }

// Load parses every dataset-*.json file in the directory. A file that
// fails to parse or is missing a required field is logged and skipped;
// the rest still load.
func (l *Loader) Load() ([]model.DatasetSpec, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "dataset-*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: globbing dataset directory %q: %v", model.ErrConfig, l.dir, err)
	}

	specs := make([]model.DatasetSpec, 0, len(matches))
	for _, path := range matches {
		spec, err := l.loadOne(path)
		if err != nil {
			l.logger.Warn("skipping invalid dataset file", zap.String("path", path), zap.Error(err))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (l *Loader) loadOne(path string) (model.DatasetSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.DatasetSpec{}, fmt.Errorf("reading file: %w", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return model.DatasetSpec{}, fmt.Errorf("parsing json: %w", err)
	}
	normalizeEnums(generic)

	normalized, err := json.Marshal(generic)
	if err != nil {
		return model.DatasetSpec{}, fmt.Errorf("re-marshaling normalized json: %w", err)
	}

	var spec model.DatasetSpec
	if err := json.Unmarshal(normalized, &spec); err != nil {
		return model.DatasetSpec{}, fmt.Errorf("decoding dataset spec: %w", err)
	}

	// source.parameters' declaration order must be read from the original
	// file bytes: the generic map round trip above (needed for
	// case-insensitive enum normalization) re-marshals through a
	// map[string]any, which encoding/json alphabetizes on Marshal, and
	// would otherwise silently destroy the order relB's cursor call (§4.3.2)
	// relies on.
	params, err := rawSourceParameters(raw)
	if err != nil {
		return model.DatasetSpec{}, err
	}
	spec.Source.Parameters = params

	if err := l.validate(spec); err != nil {
		return model.DatasetSpec{}, err
	}

	coerceParameters(&spec)
	return spec, nil
}

// rawSourceParameters decodes only source.parameters straight from the
// dataset file's original bytes, so model.ParameterList's order-preserving
// UnmarshalJSON sees the real key order instead of one already flattened
// through a map.
func rawSourceParameters(raw []byte) (model.ParameterList, error) {
	var envelope struct {
		Source struct {
			Parameters model.ParameterList `json:"parameters"`
		} `json:"source"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding source.parameters: %w", err)
	}
	return envelope.Source.Parameters, nil
}

// normalizeEnums lower-cases enum-valued fields in place so DatasetSpec's
// case-sensitive Go enum comparisons (SourceKind, ExtractionKind, ...)
// match regardless of how the file capitalized them (§4.10: "Enum-valued
// fields ... are case-insensitive").
func normalizeEnums(generic map[string]any) {
	if source, ok := generic["source"].(map[string]any); ok {
		lowerField(source, "kind")
		lowerField(source, "extractionKind")
	}
	if output, ok := generic["output"].(map[string]any); ok {
		lowerField(output, "compression")
	}
	if destination, ok := generic["destination"].(map[string]any); ok {
		lowerField(destination, "provider")
	}
}

func lowerField(m map[string]any, key string) {
	if v, ok := m[key].(string); ok {
		m[key] = strings.ToLower(v)
	}
}

func (l *Loader) validate(spec model.DatasetSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("%w: dataset spec missing required field id", model.ErrConfig)
	}
	if spec.Cron == "" {
		return fmt.Errorf("%w: dataset %q missing required field cron", model.ErrConfig, spec.ID)
	}
	switch spec.Source.Kind {
	case model.SourceRelA, model.SourceRelB:
	default:
		return fmt.Errorf("%w: dataset %q has unknown source kind %q", model.ErrConfig, spec.ID, spec.Source.Kind)
	}
	if spec.Output.FileNamePattern == "" {
		return fmt.Errorf("%w: dataset %q missing required field output.fileNamePattern", model.ErrConfig, spec.ID)
	}
	switch spec.Destination.Provider {
	case model.DestinationFS, model.DestinationBlob:
	default:
		return fmt.Errorf("%w: dataset %q has unknown destination provider %q", model.ErrConfig, spec.ID, spec.Destination.Provider)
	}
	if l.registry != nil {
		registered := make(map[string]struct{})
		for _, name := range l.registry.Names() {
			registered[name] = struct{}{}
		}
		for _, t := range spec.Transformations {
			if _, ok := registered[t.Type]; !ok {
				return fmt.Errorf("%w: dataset %q references unregistered transformation type %q", model.ErrConfig, spec.ID, t.Type)
			}
		}
	}
	return nil
}

// coerceParameters narrows every source parameter's JSON scalar to its
// native Go type via the same coercion ladder the drivers use, so
// parameters reach C3 as typed scalars rather than opaque json.Number
// values (§4.10).
func coerceParameters(spec *model.DatasetSpec) {
	for i, param := range spec.Source.Parameters {
		spec.Source.Parameters[i].Value = dsutil.CoerceJSONScalar(param.Value)
	}
}
