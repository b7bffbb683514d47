package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// dataValidationStep rejects (with ErrValidation) tables missing a
// required column. Config: {requiredColumns []string=[], validateEmail
// bool=false}. With validateEmail set, the first non-empty string in any
// column named "email" (case-insensitive) that is not a plausible address
// fails the step with ErrValidation; rows are never dropped or mutated —
// malformed addresses are the source system's problem to fix, not this
// step's to silently paper over.
type dataValidationStep struct{}

func (s *dataValidationStep) Apply(table *model.TabularData, config map[string]any) (*model.TabularData, error) {
	required := stringSliceConfig(config, "requiredColumns")
	for _, name := range required {
		if table.ColumnIndex(name) < 0 {
			return nil, fmt.Errorf("%w: required column %q missing from extracted schema", model.ErrValidation, name)
		}
	}

	if boolConfig(config, "validateEmail", false) {
		for i, col := range table.Columns {
			if !strings.EqualFold(col.Name, "email") {
				continue
			}
			for rowIdx, row := range table.Rows {
				str, ok := row[i].(string)
				if !ok || str == "" {
					continue
				}
				if !emailPattern.MatchString(str) {
					return nil, fmt.Errorf("%w: row %d: %q is not a valid email", model.ErrValidation, rowIdx, str)
				}
			}
		}
	}
	return table, nil
}
