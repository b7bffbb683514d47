package transform

import (
	"strings"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// dataCleansingStep trims and optionally nulls out string columns.
// Config: {trimWhitespace bool=true, removeEmptyStrings bool=false}.
type dataCleansingStep struct{}

func (s *dataCleansingStep) Apply(table *model.TabularData, config map[string]any) (*model.TabularData, error) {
	trim := boolConfig(config, "trimWhitespace", true)
	removeEmpty := boolConfig(config, "removeEmptyStrings", false)

	stringCols := make(map[int]bool)
	for i, col := range table.Columns {
		if col.Type == model.TypeString {
			stringCols[i] = true
		}
	}

	for _, row := range table.Rows {
		for i := range row {
			if !stringCols[i] {
				continue
			}
			str, ok := row[i].(string)
			if !ok {
				continue
			}
			if trim {
				str = strings.TrimSpace(str)
			}
			if removeEmpty && str == "" {
				row[i] = nil
				continue
			}
			row[i] = str
		}
	}
	return table, nil
}

// boolConfig reads a bool key out of a transformation's config map,
// falling back to def when the key is absent or not a bool.
func boolConfig(config map[string]any, key string, def bool) bool {
	v, ok := config[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringConfig(config map[string]any, key, def string) string {
	v, ok := config[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func stringSliceConfig(config map[string]any, key string) []string {
	v, ok := config[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
