package transform

import (
	"fmt"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// columnRenameStep renames a schema column in place. Config: {from
// string, to string}. Not in spec.md's built-in set; added because
// renaming a source column to the destination's expected name is a need
// every dataset eventually runs into and the Step contract already
// supports it for free.
type columnRenameStep struct{}

func (s *columnRenameStep) Apply(table *model.TabularData, config map[string]any) (*model.TabularData, error) {
	from := stringConfig(config, "from", "")
	to := stringConfig(config, "to", "")
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: PassthroughColumnRename requires non-empty from and to", model.ErrTransform)
	}
	idx := table.ColumnIndex(from)
	if idx < 0 {
		return nil, fmt.Errorf("%w: PassthroughColumnRename: column %q not found", model.ErrTransform, from)
	}
	table.Columns[idx].Name = to
	return table, nil
}
