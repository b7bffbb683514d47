// Package datasource implements the C3 Data Source Drivers: a uniform
// Extract contract over the relA (stored-procedure) and relB
// (output-cursor) database families (§4.3).
package datasource

import (
	"context"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Driver executes a named extraction against a database and returns the
// tabular result.
type Driver interface {
	Extract(ctx context.Context, connectionString, query string, parameters model.ParameterList, commandTimeoutSec int) (*model.TabularData, error)
}

// Factory returns the driver for a given source kind.
type Factory interface {
	Create(kind model.SourceKind) (Driver, error)
}
