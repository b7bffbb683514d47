package datasource

import (
	"fmt"

	"github.com/leapstack-labs/ingestiond/internal/datasource/rela"
	"github.com/leapstack-labs/ingestiond/internal/datasource/relb"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

type factory struct {
	relA Driver
	relB Driver
}

// NewFactory builds the DataSourceFactory backed by the relA (MySQL) and
// relB (PostgreSQL) drivers (§4.3). Each driver opens its connection per
// Extract call using the connectionString that call is given, so the
// factory itself carries no connection state.
func NewFactory() Factory {
	return &factory{
		relA: rela.New(),
		relB: relb.New(),
	}
}

func (f *factory) Create(kind model.SourceKind) (Driver, error) {
	switch kind {
	case model.SourceRelA:
		return f.relA, nil
	case model.SourceRelB:
		return f.relB, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", model.ErrConfig, kind)
	}
}
