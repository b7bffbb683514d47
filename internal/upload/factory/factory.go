// Package factory builds the upload.Provider named by a dataset's
// DestinationSpec (§4.7's Create(tag) contract). It lives in its own
// package, separate from internal/upload, because it must import both
// fsprovider and blobprovider, which themselves import internal/upload.
package factory

import (
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/upload"
	"github.com/leapstack-labs/ingestiond/internal/upload/blobprovider"
	"github.com/leapstack-labs/ingestiond/internal/upload/fsprovider"
)

// Factory builds the upload.Provider for a DestinationSpec's provider tag.
type Factory struct {
	gcsClient *storage.Client
}

// New builds a Factory. gcsClient may be nil if no dataset in the process
// targets a blob destination; Create then fails loud only if one does.
func New(gcsClient *storage.Client) *Factory {
	return &Factory{gcsClient: gcsClient}
}

func (f *Factory) Create(dest model.DestinationSpec) (upload.Provider, error) {
	switch dest.Provider {
	case model.DestinationFS:
		return fsprovider.New(dest.BasePath), nil
	case model.DestinationBlob:
		if f.gcsClient == nil {
			return nil, fmt.Errorf("%w: destination provider %q configured but no GCS client is available", model.ErrConfig, dest.Provider)
		}
		return blobprovider.New(f.gcsClient, dest.Bucket), nil
	default:
		return nil, fmt.Errorf("%w: unknown destination provider %q", model.ErrConfig, dest.Provider)
	}
}
