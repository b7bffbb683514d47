// Package blobprovider implements the C7 "blob" upload provider: Google
// Cloud Storage (§4.7).
package blobprovider

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/upload"
)

// Provider uploads artifacts to one GCS bucket, unconditionally
// overwriting any existing object at the target path.
type Provider struct {
	client *storage.Client
	bucket string
}

// New builds a Provider bound to client and bucket.
func New(client *storage.Client, bucket string) *Provider {
	return &Provider{client: client, bucket: bucket}
}

// Upload writes data to join(destinationPath, fileName) in the bucket,
// with `/` separators regardless of platform. It does not attempt to
// create the bucket: application-level bucket creation needs elevated
// IAM the upload path shouldn't assume, so a missing bucket is surfaced
// as ErrUpload instead.
func (p *Provider) Upload(ctx context.Context, destinationPath, fileName string, data []byte) (upload.Result, error) {
	bucket := p.client.Bucket(p.bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		return upload.Result{}, fmt.Errorf("%w: bucket %q unreachable: %v", model.ErrUpload, p.bucket, err)
	}

	objName := objectName(destinationPath, fileName)
	obj := bucket.Object(objName)

	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return upload.Result{}, fmt.Errorf("%w: writing object %q: %v", model.ErrUpload, objName, err)
	}
	if err := w.Close(); err != nil {
		return upload.Result{}, fmt.Errorf("%w: closing object %q: %v", model.ErrUpload, objName, err)
	}

	return upload.Result{
		Success:      true,
		Path:         fmt.Sprintf("gs://%s/%s", p.bucket, objName),
		BytesWritten: len(data),
	}, nil
}

// objectName builds the blob's object key with `/` separators regardless
// of platform (§4.7: "Blob path = join(destinationPath, fileName) with
// `/` separators").
func objectName(destinationPath, fileName string) string {
	return path.Join(destinationPath, fileName)
}
