// Package upload defines the C7 upload-provider contract; concrete
// providers live in the fsprovider and blobprovider subpackages.
package upload

import "context"

// Result is what a provider returns on a successful publish (§4.7).
type Result struct {
	Success      bool
	Path         string
	BytesWritten int
}

// Provider publishes a packed artifact's bytes to a destination. data is
// the file's full content; fileName is the artifact's base name (no
// directory component). Implementations must wrap failures in
// model.ErrUpload and return promptly once ctx is cancelled.
type Provider interface {
	Upload(ctx context.Context, destinationPath, fileName string, data []byte) (Result, error)
}
