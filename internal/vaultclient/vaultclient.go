// Package vaultclient implements the C1 Secret Store Client: fetching secret
// values from a remote HTTPS vault over one of two wire backends (§4.1).
package vaultclient

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Client fetches a secret value by path.
type Client interface {
	GetSecret(ctx context.Context, path string) (string, error)
	ProviderName() string
}

// CertificateProvider is the abstract collaborator of §6.4. Only the
// subset the vault client needs at HTTP-client construction time is
// declared here.
type CertificateProvider interface {
	GetRequiredByThumbprint(thumbprint, storeName, storeLocation string) (Certificate, error)
	GetRequiredBySubjectName(subjectName, storeName, storeLocation string) (Certificate, error)
}

// Certificate is an opaque TLS client certificate handed to the HTTP
// transport; the concrete shape lives with the CertificateProvider
// implementation (out of scope per spec.md §1).
type Certificate interface {
	TLSCertificate() (certPEM, keyPEM []byte)
}

// Config selects and parameterizes a backend.
type Config struct {
	Provider string // "backend-a" | "backend-b"

	BaseURL string

	// backend-a
	BearerToken     string
	MTLSEnabled     bool
	CertThumbprint  string
	CertSubjectName string
	CertStoreName   string
	CertStoreLoc    string

	// backend-b
	APIKey string
}

// New constructs the configured backend's client.
func New(cfg Config, certs CertificateProvider) (Client, error) {
	switch cfg.Provider {
	case "backend-a", "":
		return newBackendA(cfg, certs)
	case "backend-b":
		return newBackendB(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown vault provider %q", model.ErrConfig, cfg.Provider)
	}
}
