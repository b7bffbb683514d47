// Package certprovider implements the abstract certificate-provider
// collaborator of §6.4: lookups by thumbprint or subject name, with the
// "Required" variants that fail loud instead of returning ok=false. Host
// OS certificate-store lookup is explicitly out of scope (§1); the only
// concrete implementation here resolves from PEM files on disk, which is
// enough for local/dev use and for satisfying vaultclient.CertificateProvider.
package certprovider

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/vaultclient"
)

// Provider is the full certificate-lookup contract; vaultclient only
// depends on the "Required" subset of it.
type Provider interface {
	FindByThumbprint(thumbprint, storeName, storeLocation string) (vaultclient.Certificate, bool)
	FindBySubjectName(subjectName, storeName, storeLocation string) (vaultclient.Certificate, bool)
	GetRequiredByThumbprint(thumbprint, storeName, storeLocation string) (vaultclient.Certificate, error)
	GetRequiredBySubjectName(subjectName, storeName, storeLocation string) (vaultclient.Certificate, error)
}

// Certificate is a PEM-encoded client certificate and key pair.
type Certificate struct {
	CertPEM []byte
	KeyPEM  []byte
}

// TLSCertificate implements vaultclient.Certificate.
func (c Certificate) TLSCertificate() (certPEM, keyPEM []byte) { return c.CertPEM, c.KeyPEM }

// StaticProvider resolves certificates from a directory of PEM file
// pairs named "<thumbprint-or-subject>.crt" / "<thumbprint-or-subject>.key".
// storeName/storeLocation are accepted for interface conformance but
// ignored: there is exactly one store, the configured directory.
type StaticProvider struct {
	dir string

	mu    sync.Mutex
	cache map[string]Certificate
}

// NewStaticProvider builds a StaticProvider rooted at dir.
func NewStaticProvider(dir string) *StaticProvider {
	return &StaticProvider{dir: dir, cache: make(map[string]Certificate)}
}

func (p *StaticProvider) FindByThumbprint(thumbprint, _, _ string) (vaultclient.Certificate, bool) {
	return p.find(thumbprint)
}

func (p *StaticProvider) FindBySubjectName(subjectName, _, _ string) (vaultclient.Certificate, bool) {
	return p.find(subjectName)
}

func (p *StaticProvider) GetRequiredByThumbprint(thumbprint, storeName, storeLocation string) (vaultclient.Certificate, error) {
	cert, ok := p.FindByThumbprint(thumbprint, storeName, storeLocation)
	if !ok {
		return nil, fmt.Errorf("%w: no certificate found for thumbprint %q", model.ErrNotFound, thumbprint)
	}
	return cert, nil
}

func (p *StaticProvider) GetRequiredBySubjectName(subjectName, storeName, storeLocation string) (vaultclient.Certificate, error) {
	cert, ok := p.FindBySubjectName(subjectName, storeName, storeLocation)
	if !ok {
		return nil, fmt.Errorf("%w: no certificate found for subject %q", model.ErrNotFound, subjectName)
	}
	return cert, nil
}

func (p *StaticProvider) find(key string) (vaultclient.Certificate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cert, ok := p.cache[key]; ok {
		return cert, true
	}

	certPEM, err := os.ReadFile(filepath.Join(p.dir, key+".crt"))
	if err != nil {
		return nil, false
	}
	keyPEM, err := os.ReadFile(filepath.Join(p.dir, key+".key"))
	if err != nil {
		return nil, false
	}

	cert := Certificate{CertPEM: certPEM, KeyPEM: keyPEM}
	p.cache[key] = cert
	return cert, true
}
