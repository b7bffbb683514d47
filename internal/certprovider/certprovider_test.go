package certprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_FindByThumbprintRoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.crt"), []byte("CERT"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.key"), []byte("KEY"), 0o644))

	p := NewStaticProvider(dir)
	cert, ok := p.FindByThumbprint("abc123", "My", "CurrentUser")
	require.True(t, ok)
	certPEM, keyPEM := cert.TLSCertificate()
	assert.Equal(t, []byte("CERT"), certPEM)
	assert.Equal(t, []byte("KEY"), keyPEM)
}

func TestStaticProvider_GetRequiredByThumbprintFailsLoudWhenMissing(t *testing.T) {
	p := NewStaticProvider(t.TempDir())
	_, err := p.GetRequiredByThumbprint("missing", "My", "CurrentUser")
	assert.Error(t, err)
}

func TestStaticProvider_FindBySubjectNameMissingKeyFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CN=example.crt"), []byte("CERT"), 0o644))

	p := NewStaticProvider(dir)
	_, ok := p.FindBySubjectName("CN=example", "", "")
	assert.False(t, ok)
}
