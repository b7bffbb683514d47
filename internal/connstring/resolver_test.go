package connstring

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	calls int32
	value string
}

func (f *fakeVault) ProviderName() string { return "fake" }

func (f *fakeVault) GetSecret(ctx context.Context, path string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.value, nil
}

func TestResolve_NoPlaceholder_NoVaultCall(t *testing.T) {
	v := &fakeVault{value: "x"}
	r := New(v)

	out, err := r.Resolve(context.Background(), "Server=s;User=u")
	require.NoError(t, err)
	assert.Equal(t, "Server=s;User=u", out)
	assert.Equal(t, int32(0), v.calls)
}

func TestResolve_ReplacesPlaceholder(t *testing.T) {
	v := &fakeVault{value: "p@ss"}
	r := New(v)

	out, err := r.Resolve(context.Background(), "Server=s;User=u;Password={vault:oracle/hr}")
	require.NoError(t, err)
	assert.Equal(t, "Server=s;User=u;Password=p@ss", out)
}

func TestResolve_CachesAcrossCalls(t *testing.T) {
	v := &fakeVault{value: "p@ss"}
	r := New(v)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "{vault:oracle/hr}")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), v.calls)
}

func TestResolve_SingleFlightsConcurrentCalls(t *testing.T) {
	v := &fakeVault{value: "p@ss"}
	r := New(v)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "{vault:oracle/hr}")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), v.calls)
}

func TestResolve_Idempotent(t *testing.T) {
	v := &fakeVault{value: "p@ss"}
	r := New(v)

	once, err := r.Resolve(context.Background(), "Password={vault:oracle/hr}")
	require.NoError(t, err)
	twice, err := r.Resolve(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
