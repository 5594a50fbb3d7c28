package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

type nopVault struct{ key ClientKey }

func (nopVault) Insert(context.Context, string, []types.InsertRecord, types.InsertOptions) (types.InsertResult, error) {
	return types.InsertResult{}, nil
}
func (nopVault) Detokenize(context.Context, []types.DetokenizeParam, bool) (types.DetokenizeResult, error) {
	return types.DetokenizeResult{}, nil
}
func (nopVault) Query(context.Context, string) (types.QueryResult, error) {
	return types.QueryResult{}, nil
}

func countingCache() (*Cache, *int) {
	builds := 0
	c := New(func(key ClientKey) ports.VaultService {
		builds++
		return nopVault{key: key}
	})
	return c, &builds
}

func TestResolveReusesHandlePerTriple(t *testing.T) {
	c, builds := countingCache()

	a, err := c.Resolve("c1", "v1", "PROD")
	require.NoError(t, err)
	b, err := c.Resolve("c1", "v1", "PROD")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, *builds)

	_, err = c.Resolve("c1", "v2", "PROD")
	require.NoError(t, err)
	_, err = c.Resolve("c2", "v1", "SANDBOX")
	require.NoError(t, err)
	assert.Equal(t, 3, *builds)
	assert.Equal(t, 3, c.Len())
}

func TestResolveDefaultsEnvironmentToProd(t *testing.T) {
	c, builds := countingCache()
	_, err := c.Resolve("c1", "v1", "")
	require.NoError(t, err)
	_, err = c.Resolve("c1", "v1", "PROD")
	require.NoError(t, err)
	assert.Equal(t, 1, *builds)
}

func TestResolveRejectsBadInput(t *testing.T) {
	c, _ := countingCache()

	_, err := c.Resolve("c1", "v1", "staging")
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = c.Resolve("", "v1", "PROD")
	require.ErrorIs(t, err, types.ErrConfig)

	_, err = c.Resolve("c1", "", "PROD")
	require.ErrorIs(t, err, types.ErrConfig)
	assert.Equal(t, 0, c.Len())
}

func TestResolveConcurrentFirstAccess(t *testing.T) {
	c, builds := countingCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolve("c1", "v1", "PROD")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, *builds)
}
