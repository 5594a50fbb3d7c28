package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Setenv(PortEnvKey, "")
	t.Setenv(BatchSizeEnvKey, "")
	t.Setenv(ConfigFileEnvKey, "")
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment("PROD")
	require.NoError(t, err)
	assert.Equal(t, EnvProd, env)

	env, err = ParseEnvironment("SANDBOX")
	require.NoError(t, err)
	assert.Equal(t, EnvSandbox, env)

	env, err = ParseEnvironment("")
	require.NoError(t, err)
	assert.Equal(t, EnvProd, env)

	_, err = ParseEnvironment("prod")
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseOperation(t *testing.T) {
	for _, op := range []string{"tokenize", "tokenize_custom", "detokenize", "query"} {
		got, err := ParseOperation(op)
		require.NoError(t, err, op)
		assert.Equal(t, Operation(op), got)
	}
	_, err := ParseOperation("")
	require.ErrorIs(t, err, ErrConfig)
	_, err = ParseOperation("encrypt")
	require.ErrorIs(t, err, ErrConfig)
}

func TestLoadServiceConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := LoadServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSizes.Tokenize)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSizes.Detokenize)
}

func TestLoadServiceConfigFromYAML(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "service.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9090\nbatch_sizes:\n  tokenize: 10\n  tokenize_custom: 15\n  detokenize: 50\n"), 0o600))
	t.Setenv(ConfigFileEnvKey, path)

	cfg, err := LoadServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 10, cfg.BatchSizes.Tokenize)
	assert.Equal(t, 15, cfg.BatchSizes.TokenizeCustom)
	assert.Equal(t, 50, cfg.BatchSizes.Detokenize)
}

func TestLoadServiceConfigEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(PortEnvKey, "3000")
	t.Setenv(BatchSizeEnvKey, "5")

	cfg, err := LoadServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, BatchSizes{Tokenize: 5, TokenizeCustom: 5, Detokenize: 5}, cfg.BatchSizes)
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(BatchSizeEnvKey, "0")
	_, err := LoadServiceConfig()
	require.Error(t, err)

	t.Setenv(BatchSizeEnvKey, "abc")
	_, err = LoadServiceConfig()
	require.Error(t, err)
}

func TestBatchSizesFor(t *testing.T) {
	b := BatchSizes{Tokenize: 1, TokenizeCustom: 2, Detokenize: 3}
	assert.Equal(t, 1, b.For(OpTokenize))
	assert.Equal(t, 2, b.For(OpTokenizeCustom))
	assert.Equal(t, 3, b.For(OpDetokenize))
}
