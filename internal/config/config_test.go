package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndFactorTable(t *testing.T) {
	path := writeTempConfig(t, "webhook:\n  bearer_token: secret\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Store.MaxOpenConns)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Timezone)
	assert.Len(t, cfg.Factors, 23)
}

func TestLoad_RejectsMissingBearerToken(t *testing.T) {
	path := writeTempConfig(t, "store:\n  max_open_conns: 5\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsDuplicateFactorID(t *testing.T) {
	path := writeTempConfig(t, `
webhook:
  bearer_token: secret
factors:
  - factor_id: vix_regime
    weight: 0.5
    staleness_hours: 4
  - factor_id: vix_regime
    weight: 0.5
    staleness_hours: 4
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestNormalizeFactorWeights(t *testing.T) {
	normalized := NormalizeFactorWeights(DefaultFactorConfigs())

	var sum float64
	for _, f := range normalized {
		sum += f.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
