package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakegov/config"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stakegovd.toml")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "sqlite", cfg.AuditStoreDriver)
	require.NotEmpty(t, cfg.JWTSigningKey)
	require.NotEmpty(t, cfg.ProgramIDHex)
	require.Equal(t, uint64(86_400), cfg.Governance.CooldownPeriodSeconds)

	require.FileExists(t, path)
}

func TestLoadBackfillsMissingJWTSigningKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stakegovd.toml")
	contents := `ListenAddress = ":9090"
DataDir = "./data"
ProgramIDHex = "aabb"
AuditStoreDriver = "sqlite"
AuditStoreDSN = "./data/audit.db"

[Governance]
CooldownPeriodSeconds = 1
VotingPeriodSeconds = 2
ProposalAcceptanceThreshold = 3
ProposalRejectionThreshold = 4

[RateLimit]
RequestsPerSecond = 1.0
Burst = 1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.JWTSigningKey)
	require.Equal(t, ":9090", cfg.ListenAddress)

	reloaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.JWTSigningKey, reloaded.JWTSigningKey)
}

func TestLoadPreservesProgramIDAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stakegovd.toml")

	first, err := config.Load(path)
	require.NoError(t, err)

	second, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, first.ProgramIDHex, second.ProgramIDHex)
}
