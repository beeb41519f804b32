package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is cmd/stakegovd's on-disk configuration. Load falls back to
// createDefault the first time it is pointed at a path that does not
// exist yet, writing the generated defaults back so later runs are
// reproducible.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`

	// ProgramIDHex is the hex-encoded 32-byte program identity every
	// derived address (internal/address) is hashed against. Fixed at
	// first run so existing derived addresses remain valid across restarts.
	ProgramIDHex string `toml:"ProgramIDHex"`

	Governance GovernanceDefaults `toml:"Governance"`

	AuditStoreDriver string `toml:"AuditStoreDriver"`
	AuditStoreDSN    string `toml:"AuditStoreDSN"`

	// StakeOracleSeedFile points at a YAML fixture of stake records loaded
	// into an in-process stakeoracle.MemReader at startup. There is no
	// live oracle client in this repository; a real deployment would swap
	// this field for a connection string once one exists.
	StakeOracleSeedFile string `toml:"StakeOracleSeedFile"`

	JWTSigningKey string `toml:"JWTSigningKey"`

	RateLimit RateLimitConfig `toml:"RateLimit"`
}

// GovernanceDefaults holds operator-configured policy values that stakegovd
// serves from GET /v1/governance/defaults. InitializeGovernance does not
// read them; its parameters always come from the request.
type GovernanceDefaults struct {
	CooldownPeriodSeconds       uint64 `toml:"CooldownPeriodSeconds"`
	VotingPeriodSeconds         uint64 `toml:"VotingPeriodSeconds"`
	ProposalAcceptanceThreshold uint32 `toml:"ProposalAcceptanceThreshold"`
	ProposalRejectionThreshold  uint32 `toml:"ProposalRejectionThreshold"`
}

// RateLimitConfig bounds the daemon's Vote/SwitchVote endpoints.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	dirty := false
	if cfg.JWTSigningKey == "" {
		key, err := randomHex(32)
		if err != nil {
			return nil, err
		}
		cfg.JWTSigningKey = key
		dirty = true
	}
	if cfg.ProgramIDHex == "" {
		programID, err := randomHex(32)
		if err != nil {
			return nil, err
		}
		cfg.ProgramIDHex = programID
		dirty = true
	}
	if dirty {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	programID, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./stakegov-data",
		ProgramIDHex:  programID,
		Governance: GovernanceDefaults{
			CooldownPeriodSeconds:       86_400,
			VotingPeriodSeconds:         259_200,
			ProposalAcceptanceThreshold: 500_000_000,
			ProposalRejectionThreshold:  500_000_000,
		},
		AuditStoreDriver: "sqlite",
		AuditStoreDSN:    "./stakegov-data/audit.db",
		JWTSigningKey:    key,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
