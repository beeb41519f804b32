package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stakegov/internal/address"
	"stakegov/internal/stakeoracle"
)

// stakeFixture is the on-disk shape of a stake oracle seed file: a flat
// snapshot of the foreign staking program's state, loaded once at startup
// since this repository has no live oracle client to sync from.
type stakeFixture struct {
	Configs []struct {
		Address             string `yaml:"address"`
		TotalDelegatedStake uint64 `yaml:"total_delegated_stake"`
	} `yaml:"configs"`
	Records []struct {
		Address       string `yaml:"address"`
		Authority     string `yaml:"authority"`
		ValidatorVote string `yaml:"validator_vote"`
		StakeConfig   string `yaml:"stake_config"`
		Amount        uint64 `yaml:"amount"`
	} `yaml:"records"`
}

func seedStakeOracle(path string, reader *stakeoracle.MemReader) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("stakeseed: read %s: %w", path, err)
	}
	var fixture stakeFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("stakeseed: parse %s: %w", path, err)
	}
	for _, c := range fixture.Configs {
		addr, err := parseHexAddress(c.Address)
		if err != nil {
			return fmt.Errorf("stakeseed: config %q: %w", c.Address, err)
		}
		reader.PutStakeConfig(stakeoracle.StakeConfig{Address: addr, TotalDelegatedStake: c.TotalDelegatedStake})
	}
	for _, rec := range fixture.Records {
		addr, err := parseHexAddress(rec.Address)
		if err != nil {
			return fmt.Errorf("stakeseed: record %q: %w", rec.Address, err)
		}
		authority, err := parseHexAddress(rec.Authority)
		if err != nil {
			return fmt.Errorf("stakeseed: authority %q: %w", rec.Authority, err)
		}
		validatorVote, err := parseHexAddress(rec.ValidatorVote)
		if err != nil {
			return fmt.Errorf("stakeseed: validator_vote %q: %w", rec.ValidatorVote, err)
		}
		stakeConfig, err := parseHexAddress(rec.StakeConfig)
		if err != nil {
			return fmt.Errorf("stakeseed: stake_config %q: %w", rec.StakeConfig, err)
		}
		reader.PutStakeRecord(stakeoracle.StakeRecord{
			Address:       addr,
			Authority:     authority,
			ValidatorVote: validatorVote,
			StakeConfig:   stakeConfig,
			Amount:        rec.Amount,
		})
	}
	return nil
}

func parseHexAddress(s string) (address.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return address.Address{}, err
	}
	return address.FromBytes(b)
}
