package main

import (
	"flag"
	"fmt"
	"io"

	"stakegov/internal/address"
	"stakegov/internal/governance"
)

func runDefaults(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("defaults", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", "", "stakegovd base URL")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	data, err := newAPIClient(*endpoint).get("/v1/governance/defaults")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func runInitGovernance(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init-governance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		endpoint       string
		governanceHex  string
		stakeConfigHex string
		cooldown       uint64
		voting         uint64
		acceptance     uint64
		rejection      uint64
		adminToken     string
		keystorePath   string
	)
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&governanceHex, "governance", "", "hex address of the GovernanceConfig account to create")
	fs.StringVar(&stakeConfigHex, "stake-config", "", "hex address of the backing stake pool config")
	fs.Uint64Var(&cooldown, "cooldown-seconds", 0, "cooldown window in seconds")
	fs.Uint64Var(&voting, "voting-seconds", 0, "voting window in seconds")
	fs.Uint64Var(&acceptance, "acceptance-threshold", 0, "acceptance threshold, fixed-point out of 1e9")
	fs.Uint64Var(&rejection, "rejection-threshold", 0, "rejection threshold, fixed-point out of 1e9")
	fs.StringVar(&adminToken, "admin-token", "", "bearer token for the JWT-gated /v1/governance/init route")
	fs.StringVar(&keystorePath, "key", "", "optional keystore path to sign the request envelope")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	governanceAddr, err := parseAddress(governanceHex)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --governance: %v\n", err)
		return 1
	}
	stakeConfigAddr, err := parseAddress(stakeConfigHex)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --stake-config: %v\n", err)
		return 1
	}
	key, err := optionalSigner(keystorePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	reqBytes := governance.EncodeGovernanceParams(governance.KindInitializeGovernance, governance.GovernanceParams{
		CooldownPeriodSeconds:       cooldown,
		VotingPeriodSeconds:         voting,
		ProposalAcceptanceThreshold: uint32(acceptance),
		ProposalRejectionThreshold:  uint32(rejection),
	})
	env, err := buildEnvelope(reqBytes, map[string]address.Address{
		"governance":   governanceAddr,
		"stake_config": stakeConfigAddr,
	}, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	data, err := newAPIClient(endpoint).post("/v1/governance/init", env, adminToken)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}
