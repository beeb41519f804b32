package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"stakegov/internal/governance"
)

func runVote(args []string, stdout, stderr io.Writer) int {
	return runVoteAction(args, stdout, stderr, "vote", true)
}

func runSwitchVote(args []string, stdout, stderr io.Writer) int {
	return runVoteAction(args, stdout, stderr, "switch-vote", false)
}

func runVoteAction(args []string, stdout, stderr io.Writer, name string, create bool) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal, voter, stake, stakeConfig, election, key string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	fs.StringVar(&voter, "voter", "", "hex address of the voter's stake authority")
	fs.StringVar(&stake, "stake", "", "hex address of the voter's stake record")
	fs.StringVar(&stakeConfig, "stake-config", "", "hex address of the backing stake pool config")
	fs.StringVar(&election, "election", "", "for|against|did_not_vote")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	electionValue, err := parseElection(election)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	accounts, signerKey, err := resolveAccounts(stderr, key, map[string]string{
		"voter": voter, "stake": stake, "stake_config": stakeConfig,
	})
	if err != nil {
		return 1
	}
	var reqBytes []byte
	if create {
		reqBytes = governance.EncodeVote(electionValue)
	} else {
		reqBytes = governance.EncodeSwitchVote(electionValue)
	}
	env, err := buildEnvelope(reqBytes, accounts, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	client := newAPIClient(endpoint)
	path := fmt.Sprintf("/v1/proposals/%s/votes", proposalAddr.String())
	var resp []byte
	if create {
		resp, err = client.post(path, env, "")
	} else {
		resp, err = client.put(path, env)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(resp))
	return 0
}

func parseElection(s string) (governance.Election, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "for":
		return governance.ElectionFor, nil
	case "against":
		return governance.ElectionAgainst, nil
	case "did_not_vote", "abstain":
		return governance.ElectionDidNotVote, nil
	default:
		return 0, fmt.Errorf("--election must be one of for, against, did_not_vote, got %q", s)
	}
}
