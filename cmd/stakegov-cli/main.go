// Command stakegov-cli is the operator/voter client for stakegovd: it
// builds the same wire-format request bytes the daemon's router decodes,
// optionally signs them with a local key, and posts them over HTTP.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "defaults":
		return runDefaults(args[1:], stdout, stderr)
	case "init-governance":
		return runInitGovernance(args[1:], stdout, stderr)
	case "propose":
		return runPropose(args[1:], stdout, stderr)
	case "push-instruction":
		return runPushInstruction(args[1:], stdout, stderr)
	case "remove-instruction":
		return runRemoveInstruction(args[1:], stdout, stderr)
	case "begin-voting":
		return runBeginVoting(args[1:], stdout, stderr)
	case "cancel":
		return runCancel(args[1:], stdout, stderr)
	case "vote":
		return runVote(args[1:], stdout, stderr)
	case "switch-vote":
		return runSwitchVote(args[1:], stdout, stderr)
	case "process":
		return runProcess(args[1:], stdout, stderr)
	case "show":
		return runShow(args[1:], stdout, stderr)
	case "audit":
		return runAudit(args[1:], stdout, stderr)
	case "encode-address":
		return runEncodeAddress(args[1:], stdout, stderr)
	case "decode-address":
		return runDecodeAddress(args[1:], stdout, stderr)
	case "push-batch":
		return runPushBatch(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return `Usage: stakegov-cli <command> [flags]

Commands:
  generate-key                 Generate a key and optionally save it to a keystore file
  defaults                     Show the daemon's configured governance policy defaults
  init-governance               Initialize a GovernanceConfig account (requires --admin-token)
  propose                       Create a proposal
  push-instruction               Append an instruction to a draft proposal
  remove-instruction              Remove an instruction from a draft proposal
  begin-voting                   Move a proposal from Draft into Voting
  cancel                         Cancel a proposal
  vote                           Cast a first vote on a proposal
  switch-vote                     Change an existing vote's election
  process                        Execute one accepted proposal's instruction
  show                           Fetch a proposal's current state
  audit                          Fetch a proposal's audit trail
  push-batch                      Push every instruction in a YAML manifest to a draft proposal
  encode-address                  Render a hex address in bech32
  decode-address                  Render a bech32 address in hex`
}
