package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"

	"stakegov/crypto"
	"stakegov/internal/address"
	"stakegov/internal/governance"
)

func runPropose(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("propose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, author, stake, gov, proposal, key string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&author, "author", "", "hex address of the proposing stake authority")
	fs.StringVar(&stake, "stake", "", "hex address of the author's stake record")
	fs.StringVar(&gov, "governance", "", "hex address of the GovernanceConfig account")
	fs.StringVar(&proposal, "proposal", "", "hex address to create the proposal at")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	accounts, signerKey, err := resolveAccounts(stderr, key, map[string]string{
		"author": author, "stake": stake, "governance": gov, "proposal": proposal,
	})
	if err != nil {
		return 1
	}
	env, err := buildEnvelope(governance.EncodeCreateProposal(), accounts, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	data, err := newAPIClient(endpoint).post("/v1/proposals/", env, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func runPushInstruction(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("push-instruction", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal, author, key, programID, metasFlag, dataHex string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	fs.StringVar(&author, "author", "", "hex address of the proposal's author")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	fs.StringVar(&programID, "target-program", "", "hex address of the downstream program this instruction calls")
	fs.StringVar(&metasFlag, "accounts", "", "comma-separated key:signer:writable triples, e.g. addr:true:false,addr2:false:true")
	fs.StringVar(&dataHex, "data", "", "hex-encoded instruction data")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	targetProgram, err := parseAddress(programID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --target-program: %v\n", err)
		return 1
	}
	metas, err := parseAccountMetas(metasFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --accounts: %v\n", err)
		return 1
	}
	data, err := hex.DecodeString(strings.TrimPrefix(dataHex, "0x"))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --data: %v\n", err)
		return 1
	}
	signerKey, err := optionalSigner(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	accounts, err := addressMap(map[string]string{"author": author})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	reqBytes := governance.EncodePushInstruction(governance.PushInstructionPayload{
		ProgramID:    targetProgram,
		AccountMetas: metas,
		Data:         data,
	})
	env, err := buildEnvelope(reqBytes, accounts, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	resp, err := newAPIClient(endpoint).post(fmt.Sprintf("/v1/proposals/%s/instructions", proposalAddr.String()), env, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(resp))
	return 0
}

func runRemoveInstruction(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("remove-instruction", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal, author, key string
	var index uint
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	fs.StringVar(&author, "author", "", "hex address of the proposal's author")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	fs.UintVar(&index, "index", 0, "index of the instruction to remove")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	signerKey, err := optionalSigner(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	accounts, err := addressMap(map[string]string{"author": author})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	env, err := buildEnvelope(governance.EncodeRemoveInstruction(uint32(index)), accounts, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	resp, err := newAPIClient(endpoint).delete(fmt.Sprintf("/v1/proposals/%s/instructions/%d", proposalAddr.String(), index), env)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(resp))
	return 0
}

func runBeginVoting(args []string, stdout, stderr io.Writer) int {
	return runSimpleProposalAction(args, stdout, stderr, "begin-voting", "/begin-voting", governance.EncodeBeginVoting())
}

func runCancel(args []string, stdout, stderr io.Writer) int {
	return runSimpleProposalAction(args, stdout, stderr, "cancel", "/cancel", governance.EncodeCancelProposal())
}

func runSimpleProposalAction(args []string, stdout, stderr io.Writer, name, suffix string, reqBytes []byte) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal, author, key string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	fs.StringVar(&author, "author", "", "hex address of the proposal's author")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	signerKey, err := optionalSigner(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	accounts, err := addressMap(map[string]string{"author": author})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	env, err := buildEnvelope(reqBytes, accounts, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	resp, err := newAPIClient(endpoint).post(fmt.Sprintf("/v1/proposals/%s%s", proposalAddr.String(), suffix), env, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(resp))
	return 0
}

func runProcess(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal, key, metasFlag string
	var index uint
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	fs.StringVar(&key, "key", "", "optional keystore path to sign the request envelope")
	fs.UintVar(&index, "index", 0, "index of the instruction to execute")
	fs.StringVar(&metasFlag, "tail-accounts", "", "comma-separated key:signer:writable triples the downstream instruction needs")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	tailMetas, err := parseAccountMetas(metasFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --tail-accounts: %v\n", err)
		return 1
	}
	signerKey, err := optionalSigner(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	env, err := buildEnvelope(governance.EncodeProcessInstruction(uint32(index)), map[string]address.Address{}, signerKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	env = withTailAccounts(env, toAccountMetaJSON(tailMetas))
	resp, err := newAPIClient(endpoint).post(fmt.Sprintf("/v1/proposals/%s/instructions/%d/process", proposalAddr.String(), index), env, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(resp))
	return 0
}

func runShow(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	data, err := newAPIClient(endpoint).get("/v1/proposals/" + proposalAddr.String())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func runAudit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, proposal string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&proposal, "proposal", "", "hex address of the proposal")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proposalAddr, err := parseAddress(proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid --proposal: %v\n", err)
		return 1
	}
	data, err := newAPIClient(endpoint).get("/v1/proposals/" + proposalAddr.String() + "/audit")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func addressMap(named map[string]string) (map[string]address.Address, error) {
	out := make(map[string]address.Address, len(named))
	for name, raw := range named {
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = addr
	}
	return out, nil
}

func resolveAccounts(stderr io.Writer, keystorePath string, named map[string]string) (map[string]address.Address, *crypto.PrivateKey, error) {
	accounts, err := addressMap(named)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, err
	}
	key, err := optionalSigner(keystorePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, err
	}
	return accounts, key, nil
}

// parseAccountMetas parses "key:signer:writable,..." into AccountMetas.
func parseAccountMetas(raw string) ([]governance.AccountMeta, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	metas := make([]governance.AccountMeta, 0, len(parts))
	for _, p := range parts {
		fields := strings.Split(p, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("expected key:signer:writable, got %q", p)
		}
		key, err := parseAddress(fields[0])
		if err != nil {
			return nil, err
		}
		metas = append(metas, governance.AccountMeta{
			Key:        key,
			IsSigner:   fields[1] == "true",
			IsWritable: fields[2] == "true",
		})
	}
	return metas, nil
}

func toAccountMetaJSON(metas []governance.AccountMeta) []accountMetaJSON {
	out := make([]accountMetaJSON, 0, len(metas))
	for _, m := range metas {
		out = append(out, accountMetaJSON{Key: m.Key.String(), IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	return out
}
