package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stakegov/internal/governance"
)

// instructionManifest is the on-disk shape of a multi-instruction proposal
// batch: an operator-authored list of downstream calls to bundle into a
// single draft proposal via repeated PushInstruction requests.
type instructionManifest struct {
	Proposal     string `yaml:"proposal"`
	Author       string `yaml:"author"`
	Instructions []struct {
		TargetProgram string `yaml:"target_program"`
		Accounts      []struct {
			Key      string `yaml:"key"`
			Signer   bool   `yaml:"signer"`
			Writable bool   `yaml:"writable"`
		} `yaml:"accounts"`
		DataHex string `yaml:"data_hex"`
	} `yaml:"instructions"`
}

func runPushBatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("push-batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var endpoint, manifestPath, key string
	fs.StringVar(&endpoint, "endpoint", "", "stakegovd base URL")
	fs.StringVar(&manifestPath, "manifest", "", "path to a YAML instruction-batch manifest")
	fs.StringVar(&key, "key", "", "optional keystore path to sign each request envelope")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(manifestPath) == "" {
		fmt.Fprintln(stderr, "Error: --manifest is required")
		return 1
	}
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var manifest instructionManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		fmt.Fprintf(stderr, "Error: parse manifest: %v\n", err)
		return 1
	}
	proposalAddr, err := parseAddress(manifest.Proposal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: manifest proposal: %v\n", err)
		return 1
	}
	accounts, err := addressMap(map[string]string{"author": manifest.Author})
	if err != nil {
		fmt.Fprintf(stderr, "Error: manifest author: %v\n", err)
		return 1
	}
	signerKey, err := optionalSigner(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	client := newAPIClient(endpoint)
	for i, instr := range manifest.Instructions {
		targetProgram, err := parseAddress(instr.TargetProgram)
		if err != nil {
			fmt.Fprintf(stderr, "Error: instruction %d target_program: %v\n", i, err)
			return 1
		}
		metas := make([]governance.AccountMeta, 0, len(instr.Accounts))
		for _, a := range instr.Accounts {
			accAddr, err := parseAddress(a.Key)
			if err != nil {
				fmt.Fprintf(stderr, "Error: instruction %d account %q: %v\n", i, a.Key, err)
				return 1
			}
			metas = append(metas, governance.AccountMeta{Key: accAddr, IsSigner: a.Signer, IsWritable: a.Writable})
		}
		data, err := hex.DecodeString(strings.TrimPrefix(instr.DataHex, "0x"))
		if err != nil {
			fmt.Fprintf(stderr, "Error: instruction %d data_hex: %v\n", i, err)
			return 1
		}
		reqBytes := governance.EncodePushInstruction(governance.PushInstructionPayload{
			ProgramID:    targetProgram,
			AccountMetas: metas,
			Data:         data,
		})
		env, err := buildEnvelope(reqBytes, accounts, signerKey)
		if err != nil {
			fmt.Fprintf(stderr, "Error: instruction %d: %v\n", i, err)
			return 1
		}
		resp, err := client.post(fmt.Sprintf("/v1/proposals/%s/instructions", proposalAddr.String()), env, "")
		if err != nil {
			fmt.Fprintf(stderr, "Error: instruction %d: %v\n", i, err)
			return 1
		}
		fmt.Fprintf(stdout, "instruction %d: %s\n", i, string(resp))
	}
	return 0
}
