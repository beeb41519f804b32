package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"stakegov/crypto"
)

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	fs.StringVar(&out, "keystore", "", "path to write a v3 keystore file (prompts for a passphrase)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	if strings.TrimSpace(out) == "" {
		fmt.Fprintf(stdout, "Private key (hex): %x\n", key.Bytes())
		return 0
	}
	passphrase, err := newPassphraseSource("STAKEGOV_KEYSTORE_PASSPHRASE").Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(out, key, passphrase); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved keystore to %s\n", out)
	return 0
}
