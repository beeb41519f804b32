package main

import (
	"flag"
	"fmt"
	"io"

	"stakegov/internal/address"
)

func runEncodeAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("encode-address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: stakegov-cli encode-address <hex-address>")
		return 1
	}
	addr, err := parseHexAddress(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.Bech32())
	return 0
}

func runDecodeAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode-address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: stakegov-cli decode-address <bech32-address>")
		return 1
	}
	addr, err := address.ParseBech32(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}
