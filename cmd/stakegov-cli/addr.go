package main

import (
	"encoding/hex"
	"strings"

	"stakegov/crypto"
	"stakegov/internal/address"
)

func parseHexAddress(s string) (address.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return address.Address{}, err
	}
	return address.FromBytes(b)
}

// parseAddress accepts either the hex form the daemon's wire format uses or
// the bech32 form operators type on the command line, so every --*-addr
// flag in this CLI works with both.
func parseAddress(s string) (address.Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "stkgov1") {
		return address.ParseBech32(s)
	}
	return parseHexAddress(strings.TrimPrefix(s, "0x"))
}

// optionalSigner loads the keystore at path if non-empty, returning nil
// otherwise so commands can send unsigned envelopes during local testing.
func optionalSigner(path string) (*crypto.PrivateKey, error) {
	if path == "" {
		return nil, nil
	}
	return loadKey(path)
}
