package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Sign produces a secp256k1 signature over digest (expected to already be a
// 32-byte hash, as cmd/stakegov-cli computes for each request it submits).
func Sign(digest []byte, key *PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("crypto: nil private key")
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("crypto: digest must be 32 bytes, got %d", len(digest))
	}
	return ethcrypto.Sign(digest, key.PrivateKey)
}

// SignHex is Sign with a "0x"-prefixed hex-encoded result, the shape
// cmd/stakegov-cli attaches to outgoing requests.
func SignHex(digest []byte, key *PrivateKey) (string, error) {
	sig, err := Sign(digest, key)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Verify recovers the signer's public key from sig over digest and reports
// whether it matches expected.
func Verify(digest []byte, sig []byte, expected *PublicKey) (bool, error) {
	if expected == nil {
		return false, errors.New("crypto: nil expected public key")
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}
	recovered, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return false, err
	}
	return recovered.Equal(expected.PublicKey), nil
}

// RecoverAddress recovers the signer's Address from sig over digest, for
// callers that authenticate by signature alone rather than a known key.
func RecoverAddress(digest []byte, sig []byte) (Address, error) {
	if len(sig) != 65 {
		return Address{}, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, err
	}
	return (&PublicKey{PublicKey: pub}).Address(), nil
}
