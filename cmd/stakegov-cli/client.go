package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakegov/crypto"
	"stakegov/internal/address"
)

const defaultEndpoint = "http://localhost:8080"

// accountMetaJSON mirrors cmd/stakegovd's wire shape for tail accounts.
type accountMetaJSON struct {
	Key        string `json:"key"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// envelope mirrors cmd/stakegovd's request body shape exactly: the CLI and
// the daemon are two ends of the same wire format defined by
// internal/governance/router.go.
type envelope struct {
	Request      string            `json:"request"`
	Accounts     map[string]string `json:"accounts"`
	TailAccounts []accountMetaJSON `json:"tail_accounts,omitempty"`
	SignatureHex string            `json:"signature,omitempty"`
	PublicKeyHex string            `json:"public_key,omitempty"`
}

// buildEnvelope assembles an envelope from encoded request bytes and named
// account addresses. If key is non-nil, the envelope is signed over a
// sha256 digest of the raw request bytes, matching cmd/stakegovd's
// verifyEnvelopeSignature.
func buildEnvelope(requestBytes []byte, accounts map[string]address.Address, key *crypto.PrivateKey) (envelope, error) {
	env := envelope{
		Request:  base64.StdEncoding.EncodeToString(requestBytes),
		Accounts: make(map[string]string, len(accounts)),
	}
	for name, addr := range accounts {
		env.Accounts[name] = addr.String()
	}
	if key != nil {
		digest := sha256.Sum256(requestBytes)
		sigHex, err := crypto.SignHex(digest[:], key)
		if err != nil {
			return envelope{}, fmt.Errorf("sign request: %w", err)
		}
		env.SignatureHex = sigHex
		env.PublicKeyHex = "0x" + hex.EncodeToString(ethcrypto.FromECDSAPub(key.PubKey().PublicKey))
	}
	return env, nil
}

func withTailAccounts(env envelope, metas []accountMetaJSON) envelope {
	env.TailAccounts = metas
	return env
}

type apiClient struct {
	endpoint string
	http     *http.Client
}

func newAPIClient(endpoint string) *apiClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &apiClient{endpoint: endpoint, http: &http.Client{Timeout: 15 * time.Second}}
}

func (c *apiClient) post(path string, env envelope, bearer string) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req)
}

func (c *apiClient) delete(path string, env envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	req, err := http.NewRequest(http.MethodDelete, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *apiClient) put(path string, env envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	req, err := http.NewRequest(http.MethodPut, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *apiClient) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *apiClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stakegovd returned %s: %s", resp.Status, string(data))
	}
	return data, nil
}
