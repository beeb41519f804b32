package crypto_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakegov/crypto"
)

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "voter.keystore")
	require.NoError(t, crypto.SaveToKeystore(path, key, "correct-passphrase"))

	loaded, err := crypto.LoadFromKeystore(path, "correct-passphrase")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())
}

func TestKeystoreRejectsWrongPassphrase(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "voter.keystore")
	require.NoError(t, crypto.SaveToKeystore(path, key, "correct-passphrase"))

	_, err = crypto.LoadFromKeystore(path, "wrong-passphrase")
	require.Error(t, err)
}

func TestLoadFromKeystoreRejectsEmptyPath(t *testing.T) {
	_, err := crypto.LoadFromKeystore("", "whatever")
	require.Error(t, err)
}
