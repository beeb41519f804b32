package crypto_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"stakegov/crypto"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("push-instruction"))
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	ok, err := crypto.Verify(digest[:], sig, key.PubKey())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("vote"))
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	ok, err := crypto.Verify(digest[:], sig, other.PubKey())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignHexIsPrefixed(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("switch-vote"))
	sigHex, err := crypto.SignHex(digest[:], key)
	require.NoError(t, err)
	require.Regexp(t, "^0x[0-9a-f]{130}$", sigHex)
}

func TestSignRejectsShortDigest(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = crypto.Sign([]byte("too-short"), key)
	require.Error(t, err)
}

func TestRecoverAddressMatchesSigner(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("begin-voting"))
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	addr, err := crypto.RecoverAddress(digest[:], sig)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), addr.String())
}
