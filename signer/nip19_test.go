package signer

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeBech32Key(t *testing.T, hrp, keyHex string) string {
	t.Helper()
	raw, err := hex.DecodeString(keyHex)
	require.NoError(t, err)
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	s, err := bech32.Encode(hrp, conv)
	require.NoError(t, err)
	return s
}

func TestDecodePublicKeyNpub(t *testing.T) {
	s, err := NewLocalSigner()
	require.NoError(t, err)
	pubHex, err := s.PublicKey(context.Background())
	require.NoError(t, err)

	npub := encodeBech32Key(t, "npub", pubHex)
	got, err := DecodePublicKey(npub)
	require.NoError(t, err)
	assert.Equal(t, pubHex, got)

	// Raw hex passes through unchanged.
	got, err = DecodePublicKey(pubHex)
	require.NoError(t, err)
	assert.Equal(t, pubHex, got)
}

func TestDecodePublicKeyRejectsBadInput(t *testing.T) {
	s, err := NewLocalSigner()
	require.NoError(t, err)
	pubHex, err := s.PublicKey(context.Background())
	require.NoError(t, err)

	for _, input := range []string{
		"",
		"not-a-key",
		"abcd", // hex but not 32 bytes
		encodeBech32Key(t, "nsec", pubHex), // wrong prefix
		"npub1corrupted",
	} {
		_, err := DecodePublicKey(input)
		assert.Error(t, err, input)
	}
}

func TestFromNsec(t *testing.T) {
	const privHex = "0000000000000000000000000000000000000000000000000000000000000001"
	fromHex, err := FromHex(privHex)
	require.NoError(t, err)

	fromNsec, err := FromNsec(encodeBech32Key(t, "nsec", privHex))
	require.NoError(t, err)

	wantPub, err := fromHex.PublicKey(context.Background())
	require.NoError(t, err)
	gotPub, err := fromNsec.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wantPub, gotPub)

	_, err = FromNsec("nsec1corrupted")
	assert.Error(t, err)
}
