package signer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DecodePublicKey accepts a public key as either an npub identifier or
// raw hex and returns the hex form. This is how user-entered recipient
// keys are normalized before relay queries.
func DecodePublicKey(address string) (string, error) {
	if strings.HasPrefix(address, "npub1") {
		raw, err := decodeBech32Key("npub", address)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(raw), nil
	}
	raw, err := hex.DecodeString(address)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("public key must be 32 bytes, got %d", len(raw))
	}
	return address, nil
}

// FromNsec loads a private key from its bech32 nsec form.
func FromNsec(nsec string) (*LocalSigner, error) {
	raw, err := decodeBech32Key("nsec", nsec)
	if err != nil {
		return nil, err
	}
	return fromKey(secp256k1.PrivKeyFromBytes(raw)), nil
}

func decodeBech32Key(wantHRP, s string) ([]byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wantHRP, err)
	}
	if hrp != wantHRP {
		return nil, fmt.Errorf("unexpected prefix %q, want %q", hrp, wantHRP)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wantHRP, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%s key must be 32 bytes, got %d", wantHRP, len(raw))
	}
	return raw, nil
}
