// Package signer provides a local secp256k1 key implementing the ledger
// Signer port, for use when no wallet-extension signer is available.
package signer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/Vib-UX/dca-bitcoin/ledger"
)

// LocalSigner signs events with an in-memory secp256k1 key.
type LocalSigner struct {
	priv   *secp256k1.PrivateKey
	pubHex string
}

// NewLocalSigner generates a fresh key.
func NewLocalSigner() (*LocalSigner, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromKey(priv), nil
}

// FromHex loads a 32-byte private key from hex.
func FromHex(keyHex string) (*LocalSigner, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	return fromKey(secp256k1.PrivKeyFromBytes(raw)), nil
}

func fromKey(priv *secp256k1.PrivateKey) *LocalSigner {
	// x-only public key, as relays expect.
	pub := priv.PubKey().SerializeCompressed()[1:]
	return &LocalSigner{priv: priv, pubHex: hex.EncodeToString(pub)}
}

// PublicKey returns the x-only public key in hex.
func (s *LocalSigner) PublicKey(_ context.Context) (string, error) {
	return s.pubHex, nil
}

// Sign fills in the event's author, id and signature.
func (s *LocalSigner) Sign(_ context.Context, ev *ledger.RawEvent) error {
	ev.Pubkey = s.pubHex

	digest, err := eventDigest(ev)
	if err != nil {
		return err
	}
	ev.ID = hex.EncodeToString(digest)

	sig, err := schnorr.Sign(s.priv, digest)
	if err != nil {
		return fmt.Errorf("schnorr sign: %w", err)
	}
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// eventDigest hashes the canonical serialization
// [0, pubkey, created_at, kind, tags, content].
func eventDigest(ev *ledger.RawEvent) ([]byte, error) {
	tags := ev.Tags
	if tags == nil {
		tags = [][]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{0, ev.Pubkey, ev.CreatedAt, ev.Kind, tags, ev.Content}); err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	// Encode appends a newline the canonical form does not include.
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	sum := sha256.Sum256(raw)
	return sum[:], nil
}
