package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const AlgEd25519 = "Ed25519"

var (
	ErrPublicKeyEncoding = errors.New("invalid public key encoding")
	ErrPublicKeyLength   = errors.New("invalid public key length")
	ErrSignatureEncoding = errors.New("invalid signature encoding")
	ErrSignatureLength   = errors.New("invalid signature length")
)

type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// VerifySignature checks an Ed25519 signature over content. Malformed key or
// signature material is reported as an error, never as a false verdict.
func VerifySignature(publicKeyB64 string, content []byte, signatureB64 string) (bool, error) {
	pub, err := ParsePublicKeyBase64(publicKeyB64)
	if err != nil {
		return false, err
	}
	rawSig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignatureEncoding, err)
	}
	if l := len(rawSig); l != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: %d bytes, want %d", ErrSignatureLength, l, ed25519.SignatureSize)
	}
	return ed25519.Verify(pub, content, rawSig), nil
}

func SignContent(priv ed25519.PrivateKey, content []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, content))
}

// ContentHash renders the sha256 of content as "sha256:<hex>".
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// MatchesContentHash accepts a declared hash in "sha256:<hex>" form or as
// base64 of the raw digest, with or without the "sha256:" prefix.
func MatchesContentHash(declared string, content []byte) bool {
	sum := sha256.Sum256(content)
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	switch strings.TrimSpace(declared) {
	case "sha256:" + hex.EncodeToString(sum[:]), encoded, "sha256:" + encoded:
		return true
	default:
		return false
	}
}

// KeyFingerprint renders the sha256 of the decoded key bytes as "SHA256:<base64>".
func KeyFingerprint(publicKeyB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublicKeyEncoding, err)
	}
	sum := sha256.Sum256(raw)
	return "SHA256:" + base64.StdEncoding.EncodeToString(sum[:]), nil
}

func ParsePublicKeyBase64(encoded string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKeyEncoding, err)
	}
	if l := len(raw); l != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrPublicKeyLength, l, ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// ParsePrivateKeyBase64 accepts either a 32 byte seed or a 64 byte expanded key.
func ParsePrivateKeyBase64(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("invalid private key length: %d", len(raw))
	}
}
