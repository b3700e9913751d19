package sign

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	content := []byte(`{"skill_id":"weather_lookup"}`)
	sig := SignContent(kp.Private, content)
	pub := base64.StdEncoding.EncodeToString(kp.Public)

	ok, err := VerifySignature(pub, content, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	tampered := append([]byte(nil), content...)
	tampered[3] ^= 0x01
	ok, err = VerifySignature(pub, tampered, sig)
	if err != nil {
		t.Fatalf("verify tampered: %v", err)
	}
	if ok {
		t.Fatalf("expected tampered content to fail verification")
	}
}

func TestVerifySignatureWrongKey(t *testing.T) {
	kp1, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	kp2, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	sig := SignContent(kp1.Private, []byte("hello"))
	ok, err := VerifySignature(base64.StdEncoding.EncodeToString(kp2.Public), []byte("hello"), sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail with wrong key")
	}
}

func TestVerifySignatureDecodeErrors(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	pub := base64.StdEncoding.EncodeToString(kp.Public)
	sig := SignContent(kp.Private, []byte("hello"))
	short := base64.StdEncoding.EncodeToString([]byte("short"))

	cases := []struct {
		name string
		pub  string
		sig  string
		want error
	}{
		{name: "key_not_base64", pub: "%%%", sig: sig, want: ErrPublicKeyEncoding},
		{name: "key_short", pub: short, sig: sig, want: ErrPublicKeyLength},
		{name: "sig_not_base64", pub: pub, sig: "%%%", want: ErrSignatureEncoding},
		{name: "sig_short", pub: pub, sig: short, want: ErrSignatureLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := VerifySignature(tc.pub, []byte("hello"), tc.sig)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if ok {
				t.Fatalf("expected false verdict alongside error")
			}
		})
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("abc"))
	if a != ContentHash([]byte("abc")) {
		t.Fatalf("expected deterministic hash")
	}
	if a == ContentHash([]byte("abd")) {
		t.Fatalf("expected single byte change to alter hash")
	}
	sum := sha256.Sum256([]byte("abc"))
	if want := "sha256:" + hex.EncodeToString(sum[:]); a != want {
		t.Fatalf("unexpected hash: %s", a)
	}
}

func TestKeyFingerprint(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	fp, err := KeyFingerprint(base64.StdEncoding.EncodeToString(kp.Public))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	sum := sha256.Sum256(kp.Public)
	if want := "SHA256:" + base64.StdEncoding.EncodeToString(sum[:]); fp != want {
		t.Fatalf("unexpected fingerprint: %s", fp)
	}
	if _, err := KeyFingerprint("not base64!"); !errors.Is(err, ErrPublicKeyEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestParsePrivateKeyBase64SeedAndExpanded(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	fromSeed, err := ParsePrivateKeyBase64(base64.StdEncoding.EncodeToString(kp.Private.Seed()))
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	fromExpanded, err := ParsePrivateKeyBase64(base64.StdEncoding.EncodeToString(kp.Private))
	if err != nil {
		t.Fatalf("parse expanded: %v", err)
	}
	if !fromSeed.Equal(kp.Private) || !fromExpanded.Equal(kp.Private) {
		t.Fatalf("private key mismatch")
	}
	if _, err := ParsePrivateKeyBase64(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatalf("expected error for short private key")
	}
	if _, err := ParsePrivateKeyBase64("not-base64"); err == nil {
		t.Fatalf("expected error for invalid private key")
	}
}

func TestParsePublicKeyBase64(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	pub, err := ParsePublicKeyBase64(base64.StdEncoding.EncodeToString(kp.Public))
	if err != nil {
		t.Fatalf("parse public: %v", err)
	}
	if !ed25519.PublicKey(pub).Equal(kp.Public) {
		t.Fatalf("public key mismatch")
	}
	_, err = ParsePublicKeyBase64(base64.StdEncoding.EncodeToString(kp.Private))
	if err == nil || !strings.Contains(err.Error(), "64 bytes") {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestMatchesContentHash(t *testing.T) {
	content := []byte(`{"skill_id":"weather_lookup"}`)
	sum := sha256.Sum256(content)
	accepted := []string{
		ContentHash(content),
		base64.StdEncoding.EncodeToString(sum[:]),
		"sha256:" + base64.StdEncoding.EncodeToString(sum[:]),
	}
	for _, declared := range accepted {
		if !MatchesContentHash(declared, content) {
			t.Fatalf("expected %q to match", declared)
		}
	}
	if MatchesContentHash(ContentHash([]byte("other")), content) {
		t.Fatalf("expected mismatch for different content")
	}
	if MatchesContentHash("", content) {
		t.Fatalf("expected empty declaration to mismatch")
	}
}
