package sign

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSigningKeyFromEnv(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	t.Setenv("JADE_PRIVATE_KEY", FormatPrivateKey(KeyClassCI, kp.Private))

	loaded, err := LoadSigningKey(KeyConfig{PrivateKeyEnv: "JADE_PRIVATE_KEY"})
	if err != nil {
		t.Fatalf("load signing key: %v", err)
	}
	if loaded.Class != KeyClassCI {
		t.Fatalf("unexpected class: %s", loaded.Class)
	}
	if !loaded.Private.Equal(kp.Private) || !loaded.Public.Equal(kp.Public) {
		t.Fatalf("loaded keypair mismatch")
	}
}

func TestLoadSigningKeyFromPath(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	path := filepath.Join(t.TempDir(), "root_private.key")
	if err := os.WriteFile(path, []byte("  "+FormatPrivateKey(KeyClassRoot, kp.Private)+"\n"), 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	loaded, err := LoadSigningKey(KeyConfig{PrivateKeyPath: path})
	if err != nil {
		t.Fatalf("load signing key: %v", err)
	}
	if loaded.Class != KeyClassRoot || !loaded.Public.Equal(kp.Public) {
		t.Fatalf("unexpected loaded key class=%s", loaded.Class)
	}
}

func TestLoadSigningKeyErrors(t *testing.T) {
	if _, err := LoadSigningKey(KeyConfig{}); err == nil {
		t.Fatalf("expected error for missing key source")
	}
	if _, err := LoadSigningKey(KeyConfig{PrivateKeyPath: "a", PrivateKeyEnv: "B"}); err == nil {
		t.Fatalf("expected error for ambiguous key source")
	}
	if _, err := LoadSigningKey(KeyConfig{PrivateKeyEnv: "JADE_UNSET_PRIVATE_KEY"}); err == nil {
		t.Fatalf("expected error for unset env")
	}
	if _, err := LoadSigningKey(KeyConfig{PrivateKeyPath: filepath.Join(t.TempDir(), "missing.key")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
