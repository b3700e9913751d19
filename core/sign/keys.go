package sign

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"
)

type KeyConfig struct {
	PrivateKeyPath string
	PrivateKeyEnv  string
}

type SigningKey struct {
	KeyPair
	Class KeyClass
}

func (cfg KeyConfig) hasPrivateSource() bool {
	return cfg.PrivateKeyPath != "" || cfg.PrivateKeyEnv != ""
}

// LoadSigningKey reads a private key from exactly one of a file or an
// environment variable.
func LoadSigningKey(cfg KeyConfig) (SigningKey, error) {
	if cfg.PrivateKeyPath != "" && cfg.PrivateKeyEnv != "" {
		return SigningKey{}, fmt.Errorf("private key source: set either path or env")
	}
	if !cfg.hasPrivateSource() {
		return SigningKey{}, fmt.Errorf("private key not configured")
	}
	var encoded string
	if cfg.PrivateKeyPath != "" {
		// #nosec G304 -- key path is explicit local user input.
		content, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return SigningKey{}, fmt.Errorf("read private key: %w", err)
		}
		encoded = string(content)
	} else {
		value, ok := readEnvValue(cfg.PrivateKeyEnv)
		if !ok {
			return SigningKey{}, fmt.Errorf("private key env not set: %s", cfg.PrivateKeyEnv)
		}
		encoded = value
	}
	priv, class, err := ParsePrivateKey(encoded)
	if err != nil {
		return SigningKey{}, err
	}
	return SigningKey{
		KeyPair: KeyPair{Public: priv.Public().(ed25519.PublicKey), Private: priv},
		Class:   class,
	}, nil
}

func readEnvValue(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false
	}
	return val, true
}
