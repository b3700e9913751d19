package sign

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// KeyClass is the trust tier encoded in a namespaced key prefix.
type KeyClass string

const (
	KeyClassRoot         KeyClass = "root"
	KeyClassCI           KeyClass = "ci"
	KeyClassUnclassified KeyClass = "unclassified"
)

const (
	publicKeyPrefix  = "jade-pk-"
	privateKeyPrefix = "jade-sk-"
)

// Checked in order; the first matching prefix wins.
var publicKeyNamespaces = []struct {
	prefix string
	class  KeyClass
}{
	{prefix: publicKeyPrefix + string(KeyClassRoot) + "-", class: KeyClassRoot},
	{prefix: publicKeyPrefix + string(KeyClassCI) + "-", class: KeyClassCI},
}

type NamespacedKey struct {
	Class    KeyClass
	Material string
}

// ParsePublicKey strips a recognised namespace prefix. Anything else is
// returned unchanged as unclassified key material.
func ParsePublicKey(value string) NamespacedKey {
	for _, namespace := range publicKeyNamespaces {
		if strings.HasPrefix(value, namespace.prefix) {
			return NamespacedKey{Class: namespace.class, Material: strings.TrimPrefix(value, namespace.prefix)}
		}
	}
	return NamespacedKey{Class: KeyClassUnclassified, Material: value}
}

func ParseKeyClass(value string) (KeyClass, error) {
	switch KeyClass(strings.ToLower(strings.TrimSpace(value))) {
	case KeyClassRoot:
		return KeyClassRoot, nil
	case KeyClassCI:
		return KeyClassCI, nil
	case KeyClassUnclassified:
		return KeyClassUnclassified, nil
	default:
		return "", fmt.Errorf("unknown key class %q (want root, ci or unclassified)", value)
	}
}

func FormatPublicKey(class KeyClass, pub ed25519.PublicKey) string {
	encoded := base64.StdEncoding.EncodeToString(pub)
	if class == KeyClassUnclassified || class == "" {
		return encoded
	}
	return publicKeyPrefix + string(class) + "-" + encoded
}

func FormatPrivateKey(class KeyClass, priv ed25519.PrivateKey) string {
	encoded := base64.StdEncoding.EncodeToString(priv.Seed())
	if class == KeyClassUnclassified || class == "" {
		return encoded
	}
	return privateKeyPrefix + string(class) + "-" + encoded
}

// ParsePrivateKey reads "jade-sk-<role>-<base64>" or bare base64. Roles other
// than root and ci map to KeyClassUnclassified.
func ParsePrivateKey(value string) (ed25519.PrivateKey, KeyClass, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, privateKeyPrefix) {
		priv, err := ParsePrivateKeyBase64(trimmed)
		return priv, KeyClassUnclassified, err
	}
	rest := strings.TrimPrefix(trimmed, privateKeyPrefix)
	// base64 never contains '-', so the last dash separates role from key.
	cut := strings.LastIndex(rest, "-")
	if cut <= 0 {
		return nil, "", fmt.Errorf("invalid private key format: want %s<role>-<base64>", privateKeyPrefix)
	}
	priv, err := ParsePrivateKeyBase64(rest[cut+1:])
	if err != nil {
		return nil, "", err
	}
	class, err := ParseKeyClass(rest[:cut])
	if err != nil {
		class = KeyClassUnclassified
	}
	return priv, class, nil
}
