package seal

import (
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/core/sign"
)

type Options struct {
	Signer string
	Class  sign.KeyClass
	Now    time.Time
}

// Seal signs the canonical content of m and returns a copy carrying the new
// primary signature. Existing community signatures are kept but, like any
// previous primary signature, are not part of the signed content.
func Seal(m skill.Manifest, key sign.KeyPair, opts Options) (skill.Manifest, error) {
	if len(key.Private) != ed25519.PrivateKeySize {
		return skill.Manifest{}, fmt.Errorf("seal: private key required")
	}
	signer := strings.TrimSpace(opts.Signer)
	if signer == "" {
		return skill.Manifest{}, fmt.Errorf("seal: signer required")
	}
	class := opts.Class
	if class == "" {
		class = sign.KeyClassUnclassified
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	content, err := manifest.CanonicalContent(m)
	if err != nil {
		return skill.Manifest{}, fmt.Errorf("seal: %w", err)
	}
	public, ok := key.Private.Public().(ed25519.PublicKey)
	if !ok {
		return skill.Manifest{}, fmt.Errorf("seal: derive public key")
	}

	sealed := m
	sealed.Signature = &skill.Signature{
		Signer:      signer,
		Algorithm:   sign.AlgEd25519,
		PublicKey:   sign.FormatPublicKey(class, public),
		ContentHash: sign.ContentHash(content),
		Signature:   sign.SignContent(key.Private, content),
		SignedAt:    now.UTC().Format(time.RFC3339),
	}
	return sealed, nil
}
