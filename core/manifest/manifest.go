package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/fsx"
	"github.com/davidahmann/jadegate/core/jcs"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/core/schema/validate"
)

const MaxManifestBytes int64 = 4 << 20

const (
	CodeUnreadable   = "manifest_unreadable"
	CodeTooLarge     = "manifest_too_large"
	CodeInvalidJSON  = "manifest_invalid_json"
	CodeInvalidShape = "manifest_invalid_shape"
)

//go:embed schema/manifest.schema.json
var shapeSchemaJSON []byte

var shapeSchema = sync.OnceValues(func() (*validate.Schema, error) {
	return validate.Compile(shapeSchemaJSON)
})

// CheckShapeSchema reports whether the embedded shape schema compiles.
func CheckShapeSchema() error {
	_, err := shapeSchema()
	return err
}

// Parse decodes raw manifest JSON. Syntax and shape failures are classified
// invalid_input; content defects are left to the verifier.
func Parse(raw []byte) (skill.Manifest, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return skill.Manifest{}, coreerrors.Wrap(
			fmt.Errorf("parse manifest: %w", err),
			coreerrors.CategoryInvalidInput,
			CodeInvalidJSON,
			"manifest must be a single UTF-8 JSON document",
		)
	}
	schema, err := shapeSchema()
	if err != nil {
		return skill.Manifest{}, coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "manifest_schema_compile", "")
	}
	if err := validate.Validate(schema, raw); err != nil {
		return skill.Manifest{}, coreerrors.Wrap(
			fmt.Errorf("manifest shape: %w", err),
			coreerrors.CategoryInvalidInput,
			CodeInvalidShape,
			"check field types against the manifest format",
		)
	}
	var m skill.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return skill.Manifest{}, coreerrors.Wrap(
			fmt.Errorf("decode manifest: %w", err),
			coreerrors.CategoryInvalidInput,
			CodeInvalidShape,
			"check field types against the manifest format",
		)
	}
	return m, nil
}

func ReadFile(path string) (skill.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return skill.Manifest{}, coreerrors.Wrap(fmt.Errorf("stat manifest: %w", err), coreerrors.CategoryIOFailure, CodeUnreadable, "check the manifest path")
	}
	if info.Size() > MaxManifestBytes {
		return skill.Manifest{}, coreerrors.Newf(coreerrors.CategoryInvalidInput, CodeTooLarge, "", "manifest exceeds size limit (%d bytes)", MaxManifestBytes)
	}
	// #nosec G304 -- manifest path is explicit local user input.
	raw, err := os.ReadFile(path)
	if err != nil {
		return skill.Manifest{}, coreerrors.Wrap(fmt.Errorf("read manifest: %w", err), coreerrors.CategoryIOFailure, CodeUnreadable, "check the manifest path")
	}
	return Parse(raw)
}

// CanonicalContent is the JCS form of the manifest with both signature
// fields cleared. This is the exact payload a primary signature covers.
func CanonicalContent(m skill.Manifest) ([]byte, error) {
	content, err := jcs.Marshal(m.Signable())
	if err != nil {
		return nil, fmt.Errorf("canonical content: %w", err)
	}
	return content, nil
}

// Encode renders the manifest as indented JSON with a trailing newline.
func Encode(m skill.Manifest) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buffer.Bytes(), nil
}

func WriteFile(path string, m skill.Manifest) error {
	encoded, err := Encode(m)
	if err != nil {
		return err
	}
	if err := fsx.WriteFileAtomic(path, encoded, 0o644); err != nil {
		return coreerrors.Wrap(fmt.Errorf("write manifest: %w", err), coreerrors.CategoryIOFailure, "manifest_write_failed", "")
	}
	return nil
}
