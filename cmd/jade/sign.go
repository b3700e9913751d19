package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"strings"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/core/seal"
	"github.com/davidahmann/jadegate/core/sign"
	"github.com/davidahmann/jadegate/core/verifier"
)

type signOutput struct {
	OK            bool   `json:"ok"`
	Path          string `json:"path,omitempty"`
	Out           string `json:"out,omitempty"`
	SkillID       string `json:"skill_id,omitempty"`
	Signer        string `json:"signer,omitempty"`
	KeyClass      string `json:"key_class,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`
	SignedAt      string `json:"signed_at,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

func runSign(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("sign", arguments, "Sign seals a manifest with an Ed25519 key: the canonical content (everything except signatures) is hashed and signed, and jade_signature is written back. Manifests that fail the schema, graph or policy layers are refused.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"private-key":     true,
		"private-key-env": true,
		"role":            true,
		"signer":          true,
		"out":             true,
		"config":          true,
	})
	flagSet := flag.NewFlagSet("sign", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var privateKeyPath string
	var privateKeyEnv string
	var role string
	var signer string
	var outPath string
	var configPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&privateKeyPath, "private-key", "", "path to private key file")
	flagSet.StringVar(&privateKeyEnv, "private-key-env", "", "env var containing the private key")
	flagSet.StringVar(&role, "role", "", "key class recorded in the public key: root or ci")
	flagSet.StringVar(&signer, "signer", "", "signer identity recorded in jade_signature")
	flagSet.StringVar(&outPath, "out", "", "write the sealed manifest here instead of in place")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printSignUsage()
		return exitOK
	}
	remaining := flagSet.Args()
	if len(remaining) != 1 {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: "expected exactly one manifest path"}, exitInvalidInput)
	}
	path := remaining[0]
	if strings.TrimSpace(outPath) == "" {
		outPath = path
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeSignError(jsonOutput, path, err, exitInvalidInput)
	}
	if privateKeyPath == "" && privateKeyEnv == "" {
		privateKeyPath = configuration.Keys.PrivateKey
		privateKeyEnv = configuration.Keys.PrivateKeyEnv
	}
	if signer == "" {
		signer = configuration.Keys.Signer
	}
	if strings.TrimSpace(signer) == "" {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Path: path, Error: "signer is required (--signer or keys.signer)"}, exitInvalidInput)
	}

	key, err := sign.LoadSigningKey(sign.KeyConfig{PrivateKeyPath: privateKeyPath, PrivateKeyEnv: privateKeyEnv})
	if err != nil {
		err = coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "private_key_invalid", "pass --private-key or --private-key-env with a key from jade keys init")
		return writeSignError(jsonOutput, path, err, exitInvalidInput)
	}
	class := key.Class
	if role != "" {
		class, err = parseSigningRole(role)
		if err != nil {
			return writeSignError(jsonOutput, path, err, exitInvalidInput)
		}
	}

	m, err := manifest.ReadFile(path)
	if err != nil {
		return writeSignError(jsonOutput, path, err, exitInvalidInput)
	}
	unsigned := m
	unsigned.Signature = nil
	precheck := verifier.New(verifier.Options{Logger: newLogger(configuration.Log.Level)}).Verify(unsigned)
	if precheck.HasErrors() {
		err = coreerrors.Newf(coreerrors.CategoryVerification, "manifest_not_sealable", "run jade verify and fix the reported errors",
			"manifest has %d error(s) at layer %d; refusing to sign", precheck.Count(skill.SeverityError), precheck.LayersPassed+1)
		return writeSignError(jsonOutput, path, err, exitVerifyFailed)
	}

	sealed, err := seal.Seal(m, key.KeyPair, seal.Options{Signer: signer, Class: class})
	if err != nil {
		return writeSignError(jsonOutput, path, err, exitInternalFailure)
	}
	if err := manifest.WriteFile(outPath, sealed); err != nil {
		return writeSignError(jsonOutput, path, err, exitInternalFailure)
	}
	fingerprint, err := sign.KeyFingerprint(base64.StdEncoding.EncodeToString(key.Public))
	if err != nil {
		return writeSignError(jsonOutput, path, err, exitInternalFailure)
	}
	return writeSignOutput(jsonOutput, signOutput{
		OK:          true,
		Path:        path,
		Out:         outPath,
		SkillID:     sealed.SkillID,
		Signer:      sealed.Signature.Signer,
		KeyClass:    string(class),
		Fingerprint: fingerprint,
		ContentHash: sealed.Signature.ContentHash,
		SignedAt:    sealed.Signature.SignedAt,
	}, exitOK)
}

func parseSigningRole(value string) (sign.KeyClass, error) {
	class, err := sign.ParseKeyClass(value)
	if err == nil && class == sign.KeyClassUnclassified {
		err = fmt.Errorf("role must be root or ci")
	}
	if err != nil {
		return "", coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "role_invalid", "use --role root or --role ci")
	}
	return class, nil
}

func writeSignError(jsonOutput bool, path string, err error, fallbackExit int) int {
	code, hint := errorFields(err)
	return writeSignOutput(jsonOutput, signOutput{
		OK:            false,
		Path:          path,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: string(coreerrors.CategoryOf(err)),
		Hint:          hint,
	}, exitCodeForError(err, fallbackExit))
}

func writeSignOutput(jsonOutput bool, output signOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("sign ok: skill_id=%s signer=%s class=%s out=%s\n", output.SkillID, output.Signer, output.KeyClass, output.Out)
		fmt.Printf("  content_hash: %s\n", output.ContentHash)
		return exitCode
	}
	fmt.Printf("sign error: %s\n", output.Error)
	return exitCode
}

func printSignUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade sign <manifest.json> (--private-key <path>|--private-key-env <VAR>) [--role root|ci] [--signer <id>] [--out <path>] [--config <path>] [--json] [--explain]")
}
