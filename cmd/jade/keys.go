package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/fsx"
	"github.com/davidahmann/jadegate/core/sign"
)

type keysInitOutput struct {
	OK             bool   `json:"ok"`
	Prefix         string `json:"prefix,omitempty"`
	KeyClass       string `json:"key_class,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	PublicKey      string `json:"public_key,omitempty"`
	PublicKeyPath  string `json:"public_key_path,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	Hint           string `json:"hint,omitempty"`
}

type keysVerifyOutput struct {
	OK               bool   `json:"ok"`
	KeyClass         string `json:"key_class,omitempty"`
	Fingerprint      string `json:"fingerprint,omitempty"`
	PrivateKeySource string `json:"private_key_source,omitempty"`
	PublicKeySource  string `json:"public_key_source,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
	Hint             string `json:"hint,omitempty"`
}

func runKeys(arguments []string) int {
	if len(arguments) > 0 && arguments[0] == "--explain" {
		return writeExplain("keys", arguments, "Manage local Ed25519 keys used to seal skill manifests. Root and ci keys carry their class in a jade-pk-<class>- prefix.")
	}
	if len(arguments) == 0 {
		printKeysUsage()
		return exitInvalidInput
	}
	if arguments[0] == "--help" || arguments[0] == "-h" {
		printKeysUsage()
		return exitOK
	}
	switch arguments[0] {
	case "init":
		return runKeysInit(arguments[1:])
	case "verify":
		return runKeysVerify(arguments[1:])
	default:
		printKeysUsage()
		return exitInvalidInput
	}
}

func runKeysInit(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("keys init", arguments, "Generate a new Ed25519 keypair and write the namespaced private and public key files to disk.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"out-dir": true,
		"prefix":  true,
		"role":    true,
		"config":  true,
	})

	flagSet := flag.NewFlagSet("keys-init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var outDir string
	var prefix string
	var role string
	var configPath string
	var force bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&outDir, "out-dir", "", "directory for generated key files")
	flagSet.StringVar(&prefix, "prefix", "jade", "key file prefix")
	flagSet.StringVar(&role, "role", "", "key class: root or ci")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&force, "force", false, "overwrite existing key files")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printKeysInitUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeKeysInitError(jsonOutput, err, exitInvalidInput)
	}
	if outDir == "" {
		outDir = configuration.Keys.OutDir
	}
	if role == "" {
		role = configuration.Keys.Role
	}
	class, err := parseSigningRole(role)
	if err != nil {
		return writeKeysInitError(jsonOutput, err, exitInvalidInput)
	}

	result, err := createSigningKeypair(outDir, prefix, class, force)
	if err != nil {
		return writeKeysInitError(jsonOutput, err, exitInvalidInput)
	}
	return writeKeysInitOutput(jsonOutput, result, exitOK)
}

func runKeysVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("keys verify", arguments, "Check that a private key decodes, report its class and fingerprint, and optionally confirm it matches a public key file.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"private-key":     true,
		"private-key-env": true,
		"public-key":      true,
	})

	flagSet := flag.NewFlagSet("keys-verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var privateKeyPath string
	var privateKeyEnv string
	var publicKeyPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&privateKeyPath, "private-key", "", "path to private key")
	flagSet.StringVar(&privateKeyEnv, "private-key-env", "", "env var containing the private key")
	flagSet.StringVar(&publicKeyPath, "public-key", "", "path to public key expected to match")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printKeysVerifyUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}
	if strings.TrimSpace(privateKeyPath) == "" && strings.TrimSpace(privateKeyEnv) == "" {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "private key source is required (--private-key or --private-key-env)"}, exitInvalidInput)
	}

	key, err := sign.LoadSigningKey(sign.KeyConfig{PrivateKeyPath: privateKeyPath, PrivateKeyEnv: privateKeyEnv})
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error(), ErrorCode: "private_key_invalid"}, exitInvalidInput)
	}
	publicEncoded := base64.StdEncoding.EncodeToString(key.Public)
	if publicKeyPath != "" {
		// #nosec G304 -- public key path is explicit local user input.
		content, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: fmt.Sprintf("read public key: %v", err)}, exitInvalidInput)
		}
		published := sign.ParsePublicKey(strings.TrimSpace(string(content)))
		if published.Material != publicEncoded {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{
				OK:        false,
				Error:     "public key does not match private key",
				ErrorCode: "key_mismatch",
			}, exitVerifyFailed)
		}
		if published.Class != key.Class {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{
				OK:        false,
				Error:     fmt.Sprintf("public key class %s does not match private key class %s", published.Class, key.Class),
				ErrorCode: "key_mismatch",
			}, exitVerifyFailed)
		}
	}
	fingerprint, err := sign.KeyFingerprint(publicEncoded)
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInternalFailure)
	}
	return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{
		OK:               true,
		KeyClass:         string(key.Class),
		Fingerprint:      fingerprint,
		PrivateKeySource: keySourceLabel(privateKeyPath, privateKeyEnv),
		PublicKeySource:  keySourceLabel(publicKeyPath, ""),
	}, exitOK)
}

func createSigningKeypair(outDir string, prefix string, class sign.KeyClass, force bool) (keysInitOutput, error) {
	trimmedOutDir := strings.TrimSpace(outDir)
	if trimmedOutDir == "" {
		return keysInitOutput{}, fmt.Errorf("out-dir must not be empty")
	}
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		return keysInitOutput{}, fmt.Errorf("prefix must not be empty")
	}

	privatePath := filepath.Join(trimmedOutDir, trimmedPrefix+"_private.key")
	publicPath := filepath.Join(trimmedOutDir, trimmedPrefix+"_public.key")
	if !force {
		for _, path := range []string{privatePath, publicPath} {
			if _, err := os.Stat(path); err == nil {
				return keysInitOutput{}, keyExistsError(fmt.Errorf("%w: %s", fsx.ErrExists, path))
			}
		}
	}

	kp, err := sign.GenerateKeyPair()
	if err != nil {
		return keysInitOutput{}, fmt.Errorf("generate keypair: %w", err)
	}
	publicKey := sign.FormatPublicKey(class, kp.Public)
	if err := fsx.WriteFileNew(privatePath, []byte(sign.FormatPrivateKey(class, kp.Private)+"\n"), 0o600, force); err != nil {
		return keysInitOutput{}, keyExistsError(fmt.Errorf("write private key: %w", err))
	}
	if err := fsx.WriteFileNew(publicPath, []byte(publicKey+"\n"), 0o644, force); err != nil {
		return keysInitOutput{}, keyExistsError(fmt.Errorf("write public key: %w", err))
	}
	fingerprint, err := sign.KeyFingerprint(base64.StdEncoding.EncodeToString(kp.Public))
	if err != nil {
		return keysInitOutput{}, err
	}

	return keysInitOutput{
		OK:             true,
		Prefix:         trimmedPrefix,
		KeyClass:       string(class),
		Fingerprint:    fingerprint,
		PublicKey:      publicKey,
		PublicKeyPath:  publicPath,
		PrivateKeyPath: privatePath,
	}, nil
}

func keyExistsError(err error) error {
	if errors.Is(err, fsx.ErrExists) {
		return coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "key_exists", "pass --force to overwrite or choose another --prefix")
	}
	return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "key_write_failed", "check that the output directory is writable")
}

func keySourceLabel(path string, env string) string {
	if trimmedPath := strings.TrimSpace(path); trimmedPath != "" {
		return "path:" + trimmedPath
	}
	if trimmedEnv := strings.TrimSpace(env); trimmedEnv != "" {
		return "env:" + trimmedEnv
	}
	return ""
}

func writeKeysInitError(jsonOutput bool, err error, fallbackExit int) int {
	code, hint := errorFields(err)
	return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error(), ErrorCode: code, Hint: hint}, exitCodeForError(err, fallbackExit))
}

func writeKeysInitOutput(jsonOutput bool, output keysInitOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys init ok: class=%s fingerprint=%s public=%s private=%s\n", output.KeyClass, output.Fingerprint, output.PublicKeyPath, output.PrivateKeyPath)
		return exitCode
	}
	fmt.Printf("keys init error: %s\n", output.Error)
	return exitCode
}

func writeKeysVerifyOutput(jsonOutput bool, output keysVerifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys verify ok: class=%s fingerprint=%s\n", output.KeyClass, output.Fingerprint)
		return exitCode
	}
	fmt.Printf("keys verify error: %s\n", output.Error)
	return exitCode
}

func printKeysUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade keys init [--out-dir <dir>] [--prefix <name>] [--role root|ci] [--force] [--json] [--explain]")
	fmt.Println("  jade keys verify (--private-key <path>|--private-key-env <VAR>) [--public-key <path>] [--json] [--explain]")
}

func printKeysInitUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade keys init [--out-dir <dir>] [--prefix <name>] [--role root|ci] [--config <path>] [--force] [--json] [--explain]")
}

func printKeysVerifyUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jade keys verify (--private-key <path>|--private-key-env <VAR>) [--public-key <path>] [--json] [--explain]")
}
