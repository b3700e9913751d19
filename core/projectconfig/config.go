package projectconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultPath    = ".jadegate/config.yaml"
	EnvPrefix      = "JADEGATE"
	DefaultWorkers = 4
	DefaultKeysDir = "jade-out/keys"
	DefaultRole    = "root"
	DefaultLevel   = "warn"
)

type Config struct {
	Verify VerifyDefaults `yaml:"verify"`
	Keys   KeysDefaults   `yaml:"keys"`
	Log    LogDefaults    `yaml:"log"`
}

type VerifyDefaults struct {
	Tables            string   `yaml:"tables" split_words:"true"`
	Workers           int      `yaml:"workers" split_words:"true"`
	AllowedKeyClasses []string `yaml:"allowed_key_classes" split_words:"true"`
	JSON              bool     `yaml:"json" split_words:"true"`
}

type KeysDefaults struct {
	OutDir        string `yaml:"out_dir" split_words:"true"`
	Role          string `yaml:"role" split_words:"true"`
	Signer        string `yaml:"signer" split_words:"true"`
	PrivateKey    string `yaml:"private_key" split_words:"true"` // #nosec G117 -- config key name documents expected secret input.
	PrivateKeyEnv string `yaml:"private_key_env" split_words:"true"`
}

type LogDefaults struct {
	Level string `yaml:"level" split_words:"true"`
}

// Load reads the YAML config at path, applies JADEGATE_* environment
// overrides and fills defaults. A missing file is only an error when
// allowMissing is false.
func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("project config path is required")
	}

	var configuration Config
	// #nosec G304 -- project config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	switch {
	case err != nil && !(os.IsNotExist(err) && allowMissing):
		return Config{}, fmt.Errorf("read project config: %w", err)
	case err == nil && len(strings.TrimSpace(string(content))) > 0:
		if err := yaml.Unmarshal(content, &configuration); err != nil {
			return Config{}, fmt.Errorf("parse project config: %w", err)
		}
	}

	if err := configuration.applyEnv(); err != nil {
		return Config{}, err
	}
	configuration.normalize()
	if err := configuration.validate(); err != nil {
		return Config{}, err
	}
	return configuration, nil
}

func (configuration *Config) applyEnv() error {
	groups := []struct {
		prefix string
		spec   any
	}{
		{prefix: EnvPrefix + "_VERIFY", spec: &configuration.Verify},
		{prefix: EnvPrefix + "_KEYS", spec: &configuration.Keys},
		{prefix: EnvPrefix + "_LOG", spec: &configuration.Log},
	}
	for _, group := range groups {
		if err := envconfig.Process(group.prefix, group.spec); err != nil {
			return fmt.Errorf("apply %s environment: %w", group.prefix, err)
		}
	}
	return nil
}

func (configuration *Config) normalize() {
	configuration.Verify.Tables = strings.TrimSpace(configuration.Verify.Tables)
	if configuration.Verify.Workers == 0 {
		configuration.Verify.Workers = DefaultWorkers
	}
	classes := make([]string, 0, len(configuration.Verify.AllowedKeyClasses))
	for _, class := range configuration.Verify.AllowedKeyClasses {
		if normalized := strings.ToLower(strings.TrimSpace(class)); normalized != "" {
			classes = append(classes, normalized)
		}
	}
	configuration.Verify.AllowedKeyClasses = classes

	configuration.Keys.OutDir = strings.TrimSpace(configuration.Keys.OutDir)
	if configuration.Keys.OutDir == "" {
		configuration.Keys.OutDir = DefaultKeysDir
	}
	configuration.Keys.Role = strings.ToLower(strings.TrimSpace(configuration.Keys.Role))
	if configuration.Keys.Role == "" {
		configuration.Keys.Role = DefaultRole
	}
	configuration.Keys.Signer = strings.TrimSpace(configuration.Keys.Signer)
	configuration.Keys.PrivateKey = strings.TrimSpace(configuration.Keys.PrivateKey)
	configuration.Keys.PrivateKeyEnv = strings.TrimSpace(configuration.Keys.PrivateKeyEnv)

	configuration.Log.Level = strings.ToLower(strings.TrimSpace(configuration.Log.Level))
	if configuration.Log.Level == "" {
		configuration.Log.Level = DefaultLevel
	}
}

func (configuration Config) validate() error {
	if configuration.Verify.Workers < 1 {
		return fmt.Errorf("verify.workers must be at least 1")
	}
	for _, class := range configuration.Verify.AllowedKeyClasses {
		switch class {
		case "root", "ci", "unclassified":
		default:
			return fmt.Errorf("verify.allowed_key_classes: unknown key class %q", class)
		}
	}
	switch configuration.Keys.Role {
	case "root", "ci":
	default:
		return fmt.Errorf("keys.role must be root or ci")
	}
	switch configuration.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}
