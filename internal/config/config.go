// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads and persists sshpki's runtime configuration: the
// FIPS-mode switch, the import size caps the public facade enforces, and
// the default PKCS#11 module path used when a caller passes a bare
// "pkcs11:" URI with no module hint.
// Layering follows viper's usual precedence: built-in defaults, then a
// config file (explicit --config flag, user config dir, system config dir,
// or current directory, in that order), then SSHPKI_-prefixed environment
// variables, then bound CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration shape sshpki loads from
// sshpki.yaml / the environment / CLI flags.
type Config struct {
	Security struct {
		// FIPSMode is loaded and written with the rest of the config; the
		// CLI does not pass it on. The facade's FIPS gate reads
		// SessionInfo.FIPSMode() from the caller's session instead.
		FIPSMode bool `yaml:"fips_mode" mapstructure:"fips_mode"`
		// MaxPrivateKeySize and MaxPublicKeySize cap the byte length the
		// facade will read before attempting to parse a key blob.
		MaxPrivateKeySize int64 `yaml:"max_private_key_size" mapstructure:"max_private_key_size"`
		MaxPublicKeySize  int64 `yaml:"max_public_key_size" mapstructure:"max_public_key_size"`
	} `yaml:"security" mapstructure:"security"`

	PKCS11 struct {
		// ModulePath is the default PKCS#11 shared-object path used when a
		// "pkcs11:" URI carries no module-path query attribute.
		ModulePath string `yaml:"module_path" mapstructure:"module_path"`
		PIN        string `yaml:"pin" mapstructure:"pin"`
	} `yaml:"pkcs11" mapstructure:"pkcs11"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// Defaults returns the baseline values LoadConfig seeds before any file,
// environment, or flag override is applied.
func Defaults() map[string]any {
	return map[string]any{
		"security.fips_mode":           false,
		"security.max_private_key_size": 4 * 1024 * 1024,
		"security.max_public_key_size":  16 * 1024,
		"pkcs11.module_path":            "",
		"pkcs11.pin":                    "",
		"log_level":                     "info",
	}
}

// GetConfigPath returns the full path of the user- or system-scoped config
// file sshpki would read or write to.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "sshpki")
		default:
			configDir = "/etc/sshpki"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "sshpki")
	}

	return filepath.Join(configDir, "sshpki.yaml"), nil
}

// LoadConfig reads sshpki's configuration into T, applying defaults, file,
// environment, and bound CLI-flag layers in that order. configFile, when
// non-nil, is read instead of searching the standard locations.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("sshpki")
	v.SetConfigType("yaml")

	if configFile != nil {
		v.SetConfigFile(*configFile)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("sshpki")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile persists c as YAML to the user- or system-scoped config
// path, creating parent directories as needed.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
