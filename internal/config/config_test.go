package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/toeirei/sshpki/internal/config"
)

func resetViper() {
	viper.Reset()
}

func TestLoadConfig_EmptyCandidate_TreatedAsNotFound(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	cfgDir := filepath.Join(tmp, "sshpki")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	emptyPath := filepath.Join(cfgDir, "sshpki.yaml")
	f, err := os.Create(emptyPath)
	if err != nil {
		t.Fatalf("create empty file: %v", err)
	}
	f.Close()

	resetViper()
	defer resetViper()

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("expected an empty candidate to load like a missing file, got error: %T %v", err, err)
	}
	if got.Security.MaxPrivateKeySize != 4*1024*1024 {
		t.Fatalf("expected default max_private_key_size, got %d", got.Security.MaxPrivateKeySize)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	resetViper()
	defer resetViper()

	c := cfg.Config{}
	c.Security.FIPSMode = true
	c.Security.MaxPrivateKeySize = 1024
	c.LogLevel = "debug"

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s, stat error: %v", path, err)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	yamlSrc := "security:\n  fips_mode: true\n  max_private_key_size: 2048\nlog_level: warn\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yamlSrc), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	resetViper()
	defer resetViper()

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !got.Security.FIPSMode {
		t.Fatalf("expected fips_mode true")
	}
	if got.Security.MaxPrivateKeySize != 2048 {
		t.Fatalf("expected 2048, got %d", got.Security.MaxPrivateKeySize)
	}
	if got.LogLevel != "warn" {
		t.Fatalf("expected warn, got %q", got.LogLevel)
	}
}
