package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Name    string        `envconfig:"NAME" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"3s"`
	Retries int           `envconfig:"RETRIES" default:"2"`
}

func TestLoadEnvFileExportsKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	if err := os.WriteFile(path, []byte("CFGTEST_NAME=finance\nCFGTEST_RETRIES=5\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CFGTEST_NAME")
		os.Unsetenv("CFGTEST_RETRIES")
	})

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Name != "finance" {
		t.Fatalf("Name = %q, want finance", conf.Name)
	}
	if conf.Retries != 5 {
		t.Fatalf("Retries = %d, want 5", conf.Retries)
	}
	if conf.Timeout != 3*time.Second {
		t.Fatalf("Timeout = %s, want 3s", conf.Timeout)
	}
}

func TestLoadEnvFileKeepsExistingEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.env")
	if err := os.WriteFile(path, []byte("CFGKEEP_NAME=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGKEEP_NAME", "from-env")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("CFGKEEP_NAME"); got != "from-env" {
		t.Fatalf("CFGKEEP_NAME = %q, want from-env", got)
	}
}

func TestLoadEnvFileMissingExplicitPath(t *testing.T) {
	t.Parallel()

	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestNewMissingRequired(t *testing.T) {
	t.Parallel()

	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required variable")
	}
}
