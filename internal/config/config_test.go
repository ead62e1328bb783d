package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "QRNODE_PORT", "QRNODE_LOG_LEVEL", "QRNODE_LOG_FILE", "QRNODE_ENCODER",
		"QRNODE_VARIABLES_FILE", "QRNODE_DOTENV_FILE", "QRNODE_TRANSPARENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 8188 || cfg.LogLevel != "info" || cfg.Encoder != "yeqown" || cfg.Transparent {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Addr() != ":8188" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadParsesYaml(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qrnode.yaml")
	content := strings.TrimSpace(`
port: 9000
log_level: DEBUG
encoder: svg
transparent: true
variables_file: vars.yaml
dotenv_file: vars.env
`)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 9000 || cfg.LogLevel != "debug" || cfg.Encoder != "svg" || !cfg.Transparent {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.VariablesFile != "vars.yaml" || cfg.DotenvFile != "vars.env" {
		t.Fatalf("unexpected variable sources %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qrnode.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\nencoder: svg\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QRNODE_PORT", "9100")
	t.Setenv("QRNODE_ENCODER", "skip2")
	t.Setenv("QRNODE_TRANSPARENT", "yes")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 9100 || cfg.Encoder != "skip2" || !cfg.Transparent {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestPlainPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected PORT fallback, got %d", cfg.Port)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad encoder":     {"QRNODE_ENCODER": "zxing"},
		"bad level":       {"QRNODE_LOG_LEVEL": "loud"},
		"bad port":        {"QRNODE_PORT": "http"},
		"port range":      {"QRNODE_PORT": "70000"},
		"bad transparent": {"QRNODE_TRANSPARENT": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qrnode.yaml")
	if err := os.WriteFile(path, []byte("port: [nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
