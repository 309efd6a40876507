package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/raido/pkg/config"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCorpusConfig_RequiresRootAndGlobs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Corpus.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty root should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Corpus.Globs = nil
	if err := cfg.Validate(); err == nil {
		t.Error("empty globs should fail")
	}
}

func TestAttestationConfig_ThresholdBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Attestation.DefaultThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero default threshold should fail")
	}
}

func TestIndexConfig_GroupByValues(t *testing.T) {
	for _, v := range []string{"stream", "domain", "status", "none"} {
		cfg := NewDefaultConfig()
		cfg.Index.GroupBy = v
		if err := cfg.Validate(); err != nil {
			t.Errorf("group_by %q: %v", v, err)
		}
	}
	cfg := NewDefaultConfig()
	cfg.Index.GroupBy = "alphabetical"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown group_by should fail")
	}
}

func TestAuthConfig_Modes(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg = AuthConfig{Mode: "token", Token: "s3cret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg = AuthConfig{Mode: "token"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("err = %v", err)
	}

	cfg = AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	doc := `
app:
  workers: 4
  http:
    port: 9000
corpus:
  root: /srv/ledger
  globs:
    - "canonized/**/*.md"
registry:
  path: /srv/ledger/exceptions.yaml
links:
  timeout: 3s
  external_only: true
  deny_hosts:
    - internal.corp
auth:
  mode: token
  token: ${LEDGER_API_TOKEN}
`
	path := filepath.Join(t.TempDir(), "raido.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEDGER_API_TOKEN", "from-env")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.App.Workers != 4 || cfg.App.HTTP.Port != 9000 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Corpus.Root != "/srv/ledger" {
		t.Errorf("root = %q", cfg.Corpus.Root)
	}
	if !cfg.Links.ExternalOnly || cfg.Links.Timeout.String() != "3s" {
		t.Errorf("links = %+v", cfg.Links)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, env expansion failed", cfg.Auth.Token)
	}

	// Unset fields keep their defaults.
	if cfg.Index.GroupBy != "stream" {
		t.Errorf("index = %+v", cfg.Index)
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	c := HTTPConfig{Port: 8655}
	if got := c.Address(); got != ":8655" {
		t.Errorf("Address = %q", got)
	}
}
