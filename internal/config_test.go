package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/mdlforge/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestAuthModes(t *testing.T) {
	cases := []struct {
		name    string
		cfg     AuthConfig
		enabled bool
		wantErr string
	}{
		{"disabled", AuthConfig{Mode: "disabled"}, false, ""},
		{"empty defaults to disabled", AuthConfig{}, false, ""},
		{"token", AuthConfig{Mode: "token", Token: "s3cret"}, true, ""},
		{"token without value", AuthConfig{Mode: "token"}, false, "token is empty"},
		{"unknown", AuthConfig{Mode: "magic", Token: "x"}, false, "mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.cfg.AuthEnabled() != tc.enabled {
				t.Errorf("enabled = %v", tc.cfg.AuthEnabled())
			}
		})
	}
}

func TestExportConfigBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Export.Concurrency = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "export") {
		t.Errorf("concurrency 0: %v", err)
	}
	cfg = NewDefaultConfig()
	cfg.Export.MaxBufferBytes = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative buffer cap accepted")
	}
}

func TestLoadOverridesDefaultsWithEnv(t *testing.T) {
	t.Setenv("MDLFORGE_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  http:
    port: 9090
workspace:
  path: /srv/models
auth:
  mode: token
  token: ${MDLFORGE_TEST_TOKEN}
export:
  header_title: Nightly build
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Workspace.Path != "/srv/models" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.Token != "from-env" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Export.HeaderTitle != "Nightly build" || cfg.Export.Concurrency != 4 {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Output.Path != "./export" {
		t.Errorf("output default lost: %q", cfg.Output.Path)
	}
}
