package cli

import (
	"errors"
	"testing"

	"github.com/stackguardian/tplsync/internal/codec"
	"github.com/stackguardian/tplsync/internal/remote"
	"github.com/stackguardian/tplsync/internal/resolver"
)

// resetFlags restores the shared flag state after each test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		apiTokenFlag = ""
		templateIDFlag = ""
		orgFlag = ""
		templateFlag = ""
		revisionFlag = -1
		baseURLFlag = ""
		formatFlag = "json"
	})
	apiTokenFlag = ""
	templateIDFlag = ""
	orgFlag = ""
	templateFlag = ""
	revisionFlag = -1
	baseURLFlag = ""
	formatFlag = "json"
	t.Setenv("SG_API_TOKEN", "")
	t.Setenv("SG_BASE_URL", "")
	t.Setenv("SG_TEMPLATE_ID", "")
}

func TestLoadRunConfig_MissingToken(t *testing.T) {
	resetFlags(t)
	templateIDFlag = "/demo-org/vpc"

	_, err := loadRunConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestLoadRunConfig_MissingTemplate(t *testing.T) {
	resetFlags(t)
	apiTokenFlag = "tok"

	_, err := loadRunConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestLoadRunConfig_BothAddressingModes(t *testing.T) {
	resetFlags(t)
	apiTokenFlag = "tok"
	templateIDFlag = "/demo-org/vpc"
	orgFlag = "demo-org"
	templateFlag = "vpc"

	_, err := loadRunConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestLoadRunConfig_RevisionWithTemplateID(t *testing.T) {
	resetFlags(t)
	apiTokenFlag = "tok"
	templateIDFlag = "/demo-org/vpc"
	revisionFlag = 3

	_, err := loadRunConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestLoadRunConfig_EnvFallback(t *testing.T) {
	resetFlags(t)
	t.Setenv("SG_API_TOKEN", "env-token")
	t.Setenv("SG_TEMPLATE_ID", "/demo-org/vpc:2")

	cfg, err := loadRunConfig()
	if err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Errorf("token = %q", cfg.Token)
	}
	if !cfg.Ref.IsPinned() || cfg.Ref.Org() != "demo-org" {
		t.Errorf("ref = %v", cfg.Ref)
	}
	if cfg.BaseURL != remote.DefaultBaseURL {
		t.Errorf("base url = %q, want default", cfg.BaseURL)
	}
}

func TestLoadRunConfig_OrgNameMode(t *testing.T) {
	resetFlags(t)
	apiTokenFlag = "tok"
	orgFlag = "demo-org"
	templateFlag = "vpc"
	revisionFlag = 5
	formatFlag = "yaml"

	cfg, err := loadRunConfig()
	if err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if cfg.Ref.Mode() != resolver.ModeOrgName {
		t.Errorf("mode = %v, want ModeOrgName", cfg.Ref.Mode())
	}
	if !cfg.Ref.IsPinned() {
		t.Error("ref not pinned despite --revision")
	}
	if cfg.Format != codec.FormatYAML {
		t.Errorf("format = %q, want yaml", cfg.Format)
	}
}

func TestLoadRunConfig_BadFormat(t *testing.T) {
	resetFlags(t)
	apiTokenFlag = "tok"
	templateIDFlag = "/demo-org/vpc"
	formatFlag = "toml"

	_, err := loadRunConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}
