package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsInterfacesEnabled(t *testing.T) {
	cfg := Defaults()
	if !cfg.IfaceEnabled(IfaceAuthor) || !cfg.IfaceEnabled(IfaceJournal) {
		t.Fatal("defaults should enable every known interface")
	}
	if cfg.IfaceEnabled("nonexistent") {
		t.Fatal("unknown interface should not be enabled")
	}
}

func TestLoadConfigMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxActiveThreads != Defaults().MaxActiveThreads {
		t.Fatal("empty path should return plain defaults")
	}
}

func TestLoadConfigNonexistentFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing config file should not be an error: %v", err)
	}
	if cfg.DepthMax != Defaults().DepthMax {
		t.Fatal("missing file should leave defaults untouched")
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	const body = `{"max_active_threads": 16, "favored_org": "Acme University"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxActiveThreads != 16 {
		t.Fatalf("expected overlay to set max_active_threads=16, got %d", cfg.MaxActiveThreads)
	}
	if cfg.FavoredOrg != "Acme University" {
		t.Fatalf("expected overlay to set favored_org, got %q", cfg.FavoredOrg)
	}
	if cfg.DepthMax != Defaults().DepthMax {
		t.Fatal("unset fields should keep their default values")
	}
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed config JSON")
	}
}
