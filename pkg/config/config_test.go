package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"crops3d/pkg/config"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.StoreEnv, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if resolved != filepath.Join(tempHome, ".config", "crops3d", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Flatten.Source != "Crops3D/Crops3D" || cfg.Flatten.Target != "." {
		t.Fatalf("unexpected flatten paths: %+v", cfg.Flatten)
	}
	if len(cfg.Flatten.Expected) != 8 || cfg.Flatten.Expected["Maize"] != 225 || cfg.Flatten.Expected["Tomato"] != 83 {
		t.Fatalf("unexpected expected table: %v", cfg.Flatten.Expected)
	}
	if cfg.Dataset.Name != "crops3d" || cfg.Dataset.LabelField != "crop_type" {
		t.Fatalf("unexpected dataset defaults: %+v", cfg.Dataset)
	}
	if cfg.Dataset.StorePath != filepath.Join(tempHome, ".local", "share", "crops3d", "datasets.db") {
		t.Fatalf("store path not expanded: %q", cfg.Dataset.StorePath)
	}
	if !cfg.Dataset.Overwrite {
		t.Fatal("expected overwrite enabled by default")
	}
}

func TestLoadFileReplacesExpectedTable(t *testing.T) {
	t.Setenv(config.StoreEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "crops3d.toml")
	body := `
[flatten]
source = "data/src"
extension = "pcd"

[flatten.expected]
Barley = 12

[dataset]
name = "barley"
store_path = "` + filepath.ToSlash(filepath.Join(dir, "store.db")) + `"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be loaded, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Flatten.Extension != ".pcd" {
		t.Fatalf("extension not normalized: %q", cfg.Flatten.Extension)
	}
	if len(cfg.Flatten.Expected) != 1 || cfg.Flatten.Expected["Barley"] != 12 {
		t.Fatalf("expected table should be replaced, got %v", cfg.Flatten.Expected)
	}
	if cfg.Flatten.ProgressEvery != 50 {
		t.Fatalf("unset fields should keep defaults, got %d", cfg.Flatten.ProgressEvery)
	}
	if cfg.Dataset.Name != "barley" {
		t.Fatalf("unexpected dataset name %q", cfg.Dataset.Name)
	}
}

func TestStoreEnvOverridesPath(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "env.db")
	t.Setenv(config.StoreEnv, want)

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dataset.StorePath != want {
		t.Fatalf("store path = %q, want %q", cfg.Dataset.StorePath, want)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"progress every": func(c *config.Config) { c.Flatten.ProgressEvery = 0 },
		"negative count": func(c *config.Config) { c.Flatten.Expected["Maize"] = -1 },
		"empty name":     func(c *config.Config) { c.Dataset.Name = "" },
		"same extension": func(c *config.Config) { c.Dataset.SceneExtension = c.Dataset.Extension },
		"log format":     func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Flatten.Expected["Cabbage"] != 196 {
		t.Fatalf("sample expected table incomplete: %v", cfg.Flatten.Expected)
	}
}
