package config

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/image-merge-mcp/internal/engine"
	"github.com/ironsheep/image-merge-mcp/internal/imaging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	want := engine.DefaultOptions()
	if opts != want {
		t.Errorf("Options() = %+v, want %+v", opts, want)
	}
	if cfg.Engine.Workers <= 0 {
		t.Errorf("Workers = %d, want positive", cfg.Engine.Workers)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Merge.Direction != "vertical" || cfg.Merge.OverlapSensitivity != 35 {
		t.Errorf("missing file did not yield defaults: %+v", cfg.Merge)
	}

	cfg, err = LoadConfig("")
	if err != nil || cfg == nil {
		t.Fatalf("LoadConfig(\"\") = %v, %v", cfg, err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merge.yaml")
	content := `
merge:
  direction: smart
  background: "#00000080"
  overlapSensitivity: 70
  stripChrome: false
limits:
  maxOutputPixels: 1000000
output:
  compression: best
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts.Direction != engine.DirectionSmart {
		t.Errorf("Direction = %s, want smart", opts.Direction)
	}
	if opts.Background != (imaging.Background{A: 128}) {
		t.Errorf("Background = %+v, want translucent black", opts.Background)
	}
	if opts.OverlapSensitivity != 70 || opts.StripChrome {
		t.Errorf("sensitivity/strip = %d/%v, want 70/false", opts.OverlapSensitivity, opts.StripChrome)
	}
	if opts.MaxOutputPixels != 1000000 {
		t.Errorf("MaxOutputPixels = %d, want 1000000", opts.MaxOutputPixels)
	}
	if opts.CompressionLevel != png.BestCompression {
		t.Errorf("CompressionLevel = %d, want best", opts.CompressionLevel)
	}
	// untouched sections keep their defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "merge: [unclosed", "failed to parse"},
		{"bad direction", "merge:\n  direction: diagonal\n", "merge.direction"},
		{"bad background", "merge:\n  background: chartreuse-ish\n", "merge.background"},
		{"sensitivity range", "merge:\n  overlapSensitivity: 101\n", "merge.overlapSensitivity"},
		{"negative limit", "limits:\n  maxOutputPixels: -1\n", "limits.maxOutputPixels"},
		{"bad compression", "output:\n  compression: ultra\n", "output.compression"},
		{"bad log level", "log:\n  level: chatty\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "merge.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "merge.yaml")
	cfg := DefaultConfig()
	cfg.Merge.Direction = "horizontal"
	cfg.Engine.Workers = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Merge.Direction != "horizontal" || loaded.Engine.Workers != 3 {
		t.Errorf("round trip lost values: %+v %+v", loaded.Merge, loaded.Engine)
	}
	if loaded.EngineConfig().Workers != 3 {
		t.Errorf("EngineConfig().Workers = %d, want 3", loaded.EngineConfig().Workers)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}
