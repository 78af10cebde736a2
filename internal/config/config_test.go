package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunk.Size != 400 || cfg.Chunk.Overlap != 200 {
		t.Errorf("default chunk config = %+v, want 400/200", cfg.Chunk)
	}
	if cfg.Index.MinTrainSize != 5000 {
		t.Errorf("default min_train_size = %d, want 5000", cfg.Index.MinTrainSize)
	}
	if cfg.Search.TopK != 8 || cfg.Search.RRFK != 60 {
		t.Errorf("default search config = %+v, want top_k=8 rrf_k=60", cfg.Search)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docdex.yml")
	data := []byte("port: 9999\nchunk:\n  size: 512\n  overlap: 64\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Port)
	}
	if cfg.Chunk.Size != 512 || cfg.Chunk.Overlap != 64 {
		t.Errorf("chunk config = %+v, want 512/64", cfg.Chunk)
	}
	// Untouched values keep their defaults.
	if cfg.Search.RRFK != 60 {
		t.Errorf("rrf_k = %d, want default 60", cfg.Search.RRFK)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DOCDEX_PORT", "7777")
	t.Setenv("DOCDEX_WORKER__LEASE_SECS", "42")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7777 {
		t.Errorf("port = %d, want 7777 from env", cfg.Port)
	}
	if cfg.Worker.LeaseSecs != 42 {
		t.Errorf("worker.lease_secs = %d, want 42 from env", cfg.Worker.LeaseSecs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docdex.yml")

	cfg := DefaultConfig()
	cfg.Port = 1234
	cfg.EmbedModel = "mistral-embed"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Port != 1234 || loaded.EmbedModel != "mistral-embed" {
		t.Errorf("round-trip = port %d model %q", loaded.Port, loaded.EmbedModel)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"missing provider", func(c *Config) { c.Provider = "" }, false},
		{"bad provider", func(c *Config) { c.Provider = "carrier-pigeon" }, false},
		{"missing model", func(c *Config) { c.Model = "" }, false},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, false},
		{"overlap >= size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }, false},
		{"sample cap below train size", func(c *Config) { c.Index.TrainSampleCap = 10 }, false},
		{"negative workers", func(c *Config) { c.Worker.Count = -1 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantOK && err != nil {
				t.Errorf("Validate: %v, want nil", err)
			}
			if !tc.wantOK && err == nil {
				t.Error("Validate: nil, want error")
			}
		})
	}
}
