package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
paths:
  dict_path: dict.txt
  answers_path: answers.txt
  dump_path: dump.xml.bz2
  data_dir: data
tuning:
  corrs_cache_size: 42
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Paths.DictPath != "dict.txt" {
		t.Errorf("DictPath = %q", cfg.Paths.DictPath)
	}
	if cfg.Tuning.CorrsCacheSize != 42 {
		t.Errorf("CorrsCacheSize = %d, want 42", cfg.Tuning.CorrsCacheSize)
	}
	if cfg.Tuning.RanksCacheSize != 10 {
		t.Errorf("RanksCacheSize = %d, want default 10", cfg.Tuning.RanksCacheSize)
	}
	if cfg.Tuning.AntiWedgeThreshold != 6 {
		t.Errorf("AntiWedgeThreshold = %d, want default 6", cfg.Tuning.AntiWedgeThreshold)
	}
	if cfg.Tuning.CorrelationWorkers != 4 {
		t.Errorf("CorrelationWorkers = %d, want default 4", cfg.Tuning.CorrelationWorkers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
