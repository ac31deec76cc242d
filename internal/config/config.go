// Package config loads the paths and tunable parameters that stitch the
// offline pipeline and the online query engine together.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Paths locates every file the pipeline reads from or writes to.
type Paths struct {
	DictPath    string `yaml:"dict_path"`
	AnswersPath string `yaml:"answers_path"`
	DumpPath    string `yaml:"dump_path"`
	DataDir     string `yaml:"data_dir"`
}

// SpillFilename is the on-disk name of the frequency spill file (spec.md
// §6, "data.dat").
const SpillFilename = "data.dat"

// IndexFilename is the on-disk name of the frequency byte-offset index
// (spec.md §6, "index.dat").
const IndexFilename = "index.dat"

// MatrixFilename is the on-disk name of the correlation matrix (spec.md
// §6, "corr.dat").
const MatrixFilename = "corr.dat"

// MatrixIndexFilename is the on-disk name of the correlation index record
// (spec.md §6, "corrindex.dat").
const MatrixIndexFilename = "corrindex.dat"

// StateFilename is the sqlite database tracking pipeline run state, used
// to resume an interrupted dump read (spec.md §6, dump resume offset).
const StateFilename = "state.db"

// Tuning holds the policy knobs spec.md calls out as implementation
// choices rather than fixed constants.
type Tuning struct {
	// CorrsCacheSize bounds query.Engine's corrs_cache (default 1000).
	CorrsCacheSize int `yaml:"corrs_cache_size"`

	// RanksCacheSize bounds query.Engine's ranks_cache (default 10).
	RanksCacheSize int `yaml:"ranks_cache_size"`

	// AntiWedgeThreshold is the maximum tolerated imbalance of unmatched
	// {{/}} or {|/|} markers before the wikitext parser is skipped in
	// favor of the raw article text (spec.md §4.1, default 6).
	AntiWedgeThreshold int `yaml:"anti_wedge_threshold"`

	// CorrelationWorkers is the worker-pool degree used when pruned
	// dictionary size exceeds 1000 words (spec.md §4.3, default 4).
	CorrelationWorkers int `yaml:"correlation_workers"`

	// WarmCacheIntervalSeconds is how often the scheduler (C8) warms
	// yesterday/today/tomorrow's answers into the query engine's caches
	// (spec.md §4.6, default 3600).
	WarmCacheIntervalSeconds int `yaml:"warm_cache_interval_seconds"`
}

// DefaultTuning returns the tuning defaults named throughout spec.md.
func DefaultTuning() Tuning {
	return Tuning{
		CorrsCacheSize:           1000,
		RanksCacheSize:           10,
		AntiWedgeThreshold:       6,
		CorrelationWorkers:       4,
		WarmCacheIntervalSeconds: 3600,
	}
}

// Config is the full set of options loaded for a pipeline run.
type Config struct {
	Paths  Paths  `yaml:"paths"`
	Tuning Tuning `yaml:"tuning"`
}

// Load reads a YAML configuration file and fills in tuning defaults for
// any zero-valued field.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Tuning: DefaultTuning()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	applyTuningDefaults(&cfg.Tuning)
	return cfg, nil
}

func applyTuningDefaults(t *Tuning) {
	d := DefaultTuning()
	if t.CorrsCacheSize <= 0 {
		t.CorrsCacheSize = d.CorrsCacheSize
	}
	if t.RanksCacheSize <= 0 {
		t.RanksCacheSize = d.RanksCacheSize
	}
	if t.AntiWedgeThreshold <= 0 {
		t.AntiWedgeThreshold = d.AntiWedgeThreshold
	}
	if t.CorrelationWorkers <= 0 {
		t.CorrelationWorkers = d.CorrelationWorkers
	}
	if t.WarmCacheIntervalSeconds <= 0 {
		t.WarmCacheIntervalSeconds = d.WarmCacheIntervalSeconds
	}
}
