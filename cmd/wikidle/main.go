// Command wikidle runs the offline word-correlation pipeline (C1-C5)
// and the online query engine (C7) described by the project's data
// model: build the frequency spill file and correlation matrix from a
// Wikipedia dump, then answer daily-guess queries against them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/unsignedbyte/wikidle/internal/config"
	"github.com/unsignedbyte/wikidle/internal/correlation"
	"github.com/unsignedbyte/wikidle/internal/dict"
	"github.com/unsignedbyte/wikidle/internal/frequency"
	"github.com/unsignedbyte/wikidle/internal/query"
	"github.com/unsignedbyte/wikidle/internal/scheduler"
	"github.com/unsignedbyte/wikidle/internal/state"
	"github.com/unsignedbyte/wikidle/internal/wiki"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the pipeline YAML config (required)")
		mode       = flag.String("mode", "guess", "One of: build, guess, serve")
		word       = flag.String("word", "", "Word to guess (mode=guess)")
		dateFlag   = flag.String("date", "", "Date to guess against, YYYY-MM-DD (mode=guess, default today)")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	switch *mode {
	case "build":
		if err := runBuild(cfg); err != nil {
			log.Fatalf("build: %v", err)
		}
	case "guess":
		if *word == "" {
			log.Fatal("--word required for mode=guess")
		}
		if err := runGuess(cfg, *word, *dateFlag); err != nil {
			log.Fatalf("guess: %v", err)
		}
	case "serve":
		if err := runServe(cfg); err != nil {
			log.Fatalf("serve: %v", err)
		}
	default:
		log.Fatalf("unknown --mode %q", *mode)
	}
}

// runBuild executes the offline pipeline: stream the dump (C2), spill
// per-article counts (C3), invert into postings (C4), and build the
// correlation matrix (C5), resuming a previous incomplete run when one
// is recorded in the state database.
func runBuild(cfg config.Config) error {
	ctx := context.Background()

	d, err := dict.Load(cfg.Paths.DictPath)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	log.Printf("loaded dictionary: %d words", d.Len())

	st, err := state.Open(ctx, filepath.Join(cfg.Paths.DataDir, config.StateFilename))
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer st.Close()

	run, resumed, err := st.LatestIncomplete(ctx, cfg.Paths.DumpPath)
	if err != nil {
		return err
	}
	if !resumed {
		run, err = st.StartRun(ctx, cfg.Paths.DumpPath)
		if err != nil {
			return err
		}
	} else {
		log.Printf("resuming run %s at dump offset %d (article %d)", run.ID, run.Offset, run.ArticleSeq)
	}

	dumpFile, err := os.Open(cfg.Paths.DumpPath)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer dumpFile.Close()
	info, err := dumpFile.Stat()
	if err != nil {
		return err
	}

	wikitextCfg := wiki.DefaultWikitextConfig()
	wiki.AntiWedgeThreshold = cfg.Tuning.AntiWedgeThreshold

	reader, err := wiki.NewDumpReader(dumpFile, info.Size(), run.Offset, wikitextCfg)
	if err != nil {
		return fmt.Errorf("open dump reader: %w", err)
	}

	dataPath := filepath.Join(cfg.Paths.DataDir, config.SpillFilename)
	var table *frequency.Table
	if resumed {
		idxBytes, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, config.IndexFilename))
		if err != nil {
			return fmt.Errorf("read spill index: %w", err)
		}
		idx, err := frequency.DecodeIndex(idxBytes)
		if err != nil {
			return err
		}
		table, err = frequency.Reopen(dataPath, idx)
		if err != nil {
			return err
		}
	} else {
		table, err = frequency.New(dataPath)
		if err != nil {
			return err
		}
	}
	defer table.Close()

	articleSeq := run.ArticleSeq
	for {
		article, err := reader.Next()
		if err == nil {
			counts := frequency.Tokenize(article.Body, d)
			if _, err := table.Insert(counts); err != nil {
				return err
			}
			articleSeq++
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		// Malformed pages are skipped, not fatal (spec.md §7): log and
		// keep reading.
		log.Printf("skipping malformed page: %v", err)
	}

	if err := persistIndex(cfg, table); err != nil {
		return err
	}
	if err := st.UpdateProgress(ctx, run.ID, info.Size(), articleSeq); err != nil {
		return err
	}

	log.Printf("inverting %d articles into posting lists", table.Len())
	postings, err := table.Invert()
	if err != nil {
		return err
	}

	matrixPath := filepath.Join(cfg.Paths.DataDir, config.MatrixFilename)
	mf, err := os.Create(matrixPath)
	if err != nil {
		return err
	}
	defer mf.Close()

	log.Printf("building correlation matrix")
	pruned, err := correlation.BuildMatrix(postings, table.Len(), cfg.Tuning.CorrelationWorkers, mf)
	if err != nil {
		return err
	}

	idxBytes, err := correlation.EncodeIndex(pruned)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.DataDir, config.MatrixIndexFilename), idxBytes, 0o644); err != nil {
		return err
	}

	if err := st.CompleteRun(ctx, run.ID); err != nil {
		return err
	}
	log.Printf("build complete: %d words survived pruning", pruned.Len())
	return nil
}

func persistIndex(cfg config.Config, table *frequency.Table) error {
	b, err := frequency.EncodeIndex(table.Index())
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.Paths.DataDir, config.IndexFilename), b, 0o644)
}

// openEngine loads the dictionary, the correlation matrix, and the
// answers wordlist, and wires them into a query.Engine.
func openEngine(cfg config.Config) (*query.Engine, *correlation.Reader, error) {
	d, err := dict.Load(cfg.Paths.DictPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load dictionary: %w", err)
	}

	idxBytes, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, config.MatrixIndexFilename))
	if err != nil {
		return nil, nil, fmt.Errorf("read correlation index: %w", err)
	}
	pruned, err := correlation.DecodeIndex(idxBytes)
	if err != nil {
		return nil, nil, err
	}

	reader, err := correlation.OpenReader(filepath.Join(cfg.Paths.DataDir, config.MatrixFilename), pruned)
	if err != nil {
		return nil, nil, err
	}

	answerWords, err := dict.Load(cfg.Paths.AnswersPath)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("load answers: %w", err)
	}

	engine, err := query.New(d, reader, answerWords.Words(), cfg.Tuning)
	if err != nil {
		reader.Close()
		return nil, nil, err
	}
	return engine, reader, nil
}

func runGuess(cfg config.Config, word, dateFlag string) error {
	engine, reader, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	date := time.Now().UTC()
	if dateFlag != "" {
		date, err = time.Parse("2006-01-02", dateFlag)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	result, err := engine.Guess(date, word)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// runServe keeps the query engine's caches warm on a fixed interval
// (C8) until interrupted. It does not bind an HTTP listener: wiring the
// engine to a transport is left to the caller embedding this package.
func runServe(cfg config.Config) error {
	engine, reader, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	interval := time.Duration(cfg.Tuning.WarmCacheIntervalSeconds) * time.Second
	sched := scheduler.New(interval, func() {
		if err := engine.WarmCache(time.Now().UTC()); err != nil {
			log.Printf("warm cache: %v", err)
		}
	})
	sched.Start()
	defer sched.Stop()

	log.Printf("query engine warm, ticking every %s; ctrl-c to exit", interval)
	select {}
}
