package main

import (
	"encoding/json"
	"errors"
	"fmt"

	pep2html "github.com/alnah/go-pep2html"
	"github.com/alnah/go-pep2html/internal/config"
	"github.com/alnah/go-pep2html/internal/hints"
)

// ErrCheckFailed marks a check run with at least one invalid header.
var ErrCheckFailed = errors.New("invalid headers")

// checkResult holds the validation outcome for one source file.
type checkResult struct {
	Number int    `json:"number"`
	File   string `json:"file"`
	OK     bool   `json:"ok"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// runCheck validates every discovered header block without rendering
// anything. It is the fast pre-flight for corpus edits.
func runCheck(args []string, env *Environment) error {
	flags, positional, err := parseCheckFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: %q (check takes no positional arguments)", ErrUnexpectedArg, positional[0])
	}

	corpusDir := flags.corpus
	if corpusDir == "" && flags.common.config != "" {
		cfg, err := config.LoadConfig(flags.common.config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		corpusDir = cfg.Corpus.Dir
	}
	if corpusDir == "" {
		corpusDir = "."
	}
	sources, err := discoverSources(corpusDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w in %s%s", ErrEmptyCorpus, corpusDir, hints.ForCorpusEmpty())
	}

	results := make([]checkResult, 0, len(sources))
	failed := 0
	for _, src := range sources {
		r := checkResult{
			Number: src.Number,
			File:   fmt.Sprintf("pep-%04d.md", src.Number),
		}
		meta, err := pep2html.ParseMetadata(src.Number, src.Text)
		if err != nil {
			failed++
			r.Error = err.Error()
		} else {
			r.OK = true
			r.Title = meta.Title
			r.Status = string(meta.Status)
		}
		results = append(results, r)
	}

	if flags.jsonOut {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printCheckResults(results, flags.common.quiet, env)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d%s", ErrCheckFailed, failed, len(results), hints.ForHeaderParse())
	}
	return nil
}

// printCheckResults outputs human-readable validation results.
func printCheckResults(results []checkResult, quiet bool, env *Environment) {
	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
			if !quiet {
				fmt.Fprintf(env.Stdout, "[OK]     %s  %s (%s)\n", r.File, r.Title, r.Status)
			}
			continue
		}
		fmt.Fprintf(env.Stderr, "[FAILED] %s  %s\n", r.File, r.Error)
	}
	if !quiet {
		fmt.Fprintf(env.Stdout, "%d valid, %d invalid\n", ok, len(results)-ok)
	}
}
