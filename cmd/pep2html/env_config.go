package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-pep2html/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string // PEP2HTML_CONFIG: config file name or path
	CorpusDir  string // PEP2HTML_CORPUS_DIR: corpus directory
	OutputDir  string // PEP2HTML_OUTPUT_DIR: output directory
	Style      string // PEP2HTML_STYLE: stylesheet name
	Workers    int    // PEP2HTML_WORKERS: parallel workers
}

// knownEnvVars lists valid PEP2HTML_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"PEP2HTML_CONFIG":     true,
	"PEP2HTML_CORPUS_DIR": true,
	"PEP2HTML_OUTPUT_DIR": true,
	"PEP2HTML_STYLE":      true,
	"PEP2HTML_WORKERS":    true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("PEP2HTML_CONFIG"),
		CorpusDir:  os.Getenv("PEP2HTML_CORPUS_DIR"),
		OutputDir:  os.Getenv("PEP2HTML_OUTPUT_DIR"),
		Style:      os.Getenv("PEP2HTML_STYLE"),
	}

	if workers := os.Getenv("PEP2HTML_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized PEP2HTML_* variables.
// Helps catch typos like PEP2HTML_CORPUS instead of PEP2HTML_CORPUS_DIR.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "PEP2HTML_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Only sets values the config file left empty, so the precedence is
// CLI flags > env vars > config file > defaults (flags are applied
// later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.CorpusDir != "" && cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = env.CorpusDir
	}
	if env.OutputDir != "" && cfg.Output.Dir == "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Style != "" && cfg.CSS.Style == "" {
		cfg.CSS.Style = env.Style
	}
	if env.Workers > 0 && cfg.Build.Workers == 0 {
		cfg.Build.Workers = env.Workers
	}
}
