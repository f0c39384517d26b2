package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-pep2html/internal/assets"
	"github.com/alnah/go-pep2html/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrBadTemplate     = errors.New("invalid URL template")
)

// Field length limits for multi-tenant safety.
const (
	MaxPathLength  = 4096 // Filesystem paths
	MaxURLLength   = 2048 // Browser limit
	MaxTitleLength = 200  // Index title
	MaxNameLength  = 100  // Index author
	MaxWorkers     = 256  // Build pool upper bound
)

// Config holds all configuration for corpus builds.
type Config struct {
	Corpus CorpusConfig `yaml:"corpus"`
	Output OutputConfig `yaml:"output"`
	Links  LinksConfig  `yaml:"links"`
	Index  IndexConfig  `yaml:"index"`
	Build  BuildConfig  `yaml:"build"`
	CSS    CSSConfig    `yaml:"css"`
	Assets AssetsConfig `yaml:"assets"`
}

// CorpusConfig defines source discovery options.
type CorpusConfig struct {
	Dir string `yaml:"dir"` // Source directory (empty = current directory)
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir          string `yaml:"dir"`          // Output directory (empty = ./public)
	Fingerprints string `yaml:"fingerprints"` // Fingerprint table path (empty = {output}/fingerprints.json)
}

// LinksConfig defines the URL templates reference resolution uses.
// Each template must carry exactly one integer verb for the document or
// RFC number, e.g. "/pep-%04d/". Empty values use built-in defaults.
type LinksConfig struct {
	DocumentURL string `yaml:"documentURL"`
	RFCURL      string `yaml:"rfcURL"`
}

// IndexConfig defines the synthesized index document's own metadata.
type IndexConfig struct {
	Title  string `yaml:"title"`  // Empty = built-in title
	Author string `yaml:"author"` // Empty = built-in author
}

// BuildConfig defines build execution options.
type BuildConfig struct {
	Workers int `yaml:"workers"` // Parallel render workers (0 = number of CPUs)
}

// CSSConfig defines stylesheet options.
type CSSConfig struct {
	Style string `yaml:"style"` // Name of style in internal/assets/styles/ (empty = default)
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// Validate checks field lengths and value ranges to prevent abuse.
// Called automatically by LoadConfig, but available for consumers who
// construct Config manually (e.g., library users).
func (c *Config) Validate() error {
	if err := validateFieldLength("corpus.dir", c.Corpus.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.fingerprints", c.Output.Fingerprints, MaxPathLength); err != nil {
		return err
	}

	if err := validateURLTemplate("links.documentURL", c.Links.DocumentURL); err != nil {
		return err
	}
	if err := validateURLTemplate("links.rfcURL", c.Links.RFCURL); err != nil {
		return err
	}

	if err := validateFieldLength("index.title", c.Index.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("index.author", c.Index.Author, MaxNameLength); err != nil {
		return err
	}

	if c.Build.Workers < 0 || c.Build.Workers > MaxWorkers {
		return fmt.Errorf("build.workers: must be between 0 and %d, got %d", MaxWorkers, c.Build.Workers)
	}

	if c.CSS.Style != "" {
		if err := assets.ValidateAssetName(c.CSS.Style); err != nil {
			return fmt.Errorf("css.style: %w", err)
		}
	}
	if err := validateAssetsBasePath(c.Assets.BasePath); err != nil {
		return err
	}

	return nil
}

// validateAssetsBasePath checks that a non-empty base path points at an
// existing directory.
func validateAssetsBasePath(basePath string) error {
	if basePath == "" {
		return nil
	}
	if err := validateFieldLength("assets.basePath", basePath, MaxPathLength); err != nil {
		return err
	}
	info, err := os.Stat(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("assets.basePath: directory does not exist: %s", basePath)
		}
		return fmt.Errorf("assets.basePath: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets.basePath: not a directory: %s", basePath)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateURLTemplate checks that a non-empty template carries exactly one
// integer verb and nothing else the formatter would interpret.
func validateURLTemplate(fieldName, value string) error {
	if value == "" {
		return nil
	}
	if err := validateFieldLength(fieldName, value, MaxURLLength); err != nil {
		return err
	}

	verbs := 0
	for i := 0; i < len(value); i++ {
		if value[i] != '%' {
			continue
		}
		if i+1 < len(value) && value[i+1] == '%' {
			i++ // literal percent
			continue
		}
		j := i + 1
		for j < len(value) && (value[j] == '0' || (value[j] >= '1' && value[j] <= '9')) {
			j++
		}
		if j >= len(value) || value[j] != 'd' {
			return fmt.Errorf("%w: %s: %q (only one %%d verb is allowed)", ErrBadTemplate, fieldName, value)
		}
		verbs++
		i = j
	}
	if verbs != 1 {
		return fmt.Errorf("%w: %s: %q (want exactly one %%d verb, got %d)", ErrBadTemplate, fieldName, value, verbs)
	}
	return nil
}

// DefaultConfig returns a neutral configuration. Empty values mean the
// built-in defaults apply at the point of use.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{Dir: ""},
		Output: OutputConfig{Dir: "", Fingerprints: ""},
		Links:  LinksConfig{DocumentURL: "", RFCURL: ""},
		Index:  IndexConfig{Title: "", Author: ""},
		Build:  BuildConfig{Workers: 0},
		CSS:    CSSConfig{Style: ""},
		Assets: AssetsConfig{BasePath: ""},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-pep2html/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	// Try current directory first (both extensions)
	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	// Try user config directory (both extensions)
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-pep2html", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
