package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	pep2html "github.com/alnah/go-pep2html"
	"github.com/alnah/go-pep2html/internal/assets"
	"github.com/alnah/go-pep2html/internal/config"
	"github.com/alnah/go-pep2html/internal/fileutil"
	"github.com/alnah/go-pep2html/internal/hints"
	"github.com/alnah/go-pep2html/internal/index"
)

// Sentinel errors for the build command.
var (
	ErrWriteOutput     = errors.New("failed to write output")
	ErrDocumentsFailed = errors.New("documents failed")
	ErrUnexpectedArg   = errors.New("unexpected argument")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Built-in destinations, used when neither config nor flags set them.
const (
	defaultOutputDir     = "public"
	fingerprintTableName = "fingerprints.json" // relative to the output dir
)

// runBuild orchestrates a corpus build: discover sources, run the library
// Builder, wrap fragments in the page template, and write everything to the
// output directory together with the fingerprint table for the next run.
func runBuild(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: %q (build takes no positional arguments)", ErrUnexpectedArg, positional[0])
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	setMaxProcs(flags.common.verbose, env)
	warnUnknownEnvVars(env.Stderr)

	cfg, err := loadBuildConfig(flags)
	if err != nil {
		return err
	}

	corpusDir := cfg.Corpus.Dir
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

	outputDir := cfg.Output.Dir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}
	fpPath := cfg.Output.Fingerprints
	if fpPath == "" {
		fpPath = filepath.Join(outputDir, fingerprintTableName)
	}

	var prior []byte
	if !flags.force {
		// Missing table means a full rebuild, not an error
		if data, err := os.ReadFile(fpPath); err == nil { // #nosec G304 -- config-provided path
			prior = data
		}
	}

	page, err := newRunPageWriter(cfg, env)
	if err != nil {
		return err
	}

	builder := pep2html.New(
		pep2html.WithLogger(buildLogger(env.Stderr, flags.common.quiet, flags.common.verbose)),
		pep2html.WithWorkers(cfg.Build.Workers),
		pep2html.WithDocumentURL(cfg.Links.DocumentURL),
		pep2html.WithRFCURL(cfg.Links.RFCURL),
		pep2html.WithIndexTitle(cfg.Index.Title),
		pep2html.WithIndexAuthor(cfg.Index.Author),
	)

	result, err := builder.Build(ctx, pep2html.Corpus{Sources: sources, Prior: prior})
	if err != nil {
		if errors.Is(err, pep2html.ErrReservedNumber) {
			return fmt.Errorf("%w%s", err, hints.ForReservedNumber())
		}
		return err
	}

	if err := os.MkdirAll(outputDir, dirPermissions); err != nil {
		return fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory())
	}
	if err := writeOutputs(result, page, outputDir, fpPath); err != nil {
		return err
	}

	printReport(result, flags.common.quiet, flags.common.verbose, env)

	_, _, failed := result.Report.Counts()
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrDocumentsFailed, failed, len(result.Report))
	}
	return nil
}

// loadBuildConfig resolves the effective configuration for one build:
// config file (flag or PEP2HTML_CONFIG), then env overrides, then flags,
// re-validated after the merge.
func loadBuildConfig(flags *buildFlags) (*config.Config, error) {
	envCfg := loadEnvConfig()

	configName := flags.common.config
	if configName == "" {
		configName = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if configName != "" {
		loaded, err := config.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(nil))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *buildFlags, cfg *config.Config) {
	if flags.corpus.corpus != "" {
		cfg.Corpus.Dir = flags.corpus.corpus
	}
	if flags.corpus.output != "" {
		cfg.Output.Dir = flags.corpus.output
	}
	if flags.corpus.fingerprints != "" {
		cfg.Output.Fingerprints = flags.corpus.fingerprints
	}
	if flags.links.documentURL != "" {
		cfg.Links.DocumentURL = flags.links.documentURL
	}
	if flags.links.rfcURL != "" {
		cfg.Links.RFCURL = flags.links.rfcURL
	}
	if flags.index.title != "" {
		cfg.Index.Title = flags.index.title
	}
	if flags.index.author != "" {
		cfg.Index.Author = flags.index.author
	}
	if flags.assets.style != "" {
		cfg.CSS.Style = flags.assets.style
	}
	if flags.assets.assetPath != "" {
		cfg.Assets.BasePath = flags.assets.assetPath
	}
	if flags.workers > 0 {
		cfg.Build.Workers = flags.workers
	}
}

// newRunPageWriter resolves the stylesheet and page template for one run.
// A configured asset directory is tried first, embedded assets fall back.
func newRunPageWriter(cfg *config.Config, env *Environment) (*pageWriter, error) {
	loader := env.AssetLoader
	if cfg.Assets.BasePath != "" {
		resolver, err := assets.NewAssetResolver(cfg.Assets.BasePath)
		if err != nil {
			return nil, err
		}
		loader = resolver
	}

	styleName := cfg.CSS.Style
	if styleName == "" {
		styleName = assets.DefaultStyleName
	}
	style, err := loader.LoadStyle(styleName)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForStyleNotFound(assets.EmbeddedStyleNames()))
		}
		return nil, err
	}

	templateText, err := loader.LoadTemplate(assets.DefaultTemplateName)
	if err != nil {
		return nil, err
	}

	return newPageWriter(templateText, style)
}

// writeOutputs persists every rendered page, then the fingerprint table.
// Each file is written atomically; the table goes last so a partial run
// never claims documents it did not write.
func writeOutputs(result *pep2html.BuildResult, page *pageWriter, outputDir, fpPath string) error {
	docs := make([]*pep2html.RenderedDocument, 0, len(result.Documents)+1)
	for _, doc := range result.Documents {
		docs = append(docs, doc)
	}
	if result.Index != nil {
		docs = append(docs, result.Index)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Number < docs[j].Number })

	for _, doc := range docs {
		html, err := page.Render(doc)
		if err != nil {
			return err
		}
		path := filepath.Join(outputDir, outputName(doc.Number))
		if err := fileutil.WriteFileAtomic(path, html, filePermissions); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(fpPath), dirPermissions); err != nil {
		return fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory())
	}
	if err := fileutil.WriteFileAtomic(fpPath, result.Fingerprints, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

// buildLogger builds the CLI's slog handler. Quiet shows warnings only,
// verbose shows per-document debug lines, the default shows run info.
func buildLogger(w io.Writer, quiet, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printReport summarizes one build run on stdout.
func printReport(result *pep2html.BuildResult, quiet, verbose bool, env *Environment) {
	rendered, skipped, failed := result.Report.Counts()

	for _, entry := range result.Report {
		name := outputName(entry.Number)
		switch {
		case entry.Outcome == pep2html.OutcomeFailed:
			fmt.Fprintf(env.Stderr, "FAILED %s [%s]: %v\n", name, entry.Stage, entry.Err)
		case quiet:
			// errors only
		case entry.Outcome == pep2html.OutcomeRendered && verbose:
			fmt.Fprintf(env.Stdout, "Created %s\n", name)
		case entry.Outcome == pep2html.OutcomeSkipped && verbose:
			fmt.Fprintf(env.Stdout, "Skipped %s (unchanged)\n", name)
		}
	}

	if verbose {
		printDiagnostics(result, env)
	}

	if !quiet {
		fmt.Fprintf(env.Stdout, "%d rendered, %d skipped, %d failed\n", rendered, skipped, failed)
	}
}

// printDiagnostics lists broken cross-references per document.
func printDiagnostics(result *pep2html.BuildResult, env *Environment) {
	docs := make([]*pep2html.RenderedDocument, 0, len(result.Documents)+1)
	for _, doc := range result.Documents {
		docs = append(docs, doc)
	}
	if result.Index != nil {
		docs = append(docs, result.Index)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Number < docs[j].Number })

	for _, doc := range docs {
		for _, d := range doc.Diagnostics {
			fmt.Fprintf(env.Stdout, "warning: %s: broken reference to %d (%s)\n",
				sourceLabel(d.Source), d.Target, d.Message)
		}
	}
}

// sourceLabel names a document in diagnostics output.
func sourceLabel(number int) string {
	if number == index.Number {
		return index.SourceName
	}
	return fmt.Sprintf("pep-%04d", number)
}
