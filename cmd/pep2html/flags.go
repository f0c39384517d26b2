package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// corpusFlags holds source discovery and output destination flags.
type corpusFlags struct {
	corpus       string
	output       string
	fingerprints string
}

// linkFlags holds the URL templates reference resolution uses.
type linkFlags struct {
	documentURL string
	rfcURL      string
}

// indexFlags holds flags for the synthesized index document.
type indexFlags struct {
	title  string
	author string
}

// assetFlags holds stylesheet and asset directory flags.
type assetFlags struct {
	style     string
	assetPath string
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common  commonFlags
	corpus  corpusFlags
	links   linkFlags
	index   indexFlags
	assets  assetFlags
	workers int
	force   bool
}

// checkFlags holds all flags for the check command.
type checkFlags struct {
	common  commonFlags
	corpus  string
	jsonOut bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-document detail")
}

// addCorpusFlags adds discovery and output flags to a FlagSet.
func addCorpusFlags(fs *flag.FlagSet, f *corpusFlags) {
	fs.StringVar(&f.corpus, "corpus", "", "corpus directory holding pep-NNNN.md sources")
	fs.StringVarP(&f.output, "output", "o", "", "output directory for rendered HTML")
	fs.StringVar(&f.fingerprints, "fingerprints", "", "fingerprint table path")
}

// addLinkFlags adds URL template flags to a FlagSet.
func addLinkFlags(fs *flag.FlagSet, f *linkFlags) {
	fs.StringVar(&f.documentURL, "doc-url", "", "URL template for document links (one %d verb)")
	fs.StringVar(&f.rfcURL, "rfc-url", "", "URL template for RFC links (one %d verb)")
}

// addIndexFlags adds index metadata flags to a FlagSet.
func addIndexFlags(fs *flag.FlagSet, f *indexFlags) {
	fs.StringVar(&f.title, "index-title", "", "title of the generated index document")
	fs.StringVar(&f.author, "index-author", "", "author line of the generated index document")
}

// addAssetFlags adds stylesheet and asset flags to a FlagSet.
func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "stylesheet name")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string) (*buildFlags, []string, error) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	f := &buildFlags{}

	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.force, "force", false, "rebuild everything, ignoring the fingerprint table")

	addCommonFlags(fs, &f.common)
	addCorpusFlags(fs, &f.corpus)
	addLinkFlags(fs, &f.links)
	addIndexFlags(fs, &f.index)
	addAssetFlags(fs, &f.assets)

	fs.Usage = func() { printBuildUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}

// parseCheckFlags parses check command flags and returns positional args.
func parseCheckFlags(args []string) (*checkFlags, []string, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	f := &checkFlags{}

	fs.StringVar(&f.corpus, "corpus", "", "corpus directory holding pep-NNNN.md sources")
	fs.BoolVar(&f.jsonOut, "json", false, "machine-readable output")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printCheckUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
