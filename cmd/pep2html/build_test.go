package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-pep2html/internal/assets"
	"github.com/alnah/go-pep2html/internal/config"
)

// writeTestCorpus creates a two-document corpus with a cross-reference
// and returns the corpus directory.
func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pep-0001.md"),
		validSource(1, "PEP Purpose and Guidelines", "Active", "Process", "13-Jun-2000",
			"This document explains the proposal process.\n"))
	writeFile(t, filepath.Join(dir, "pep-0008.md"),
		validSource(8, "Style Guide for Python Code", "Active", "Process", "05-Jul-2001",
			"See PEP 1 for the process.\n\n## Code Layout\n\nUse four spaces.\n"))
	return dir
}

func readOutput(t *testing.T, outDir string, number int) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, outputName(number)))
	if err != nil {
		t.Fatalf("reading output for %d: %v", number, err)
	}
	return string(data)
}

func TestRunBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	out := filepath.Join(t.TempDir(), "site")

	env, stdout, _ := newTestEnv()
	if err := runBuild(context.Background(), []string{"--corpus", corpus, "-o", out}, env); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	page1 := readOutput(t, out, 1)
	page8 := readOutput(t, out, 8)
	index := readOutput(t, out, 0)

	for name, page := range map[string]string{"pep-0001": page1, "pep-0008": page8, "index": index} {
		if !strings.Contains(page, "<!DOCTYPE html>") {
			t.Errorf("%s: output is a bare fragment, want a full page", name)
		}
		if !strings.Contains(page, `<main class="pep">`) {
			t.Errorf("%s: output missing the page shell", name)
		}
	}

	// Cross-reference resolved through the default URL template
	if !strings.Contains(page8, `href="/pep-0001/"`) {
		t.Errorf("pep-0008 missing resolved link to PEP 1:\n%s", page8)
	}
	// Index groups by status and links both documents
	if !strings.Contains(index, "Active") {
		t.Errorf("index missing status group:\n%s", index)
	}
	if !strings.Contains(index, "Style Guide for Python Code") {
		t.Errorf("index missing document row:\n%s", index)
	}

	if _, err := os.Stat(filepath.Join(out, "fingerprints.json")); err != nil {
		t.Errorf("fingerprint table not written: %v", err)
	}
	if !strings.Contains(stdout.String(), "2 rendered, 0 skipped, 0 failed") {
		t.Errorf("summary missing or wrong:\n%s", stdout.String())
	}
}

func TestRunBuild_IncrementalSkip(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	out := filepath.Join(t.TempDir(), "site")
	args := []string{"--corpus", corpus, "-o", out}

	env1, _, _ := newTestEnv()
	if err := runBuild(context.Background(), args, env1); err != nil {
		t.Fatalf("first runBuild() error = %v", err)
	}

	env2, stdout, _ := newTestEnv()
	if err := runBuild(context.Background(), args, env2); err != nil {
		t.Fatalf("second runBuild() error = %v", err)
	}

	// Both documents and the index were unchanged
	if !strings.Contains(stdout.String(), "0 rendered, 3 skipped, 0 failed") {
		t.Errorf("second run should skip everything:\n%s", stdout.String())
	}
}

func TestRunBuild_ForceRebuilds(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	out := filepath.Join(t.TempDir(), "site")

	env1, _, _ := newTestEnv()
	if err := runBuild(context.Background(), []string{"--corpus", corpus, "-o", out}, env1); err != nil {
		t.Fatalf("first runBuild() error = %v", err)
	}

	env2, stdout, _ := newTestEnv()
	if err := runBuild(context.Background(), []string{"--corpus", corpus, "-o", out, "--force"}, env2); err != nil {
		t.Fatalf("forced runBuild() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "2 rendered, 0 skipped, 0 failed") {
		t.Errorf("forced run should rebuild everything:\n%s", stdout.String())
	}
}

func TestRunBuild_FailedDocumentIsolated(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	writeFile(t, filepath.Join(corpus, "pep-0020.md"),
		validSource(20, "The Zen of Python", "Active", "Informational", "19-Aug-2004",
			"Preamble.\n\n.. mystery:: unknown\n"))
	out := filepath.Join(t.TempDir(), "site")

	env, _, stderr := newTestEnv()
	err := runBuild(context.Background(), []string{"--corpus", corpus, "-o", out}, env)
	if !errors.Is(err, ErrDocumentsFailed) {
		t.Fatalf("runBuild() error = %v, want ErrDocumentsFailed", err)
	}
	if exitCodeFor(err) != ExitCorpus {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitCorpus)
	}

	// The failure is reported and the rest of the corpus still renders
	if !strings.Contains(stderr.String(), "FAILED pep-0020.html") {
		t.Errorf("stderr missing failure line:\n%s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, outputName(1))); err != nil {
		t.Errorf("healthy document not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, outputName(20))); err == nil {
		t.Error("failed document produced an output file")
	}

	// The index still lists the failed document by title, without content
	index := readOutput(t, out, 0)
	if !strings.Contains(index, "The Zen of Python") {
		t.Errorf("index missing row for failed document:\n%s", index)
	}
}

func TestRunBuild_EmptyCorpus(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv()
	err := runBuild(context.Background(), []string{"--corpus", t.TempDir(), "-o", t.TempDir()}, env)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("runBuild() error = %v, want ErrEmptyCorpus", err)
	}
}

func TestRunBuild_RejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv()
	err := runBuild(context.Background(), []string{"stray"}, env)
	if !errors.Is(err, ErrUnexpectedArg) {
		t.Errorf("runBuild() error = %v, want ErrUnexpectedArg", err)
	}
}

func TestRunBuild_UnknownStyle(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	env, _, _ := newTestEnv()
	err := runBuild(context.Background(),
		[]string{"--corpus", corpus, "-o", t.TempDir(), "--style", "no-such-style"}, env)
	if !errors.Is(err, assets.ErrStyleNotFound) {
		t.Errorf("runBuild() error = %v, want ErrStyleNotFound", err)
	}
}

func TestRunBuild_BadURLTemplate(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	env, _, _ := newTestEnv()
	err := runBuild(context.Background(),
		[]string{"--corpus", corpus, "-o", t.TempDir(), "--doc-url", "no-verb-here"}, env)
	if !errors.Is(err, config.ErrBadTemplate) {
		t.Errorf("runBuild() error = %v, want ErrBadTemplate", err)
	}
}

func TestRunBuild_ConfigFile(t *testing.T) {
	t.Parallel()

	corpus := writeTestCorpus(t)
	out := filepath.Join(t.TempDir(), "from-config")

	cfgPath := filepath.Join(t.TempDir(), "corpus.yaml")
	writeFile(t, cfgPath, "corpus:\n  dir: "+corpus+"\noutput:\n  dir: "+out+"\n")

	env, _, _ := newTestEnv()
	if err := runBuild(context.Background(), []string{"--config", cfgPath, "-q"}, env); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, outputName(1))); err != nil {
		t.Errorf("output not written to configured directory: %v", err)
	}
}

func TestRunBuild_MissingConfig(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv()
	err := runBuild(context.Background(),
		[]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}, env)
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("runBuild() error = %v, want ErrConfigNotFound", err)
	}
}
