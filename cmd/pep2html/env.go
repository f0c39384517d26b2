package main

import (
	"io"
	"os"

	"github.com/alnah/go-pep2html/internal/assets"
)

// Environment holds injectable dependencies for testability.
// Includes I/O and asset loading.
type Environment struct {
	Stdout      io.Writer
	Stderr      io.Writer
	AssetLoader assets.AssetLoader
}

// DefaultEnv returns the production environment with embedded assets.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		AssetLoader: assets.NewEmbeddedLoader(),
	}
}
