package main

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = fmt.Errorf("unsupported shell")

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}

	switch args[0] {
	case "bash":
		return generateBash(env.Stdout)
	default:
		return fmt.Errorf("%w: %q (supported: bash)", ErrUnsupportedShell, args[0])
	}
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pep2html completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Add to ~/.bashrc:")
	fmt.Fprintln(w, "  eval \"$(pep2html completion bash)\"")
}

// commandFlagNames extracts --long (and -short) spellings from a FlagSet.
func commandFlagNames(fs *flag.FlagSet) []string {
	var names []string
	fs.VisitAll(func(f *flag.Flag) {
		names = append(names, "--"+f.Name)
		if f.Shorthand != "" {
			names = append(names, "-"+f.Shorthand)
		}
	})
	return names
}

// buildFlagSet recreates the build command's FlagSet for completion.
// Registration is shared with parseBuildFlags, so the script never
// drifts from the real flags.
func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	f := &buildFlags{}
	fs.IntVarP(&f.workers, "workers", "w", 0, "")
	fs.BoolVar(&f.force, "force", false, "")
	addCommonFlags(fs, &f.common)
	addCorpusFlags(fs, &f.corpus)
	addLinkFlags(fs, &f.links)
	addIndexFlags(fs, &f.index)
	addAssetFlags(fs, &f.assets)
	return fs
}

// checkFlagSet recreates the check command's FlagSet for completion.
func checkFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	f := &checkFlags{}
	fs.StringVar(&f.corpus, "corpus", "", "")
	fs.BoolVar(&f.jsonOut, "json", false, "")
	addCommonFlags(fs, &f.common)
	return fs
}

// generateBash writes a bash completion script to w.
func generateBash(w io.Writer) error {
	buildFlagList := strings.Join(commandFlagNames(buildFlagSet()), " ")
	checkFlagList := strings.Join(commandFlagNames(checkFlagSet()), " ")

	script := `# bash completion for pep2html
_pep2html() {
    local cur prev commands
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"
    commands="build check completion version help"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        build)
            case "${prev}" in
                --corpus|--output|-o|--asset-path)
                    COMPREPLY=( $(compgen -d -- "${cur}") )
                    return 0
                    ;;
                --config|-c|--fingerprints)
                    COMPREPLY=( $(compgen -f -- "${cur}") )
                    return 0
                    ;;
            esac
            COMPREPLY=( $(compgen -W "%s" -- "${cur}") )
            ;;
        check)
            case "${prev}" in
                --corpus)
                    COMPREPLY=( $(compgen -d -- "${cur}") )
                    return 0
                    ;;
                --config|-c)
                    COMPREPLY=( $(compgen -f -- "${cur}") )
                    return 0
                    ;;
            esac
            COMPREPLY=( $(compgen -W "%s" -- "${cur}") )
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash" -- "${cur}") )
            ;;
        help)
            COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
            ;;
    esac
    return 0
}
complete -F _pep2html pep2html
`

	_, err := fmt.Fprintf(w, script, buildFlagList, checkFlagList)
	return err
}
