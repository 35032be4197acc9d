// Command anvil is Anvil's command-line shell: a minimal dispatcher over a
// small command interface, wired to the operations this repository
// implements (build, update, ensure, why, search). Argument parsing beyond each
// command's own flags, help formatting, and compiler-specific flag
// mangling are all out of scope here; this shell exists only to exercise
// internal/project from a real entry point.
//
// Grounded on main.go's command interface dispatched by matching
// os.Args[1], a shared -v flag registered onto every subcommand's own
// flag.FlagSet, and a package-level context built once at startup.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// defaultRegistryURL is the registry Anvil talks to when none is
// configured via environment override. Registry configuration beyond this
// single default is out of scope (spec §6).
const defaultRegistryURL = "https://code.forge-lang.org"

const envRegistry = "ANVIL_REGISTRY"

var (
	anvilCtx *context
	verbose  = flag.Bool("v", false, "enable verbose logging")
)

// command is the interface every subcommand implements: a name to match
// against os.Args[1], its own flag registration, and a Run over the
// remaining arguments.
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(args []string) error
}

func main() {
	commands := []command{
		&buildCommand{},
		&ensureCommand{},
		&updateCommand{},
		&whyCommand{},
		&searchCommand{},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: anvil <command> [arguments]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "  %s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
	}

	if len(os.Args) <= 1 || strings.EqualFold(os.Args[1], "help") || os.Args[1] == "-h" {
		usage()
		os.Exit(1)
	}

	for _, cmd := range commands {
		if cmd.Name() != os.Args[1] {
			continue
		}
		fs := flag.NewFlagSet(cmd.Name(), flag.ExitOnError)
		fs.BoolVar(verbose, "v", false, "enable verbose logging")
		cmd.Register(fs)
		if err := fs.Parse(os.Args[2:]); err != nil {
			os.Exit(1)
		}
		c, err := newContext()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		anvilCtx = c
		if err := cmd.Run(fs.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "anvil: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "anvil: no such command %q\n", os.Args[1])
	usage()
	os.Exit(1)
}
