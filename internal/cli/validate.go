package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"casegen/internal/contract"
	"casegen/internal/corpus"
	"casegen/internal/evidence"
)

// runValidate builds the handler for the validate command.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		out := flags.String("out", "", "Artifact directory to validate")
		input := flags.String("input", "", "Source document for evidence checking (optional)")
		coveragePath := flags.String("coverage", "", "Path to a coverage spec (default: built-in)")
		noColor := flags.Bool("no-color", false, "Disable colored output")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if *out == "" {
			fmt.Fprintln(stderr, "missing required flag: --out")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		dir := absPath(*out)
		opts := corpus.Options{}
		if *input != "" {
			lines, err := evidence.ReadLines(*input)
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
			opts.Lines = lines
		} else if manifest, err := contract.LoadManifest(dir); err == nil {
			// Without --input, fall back to the document the run was
			// generated from. A recorded path that no longer exists just
			// skips the evidence checks.
			if lines, err := evidence.ReadLines(manifest.InputPath); err == nil {
				opts.Lines = lines
			}
		}
		cov, err := loadCoverage(*coveragePath)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		opts.Coverage = cov

		report, err := corpus.ValidateDirectory(dir, opts)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		renderReport(stdout, report, *noColor)
		if !report.OK() {
			return ExitError
		}
		return ExitOK
	}
}
