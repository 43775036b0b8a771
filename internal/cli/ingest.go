package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"casegen/internal/duckstore"
)

// runIngest builds the handler for the ingest command.
func runIngest(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		dbPath := flags.String("db", "", "DuckDB database file")
		out := flags.String("out", "", "Artifact directory to ingest")
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
		if *dbPath == "" || *out == "" {
			fmt.Fprintln(stderr, "missing required flags: --db and --out")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		db, err := duckstore.Open(absPath(*dbPath))
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		defer db.Close()

		if err := duckstore.EnsureSchema(db); err != nil {
			fmt.Fprintf(stderr, "apply schema: %v\n", err)
			return ExitError
		}

		counts, err := duckstore.IngestRun(context.Background(), db, absPath(*out))
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		fmt.Fprintf(stdout, "Ingested: %d runs, %d use cases, %d policies, %d test cases, %d examples\n",
			counts.Runs, counts.UseCases, counts.Policies, counts.TestCases, counts.Examples)
		return ExitOK
	}
}
