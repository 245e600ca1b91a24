package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"launchpad/services/launchpadd/journal"
)

func runExportJournal(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export-journal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dsn := fs.String("dsn", "", "journal DSN (SQLite path or postgres:// URL)")
	out := fs.String("out", "journal.parquet", "parquet file to write")
	since := fs.String("since", "", "only export operations recorded at or after this RFC3339 time")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*dsn) == "" {
		fmt.Fprintln(stderr, "Error: --dsn is required")
		return 1
	}
	var from time.Time
	if strings.TrimSpace(*since) != "" {
		parsed, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid --since: %v\n", err)
			return 1
		}
		from = parsed
	}
	j, err := journal.Open(*dsn)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer j.Close()
	rows, err := j.ExportParquet(context.Background(), *out, from)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "exported %d operations to %s\n", rows, *out)
	return 0
}
