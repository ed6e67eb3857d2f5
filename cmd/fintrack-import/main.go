// Command fintrack-import loads a CSV or XLSX bank export into the configured
// store through the same pipeline as the upload endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"fintrack/internal/cli"
	"fintrack/internal/importer"
	"fintrack/internal/services"
)

var (
	file   = flag.String("file", "", "CSV or XLSX file to import.")
	owner  = flag.String("owner", "", "Owner the transactions belong to.")
	mode   = flag.String("mode", "skip", "Duplicate policy: skip or allow.")
	dryRun = flag.Bool("dry-run", false, "Parse the file and print its rows without storing them.")
)

func main() {
	flag.Parse()
	if *file == "" || *owner == "" {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	policy, err := services.ParseDuplicatePolicy(*mode)
	if err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	rows, err := readRows(*file)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
	if *dryRun {
		printRows(os.Stdout, rows)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app, err := cli.InitApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	res, err := app.Ingestion.ImportBatch(ctx, *owner, importer.Records(rows), policy)
	if err != nil {
		color.Red("import failed: %v", err)
		os.Exit(1)
	}
	printResult(os.Stdout, res)
	if res.NothingToInsert() {
		os.Exit(3)
	}
}

func readRows(path string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := importer.Detect(path, "", f).Rows()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func printRows(w io.Writer, rows []importer.Row) {
	line := color.New(color.FgHiBlack)
	date := color.New(color.FgYellow)
	for _, r := range rows {
		line.Fprintf(w, "%4d ", r.Line)
		date.Fprintf(w, "%-12s", r.Date)
		fmt.Fprintf(w, "%-40.40s %12s %s\n", r.Description, r.Amount, r.Category)
	}
	fmt.Fprintf(w, "%d rows\n", len(rows))
}

func printResult(w io.Writer, res services.BatchResult) {
	color.New(color.FgGreen).Fprintf(w, "inserted   %d\n", res.Inserted)
	color.New(color.FgYellow).Fprintf(w, "duplicates %d\n", res.Duplicates)
	color.New(color.FgRed).Fprintf(w, "invalid    %d\n", res.Invalid)
	if res.Failed > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(w, "failed     %d\n", res.Failed)
	}
	if res.NothingToInsert() {
		fmt.Fprintln(w, "No new transactions to insert.")
	}
}
