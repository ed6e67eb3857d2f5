package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

func TestNewClassifier(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	c, err := NewClassifier("", logger)
	if err != nil {
		t.Fatalf("NewClassifier(\"\") error = %v", err)
	}
	if got := c.Classify("dominos"); got != core.Others {
		t.Errorf("Classify(dominos) = %v, want others", got)
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("keywords:\n  food: [dominos]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = NewClassifier(path, logger)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if got := c.Classify("Dominos pizza"); got != core.Food {
		t.Errorf("Classify(Dominos pizza) = %v, want food", got)
	}

	keywords := 0
	for _, r := range c.Rules() {
		keywords += len(r.Keywords)
	}
	for _, want := range []string{
		"Loaded category rules",
		"file=" + path,
		"categories=" + strconv.Itoa(len(c.Rules())),
		"keywords=" + strconv.Itoa(keywords),
	} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log output %q missing %q", logs.String(), want)
		}
	}

	if _, err := NewClassifier(filepath.Join(t.TempDir(), "missing.yaml"), logger); err == nil {
		t.Error("NewClassifier(missing) error = nil, want error")
	}
}

func TestInitApp_Memory(t *testing.T) {
	cfg := &config.Config{
		DataBackend:            "memory",
		AITimeout:              time.Second,
		SummaryLocale:          "en-US",
		CurrencySymbol:         "$",
		DuplicateLookupWorkers: 2,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	app, err := InitApp(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("InitApp() error = %v", err)
	}
	defer app.Close()

	txn, err := app.Ingestion.AddTransaction(ctx, "u1", services.Record{
		Date: "2024-03-05", Description: "Uber ride", Amount: "250",
	}, services.PolicySkip)
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if txn.Category != core.Transport {
		t.Errorf("Category = %v, want transport", txn.Category)
	}

	sum, err := app.Summaries.MonthlySummary(ctx, "u1", 3, 2024)
	if err != nil {
		t.Fatalf("MonthlySummary() error = %v", err)
	}
	if sum.Source != services.SourceFallback {
		t.Errorf("Source = %q, want %q", sum.Source, services.SourceFallback)
	}
}

func TestInitApp_BadBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := InitApp(context.Background(), &config.Config{DataBackend: "sheets"}, logger); err == nil {
		t.Error("InitApp() error = nil, want error")
	}
}
