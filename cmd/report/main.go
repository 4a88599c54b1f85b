// Package main regenerates the markdown and CSV report for a stored
// campaign: per-variant metrics, the guardrail table, and the champion
// lineage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"campaign-lab/internal/cli"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/reporting"
)

func main() {
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	campaignID := flag.String("campaign-id", "", "Campaign to report on")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	if *campaignID == "" {
		logger.Fatal("-campaign-id is required")
	}

	ctx := context.Background()

	stores, err := cli.OpenStores(ctx, *postgresDSN, "")
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	report, err := reporting.NewGenerator(stores.Results, stores.Champions).Generate(ctx, *campaignID)
	if err != nil {
		logger.Fatalf("generate: %v", err)
	}
	if report.VariantCount == 0 {
		logger.Fatalf("campaign %s has no stored results", *campaignID)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	stem := *campaignID
	if len(stem) > 12 {
		stem = stem[:12]
	}

	mdPath := filepath.Join(*outputDir, "campaign_"+stem+".md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatalf("write %s: %v", mdPath, err)
	}

	csvPath := filepath.Join(*outputDir, "campaign_"+stem+".csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Variants)), 0o644); err != nil {
		logger.Fatalf("write %s: %v", csvPath, err)
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	fmt.Printf("Report generated:\n")
	fmt.Printf("  Variants:  %d\n", report.VariantCount)
	if report.Promoted != "" {
		fmt.Printf("  Promoted:  %s\n", report.Promoted)
	}
	fmt.Printf("  Markdown:  %s\n", mdPath)
	fmt.Printf("  CSV:       %s\n", csvPath)
}
