package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/seeder"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	urlsFile   = flag.String("urls", "data/product_urls.txt", "File with one product page URL per line")
	output     = flag.String("output", "", "Catalog file to write (defaults to LOCAL_JSON_PATH)")
	dryRun     = flag.Bool("dry-run", false, "Crawl and report, but don't write the catalog")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit  = flag.Int("limit", 0, "Limit number of pages to process (0 = all)")
	concurrent = flag.Int("concurrent", 2, "Number of concurrent requests")
	delay      = flag.Duration("delay", 2*time.Second, "Delay between requests")
	replace    = flag.Bool("replace", false, "Replace the catalog instead of merging into it")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.Level)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	path := *output
	if path == "" {
		path = cfg.Search.LocalPath
	}

	urls, err := seeder.ReadURLList(*urlsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read URL list")
	}
	if *pageLimit > 0 && *pageLimit < len(urls) {
		urls = urls[:*pageLimit]
		logger.WithField("limit", *pageLimit).Info("Limited pages to process")
	}

	logger.WithFields(logrus.Fields{
		"pages":  len(urls),
		"output": path,
	}).Info("Starting catalog seeder...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crawlerCfg := seeder.DefaultCrawlerConfig()
	crawlerCfg.Parallelism = *concurrent
	crawlerCfg.Delay = *delay
	crawlerCfg.Verbose = *verbose

	result, err := seeder.NewCrawler(crawlerCfg, logger).Crawl(ctx, urls)
	if result == nil {
		logger.WithError(err).Fatal("Failed to start crawler")
	}
	if err != nil {
		logger.WithError(err).Warn("Crawl interrupted, keeping what was collected")
	}

	for _, crawlErr := range result.Errors {
		logger.WithError(crawlErr).Warn("Page skipped")
	}

	if *dryRun {
		for _, p := range result.Products {
			logger.WithFields(logrus.Fields{
				"title": p.Title,
				"price": p.Price,
				"os":    p.OS,
				"ram":   p.RAM,
			}).Info("DRY RUN: Would write product")
		}
		return
	}

	if len(result.Products) == 0 {
		logger.Fatal("No products extracted, catalog left untouched")
	}

	var existing []models.Candidate
	if !*replace {
		existing, err = seeder.ReadCatalog(path)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read existing catalog")
		}
	}
	records := seeder.MergeCatalog(existing, result.Products)

	if err := seeder.WriteCatalog(path, records); err != nil {
		logger.WithError(err).Fatal("Failed to write catalog")
	}

	logger.WithFields(logrus.Fields{
		"products": len(result.Products),
		"total":    len(records),
		"skipped":  len(result.Errors),
	}).Info("Catalog seeding completed successfully!")
}
