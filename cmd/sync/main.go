package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	appsync "github.com/AudicoSA/audico-sync/internal/application/sync"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/config"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/logger"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/persistence"
	"github.com/AudicoSA/audico-sync/internal/suppliers"
)

func main() {
	var (
		supplierCode string
		runAll       bool
		limit        int
		dryRun       bool
		testOnly     bool
		timeout      time.Duration
		logLevel     string
		triggeredBy  string
	)

	flag.StringVar(&supplierCode, "supplier", "", "Supplier code to sync")
	flag.BoolVar(&runAll, "all", false, "Sync every configured supplier")
	flag.IntVar(&limit, "limit", 0, "Stop after this many records (0 = no limit)")
	flag.BoolVar(&dryRun, "dry-run", false, "Fetch and transform but skip all writes")
	flag.BoolVar(&testOnly, "test", false, "Probe connectivity only, no sync")
	flag.DurationVar(&timeout, "timeout", 90*time.Minute, "Overall run deadline")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&triggeredBy, "trigger", "cli", "Label recorded as the session trigger")
	flag.Parse()

	if supplierCode == "" && !runAll {
		fmt.Fprintln(os.Stderr, "Usage: sync -supplier <code> [-limit n] [-dry-run] [-test]")
		fmt.Fprintln(os.Stderr, "       sync -all [-dry-run]")
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays parseable JSON.
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(logLevel))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	built, err := suppliers.BuildFromConfig(cfg, suppliers.Deps{
		Products:  persistence.NewGormProductRepository(db.DB),
		Suppliers: supplierRepo,
		Sessions:  persistence.NewGormSessionRepository(db.DB),
		Logger:    log,
	})
	if err != nil {
		log.Fatal("Failed to build supplier adapters", zap.Error(err))
	}
	defer func() {
		for _, b := range built {
			b.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	registry := appsync.NewRegistry()
	for _, b := range built {
		if _, err := suppliers.EnsureSupplier(ctx, supplierRepo, b.Code, b.Name, b.SourceType); err != nil {
			log.Fatal("Failed to seed supplier row", zap.String("supplier", b.Code), zap.Error(err))
		}
		registry.Register(b.Code, b.Adapter)
	}

	service := appsync.NewService(registry, log)

	if testOnly {
		if err := service.TestConnection(ctx, supplierCode); err != nil {
			log.Fatal("Connection test failed", zap.String("supplier", supplierCode), zap.Error(err))
		}
		fmt.Println(`{"success": true}`)
		return
	}

	opts := syncdomain.Options{
		Limit:       limit,
		DryRun:      dryRun,
		TriggeredBy: triggeredBy,
	}

	if runAll {
		outcomes := service.RunAll(ctx, opts)
		printJSON(outcomes)
		for _, o := range outcomes {
			if o.Error != "" || (o.Result != nil && !o.Result.Success) {
				os.Exit(1)
			}
		}
		return
	}

	result, err := service.Run(ctx, supplierCode, opts)
	if err != nil {
		if result != nil {
			printJSON(result)
		}
		log.Fatal("Sync failed", zap.String("supplier", supplierCode), zap.Error(err))
	}
	printJSON(result)
	if !result.Success {
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
