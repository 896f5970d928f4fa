package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/application/invoicing"
	"github.com/dropship/invoicer/internal/application/pipeline"
	"github.com/dropship/invoicer/internal/application/reconcile"
	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/report"
	"github.com/dropship/invoicer/internal/infrastructure/accounting"
	"github.com/dropship/invoicer/internal/infrastructure/config"
	"github.com/dropship/invoicer/internal/infrastructure/delivery"
	"github.com/dropship/invoicer/internal/infrastructure/exportfile"
	"github.com/dropship/invoicer/internal/infrastructure/logger"
	"github.com/dropship/invoicer/internal/infrastructure/notify"
	"github.com/dropship/invoicer/internal/infrastructure/oms"
	"github.com/dropship/invoicer/internal/infrastructure/persistence"
)

func main() {
	var auditDays int
	flag.IntVar(&auditDays, "audit-days", 0,
		"Audit invoices created in the last N days instead of running the pipeline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	// One id per invocation ties every log line of a run together.
	log = log.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := persistence.NewGormOrderRepository(db.DB)

	accountingClient, err := accounting.NewClient(&accounting.Config{
		BaseURL: cfg.Accounting.BaseURL,
		Token:   cfg.Accounting.Token,
		Timeout: cfg.Accounting.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create accounting client", zap.Error(err))
	}

	if auditDays > 0 {
		runAudit(ctx, log, accountingClient, repo, auditDays)
		return
	}

	omsClient, err := oms.NewClient(&oms.Config{
		BaseURL:    cfg.OMS.BaseURL,
		Username:   cfg.OMS.Username,
		Password:   cfg.OMS.Password,
		Timeout:    cfg.OMS.Timeout,
		MaxRetries: cfg.OMS.MaxRetries,
	}, log)
	if err != nil {
		log.Fatal("Failed to create OMS client", zap.Error(err))
	}

	uploader, err := delivery.NewS3Uploader(&cfg.Delivery, log)
	if err != nil {
		log.Fatal("Failed to create uploader", zap.Error(err))
	}

	mailer, err := notify.NewMailer(&cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to create mailer", zap.Error(err))
	}

	registry := report.NewRegistry()
	reconciler := reconcile.NewService(reconcile.Config{
		Gateway:        omsClient,
		Registry:       registry,
		Logger:         log,
		UseOMSShipping: cfg.OMS.UseShipping,
	})
	invoicer := invoicing.NewService(invoicing.Config{
		Gateway:    accountingClient,
		Repository: repo,
		Registry:   registry,
		Vendors:    vendorMappings(cfg.Vendors),
		References: invoicing.ReferenceIDs{
			Item:         cfg.Accounting.ItemRef,
			TaxItem:      cfg.Accounting.TaxItemRef,
			ShippingItem: cfg.Accounting.ShippingItemRef,
			Class:        cfg.Accounting.ClassRef,
			Term:         cfg.Accounting.TermRef,
		},
		Logger: log,
	})

	p := pipeline.New(pipeline.Config{
		Repository: repo,
		Layouts:    persistence.NewGormLayoutRepository(db.DB),
		Reconciler: reconciler,
		Invoicer:   invoicer,
		Writer:     exportfile.NewWriter(cfg.Export.BaseDir, time.Now(), log),
		Uploader:   uploader,
		Notifier:   mailer,
		Runs:       persistence.NewGormRunLogRepository(db.DB, cfg.Run.ProcessName),
		Registry:   registry,
		Filter:     order.ReadFilter{AllowedPONumbers: cfg.Run.AllowedPONumbers},
		Logger:     log,
	})

	result, err := p.Run(ctx)
	if err != nil {
		log.Fatal("Invoice run failed", zap.Error(err))
	}

	log.Info("Invoice run finished",
		zap.Int("orders_read", result.OrdersRead),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("files_written", len(result.FilesWritten)))
}

// runAudit re-checks recently invoiced orders against the accounting
// system and reports mismatches without touching anything.
func runAudit(ctx context.Context, log *zap.Logger, gateway *accounting.Client, repo order.Repository, days int) {
	auditor := invoicing.NewAuditService(gateway, repo, log)
	since := time.Now().AddDate(0, 0, -days)

	result, err := auditor.CheckAccuracy(ctx, since)
	if err != nil {
		log.Fatal("Audit failed", zap.Error(err))
	}

	for _, id := range result.IncorrectSubtotal {
		log.Warn("Invoice total does not match order subtotal", zap.String("order_id", id))
	}
	for _, id := range result.MissingInvoice {
		log.Warn("Order marked invoiced but invoice is missing", zap.String("order_id", id))
	}
	log.Info("Audit complete",
		zap.Int("checked", result.Checked),
		zap.Int("incorrect_subtotal", len(result.IncorrectSubtotal)),
		zap.Int("missing_invoice", len(result.MissingInvoice)))

	if len(result.IncorrectSubtotal) > 0 || len(result.MissingInvoice) > 0 {
		os.Exit(1)
	}
}

func vendorMappings(vendors map[string]config.VendorConfig) map[string]invoicing.VendorMapping {
	mappings := make(map[string]invoicing.VendorMapping, len(vendors))
	for code, v := range vendors {
		mappings[code] = invoicing.VendorMapping{
			CustomerID: v.CustomerID,
			ShipMethod: v.ShipMethod,
			Email:      v.Email,
		}
	}
	return mappings
}
