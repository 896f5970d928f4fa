// Package pipeline drives a full invoicing run: read eligible orders,
// reconcile them against the order management system, create invoices,
// render and deliver the partner export files, and report errors.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/application/export"
	"github.com/dropship/invoicer/internal/application/invoicing"
	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/report"
)

// Run statuses recorded in the run log.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Reconciler applies order management system truth to assembled buckets.
type Reconciler interface {
	ReconcileAll(ctx context.Context, buckets *order.BucketSet)
}

// Invoicer ensures at most one invoice exists per order.
type Invoicer interface {
	EnsureInvoice(ctx context.Context, o *order.Order) invoicing.Outcome
}

// FileWriter materializes a rendered table as a local file and returns
// its path.
type FileWriter interface {
	Write(table *export.Table, folder string) (string, error)
}

// Uploader delivers previously written export files to the partners.
type Uploader interface {
	Upload(ctx context.Context, localPaths []string) error
}

// Notifier sends the end-of-run error report.
type Notifier interface {
	SendErrorReport(ctx context.Context, rep report.Report) error
}

// RunRecorder persists one status row per run.
type RunRecorder interface {
	RecordRun(ctx context.Context, status, detail string, duration time.Duration) error
}

// Result summarizes one run.
type Result struct {
	OrdersRead      int
	InvoicesCreated int
	FilesWritten    []string
	Report          report.Report
}

// Pipeline wires the run. All collaborators are required except Logger.
type Pipeline struct {
	repo       order.Repository
	layouts    export.LayoutSource
	reconciler Reconciler
	invoicer   Invoicer
	writer     FileWriter
	uploader   Uploader
	notifier   Notifier
	runs       RunRecorder
	registry   *report.Registry
	filter     order.ReadFilter
	logger     *zap.Logger
}

// Config holds the pipeline dependencies.
type Config struct {
	Repository order.Repository
	Layouts    export.LayoutSource
	Reconciler Reconciler
	Invoicer   Invoicer
	Writer     FileWriter
	Uploader   Uploader
	Notifier   Notifier
	Runs       RunRecorder
	Registry   *report.Registry
	Filter     order.ReadFilter
	Logger     *zap.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		repo:       cfg.Repository,
		layouts:    cfg.Layouts,
		reconciler: cfg.Reconciler,
		invoicer:   cfg.Invoicer,
		writer:     cfg.Writer,
		uploader:   cfg.Uploader,
		notifier:   cfg.Notifier,
		runs:       cfg.Runs,
		registry:   cfg.Registry,
		filter:     cfg.Filter,
		logger:     logger,
	}
}

// Run executes one full invoicing pass. A failure before any order is
// touched fails the run; per-order failures are classified and the run
// continues. Delivery and notification failures are logged, not fatal,
// because by that point invoices already exist.
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	defer func() {
		status, detail := StatusSuccess, "Completed successfully"
		if err != nil {
			status, detail = StatusFailed, err.Error()
		}
		if logErr := p.runs.RecordRun(ctx, status, detail, time.Since(start)); logErr != nil {
			p.logger.Warn("Could not record run status", zap.Error(logErr))
		}
	}()

	rows, err := p.repo.FindInvoiceReady(ctx, p.filter)
	if err != nil {
		return nil, fmt.Errorf("reading eligible orders: %w", err)
	}
	result = &Result{OrdersRead: len(rows)}
	if len(rows) == 0 {
		p.logger.Info("No orders ready to invoice")
		result.Report = p.registry.BuildReport()
		return result, nil
	}

	buckets, err := order.Assemble(rows)
	if err != nil {
		return nil, fmt.Errorf("assembling orders: %w", err)
	}

	p.reconciler.ReconcileAll(ctx, buckets)

	layouts := export.LoadLayouts(ctx, p.layouts, p.logger)
	for _, key := range buckets.Keys() {
		bucket := buckets.Get(key)
		if bucket == nil || len(bucket.Orders) == 0 {
			continue
		}
		path, created := p.processBucket(ctx, bucket, layouts)
		result.InvoicesCreated += created
		if path != "" {
			result.FilesWritten = append(result.FilesWritten, path)
		}
	}

	if len(result.FilesWritten) > 0 {
		if upErr := p.uploader.Upload(ctx, result.FilesWritten); upErr != nil {
			p.logger.Error("Export delivery failed", zap.Error(upErr))
		}
	}

	result.Report = p.registry.BuildReport()
	if !result.Report.IsEmpty() {
		if mailErr := p.notifier.SendErrorReport(ctx, result.Report); mailErr != nil {
			p.logger.Error("Could not send error report", zap.Error(mailErr))
		}
	}

	p.logger.Info("Run complete",
		zap.Int("orders_read", result.OrdersRead),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("files_written", len(result.FilesWritten)))
	return result, nil
}

// processBucket invoices and renders one bucket's orders. Returns the
// written file path (empty when no rows rendered) and the number of
// invoices created.
func (p *Pipeline) processBucket(ctx context.Context, bucket *order.DropshipperBucket, layouts map[string][]string) (string, int) {
	renderer, err := export.NewRenderer(bucket.Layout, layouts, p.logger)
	if err != nil {
		p.logger.Error("Skipping bucket with unusable layout",
			zap.String("partner_code", bucket.Key.PartnerCode),
			zap.String("layout", bucket.Layout),
			zap.Error(err))
		for _, o := range bucket.Orders {
			p.registry.Add(report.CategoryUnableToInvoice, o.PartnerCode, o.PurchaseOrderNumber)
		}
		return "", 0
	}

	created := 0
	for _, o := range bucket.Orders {
		if p.invoicer.EnsureInvoice(ctx, o) != invoicing.OutcomeCreated {
			continue
		}
		created++
		if !renderer.AddOrder(o) {
			// The invoice exists but the export row does not; flag it so
			// someone reconciles the file by hand.
			p.registry.Add(report.CategoryUnableToInvoice, o.PartnerCode, o.PurchaseOrderNumber)
		}
	}

	if !renderer.HasData() {
		return "", created
	}
	path, err := p.writer.Write(renderer.Table(), bucket.Key.ExportFolder)
	if err != nil {
		p.logger.Error("Could not write export file",
			zap.String("partner_code", bucket.Key.PartnerCode),
			zap.String("folder", bucket.Key.ExportFolder),
			zap.Error(err))
		return "", created
	}
	return path, created
}
