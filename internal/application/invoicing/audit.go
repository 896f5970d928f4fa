package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/domain/integration"
	"github.com/dropship/invoicer/internal/domain/order"
	"github.com/dropship/invoicer/internal/domain/shared/valueobject"
)

// AuditResult lists orders whose accounting invoice disagrees with the
// stored subtotal, and orders whose invoice has gone missing.
type AuditResult struct {
	IncorrectSubtotal []string
	MissingInvoice    []string
	Checked           int
}

// AuditService re-checks recently invoiced orders against the accounting
// system. Read-only; it never mutates invoices.
type AuditService struct {
	gateway integration.AccountingGateway
	repo    order.Repository
	logger  *zap.Logger
}

// NewAuditService creates an accuracy auditor.
func NewAuditService(gateway integration.AccountingGateway, repo order.Repository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{gateway: gateway, repo: repo, logger: logger}
}

// CheckAccuracy compares each order invoiced since the given time with
// its accounting invoice. The invoice total must equal the stored
// subtotal rounded half-up to two decimals.
func (s *AuditService) CheckAccuracy(ctx context.Context, since time.Time) (*AuditResult, error) {
	invoiced, err := s.repo.FindInvoicedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading invoiced orders: %w", err)
	}

	result := &AuditResult{Checked: len(invoiced)}
	for _, inv := range invoiced {
		found, err := s.gateway.FindInvoiceByDocNumber(ctx, inv.OrderID)
		if err != nil {
			if errors.Is(err, integration.ErrInvoiceNotFound) {
				result.MissingInvoice = append(result.MissingInvoice, inv.OrderID)
				continue
			}
			return nil, fmt.Errorf("checking invoice %s: %w", inv.OrderID, err)
		}

		want := valueobject.RoundHalfUp(inv.Subtotal)
		if valueobject.RoundHalfUp(found.Total) != want {
			s.logger.Warn("Invoice total mismatch",
				zap.String("order_id", inv.OrderID),
				zap.Float64("invoice_total", found.Total),
				zap.Float64("expected", want))
			result.IncorrectSubtotal = append(result.IncorrectSubtotal, inv.OrderID)
		}
	}
	return result, nil
}
