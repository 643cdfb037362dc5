// Package finance manages invoices and the receipts paid against them.
package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PDFGenerator renders financial documents
type PDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, id uint) (string, error)
	GenerateReceiptPDF(ctx context.Context, id uint) (string, error)
}

// Service implements invoice and receipt operations
type Service struct {
	db    *database.DB
	pdf   PDFGenerator
	store *storage.Local
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates the finance service. pdf may be nil.
func NewService(db *database.DB, pdf PDFGenerator, store *storage.Local, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:    db,
		pdf:   pdf,
		store: store,
		log:   log.With(zap.String("service", "finance")),
		now:   time.Now,
	}
}

// InvoiceStatus derives the payment status from the amounts
func InvoiceStatus(total, paid decimal.Decimal) models.InvoiceStatus {
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		return models.InvoicePaid
	case paid.IsPositive():
		return models.InvoicePartiallyPaid
	default:
		return models.InvoiceUnpaid
	}
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, services.ErrNotFound)
	}
	return err
}

// lockInvoice loads an invoice for update. Row locks are a PostgreSQL
// feature; SQLite serializes writers anyway.
func (s *Service) lockInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	q := tx
	if s.db.IsPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var inv models.Invoice
	if err := q.First(&inv, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("invoice %d", id), err)
	}
	return &inv, nil
}

// adjustPaid adds delta to amount_paid under a row lock and re-derives the status
func (s *Service) adjustPaid(tx *gorm.DB, invoiceID uint, delta decimal.Decimal) error {
	inv, err := s.lockInvoice(tx, invoiceID)
	if err != nil {
		return err
	}

	paid := inv.AmountPaid.Add(delta)
	if paid.IsNegative() {
		s.log.Warn("amount paid below zero, clamping", zap.Uint("invoice_id", invoiceID), zap.String("paid", paid.String()))
		paid = decimal.Zero
	}

	status := inv.Status
	if status != models.InvoiceCancelled {
		status = InvoiceStatus(inv.TotalAmount, paid)
	}
	return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).
		Updates(map[string]interface{}{"amount_paid": paid, "status": status}).Error
}

func (s *Service) invoicePDF(ctx context.Context, id uint) {
	if s.pdf == nil {
		return
	}
	if _, err := s.pdf.GenerateInvoicePDF(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("invoice pdf generation failed", zap.Uint("invoice_id", id), zap.Error(err))
	}
}

func (s *Service) receiptPDF(ctx context.Context, id uint) {
	if s.pdf == nil {
		return
	}
	if _, err := s.pdf.GenerateReceiptPDF(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("receipt pdf generation failed", zap.Uint("receipt_id", id), zap.Error(err))
	}
}

// parseDay accepts YYYY-MM-DD or RFC 3339
func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}
