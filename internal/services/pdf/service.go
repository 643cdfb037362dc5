// Package pdf produces agreement, invoice and receipt PDFs and records
// where they were stored.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options configures the PDF service
type Options struct {
	InternalURL   string // base URL the browser uses to reach the print endpoint
	InternalKey   string
	PublicURL     string // used in invoice and receipt QR codes
	MaxConcurrent int
}

// Service generates PDFs. Browser sessions are capped by a semaphore.
type Service struct {
	db      *database.DB
	printer Printer
	store   *storage.Local
	log     *zap.Logger
	opts    Options
	sem     chan struct{}
	now     func() time.Time
}

// NewService creates a PDF service
func NewService(db *database.DB, printer Printer, store *storage.Local, log *zap.Logger, opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Service{
		db:      db,
		printer: printer,
		store:   store,
		log:     log.With(zap.String("service", "pdf")),
		opts:    opts,
		sem:     make(chan struct{}, opts.MaxConcurrent),
		now:     time.Now,
	}
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	<-s.sem
}

// PrintURL is the internal address of the agreement print page
func (s *Service) PrintURL(id uint) string {
	return fmt.Sprintf("%s/api/agreements/%d/html?key=%s", s.opts.InternalURL, id, url.QueryEscape(s.opts.InternalKey))
}

func (s *Service) fileName(prefix, number string) string {
	return fmt.Sprintf("%s_%s_%d.pdf", prefix, storage.SafeName(number), s.now().UnixMilli())
}

// GenerateAgreementPDF prints the agreement page and replaces any previous file
func (s *Service) GenerateAgreementPDF(ctx context.Context, id uint) (string, error) {
	var agreement models.Agreement
	if err := s.db.WithContext(ctx).First(&agreement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("agreement %d: %w", id, services.ErrNotFound)
		}
		return "", err
	}

	if err := s.store.Remove(agreement.PDFPath); err != nil {
		s.log.Warn("could not remove previous agreement pdf", zap.String("path", agreement.PDFPath), zap.Error(err))
	}

	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	data, err := s.printer.PrintToPDF(ctx, s.PrintURL(id))
	s.release()
	if err != nil {
		return "", err
	}

	rel, err := s.store.Save("agreements", s.fileName("agreement", agreement.AgreementNumber), data)
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.Agreement{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"pdf_path": rel, "pdf_generated_at": now}).Error; err != nil {
		return "", fmt.Errorf("record agreement pdf: %w", err)
	}

	s.log.Info("agreement pdf generated", zap.Uint("agreement_id", id), zap.String("path", rel), zap.Int("bytes", len(data)))
	return rel, nil
}

// GenerateInvoicePDF renders an invoice and replaces any previous file
func (s *Service) GenerateInvoicePDF(ctx context.Context, id uint) (string, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Preload("Items").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("invoice %d: %w", id, services.ErrNotFound)
		}
		return "", err
	}

	data, err := RenderInvoice(&inv, s.opts.PublicURL+"/invoices/"+url.PathEscape(inv.Number))
	if err != nil {
		return "", fmt.Errorf("render invoice: %w", err)
	}

	if err := s.store.Remove(inv.PDFPath); err != nil {
		s.log.Warn("could not remove previous invoice pdf", zap.String("path", inv.PDFPath), zap.Error(err))
	}
	rel, err := s.store.Save("invoices", s.fileName("invoice", inv.Number), data)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"pdf_path": rel, "pdf_generated_at": s.now()}).Error; err != nil {
		return "", fmt.Errorf("record invoice pdf: %w", err)
	}
	return rel, nil
}

// GenerateReceiptPDF renders a receipt and replaces any previous file
func (s *Service) GenerateReceiptPDF(ctx context.Context, id uint) (string, error) {
	var rc models.Receipt
	if err := s.db.WithContext(ctx).First(&rc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("receipt %d: %w", id, services.ErrNotFound)
		}
		return "", err
	}

	invoiceNumber := ""
	if rc.InvoiceID != nil {
		var inv models.Invoice
		if err := s.db.WithContext(ctx).Select("number").First(&inv, *rc.InvoiceID).Error; err == nil {
			invoiceNumber = inv.Number
		}
	}

	data, err := RenderReceipt(&rc, invoiceNumber, s.opts.PublicURL+"/receipts/"+url.PathEscape(rc.Number))
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}

	if err := s.store.Remove(rc.PDFPath); err != nil {
		s.log.Warn("could not remove previous receipt pdf", zap.String("path", rc.PDFPath), zap.Error(err))
	}
	rel, err := s.store.Save("receipts", s.fileName("receipt", rc.Number), data)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&models.Receipt{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"pdf_path": rel, "pdf_generated_at": s.now()}).Error; err != nil {
		return "", fmt.Errorf("record receipt pdf: %w", err)
	}
	return rel, nil
}
