package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Attachment is a scanned payment document sent as base64
type Attachment struct {
	FileName string `json:"fileName"`
	Data     string `json:"data"`
}

// ReceiptRequest creates or replaces a receipt
type ReceiptRequest struct {
	Number      string          `json:"number"`
	InvoiceID   *uint           `json:"invoiceId"`
	AgreementID *uint           `json:"agreementId"`
	PayerName   string          `json:"payerName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaidAt      string          `json:"paidAt"`
	Method      string          `json:"method"`
	Notes       string          `json:"notes"`
	Attachment  *Attachment     `json:"attachment"`
}

func (req *ReceiptRequest) validate() error {
	v := services.Violations{}
	if !req.Amount.IsPositive() {
		v.Add("amount", "amount must be positive")
	}
	if _, err := parseDay(req.PaidAt); err != nil {
		v.Add("paidAt", err.Error())
	}
	switch req.Method {
	case "", "cash", "bank_transfer", "card":
	default:
		v.Add("method", "unknown payment method "+req.Method)
	}
	return v.Err()
}

func (s *Service) saveAttachment(number string, att *Attachment) (string, error) {
	if att == nil || att.Data == "" {
		return "", nil
	}
	if s.store == nil {
		return "", fmt.Errorf("file storage is not configured")
	}
	name := att.FileName
	if name == "" {
		name = number + "_attachment"
	}
	path, _, err := s.store.SaveBase64("receipts", storage.SafeName(number)+"_"+name, att.Data)
	if err != nil {
		return "", &services.ValidationError{Fields: map[string]string{"attachment": err.Error()}}
	}
	return path, nil
}

// CreateReceipt records a payment. When linked to an invoice, its amount is
// added to the invoice's amount paid in the same transaction.
func (s *Service) CreateReceipt(ctx context.Context, req ReceiptRequest) (*models.Receipt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	paidAt, _ := parseDay(req.PaidAt)

	now := s.now()
	rc := &models.Receipt{
		Number:      strings.TrimSpace(req.Number),
		InvoiceID:   req.InvoiceID,
		AgreementID: req.AgreementID,
		PayerName:   strings.TrimSpace(req.PayerName),
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaidAt:      now,
		Method:      req.Method,
		Notes:       req.Notes,
	}
	if paidAt != nil {
		rc.PaidAt = *paidAt
	}
	if rc.Currency == "" {
		rc.Currency = "UAH"
	}

	var written string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rc.Number == "" {
			number, err := services.NextNumber(tx, &models.Receipt{}, "number", "RC", now)
			if err != nil {
				return err
			}
			rc.Number = number
		}
		if rc.InvoiceID != nil {
			if err := s.adjustPaid(tx, *rc.InvoiceID, rc.Amount); err != nil {
				return err
			}
		}

		path, err := s.saveAttachment(rc.Number, req.Attachment)
		if err != nil {
			return err
		}
		written = path
		rc.FilePath = path
		return tx.Create(rc).Error
	})
	if err != nil {
		if written != "" {
			_ = s.store.Remove(written)
		}
		return nil, err
	}

	s.log.Info("receipt created", zap.Uint("receipt_id", rc.ID), zap.String("number", rc.Number), zap.String("amount", rc.Amount.String()))
	s.receiptPDF(ctx, rc.ID)
	return s.GetReceipt(ctx, rc.ID)
}

// UpdateReceipt replaces a receipt. The old amount is taken off its old
// invoice and the new amount added to the new one.
func (s *Service) UpdateReceipt(ctx context.Context, id uint, req ReceiptRequest) (*models.Receipt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	paidAt, _ := parseDay(req.PaidAt)

	var oldFile string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rc models.Receipt
		if err := tx.First(&rc, id).Error; err != nil {
			return notFound(fmt.Sprintf("receipt %d", id), err)
		}

		if rc.InvoiceID != nil {
			if err := s.adjustPaid(tx, *rc.InvoiceID, rc.Amount.Neg()); err != nil {
				return err
			}
		}
		if req.InvoiceID != nil {
			if err := s.adjustPaid(tx, *req.InvoiceID, req.Amount); err != nil {
				return err
			}
		}

		rc.InvoiceID = req.InvoiceID
		rc.AgreementID = req.AgreementID
		rc.PayerName = strings.TrimSpace(req.PayerName)
		rc.Amount = req.Amount
		if req.Currency != "" {
			rc.Currency = req.Currency
		}
		if paidAt != nil {
			rc.PaidAt = *paidAt
		}
		rc.Method = req.Method
		rc.Notes = req.Notes

		if req.Attachment != nil && req.Attachment.Data != "" {
			path, err := s.saveAttachment(rc.Number, req.Attachment)
			if err != nil {
				return err
			}
			if path != rc.FilePath {
				oldFile = rc.FilePath
			}
			rc.FilePath = path
		}
		return tx.Save(&rc).Error
	})
	if err != nil {
		return nil, err
	}
	if oldFile != "" {
		if err := s.store.Remove(oldFile); err != nil {
			s.log.Warn("could not remove old receipt attachment", zap.String("path", oldFile), zap.Error(err))
		}
	}

	s.log.Info("receipt updated", zap.Uint("receipt_id", id))
	s.receiptPDF(ctx, id)
	return s.GetReceipt(ctx, id)
}

// DeleteReceipt soft-deletes a receipt and takes its amount off the invoice
func (s *Service) DeleteReceipt(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rc models.Receipt
		if err := tx.First(&rc, id).Error; err != nil {
			return notFound(fmt.Sprintf("receipt %d", id), err)
		}
		if rc.InvoiceID != nil {
			if err := s.adjustPaid(tx, *rc.InvoiceID, rc.Amount.Neg()); err != nil {
				return err
			}
		}
		return tx.Delete(&rc).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("receipt deleted", zap.Uint("receipt_id", id))
	return nil
}

// GetReceipt returns one receipt
func (s *Service) GetReceipt(ctx context.Context, id uint) (*models.Receipt, error) {
	var rc models.Receipt
	if err := s.db.WithContext(ctx).First(&rc, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("receipt %d", id), err)
	}
	return &rc, nil
}

// ReceiptFilter narrows ListReceipts
type ReceiptFilter struct {
	InvoiceID   *uint
	AgreementID *uint
	Page        int
	Limit       int
}

// ListReceipts returns receipts newest first with the total count
func (s *Service) ListReceipts(ctx context.Context, f ReceiptFilter) ([]models.Receipt, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	filter := func(q *gorm.DB) *gorm.DB {
		if f.InvoiceID != nil {
			q = q.Where("invoice_id = ?", *f.InvoiceID)
		}
		if f.AgreementID != nil {
			q = q.Where("agreement_id = ?", *f.AgreementID)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Receipt{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	receipts := []models.Receipt{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("paid_at DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&receipts).Error
	return receipts, total, err
}

// ReceiptPDF regenerates the receipt PDF and returns its stored path
func (s *Service) ReceiptPDF(ctx context.Context, id uint) (string, error) {
	if s.pdf == nil {
		return "", fmt.Errorf("pdf generation is not configured")
	}
	return s.pdf.GenerateReceiptPDF(ctx, id)
}
