package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemInput is one invoice line as submitted
type ItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// InvoiceRequest creates or replaces an invoice
type InvoiceRequest struct {
	Number        string      `json:"number"`
	AgreementID   *uint       `json:"agreementId"`
	ClientName    string      `json:"clientName"`
	ClientDetails string      `json:"clientDetails"`
	IssueDate     string      `json:"issueDate"`
	DueDate       string      `json:"dueDate"`
	Currency      string      `json:"currency"`
	Notes         string      `json:"notes"`
	Cancelled     bool        `json:"cancelled"`
	Items         []ItemInput `json:"items"`
}

// buildItems validates lines and returns them with their total
func buildItems(in []ItemInput, v services.Violations) ([]models.InvoiceItem, decimal.Decimal) {
	if len(in) == 0 {
		v.Add("items", "at least one item is required")
	}
	total := decimal.Zero
	items := make([]models.InvoiceItem, 0, len(in))
	for i, it := range in {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.Description) == "" {
			v.Add(field+".description", "description is required")
		}
		qty := it.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		if qty.IsNegative() {
			v.Add(field+".quantity", "must be positive")
		}
		if it.UnitPrice.IsNegative() {
			v.Add(field+".unitPrice", "must not be negative")
		}
		amount := qty.Mul(it.UnitPrice).Round(2)
		total = total.Add(amount)
		items = append(items, models.InvoiceItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    qty,
			UnitPrice:   it.UnitPrice,
			Amount:      amount,
		})
	}
	return items, total
}

// CreateInvoice stores an invoice with its items
func (s *Service) CreateInvoice(ctx context.Context, req InvoiceRequest) (*models.Invoice, error) {
	v := services.Violations{}
	if strings.TrimSpace(req.ClientName) == "" {
		v.Add("clientName", "client name is required")
	}
	issue, err := parseDay(req.IssueDate)
	if err != nil {
		v.Add("issueDate", err.Error())
	}
	due, err := parseDay(req.DueDate)
	if err != nil {
		v.Add("dueDate", err.Error())
	}
	items, total := buildItems(req.Items, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invoice{
		Number:        strings.TrimSpace(req.Number),
		AgreementID:   req.AgreementID,
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientDetails: req.ClientDetails,
		IssueDate:     now,
		DueDate:       due,
		Currency:      req.Currency,
		TotalAmount:   total,
		AmountPaid:    decimal.Zero,
		Status:        InvoiceStatus(total, decimal.Zero),
		Notes:         req.Notes,
		Items:         items,
	}
	if issue != nil {
		inv.IssueDate = *issue
	}
	if inv.Currency == "" {
		inv.Currency = "UAH"
	}
	if req.Cancelled {
		inv.Status = models.InvoiceCancelled
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if inv.AgreementID != nil {
			if err := tx.Select("id").First(&models.Agreement{}, *inv.AgreementID).Error; err != nil {
				return notFound(fmt.Sprintf("agreement %d", *inv.AgreementID), err)
			}
		}
		if inv.Number == "" {
			number, err := services.NextNumber(tx, &models.Invoice{}, "number", "INV", now)
			if err != nil {
				return err
			}
			inv.Number = number
		}
		return tx.Create(inv).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created", zap.Uint("invoice_id", inv.ID), zap.String("number", inv.Number), zap.String("total", total.String()))
	s.invoicePDF(ctx, inv.ID)
	return s.GetInvoice(ctx, inv.ID)
}

// GetInvoice returns an invoice with items and receipts
func (s *Service) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Receipts", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at") }).
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(fmt.Sprintf("invoice %d", id), err)
	}
	return &inv, nil
}

// InvoiceFilter narrows ListInvoices
type InvoiceFilter struct {
	Status      models.InvoiceStatus
	AgreementID *uint
	Page        int
	Limit       int
}

// ListInvoices returns invoices newest first with the total count
func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	filter := func(q *gorm.DB) *gorm.DB {
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.AgreementID != nil {
			q = q.Where("agreement_id = ?", *f.AgreementID)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	invoices := []models.Invoice{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("issue_date DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&invoices).Error
	return invoices, total, err
}

// UpdateInvoice replaces header fields and items. The amount paid is kept
// and the status re-derived against the new total.
func (s *Service) UpdateInvoice(ctx context.Context, id uint, req InvoiceRequest) (*models.Invoice, error) {
	v := services.Violations{}
	if strings.TrimSpace(req.ClientName) == "" {
		v.Add("clientName", "client name is required")
	}
	issue, err := parseDay(req.IssueDate)
	if err != nil {
		v.Add("issueDate", err.Error())
	}
	due, err := parseDay(req.DueDate)
	if err != nil {
		v.Add("dueDate", err.Error())
	}
	items, total := buildItems(req.Items, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(tx, id)
		if err != nil {
			return err
		}

		inv.AgreementID = req.AgreementID
		inv.ClientName = strings.TrimSpace(req.ClientName)
		inv.ClientDetails = req.ClientDetails
		if issue != nil {
			inv.IssueDate = *issue
		}
		inv.DueDate = due
		if req.Currency != "" {
			inv.Currency = req.Currency
		}
		inv.Notes = req.Notes
		inv.TotalAmount = total
		if req.Cancelled {
			inv.Status = models.InvoiceCancelled
		} else {
			inv.Status = InvoiceStatus(total, inv.AmountPaid)
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = id
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return tx.Omit("Items", "Receipts").Save(inv).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice updated", zap.Uint("invoice_id", id))
	s.invoicePDF(ctx, id)
	return s.GetInvoice(ctx, id)
}

// DeleteInvoice soft-deletes an invoice and detaches its receipts
func (s *Service) DeleteInvoice(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Invoice{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("invoice %d: %w", id, services.ErrNotFound)
		}
		return tx.Model(&models.Receipt{}).Where("invoice_id = ?", id).Update("invoice_id", nil).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("invoice deleted", zap.Uint("invoice_id", id))
	return nil
}

// InvoicePDF regenerates the invoice PDF and returns its stored path
func (s *Service) InvoicePDF(ctx context.Context, id uint) (string, error) {
	if s.pdf == nil {
		return "", fmt.Errorf("pdf generation is not configured")
	}
	return s.pdf.GenerateInvoicePDF(ctx, id)
}
