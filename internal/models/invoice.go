package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus is derived from amount paid vs total
type InvoiceStatus string

const (
	InvoiceUnpaid        InvoiceStatus = "unpaid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// Invoice is a financial document optionally linked to an agreement
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Number        string          `gorm:"uniqueIndex;not null;size:64" json:"number"`
	AgreementID   *uint           `gorm:"index" json:"agreementId,omitempty"`
	ClientName    string          `gorm:"not null" json:"clientName"`
	ClientDetails string          `gorm:"type:text" json:"clientDetails,omitempty"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Currency      string          `gorm:"default:'UAH';size:8" json:"currency"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"totalAmount"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"amountPaid"`
	Status        InvoiceStatus   `gorm:"default:'unpaid';index;size:20" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`

	PDFPath        string     `json:"pdfPath,omitempty"`
	PDFGeneratedAt *time.Time `json:"pdfGeneratedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Receipts []Receipt     `gorm:"foreignKey:InvoiceID" json:"receipts,omitempty"`
}

// TableName specifies the table name
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is a single invoice line
type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceID   uint            `gorm:"not null;index" json:"invoiceId"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"unitPrice"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"amount"`
}

// TableName specifies the table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// Receipt records a payment, optionally against an invoice
type Receipt struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Number      string          `gorm:"uniqueIndex;not null;size:64" json:"number"`
	InvoiceID   *uint           `gorm:"index" json:"invoiceId,omitempty"`
	AgreementID *uint           `gorm:"index" json:"agreementId,omitempty"`
	PayerName   string          `json:"payerName"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency    string          `gorm:"default:'UAH';size:8" json:"currency"`
	PaidAt      time.Time       `json:"paidAt"`
	Method      string          `gorm:"size:32" json:"method,omitempty"` // cash, bank_transfer, card
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	FilePath    string          `json:"filePath,omitempty"`

	PDFPath        string     `json:"pdfPath,omitempty"`
	PDFGeneratedAt *time.Time `json:"pdfGeneratedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Receipt) TableName() string {
	return "receipts"
}
