package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AgreementStatus is the lifecycle state of an agreement
type AgreementStatus string

const (
	AgreementDraft             AgreementStatus = "draft"
	AgreementPendingSignatures AgreementStatus = "pending_signatures"
	AgreementSigned            AgreementStatus = "signed"
	AgreementActive            AgreementStatus = "active"
	AgreementExpired           AgreementStatus = "expired"
	AgreementCancelled         AgreementStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s AgreementStatus) Valid() bool {
	switch s {
	case AgreementDraft, AgreementPendingSignatures, AgreementSigned, AgreementActive, AgreementExpired, AgreementCancelled:
		return true
	}
	return false
}

// SignatureDriven reports whether the status is derived from signature rows.
// Active, expired and cancelled are set by hand and are left alone.
func (s AgreementStatus) SignatureDriven() bool {
	return s == AgreementDraft || s == AgreementPendingSignatures || s == AgreementSigned
}

// Agreement is a contract instantiated from a template
type Agreement struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AgreementNumber string          `gorm:"uniqueIndex;not null;size:64" json:"agreementNumber"`
	Type            TemplateType    `gorm:"index;size:32" json:"type"`
	TemplateID      uint            `gorm:"not null;index" json:"templateId"`
	PropertyID      *uint           `gorm:"index" json:"propertyId,omitempty"`
	Content         string          `gorm:"type:text" json:"content"`
	Structure       datatypes.JSON  `json:"structure,omitempty"`
	Status          AgreementStatus `gorm:"default:'draft';index;size:32" json:"status"`
	PublicLink      string          `gorm:"uniqueIndex;size:36" json:"publicLink"`
	VerifyLink      string          `gorm:"uniqueIndex;size:36" json:"verifyLink"`

	City     string     `json:"city,omitempty"`
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
	Currency string     `gorm:"default:'UAH';size:8" json:"currency"`

	// Financial fields
	RentAmount       decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"rentAmount"`
	RentAmountTotal  decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"rentAmountTotal"`
	DepositAmount    decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"depositAmount"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"totalAmount"`
	PaymentOnSigning decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paymentOnSigning"`
	PaymentRemaining decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paymentRemaining"`

	PDFPath        string     `json:"pdfPath,omitempty"`
	PDFGeneratedAt *time.Time `json:"pdfGeneratedAt,omitempty"`
	QRCodeBase64   string     `gorm:"type:text" json:"qrCodeBase64,omitempty"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy      *uint      `json:"createdBy,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Template   *Template   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Property   *Property   `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Parties    []Party     `gorm:"foreignKey:AgreementID" json:"parties,omitempty"`
	Signatures []Signature `gorm:"foreignKey:AgreementID" json:"signatures,omitempty"`
}

// TableName specifies the table name
func (Agreement) TableName() string {
	return "agreements"
}

// BeforeCreate issues the public and verify links
func (a *Agreement) BeforeCreate(tx *gorm.DB) error {
	if a.PublicLink == "" {
		a.PublicLink = uuid.NewString()
	}
	if a.VerifyLink == "" {
		a.VerifyLink = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AgreementDraft
	}
	return nil
}
