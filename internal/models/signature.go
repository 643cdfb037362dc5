package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Signature tracks one required signer of an agreement
type Signature struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AgreementID   uint       `gorm:"not null;index" json:"agreementId"`
	PartyID       *uint      `gorm:"index" json:"partyId,omitempty"`
	SignerName    string     `json:"signerName"`
	SignerRole    string     `gorm:"size:64" json:"signerRole"`
	SignatureLink string     `gorm:"uniqueIndex;size:36" json:"signatureLink"`
	IsSigned      bool       `gorm:"default:false;index" json:"isSigned"`
	SignatureData string     `gorm:"type:text" json:"signatureData,omitempty"` // base64 PNG
	SignedAt      *time.Time `json:"signedAt,omitempty"`

	// Device metadata, captured once on first visit
	FirstVisitAt *time.Time `json:"firstVisitAt,omitempty"`
	LastVisitAt  *time.Time `json:"lastVisitAt,omitempty"`
	ViewCount    int        `gorm:"default:0" json:"viewCount"`
	DeviceType   string     `json:"deviceType,omitempty"`
	Browser      string     `json:"browser,omitempty"`
	OS           string     `gorm:"column:os" json:"os,omitempty"`
	IPAddress    string     `json:"ipAddress,omitempty"`
	UserAgent    string     `gorm:"type:text" json:"userAgent,omitempty"`

	// Timing analytics reported by the signing page
	TimeOnPageMs     int32 `json:"timeOnPageMs"`
	TimeToSignMs     int32 `json:"timeToSignMs"`
	ScrollDepth      int32 `json:"scrollDepth"`
	InteractionCount int32 `json:"interactionCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Signature) TableName() string {
	return "agreement_signatures"
}

// BeforeCreate issues the signature link
func (s *Signature) BeforeCreate(tx *gorm.DB) error {
	if s.SignatureLink == "" {
		s.SignatureLink = uuid.NewString()
	}
	return nil
}
