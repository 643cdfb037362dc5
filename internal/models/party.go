package models

import (
	"strings"
	"time"
)

// Party types
const (
	PartyIndividual = "individual"
	PartyCompany    = "company"
)

// Party is a signer or entity named in an agreement. Role is unique per agreement.
type Party struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AgreementID uint   `gorm:"not null;uniqueIndex:idx_party_agreement_role" json:"agreementId"`
	Role        string `gorm:"not null;size:64;uniqueIndex:idx_party_agreement_role" json:"role"`
	PartyType   string `gorm:"default:'individual';size:16" json:"partyType"`

	// Individual
	FullName         string `json:"fullName,omitempty"`
	BirthDate        string `json:"birthDate,omitempty"`
	PassportNumber   string `json:"passportNumber,omitempty"`
	PassportIssuedBy string `json:"passportIssuedBy,omitempty"`
	PassportIssuedAt string `json:"passportIssuedAt,omitempty"`
	TaxID            string `json:"taxId,omitempty"`

	// Company
	CompanyName   string `json:"companyName,omitempty"`
	CompanyCode   string `json:"companyCode,omitempty"`
	DirectorName  string `json:"directorName,omitempty"`
	ActingOnBasis string `json:"actingOnBasis,omitempty"`
	BankAccount   string `json:"bankAccount,omitempty"`

	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Documents []PartyDocument `gorm:"foreignKey:PartyID" json:"documents,omitempty"`
}

// TableName specifies the table name
func (Party) TableName() string {
	return "agreement_parties"
}

// IsCompany reports whether the party signs as a legal entity
func (p Party) IsCompany() bool {
	return p.PartyType == PartyCompany
}

// DisplayName is the name printed in the signature table
func (p Party) DisplayName() string {
	if p.IsCompany() && strings.TrimSpace(p.CompanyName) != "" {
		return p.CompanyName
	}
	return p.FullName
}

// PartyDocument is an identity or company document image attached to a party
type PartyDocument struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PartyID    uint   `gorm:"not null;index" json:"partyId"`
	Kind       string `gorm:"size:32" json:"kind"` // passport, company_doc, other
	FileName   string `json:"fileName"`
	FilePath   string `json:"filePath"`
	MimeType   string `json:"mimeType"`
	DataBase64 string `gorm:"type:text" json:"dataBase64,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (PartyDocument) TableName() string {
	return "party_documents"
}
