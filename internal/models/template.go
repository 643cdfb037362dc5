package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TemplateType is the kind of agreement a template produces
type TemplateType string

const (
	TemplateRent        TemplateType = "rent"
	TemplateSale        TemplateType = "sale"
	TemplateBilateral   TemplateType = "bilateral"
	TemplateTrilateral  TemplateType = "trilateral"
	TemplateAgency      TemplateType = "agency"
	TemplateTransferAct TemplateType = "transfer_act"
)

// Valid reports whether t is a known template type
func (t TemplateType) Valid() bool {
	switch t {
	case TemplateRent, TemplateSale, TemplateBilateral, TemplateTrilateral, TemplateAgency, TemplateTransferAct:
		return true
	}
	return false
}

// Template is a named agreement blueprint with {{placeholders}}
type Template struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Type        TemplateType   `gorm:"not null;index;size:32" json:"type"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Content     string         `gorm:"type:text" json:"content"`
	Structure   datatypes.JSON `json:"structure,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"isActive"`
	Version     int            `gorm:"default:1" json:"version"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Template) TableName() string {
	return "agreement_templates"
}
