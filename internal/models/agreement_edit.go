package models

import (
	"time"

	"gorm.io/datatypes"
)

// EditStatus tracks a proposed AI edit
type EditStatus string

const (
	EditStaged    EditStatus = "staged"
	EditApplied   EditStatus = "applied"
	EditDiscarded EditStatus = "discarded"
)

// AgreementEdit is a pending change produced by the AI editor. It only
// touches the agreement when applied.
type AgreementEdit struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	AgreementID       uint           `gorm:"not null;index" json:"agreementId"`
	Instruction       string         `gorm:"type:text" json:"instruction"`
	Status            EditStatus     `gorm:"default:'staged';index;size:16" json:"status"`
	Provider          string         `gorm:"size:64" json:"provider"`
	Fallback          bool           `json:"fallback"`
	ErrorMessage      string         `gorm:"type:text" json:"errorMessage,omitempty"`
	OriginalContent   string         `gorm:"type:text" json:"-"`
	OriginalStructure datatypes.JSON `json:"-"`
	ProposedContent   string         `gorm:"type:text" json:"proposedContent"`
	ProposedStructure datatypes.JSON `json:"proposedStructure"`
	Changes           datatypes.JSON `json:"changes,omitempty"`
	Conflicts         datatypes.JSON `json:"conflicts,omitempty"`
	FieldUpdates      datatypes.JSON `json:"fieldUpdates,omitempty"`
	Diff              datatypes.JSON `json:"diff,omitempty"`
	DurationMs        int64          `json:"durationMs"`
	CreatedBy         *uint          `json:"createdBy,omitempty"`
	AppliedBy         *uint          `json:"appliedBy,omitempty"`
	AppliedAt         *time.Time     `json:"appliedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (AgreementEdit) TableName() string {
	return "agreement_edits"
}
