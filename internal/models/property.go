package models

import (
	"time"

	"gorm.io/gorm"
)

// Property is the real-estate object an agreement refers to
type Property struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Address         string  `gorm:"not null" json:"address"`
	City            string  `gorm:"index" json:"city"`
	CadastralNumber string  `gorm:"index" json:"cadastralNumber,omitempty"`
	Area            float64 `json:"area"`
	Rooms           int     `json:"rooms"`
	Floor           int     `json:"floor"`
	Owner           string  `json:"owner,omitempty"`
	Description     string  `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Property) TableName() string {
	return "properties"
}
