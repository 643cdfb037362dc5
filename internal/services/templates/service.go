// Package templates manages agreement templates.
package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request creates or updates a template. Nil pointers leave fields unchanged on update.
type Request struct {
	Name        *string              `json:"name"`
	Type        *models.TemplateType `json:"type"`
	Description *string              `json:"description"`
	Content     *string              `json:"content"`
	Structure   json.RawMessage      `json:"structure"`
	IsActive    *bool                `json:"isActive"`
}

// Service implements template operations
type Service struct {
	db  *database.DB
	log *zap.Logger
}

// NewService creates the template service
func NewService(db *database.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.With(zap.String("service", "templates"))}
}

func notFound(id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("template %d: %w", id, services.ErrNotFound)
	}
	return err
}

func parseStructure(raw json.RawMessage) (datatypes.JSON, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	s, err := document.ParseStructure(raw)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"structure": err.Error()}}
	}
	out, err := s.JSON()
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// Create stores a new template at version 1
func (s *Service) Create(ctx context.Context, req Request) (*models.Template, error) {
	v := services.Violations{}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		v.Add("name", "name is required")
	}
	if req.Type == nil || !req.Type.Valid() {
		v.Add("type", "type must be one of rent, sale, bilateral, trilateral, agency, transfer_act")
	}
	structure, err := parseStructure(req.Structure)
	if err != nil {
		return nil, err
	}
	if (req.Content == nil || strings.TrimSpace(*req.Content) == "") && structure == nil {
		v.Add("content", "content or structure is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	t := &models.Template{
		Name:      strings.TrimSpace(*req.Name),
		Type:      *req.Type,
		Structure: structure,
		IsActive:  true,
		Version:   1,
	}
	if req.Content != nil {
		t.Content = *req.Content
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	// IsActive defaults to true in the schema; an explicit false must be written after insert
	if req.IsActive != nil && !*req.IsActive {
		if err := s.db.WithContext(ctx).Model(t).Update("is_active", false).Error; err != nil {
			return nil, err
		}
		t.IsActive = false
	}

	s.log.Info("template created", zap.Uint("template_id", t.ID), zap.String("type", string(t.Type)))
	return t, nil
}

// Get returns one template
func (s *Service) Get(ctx context.Context, id uint) (*models.Template, error) {
	var t models.Template
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(id, err)
	}
	return &t, nil
}

// List returns templates, optionally only active ones of a type
func (s *Service) List(ctx context.Context, typ models.TemplateType, activeOnly bool) ([]models.Template, error) {
	q := s.db.WithContext(ctx).Order("type, name")
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	out := []models.Template{}
	return out, q.Find(&out).Error
}

// Update changes a template. Changing content or structure bumps the version.
func (s *Service) Update(ctx context.Context, id uint, req Request) (*models.Template, error) {
	structure, err := parseStructure(req.Structure)
	if err != nil {
		return nil, err
	}

	var t models.Template
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(id, err)
		}

		v := services.Violations{}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				v.Add("name", "name must not be empty")
			}
			t.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			if !req.Type.Valid() {
				v.Add("type", "unknown template type")
			}
			t.Type = *req.Type
		}
		if err := v.Err(); err != nil {
			return err
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.IsActive != nil {
			t.IsActive = *req.IsActive
		}

		bodyChanged := false
		if req.Content != nil && *req.Content != t.Content {
			t.Content = *req.Content
			bodyChanged = true
		}
		if structure != nil && !bytes.Equal(structure, t.Structure) {
			t.Structure = structure
			bodyChanged = true
		}
		if bodyChanged {
			t.Version++
		}
		return tx.Save(&t).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("template updated", zap.Uint("template_id", id), zap.Int("version", t.Version))
	return &t, nil
}

// Delete removes an unused template. Templates referenced by agreements are
// deactivated instead; deactivated reports which happened.
func (s *Service) Delete(ctx context.Context, id uint) (deactivated bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Template
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(id, err)
		}

		var refs int64
		if err := tx.Unscoped().Model(&models.Agreement{}).Where("template_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			deactivated = true
			return tx.Model(&t).Update("is_active", false).Error
		}
		return tx.Delete(&t).Error
	})
	if err == nil {
		s.log.Info("template removed", zap.Uint("template_id", id), zap.Bool("deactivated", deactivated))
	}
	return deactivated, err
}

// PreviewResult is a template rendered with sample values
type PreviewResult struct {
	HTML         string   `json:"html"`
	Placeholders []string `json:"placeholders"`
	Missing      []string `json:"missing"`
}

// Preview renders a template with the given values. Placeholders without a
// value are reported in Missing and left in the HTML.
func (s *Service) Preview(ctx context.Context, id uint, values map[string]string) (*PreviewResult, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	vars := document.Vars(values)

	source := t.Content
	if strings.TrimSpace(source) == "" && len(t.Structure) > 0 {
		st, err := document.ParseStructure(t.Structure)
		if err != nil {
			return nil, err
		}
		source = document.RenderStructure(st)
	}

	p := &PreviewResult{
		HTML:         document.Substitute(source, vars),
		Placeholders: document.Placeholders(source),
		Missing:      []string{},
	}
	if p.Placeholders == nil {
		p.Placeholders = []string{}
	}
	for _, key := range p.Placeholders {
		if _, ok := vars[key]; !ok {
			p.Missing = append(p.Missing, key)
		}
	}
	return p, nil
}
