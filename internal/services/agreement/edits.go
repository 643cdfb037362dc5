package agreement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrEditorUnavailable is returned when no AI backend is configured
var ErrEditorUnavailable = errors.New("ai editing is not configured")

func marshalJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// StageEdit asks the AI editor for a change and stores it as a staged edit.
// The agreement itself is not modified. A fallback proposal is stored as
// discarded so it cannot be applied.
func (s *Service) StageEdit(ctx context.Context, agreementID uint, instruction string, userID *uint) (*models.AgreementEdit, error) {
	if s.editor == nil {
		return nil, ErrEditorUnavailable
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, &services.ValidationError{Fields: map[string]string{"prompt": "instruction is required"}}
	}

	a, err := s.load(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	current, err := document.ParseStructure(a.Structure)
	if err != nil || current.Empty() {
		return nil, &services.ValidationError{Fields: map[string]string{"structure": "agreement has no structure to edit"}}
	}

	proposal, err := s.editor.Propose(ctx, current, instruction)
	if err != nil {
		return nil, err
	}

	proposed, err := proposal.Structure.JSON()
	if err != nil {
		return nil, err
	}
	diff := document.DiffStructures(current, proposal.Structure)

	edit := &models.AgreementEdit{
		AgreementID:       agreementID,
		Instruction:       instruction,
		Status:            models.EditStaged,
		Provider:          proposal.Provider,
		Fallback:          proposal.Fallback,
		ErrorMessage:      proposal.Error,
		OriginalContent:   a.Content,
		OriginalStructure: a.Structure,
		ProposedContent:   proposal.HTML,
		ProposedStructure: datatypes.JSON(proposed),
		Changes:           marshalJSON(proposal.Changes),
		Conflicts:         marshalJSON(proposal.Conflicts),
		FieldUpdates:      marshalJSON(proposal.FieldUpdates),
		Diff:              marshalJSON(diff),
		DurationMs:        proposal.Duration.Milliseconds(),
		CreatedBy:         userID,
	}
	if proposal.Fallback {
		edit.Status = models.EditDiscarded
	}

	if err := s.db.WithContext(ctx).Create(edit).Error; err != nil {
		return nil, fmt.Errorf("store staged edit: %w", err)
	}

	s.log.Info("ai edit staged",
		zap.Uint("agreement_id", agreementID),
		zap.Uint("edit_id", edit.ID),
		zap.String("provider", edit.Provider),
		zap.Bool("fallback", edit.Fallback),
		zap.Int("changes", len(diff)),
		zap.Int64("duration_ms", edit.DurationMs))
	return edit, nil
}

// ApplyEdit commits a staged edit: body, structure and whitelisted field
// updates in one transaction. An agreement changed since staging is a conflict.
func (s *Service) ApplyEdit(ctx context.Context, agreementID, editID uint, userID *uint) (*models.Agreement, error) {
	var ignored []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edit models.AgreementEdit
		if err := tx.Where("id = ? AND agreement_id = ?", editID, agreementID).First(&edit).Error; err != nil {
			return notFound(fmt.Sprintf("edit %d", editID), err)
		}
		if edit.Status != models.EditStaged {
			return fmt.Errorf("edit %d is %s: %w", editID, edit.Status, services.ErrEditNotStaged)
		}

		var a models.Agreement
		if err := tx.First(&a, agreementID).Error; err != nil {
			return notFound(fmt.Sprintf("agreement %d", agreementID), err)
		}
		if a.Content != edit.OriginalContent || !bytes.Equal(a.Structure, edit.OriginalStructure) {
			return fmt.Errorf("agreement changed after the edit was staged: %w", services.ErrConflict)
		}

		fields := map[string]string{}
		if len(edit.FieldUpdates) > 0 {
			if err := json.Unmarshal(edit.FieldUpdates, &fields); err != nil {
				return fmt.Errorf("decode field updates: %w", err)
			}
		}
		var err error
		if ignored, err = applyFieldUpdates(&a, fields); err != nil {
			return err
		}

		a.Content = edit.ProposedContent
		a.Structure = edit.ProposedStructure
		if err := tx.Save(&a).Error; err != nil {
			return err
		}

		now := s.now()
		return tx.Model(&edit).Updates(map[string]interface{}{
			"status":     models.EditApplied,
			"applied_by": userID,
			"applied_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if len(ignored) > 0 {
		s.log.Warn("ai edit requested non-editable fields", zap.Uint("edit_id", editID), zap.Strings("fields", ignored))
	}
	s.log.Info("ai edit applied", zap.Uint("agreement_id", agreementID), zap.Uint("edit_id", editID))

	s.regeneratePDF(ctx, agreementID)
	s.notify(EventEditApplied, map[string]interface{}{"id": agreementID, "editId": editID})
	return s.Get(ctx, agreementID)
}

// DiscardEdit drops a staged edit
func (s *Service) DiscardEdit(ctx context.Context, agreementID, editID uint) error {
	res := s.db.WithContext(ctx).Model(&models.AgreementEdit{}).
		Where("id = ? AND agreement_id = ? AND status = ?", editID, agreementID, models.EditStaged).
		Update("status", models.EditDiscarded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var edit models.AgreementEdit
	if err := s.db.WithContext(ctx).Where("id = ? AND agreement_id = ?", editID, agreementID).First(&edit).Error; err != nil {
		return notFound(fmt.Sprintf("edit %d", editID), err)
	}
	return fmt.Errorf("edit %d is %s: %w", editID, edit.Status, services.ErrEditNotStaged)
}

// ListEdits returns the edit history of an agreement, newest first
func (s *Service) ListEdits(ctx context.Context, agreementID uint) ([]models.AgreementEdit, error) {
	if _, err := s.load(ctx, agreementID); err != nil {
		return nil, err
	}
	edits := []models.AgreementEdit{}
	err := s.db.WithContext(ctx).Where("agreement_id = ?", agreementID).Order("id DESC").Find(&edits).Error
	return edits, err
}
