package agreement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientInfo describes the browser hitting a public signature link
type ClientInfo struct {
	UserAgent string
	IP        string
}

// Metric is a browser-reported analytics number. Unparseable values decode
// as 0 so a malformed field never rejects a signature.
type Metric float64

// UnmarshalJSON accepts numbers, numeric strings and null
func (m *Metric) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		*m = 0
		return nil
	}
	*m = Metric(f)
	return nil
}

// SignRequest is what the signing page submits
type SignRequest struct {
	SignatureData    string `json:"signatureData"`
	TimeOnPageMs     Metric `json:"timeOnPage"`
	TimeToSignMs     Metric `json:"timeToSign"`
	ScrollDepth      Metric `json:"scrollDepth"`
	InteractionCount Metric `json:"interactionCount"`
}

// SignResult reports the signature and the agreement state after signing
type SignResult struct {
	Signature       *models.Signature      `json:"signature"`
	AgreementStatus models.AgreementStatus `json:"agreementStatus"`
	AllSigned       bool                   `json:"allSigned"`
}

// SignaturePage is what a signer sees when opening their link
type SignaturePage struct {
	Signature *models.Signature `json:"signature"`
	Agreement *models.Agreement `json:"agreement"`
}

// AddSignatureRequest adds a signer to an existing agreement
type AddSignatureRequest struct {
	SignerName string `json:"signerName"`
	SignerRole string `json:"signerRole"`
	PartyID    *uint  `json:"partyId"`
}

// AggregateStatus derives the agreement status from its signatures:
// no rows is draft, all signed is signed, anything else is pending.
func AggregateStatus(sigs []models.Signature) models.AgreementStatus {
	if len(sigs) == 0 {
		return models.AgreementDraft
	}
	for _, sig := range sigs {
		if !sig.IsSigned {
			return models.AgreementPendingSignatures
		}
	}
	return models.AgreementSigned
}

// refreshStatus recomputes the status from all signature rows. Statuses
// set by hand (active, expired, cancelled) are kept. It runs inside the
// caller's transaction, so announcing a change is left to the caller once
// the transaction has committed.
func (s *Service) refreshStatus(tx *gorm.DB, agreementID uint) (models.AgreementStatus, bool, error) {
	var a models.Agreement
	if err := tx.Select("id", "status", "signed_at").First(&a, agreementID).Error; err != nil {
		return "", false, notFound(fmt.Sprintf("agreement %d", agreementID), err)
	}
	if !a.Status.SignatureDriven() {
		return a.Status, false, nil
	}

	var sigs []models.Signature
	if err := tx.Where("agreement_id = ?", agreementID).Find(&sigs).Error; err != nil {
		return "", false, err
	}

	next := AggregateStatus(sigs)
	if next == a.Status {
		return next, false, nil
	}

	updates := map[string]interface{}{"status": next}
	if next == models.AgreementSigned {
		updates["signed_at"] = s.now()
	} else {
		updates["signed_at"] = nil
	}
	if err := tx.Model(&models.Agreement{}).Where("id = ?", agreementID).Updates(updates).Error; err != nil {
		return "", false, err
	}

	s.log.Info("agreement status changed",
		zap.Uint("agreement_id", agreementID),
		zap.String("from", string(a.Status)),
		zap.String("to", string(next)))
	return next, true, nil
}

func (s *Service) announceStatus(agreementID uint, status models.AgreementStatus) {
	s.notify(EventAgreementStatus, map[string]interface{}{"id": agreementID, "status": status})
}

func (s *Service) signatureByLink(ctx context.Context, link string) (*models.Signature, error) {
	var sig models.Signature
	if err := s.db.WithContext(ctx).Where("signature_link = ?", link).First(&sig).Error; err != nil {
		return nil, notFound("signature", err)
	}
	return &sig, nil
}

// recordFirstVisit stores device metadata once per signature
func (s *Service) recordFirstVisit(ctx context.Context, sigID uint, client ClientInfo, at time.Time) error {
	device := utils.ParseUserAgent(client.UserAgent)
	return s.db.WithContext(ctx).Model(&models.Signature{}).
		Where("id = ? AND first_visit_at IS NULL", sigID).
		Updates(map[string]interface{}{
			"first_visit_at": at,
			"device_type":    device.DeviceType,
			"browser":        device.Browser,
			"os":             device.OS,
			"ip_address":     client.IP,
			"user_agent":     client.UserAgent,
		}).Error
}

// ViewSignature opens a signature link. Device metadata is captured on the
// first visit only; every visit bumps the view counter.
func (s *Service) ViewSignature(ctx context.Context, link string, client ClientInfo) (*SignaturePage, error) {
	sig, err := s.signatureByLink(ctx, link)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sig.FirstVisitAt == nil {
		if err := s.recordFirstVisit(ctx, sig.ID, client, now); err != nil {
			s.log.Warn("could not record first visit", zap.Uint("signature_id", sig.ID), zap.Error(err))
		}
	}
	if err := s.db.WithContext(ctx).Model(&models.Signature{}).Where("id = ?", sig.ID).
		UpdateColumns(map[string]interface{}{
			"view_count":    gorm.Expr("view_count + ?", 1),
			"last_visit_at": now,
		}).Error; err != nil {
		s.log.Warn("could not count signature view", zap.Uint("signature_id", sig.ID), zap.Error(err))
	}

	if err := s.db.WithContext(ctx).First(sig, sig.ID).Error; err != nil {
		return nil, err
	}
	agreement, err := s.loadFull(ctx, s.db.Where("id = ?", sig.AgreementID))
	if err != nil {
		return nil, notFound("agreement", err)
	}
	redact(agreement)

	s.notify(EventSignatureViewed, map[string]interface{}{
		"agreementId": sig.AgreementID,
		"signatureId": sig.ID,
		"viewCount":   sig.ViewCount,
	})
	return &SignaturePage{Signature: sig, Agreement: agreement}, nil
}

// Sign marks a signature as signed. The update only matches unsigned rows,
// so a second or concurrent attempt gets ErrAlreadySigned and changes nothing.
func (s *Service) Sign(ctx context.Context, link string, req SignRequest, client ClientInfo) (*SignResult, error) {
	if strings.TrimSpace(req.SignatureData) == "" {
		return nil, &services.ValidationError{Fields: map[string]string{"signatureData": "signature image is required"}}
	}

	sig, err := s.signatureByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if sig.IsSigned {
		return nil, services.ErrAlreadySigned
	}

	now := s.now()
	var (
		status  models.AgreementStatus
		changed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Signature{}).
			Where("id = ? AND is_signed = ?", sig.ID, false).
			Updates(map[string]interface{}{
				"is_signed":         true,
				"signature_data":    req.SignatureData,
				"signed_at":         now,
				"time_on_page_ms":   utils.ClampInt32(float64(req.TimeOnPageMs)),
				"time_to_sign_ms":   utils.ClampInt32(float64(req.TimeToSignMs)),
				"scroll_depth":      utils.ClampInt32(float64(req.ScrollDepth)),
				"interaction_count": utils.ClampInt32(float64(req.InteractionCount)),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.ErrAlreadySigned
		}

		var err error
		status, changed, err = s.refreshStatus(tx, sig.AgreementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.announceStatus(sig.AgreementID, status)
	}

	if err := s.db.WithContext(ctx).First(sig, sig.ID).Error; err != nil {
		return nil, err
	}
	s.log.Info("signature signed",
		zap.Uint("agreement_id", sig.AgreementID),
		zap.Uint("signature_id", sig.ID),
		zap.String("role", sig.SignerRole),
		zap.String("device", sig.DeviceType),
		zap.String("ip", client.IP))

	s.regeneratePDF(ctx, sig.AgreementID)

	allSigned := status == models.AgreementSigned
	s.notify(EventSignatureSigned, map[string]interface{}{
		"agreementId": sig.AgreementID,
		"signatureId": sig.ID,
		"signerRole":  sig.SignerRole,
		"signerName":  sig.SignerName,
	})
	if allSigned {
		s.notify(EventAgreementSigned, map[string]interface{}{"id": sig.AgreementID})
	}

	return &SignResult{Signature: sig, AgreementStatus: status, AllSigned: allSigned}, nil
}

// AddSignature adds a signer. Roles are unique per agreement.
func (s *Service) AddSignature(ctx context.Context, agreementID uint, req AddSignatureRequest) (*models.Signature, error) {
	v := services.Violations{}
	role := roleKey(req.SignerRole)
	if role == "" {
		v.Add("signerRole", "role is required")
	}
	if strings.TrimSpace(req.SignerName) == "" {
		v.Add("signerName", "name is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	sig := &models.Signature{
		AgreementID: agreementID,
		PartyID:     req.PartyID,
		SignerName:  strings.TrimSpace(req.SignerName),
		SignerRole:  role,
	}
	var (
		status  models.AgreementStatus
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Agreement{}, agreementID).Error; err != nil {
			return notFound(fmt.Sprintf("agreement %d", agreementID), err)
		}

		var count int64
		if err := tx.Model(&models.Signature{}).
			Where("agreement_id = ? AND signer_role = ?", agreementID, role).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%s: %w", role, services.ErrRoleInUse)
		}

		if err := tx.Create(sig).Error; err != nil {
			return err
		}
		var err error
		status, changed, err = s.refreshStatus(tx, agreementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.announceStatus(agreementID, status)
	}
	s.log.Info("signature added", zap.Uint("agreement_id", agreementID), zap.String("role", role))
	return sig, nil
}

// DeleteSignature removes a signer. With no signatures left the agreement
// goes back to draft.
func (s *Service) DeleteSignature(ctx context.Context, agreementID, signatureID uint) error {
	var (
		status  models.AgreementStatus
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND agreement_id = ?", signatureID, agreementID).Delete(&models.Signature{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("signature %d: %w", signatureID, services.ErrNotFound)
		}
		var err error
		status, changed, err = s.refreshStatus(tx, agreementID)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		s.announceStatus(agreementID, status)
	}
	s.log.Info("signature deleted", zap.Uint("agreement_id", agreementID), zap.Uint("signature_id", signatureID))
	return nil
}

// ListSignatures returns the signatures of an agreement in creation order
func (s *Service) ListSignatures(ctx context.Context, agreementID uint) ([]models.Signature, error) {
	if _, err := s.load(ctx, agreementID); err != nil {
		return nil, err
	}
	sigs := []models.Signature{}
	err := s.db.WithContext(ctx).Where("agreement_id = ?", agreementID).Order("id").Find(&sigs).Error
	return sigs, err
}
