package agreement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UpdateRequest carries manual edits. Nil fields are left unchanged.
type UpdateRequest struct {
	Content          *string                 `json:"content"`
	Structure        json.RawMessage         `json:"structure"`
	Status           *models.AgreementStatus `json:"status"`
	City             *string                 `json:"city"`
	DateFrom         *string                 `json:"dateFrom"`
	DateTo           *string                 `json:"dateTo"`
	Currency         *string                 `json:"currency"`
	PropertyID       *uint                   `json:"propertyId"`
	Notes            *string                 `json:"notes"`
	RentAmount       *decimal.Decimal        `json:"rentAmount"`
	RentAmountTotal  *decimal.Decimal        `json:"rentAmountTotal"`
	DepositAmount    *decimal.Decimal        `json:"depositAmount"`
	TotalAmount      *decimal.Decimal        `json:"totalAmount"`
	PaymentOnSigning *decimal.Decimal        `json:"paymentOnSigning"`
	PaymentRemaining *decimal.Decimal        `json:"paymentRemaining"`
}

// fieldSetter applies one whitelisted scalar field from a string value
type fieldSetter func(a *models.Agreement, value string) error

func decimalSetter(set func(a *models.Agreement, d decimal.Decimal)) fieldSetter {
	return func(a *models.Agreement, value string) error {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid amount %q", value)
		}
		if d.IsNegative() {
			return fmt.Errorf("amount %q is negative", value)
		}
		set(a, d)
		return nil
	}
}

func dateSetter(set func(a *models.Agreement, d *time.Time)) fieldSetter {
	return func(a *models.Agreement, value string) error {
		d, err := ParseDate(value)
		if err != nil {
			return err
		}
		set(a, d)
		return nil
	}
}

// editableFields are the columns an AI edit may change besides the body
var editableFields = map[string]fieldSetter{
	"rentAmount":       decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.RentAmount = d }),
	"rentAmountTotal":  decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.RentAmountTotal = d }),
	"depositAmount":    decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.DepositAmount = d }),
	"totalAmount":      decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.TotalAmount = d }),
	"paymentOnSigning": decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.PaymentOnSigning = d }),
	"paymentRemaining": decimalSetter(func(a *models.Agreement, d decimal.Decimal) { a.PaymentRemaining = d }),
	"dateFrom":         dateSetter(func(a *models.Agreement, d *time.Time) { a.DateFrom = d }),
	"dateTo":           dateSetter(func(a *models.Agreement, d *time.Time) { a.DateTo = d }),
	"currency":         func(a *models.Agreement, v string) error { a.Currency = strings.TrimSpace(v); return nil },
	"city":             func(a *models.Agreement, v string) error { a.City = strings.TrimSpace(v); return nil },
}

// canonicalField maps rent_amount and rentAmount alike to rentAmount
func canonicalField(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	parts := strings.Split(strings.ToLower(key), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// applyFieldUpdates sets whitelisted fields and returns the keys it ignored
func applyFieldUpdates(a *models.Agreement, fields map[string]string) (ignored []string, err error) {
	rentTotalGiven := false
	recompute := false
	for key, value := range fields {
		name := canonicalField(key)
		set, ok := editableFields[name]
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		if err := set(a, value); err != nil {
			return nil, &services.ValidationError{Fields: map[string]string{name: err.Error()}}
		}
		switch name {
		case "rentAmountTotal":
			rentTotalGiven = true
		case "rentAmount", "dateFrom", "dateTo":
			recompute = true
		}
	}
	if recompute && !rentTotalGiven {
		a.RentAmountTotal = computeRentTotal(a)
	}
	return ignored, nil
}

// manualStatus validates a status set by hand. Draft and pending hand the
// status back to the signatures; signed can only be reached by signing.
func manualStatus(st models.AgreementStatus) error {
	if !st.Valid() {
		return &services.ValidationError{Fields: map[string]string{"status": "unknown status " + string(st)}}
	}
	if st == models.AgreementSigned {
		return &services.ValidationError{Fields: map[string]string{"status": "signed is set by signing"}}
	}
	return nil
}

// Update applies manual edits. A new structure without new content
// regenerates the HTML from the structure; new content without a structure
// drops the structure.
func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Agreement, error) {
	if req.Status != nil {
		if err := manualStatus(*req.Status); err != nil {
			return nil, err
		}
	}

	// A null structure counts as absent; an empty one cannot replace the body
	var structure *document.Structure
	if raw := bytes.TrimSpace(req.Structure); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		parsed, err := document.ParseStructure(raw)
		if err != nil {
			return nil, &services.ValidationError{Fields: map[string]string{"structure": err.Error()}}
		}
		if !parsed.Empty() {
			structure = parsed
		} else if req.Content == nil {
			return nil, &services.ValidationError{Fields: map[string]string{"structure": "structure has no content"}}
		}
	}

	bodyChanged := false
	var status models.AgreementStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Agreement
		if err := tx.First(&a, id).Error; err != nil {
			return notFound(fmt.Sprintf("agreement %d", id), err)
		}

		fields := map[string]string{}
		put := func(key string, v *string) {
			if v != nil {
				fields[key] = *v
			}
		}
		putDecimal := func(key string, d *decimal.Decimal) {
			if d != nil {
				fields[key] = d.String()
			}
		}
		put("city", req.City)
		put("dateFrom", req.DateFrom)
		put("dateTo", req.DateTo)
		put("currency", req.Currency)
		putDecimal("rentAmount", req.RentAmount)
		putDecimal("rentAmountTotal", req.RentAmountTotal)
		putDecimal("depositAmount", req.DepositAmount)
		putDecimal("totalAmount", req.TotalAmount)
		putDecimal("paymentOnSigning", req.PaymentOnSigning)
		putDecimal("paymentRemaining", req.PaymentRemaining)
		if _, err := applyFieldUpdates(&a, fields); err != nil {
			return err
		}
		if a.DateFrom != nil && a.DateTo != nil && a.DateTo.Before(*a.DateFrom) {
			return &services.ValidationError{Fields: map[string]string{"dateTo": "end date is before start date"}}
		}

		if req.Notes != nil {
			a.Notes = *req.Notes
		}
		if req.PropertyID != nil {
			if err := tx.Select("id").First(&models.Property{}, *req.PropertyID).Error; err != nil {
				return notFound(fmt.Sprintf("property %d", *req.PropertyID), err)
			}
			a.PropertyID = req.PropertyID
		}

		if structure != nil {
			raw, err := structure.JSON()
			if err != nil {
				return err
			}
			a.Structure = datatypes.JSON(raw)
			a.Content = document.RenderStructure(structure)
			bodyChanged = true
		}
		if req.Content != nil {
			a.Content = *req.Content
			if structure == nil {
				// Hand-written HTML replaces the structure as the source
				a.Structure = nil
			}
			bodyChanged = true
		}

		statusReset := false
		if req.Status != nil && *req.Status != a.Status {
			a.Status = *req.Status
			statusReset = a.Status.SignatureDriven()
		}

		if err := tx.Save(&a).Error; err != nil {
			return err
		}
		status = a.Status
		if statusReset {
			var err error
			status, _, err = s.refreshStatus(tx, a.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("agreement updated", zap.Uint("agreement_id", id), zap.Bool("body_changed", bodyChanged))
	if bodyChanged {
		s.regeneratePDF(ctx, id)
	}
	if req.Status != nil {
		s.announceStatus(id, status)
	}
	return s.Get(ctx, id)
}
