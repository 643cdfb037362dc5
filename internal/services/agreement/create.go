package agreement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentUpload is an identity or company document sent as base64
type DocumentUpload struct {
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
	Data     string `json:"data"`
}

// PartyInput is a party plus its uploaded documents
type PartyInput struct {
	models.Party
	Documents []DocumentUpload `json:"documents"`
}

// CreateRequest is the payload for Create
type CreateRequest struct {
	TemplateID       uint              `json:"templateId"`
	PropertyID       *uint             `json:"propertyId"`
	AgreementNumber  string            `json:"agreementNumber"`
	City             string            `json:"city"`
	DateFrom         string            `json:"dateFrom"`
	DateTo           string            `json:"dateTo"`
	Currency         string            `json:"currency"`
	RentAmount       *decimal.Decimal  `json:"rentAmount"`
	RentAmountTotal  *decimal.Decimal  `json:"rentAmountTotal"`
	DepositAmount    *decimal.Decimal  `json:"depositAmount"`
	TotalAmount      *decimal.Decimal  `json:"totalAmount"`
	PaymentOnSigning *decimal.Decimal  `json:"paymentOnSigning"`
	PaymentRemaining *decimal.Decimal  `json:"paymentRemaining"`
	Notes            string            `json:"notes"`
	Variables        map[string]string `json:"variables"`
	Parties          []PartyInput      `json:"parties"`
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. Empty input gives nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// applyAmounts fills the financial fields and derives the ones left out:
// the rent total from monthly rent and period, the remaining payment from
// total minus payment on signing.
func applyAmounts(a *models.Agreement, req *CreateRequest) {
	a.RentAmount = orZero(req.RentAmount)
	a.DepositAmount = orZero(req.DepositAmount)
	a.TotalAmount = orZero(req.TotalAmount)
	a.PaymentOnSigning = orZero(req.PaymentOnSigning)

	if req.RentAmountTotal != nil {
		a.RentAmountTotal = *req.RentAmountTotal
	} else {
		a.RentAmountTotal = computeRentTotal(a)
	}

	if req.PaymentRemaining != nil {
		a.PaymentRemaining = *req.PaymentRemaining
	} else if a.TotalAmount.IsPositive() && a.PaymentOnSigning.IsPositive() {
		a.PaymentRemaining = a.TotalAmount.Sub(a.PaymentOnSigning)
	}
}

func computeRentTotal(a *models.Agreement) decimal.Decimal {
	if !a.RentAmount.IsPositive() || a.DateFrom == nil || a.DateTo == nil {
		return decimal.Zero
	}
	return document.RentTotal(a.RentAmount, *a.DateFrom, *a.DateTo)
}

func (req *CreateRequest) validate() (from, to *time.Time, err error) {
	v := services.Violations{}
	if req.TemplateID == 0 {
		v.Add("templateId", "template is required")
	}

	from, errFrom := ParseDate(req.DateFrom)
	if errFrom != nil {
		v.Add("dateFrom", errFrom.Error())
	}
	to, errTo := ParseDate(req.DateTo)
	if errTo != nil {
		v.Add("dateTo", errTo.Error())
	}
	if from != nil && to != nil && to.Before(*from) {
		v.Add("dateTo", "end date is before start date")
	}

	roles := map[string]bool{}
	for i, p := range req.Parties {
		field := fmt.Sprintf("parties[%d]", i)
		key := roleKey(p.Role)
		switch {
		case key == "":
			v.Add(field+".role", "role is required")
		case roles[key]:
			v.Add(field+".role", "role "+p.Role+" is used twice")
		}
		roles[key] = true
		if strings.TrimSpace(p.DisplayName()) == "" {
			v.Add(field+".name", "name is required")
		}
	}

	for name, d := range map[string]*decimal.Decimal{
		"rentAmount": req.RentAmount, "rentAmountTotal": req.RentAmountTotal,
		"depositAmount": req.DepositAmount, "totalAmount": req.TotalAmount,
		"paymentOnSigning": req.PaymentOnSigning, "paymentRemaining": req.PaymentRemaining,
	} {
		if d != nil && d.IsNegative() {
			v.Add(name, "must not be negative")
		}
	}
	return from, to, v.Err()
}

// Create instantiates a template into a new agreement with its parties and
// one signature per party. QR and PDF generation afterwards are best-effort.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID *uint) (*models.Agreement, error) {
	from, to, err := req.validate()
	if err != nil {
		return nil, err
	}

	var tmpl models.Template
	if err := s.db.WithContext(ctx).First(&tmpl, req.TemplateID).Error; err != nil {
		return nil, notFound(fmt.Sprintf("template %d", req.TemplateID), err)
	}
	if !tmpl.IsActive {
		return nil, &services.ValidationError{Fields: map[string]string{"templateId": "template is inactive"}}
	}

	var property *models.Property
	if req.PropertyID != nil {
		property = &models.Property{}
		if err := s.db.WithContext(ctx).First(property, *req.PropertyID).Error; err != nil {
			return nil, notFound(fmt.Sprintf("property %d", *req.PropertyID), err)
		}
	}

	now := s.now()
	agreement := &models.Agreement{
		AgreementNumber: strings.TrimSpace(req.AgreementNumber),
		Type:            tmpl.Type,
		TemplateID:      tmpl.ID,
		PropertyID:      req.PropertyID,
		City:            req.City,
		DateFrom:        from,
		DateTo:          to,
		Currency:        req.Currency,
		Notes:           req.Notes,
		CreatedBy:       userID,
		Status:          models.AgreementDraft,
	}
	if agreement.Currency == "" {
		agreement.Currency = "UAH"
	}
	if agreement.City == "" && property != nil {
		agreement.City = property.City
	}
	applyAmounts(agreement, &req)

	parties := make([]models.Party, len(req.Parties))
	for i, in := range req.Parties {
		p := in.Party
		p.ID = 0
		p.Documents = nil
		p.Role = roleKey(p.Role)
		if p.PartyType == "" {
			p.PartyType = models.PartyIndividual
		}
		parties[i] = p
	}

	var written []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if agreement.AgreementNumber == "" {
			number, err := services.NextNumber(tx, &models.Agreement{}, "agreement_number", "AG", now)
			if err != nil {
				return err
			}
			agreement.AgreementNumber = number
		}

		vars := BuildVars(agreement, parties, property, now, req.Variables)
		content, structure, err := instantiate(&tmpl, vars)
		if err != nil {
			return fmt.Errorf("instantiate template: %w", err)
		}
		agreement.Content = content
		agreement.Structure = datatypes.JSON(structure)
		if len(parties) > 0 {
			agreement.Status = models.AgreementPendingSignatures
		}

		if err := tx.Create(agreement).Error; err != nil {
			return fmt.Errorf("create agreement: %w", err)
		}

		for i := range parties {
			parties[i].AgreementID = agreement.ID
			if err := tx.Create(&parties[i]).Error; err != nil {
				return fmt.Errorf("create party %s: %w", parties[i].Role, err)
			}

			for _, up := range req.Parties[i].Documents {
				doc, err := s.storeDocument(agreement.ID, &parties[i], up)
				if err != nil {
					return err
				}
				written = append(written, doc.FilePath)
				if err := tx.Create(doc).Error; err != nil {
					return fmt.Errorf("create party document: %w", err)
				}
			}

			partyID := parties[i].ID
			sig := models.Signature{
				AgreementID: agreement.ID,
				PartyID:     &partyID,
				SignerName:  parties[i].DisplayName(),
				SignerRole:  parties[i].Role,
			}
			if err := tx.Create(&sig).Error; err != nil {
				return fmt.Errorf("create signature: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		for _, path := range written {
			_ = s.store.Remove(path)
		}
		return nil, err
	}

	s.log.Info("agreement created",
		zap.Uint("agreement_id", agreement.ID),
		zap.String("number", agreement.AgreementNumber),
		zap.Int("parties", len(parties)))

	if qr, err := utils.QRCodeBase64(s.VerifyURL(agreement)); err != nil {
		s.log.Warn("qr generation failed", zap.Uint("agreement_id", agreement.ID), zap.Error(err))
	} else if err := s.db.WithContext(ctx).Model(agreement).UpdateColumn("qr_code_base64", qr).Error; err != nil {
		s.log.Warn("could not store qr code", zap.Uint("agreement_id", agreement.ID), zap.Error(err))
	}

	s.regeneratePDF(ctx, agreement.ID)
	s.notify(EventAgreementCreated, map[string]interface{}{
		"id":              agreement.ID,
		"agreementNumber": agreement.AgreementNumber,
		"status":          agreement.Status,
	})

	return s.Get(ctx, agreement.ID)
}

func (s *Service) storeDocument(agreementID uint, p *models.Party, up DocumentUpload) (*models.PartyDocument, error) {
	kind := up.Kind
	if kind == "" {
		kind = "other"
	}
	name := up.FileName
	if name == "" {
		name = fmt.Sprintf("%s_%s_%d", p.Role, kind, s.now().UnixNano())
	}
	if s.store == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	dir := fmt.Sprintf("agreements/%d/parties/%d", agreementID, p.ID)
	path, mimeType, err := s.store.SaveBase64(dir, name, up.Data)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"documents": err.Error()}}
	}
	data := up.Data
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	return &models.PartyDocument{
		PartyID:    p.ID,
		Kind:       kind,
		FileName:   name,
		FilePath:   path,
		MimeType:   mimeType,
		DataBase64: data,
	}, nil
}
