package agreement

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/utils"
)

var templateTitles = map[models.TemplateType]string{
	models.TemplateRent:        "Lease Agreement",
	models.TemplateSale:        "Sale Agreement",
	models.TemplateBilateral:   "Bilateral Agreement",
	models.TemplateTrilateral:  "Trilateral Agreement",
	models.TemplateAgency:      "Agency Agreement",
	models.TemplateTransferAct: "Transfer Act",
}

// body prefers the structure when it renders to something, else the stored HTML
func body(a *models.Agreement) string {
	if len(a.Structure) > 0 {
		if s, err := document.ParseStructure(a.Structure); err == nil && !s.Empty() {
			return document.RenderStructure(s)
		}
	}
	return a.Content
}

func partyDetails(p models.Party) []string {
	var out []string
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			out = append(out, label+": "+v)
		}
	}
	if p.IsCompany() {
		add("Code", p.CompanyCode)
		add("Director", p.DirectorName)
		add("Acting on", p.ActingOnBasis)
		add("Account", p.BankAccount)
	} else {
		add("Passport", p.PassportNumber)
		add("Issued by", p.PassportIssuedBy)
		add("Tax ID", p.TaxID)
	}
	add("Address", p.Address)
	add("Phone", p.Phone)
	return out
}

// PageData assembles everything the print page shows
func (s *Service) PageData(a *models.Agreement) document.PageData {
	data := document.PageData{
		Title:           templateTitles[a.Type],
		AgreementNumber: a.AgreementNumber,
		City:            a.City,
		Date:            a.CreatedAt.Format(displayDate),
		Status:          string(a.Status),
		BodyHTML:        template.HTML(body(a)),
		VerifyURL:       s.VerifyURL(a),
		GeneratedAt:     s.now().Format("02.01.2006 15:04"),
	}
	if data.Title == "" {
		data.Title = "Agreement"
	}
	if a.Status != models.AgreementSigned && a.Status != models.AgreementActive {
		data.Watermark = "DRAFT"
	}

	for _, p := range a.Parties {
		view := document.PartyView{
			Role:    p.Role,
			Name:    p.DisplayName(),
			Details: partyDetails(p),
		}
		for _, doc := range p.Documents {
			if !strings.HasPrefix(doc.MimeType, "image/") {
				continue
			}
			uri := document.DataURI(doc.DataBase64, doc.MimeType)
			if uri == "" && s.store != nil && doc.FilePath != "" {
				if raw, err := s.store.Read(doc.FilePath); err == nil {
					uri = document.DataURI(encodeBase64(raw), doc.MimeType)
				}
			}
			if uri != "" {
				view.Attachments = append(view.Attachments, document.Attachment{Label: doc.Kind, DataURI: uri})
			}
		}
		data.Parties = append(data.Parties, view)
	}

	for _, sig := range a.Signatures {
		view := document.SignatureView{
			Role:   sig.SignerRole,
			Name:   sig.SignerName,
			Signed: sig.IsSigned,
			Device: utils.DeviceInfo{DeviceType: sig.DeviceType, Browser: sig.Browser, OS: sig.OS}.String(),
		}
		if sig.SignedAt != nil {
			view.SignedAt = sig.SignedAt.Format("02.01.2006 15:04")
		}
		if sig.IsSigned {
			view.ImageURI = document.DataURI(sig.SignatureData, "image/png")
		}
		data.Signatures = append(data.Signatures, view)
	}

	if a.QRCodeBase64 != "" {
		data.QRCodeURI = document.DataURI(a.QRCodeBase64, "image/png")
	} else if qr, err := utils.QRCodeBase64(data.VerifyURL); err == nil {
		data.QRCodeURI = document.DataURI(qr, "image/png")
	}
	return data
}

// RenderHTML returns the standalone print document of an agreement
func (s *Service) RenderHTML(ctx context.Context, id uint) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	page, err := document.RenderPage(s.PageData(a))
	if err != nil {
		return "", fmt.Errorf("render agreement %d: %w", id, err)
	}
	return page, nil
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
