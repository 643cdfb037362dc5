// Package agreement manages agreements, their signatures and AI edits.
package agreement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/eckdocs/internal/ai"
	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event names sent to the notifier
const (
	EventAgreementCreated = "agreement.created"
	EventAgreementStatus  = "agreement.status"
	EventAgreementSigned  = "agreement.signed"
	EventSignatureSigned  = "signature.signed"
	EventSignatureViewed  = "signature.viewed"
	EventEditApplied      = "agreement.edit_applied"
)

// PDFGenerator regenerates the stored agreement PDF
type PDFGenerator interface {
	GenerateAgreementPDF(ctx context.Context, id uint) (string, error)
}

// Notifier receives live events for connected admin clients
type Notifier interface {
	Notify(event string, payload interface{})
}

// Proposer suggests structure edits from a free-text instruction
type Proposer interface {
	Propose(ctx context.Context, current *document.Structure, instruction string) (*ai.Proposal, error)
}

// Deps bundles the collaborators of Service. PDF, Notifier and Editor may be nil.
type Deps struct {
	DB       *database.DB
	Store    *storage.Local
	PDF      PDFGenerator
	Notifier Notifier
	Editor   Proposer
	Log      *zap.Logger
	BaseURL  string
}

// Service implements agreement operations
type Service struct {
	db       *database.DB
	store    *storage.Local
	pdf      PDFGenerator
	notifier Notifier
	editor   Proposer
	log      *zap.Logger
	baseURL  string
	now      func() time.Time
}

// NewService creates the agreement service
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       d.DB,
		store:    d.Store,
		pdf:      d.PDF,
		notifier: d.Notifier,
		editor:   d.Editor,
		log:      log.With(zap.String("service", "agreement")),
		baseURL:  strings.TrimRight(d.BaseURL, "/"),
		now:      time.Now,
	}
}

// VerifyURL is the public verification address encoded in the QR code
func (s *Service) VerifyURL(a *models.Agreement) string {
	return s.baseURL + "/verify/" + a.VerifyLink
}

// SignURL is the public address a signer opens
func (s *Service) SignURL(sig *models.Signature) string {
	return s.baseURL + "/sign/" + sig.SignatureLink
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, services.ErrNotFound)
	}
	return err
}

// regeneratePDF is best-effort: failures are logged, never returned
func (s *Service) regeneratePDF(ctx context.Context, id uint) {
	if s.pdf == nil {
		return
	}
	// The request may finish before the browser does
	ctx = context.WithoutCancel(ctx)
	if _, err := s.pdf.GenerateAgreementPDF(ctx, id); err != nil {
		s.log.Warn("pdf regeneration failed", zap.Uint("agreement_id", id), zap.Error(err))
	}
}

func (s *Service) notify(event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(event, payload)
}

func (s *Service) load(ctx context.Context, id uint) (*models.Agreement, error) {
	var a models.Agreement
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("agreement %d", id), err)
	}
	return &a, nil
}

func (s *Service) loadFull(ctx context.Context, q *gorm.DB) (*models.Agreement, error) {
	var a models.Agreement
	err := q.WithContext(ctx).
		Preload("Template").
		Preload("Property").
		Preload("Parties", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Parties.Documents").
		Preload("Signatures", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns an agreement with parties, signatures, template and property
func (s *Service) Get(ctx context.Context, id uint) (*models.Agreement, error) {
	a, err := s.loadFull(ctx, s.db.Where("id = ?", id))
	if err != nil {
		return nil, notFound(fmt.Sprintf("agreement %d", id), err)
	}
	return a, nil
}

// ListFilter narrows List results
type ListFilter struct {
	Status models.AgreementStatus
	Type   models.TemplateType
	Search string
	Page   int
	Limit  int
}

// ListResult is one page of agreements
type ListResult struct {
	Items []models.Agreement `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// List returns agreements newest first
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	filter := func(q *gorm.DB) *gorm.DB {
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if term := strings.TrimSpace(f.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			sub := s.db.Model(&models.Party{}).Select("agreement_id").
				Where("LOWER(full_name) LIKE ? OR LOWER(company_name) LIKE ?", like, like)
			q = q.Where("LOWER(agreement_number) LIKE ? OR LOWER(city) LIKE ? OR id IN (?)", like, like, sub)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Agreement{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, err
	}

	items := []models.Agreement{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Preload("Signatures").
		Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Delete soft-deletes an agreement
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Agreement{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("agreement %d: %w", id, services.ErrNotFound)
	}
	s.log.Info("agreement deleted", zap.Uint("agreement_id", id))
	return nil
}

// GetByPublicLink returns the agreement for unauthenticated viewers.
// Signature links are blanked so a viewer cannot sign for someone else.
func (s *Service) GetByPublicLink(ctx context.Context, link string) (*models.Agreement, error) {
	a, err := s.loadFull(ctx, s.db.Where("public_link = ?", link))
	if err != nil {
		return nil, notFound("agreement", err)
	}
	redact(a)
	return a, nil
}

// Verification is the public summary shown by the verify page
type Verification struct {
	AgreementNumber string                 `json:"agreementNumber"`
	Type            models.TemplateType    `json:"type"`
	Status          models.AgreementStatus `json:"status"`
	City            string                 `json:"city,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	SignedAt        *time.Time             `json:"signedAt,omitempty"`
	PDFGeneratedAt  *time.Time             `json:"pdfGeneratedAt,omitempty"`
	Signatures      []VerifiedSignature    `json:"signatures"`
}

// VerifiedSignature is the public view of one signature
type VerifiedSignature struct {
	SignerName string     `json:"signerName"`
	SignerRole string     `json:"signerRole"`
	IsSigned   bool       `json:"isSigned"`
	SignedAt   *time.Time `json:"signedAt,omitempty"`
}

// Verify confirms that an agreement exists and reports its signing state
func (s *Service) Verify(ctx context.Context, verifyLink string) (*Verification, error) {
	var a models.Agreement
	err := s.db.WithContext(ctx).
		Preload("Signatures", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("verify_link = ?", verifyLink).
		First(&a).Error
	if err != nil {
		return nil, notFound("agreement", err)
	}

	v := &Verification{
		AgreementNumber: a.AgreementNumber,
		Type:            a.Type,
		Status:          a.Status,
		City:            a.City,
		CreatedAt:       a.CreatedAt,
		SignedAt:        a.SignedAt,
		PDFGeneratedAt:  a.PDFGeneratedAt,
		Signatures:      make([]VerifiedSignature, 0, len(a.Signatures)),
	}
	for _, sig := range a.Signatures {
		v.Signatures = append(v.Signatures, VerifiedSignature{
			SignerName: sig.SignerName,
			SignerRole: sig.SignerRole,
			IsSigned:   sig.IsSigned,
			SignedAt:   sig.SignedAt,
		})
	}
	return v, nil
}

// RegenerateQR rebuilds the verification QR code
func (s *Service) RegenerateQR(ctx context.Context, id uint) (string, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	qr, err := utils.QRCodeBase64(s.VerifyURL(a))
	if err != nil {
		return "", fmt.Errorf("generate qr: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(a).UpdateColumn("qr_code_base64", qr).Error; err != nil {
		return "", err
	}
	return qr, nil
}

// GeneratePDF regenerates the PDF on demand; unlike the automatic path,
// errors are returned.
func (s *Service) GeneratePDF(ctx context.Context, id uint) (string, error) {
	if s.pdf == nil {
		return "", errors.New("pdf generation is not configured")
	}
	if _, err := s.load(ctx, id); err != nil {
		return "", err
	}
	return s.pdf.GenerateAgreementPDF(ctx, id)
}

func redact(a *models.Agreement) {
	for i := range a.Signatures {
		a.Signatures[i].SignatureLink = ""
		a.Signatures[i].IPAddress = ""
		a.Signatures[i].UserAgent = ""
	}
	for i := range a.Parties {
		for j := range a.Parties[i].Documents {
			a.Parties[i].Documents[j].DataBase64 = ""
		}
	}
}
