package agreement

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/ai"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"github.com/xelth-com/eckdocs/internal/testutil"
	"gorm.io/datatypes"
)

type fakePDF struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (f *fakePDF) GenerateAgreementPDF(ctx context.Context, id uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return "agreements/x.pdf", f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) has(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeEditor struct {
	proposal *ai.Proposal
}

func (f *fakeEditor) Propose(ctx context.Context, current *document.Structure, instruction string) (*ai.Proposal, error) {
	return f.proposal, nil
}

type fixture struct {
	svc      *Service
	pdf      *fakePDF
	notifier *fakeNotifier
	editor   *fakeEditor
	tmpl     models.Template
}

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

const templateContent = `<p>{{tenant_name}} rents from {{landlord_name}} for {{rent_amount_total}} {{currency}} ({{rental_months}} months). {{unknown_key}}</p>`

const templateStructure = `{"nodes":[
	{"type":"section","id":"parties","title":"Parties","text":"{{tenant_name}} and {{landlord_name}}"},
	{"type":"section","id":"rent","title":"Rent","text":"Monthly rent {{rent_amount}}"}
]}`

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{pdf: &fakePDF{}, notifier: &fakeNotifier{}, editor: &fakeEditor{}}
	f.svc = NewService(Deps{
		DB:       db,
		Store:    store,
		PDF:      f.pdf,
		Notifier: f.notifier,
		Editor:   f.editor,
		BaseURL:  "https://docs.example.com/",
	})
	f.svc.now = func() time.Time { return fixedNow }

	f.tmpl = models.Template{
		Name:      "Standard lease",
		Type:      models.TemplateRent,
		Content:   templateContent,
		Structure: datatypes.JSON(templateStructure),
		IsActive:  true,
		Version:   1,
	}
	if err := db.Create(&f.tmpl).Error; err != nil {
		t.Fatal(err)
	}
	return f
}

func money(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (f *fixture) create(t *testing.T, roles ...string) *models.Agreement {
	t.Helper()
	req := CreateRequest{
		TemplateID: f.tmpl.ID,
		City:       "Kyiv",
		DateFrom:   "2024-01-01",
		DateTo:     "2024-03-15",
		RentAmount: money(1000),
	}
	for _, role := range roles {
		req.Parties = append(req.Parties, PartyInput{Party: models.Party{Role: role, FullName: strings.ToUpper(role[:1]) + role[1:] + " Person"}})
	}
	a, err := f.svc.Create(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestCreateInstantiatesTemplate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord")

	if a.AgreementNumber != "AG-2024-00001" {
		t.Errorf("unexpected number %q", a.AgreementNumber)
	}
	if !a.RentAmountTotal.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected rent total 3000, got %s", a.RentAmountTotal)
	}
	if !strings.Contains(a.Content, "Tenant Person rents from Landlord Person for 3000.00 UAH (3 months).") {
		t.Errorf("content not substituted: %s", a.Content)
	}
	if !strings.Contains(a.Content, "{{unknown_key}}") {
		t.Error("unknown placeholders must stay verbatim")
	}
	if !strings.Contains(string(a.Structure), "Tenant Person and Landlord Person") {
		t.Errorf("structure not substituted: %s", a.Structure)
	}
	if a.Status != models.AgreementPendingSignatures {
		t.Errorf("expected pending_signatures, got %s", a.Status)
	}
	if len(a.Parties) != 2 || len(a.Signatures) != 2 {
		t.Fatalf("expected 2 parties and 2 signatures, got %d/%d", len(a.Parties), len(a.Signatures))
	}
	for _, sig := range a.Signatures {
		if sig.SignatureLink == "" || sig.IsSigned {
			t.Errorf("signature not issued correctly: %+v", sig)
		}
	}
	if a.QRCodeBase64 == "" {
		t.Error("qr code not stored")
	}
	if len(f.pdf.calls) != 1 {
		t.Errorf("expected one pdf generation, got %d", len(f.pdf.calls))
	}
	if !f.notifier.has(EventAgreementCreated) {
		t.Error("creation event not sent")
	}

	second := f.create(t)
	if second.AgreementNumber != "AG-2024-00002" || second.Status != models.AgreementDraft {
		t.Errorf("unexpected second agreement %s/%s", second.AgreementNumber, second.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateRequest{TemplateID: 999}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("missing template should be not found, got %v", err)
	}

	_, err = f.svc.Create(ctx, CreateRequest{
		TemplateID: f.tmpl.ID,
		DateFrom:   "2024-05-01",
		DateTo:     "2024-04-01",
		Parties: []PartyInput{
			{Party: models.Party{Role: "tenant", FullName: "A"}},
			{Party: models.Party{Role: "Tenant", FullName: "B"}},
		},
	}, nil)
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["dateTo"] == "" || verr.Fields["parties[1].role"] == "" {
		t.Errorf("unexpected violations %v", verr.Fields)
	}
}

func TestCreatePDFFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.pdf.err = errors.New("no chrome")
	a := f.create(t, "tenant")
	if a.ID == 0 {
		t.Fatal("agreement should be created despite pdf failure")
	}
}

func TestSignTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord")
	link := a.Signatures[0].SignatureLink
	ctx := context.Background()

	res, err := f.svc.Sign(ctx, link, SignRequest{SignatureData: "first", TimeOnPageMs: 1 << 40}, ClientInfo{})
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if res.Signature.TimeOnPageMs != 2147483647 {
		t.Errorf("analytics not clamped: %d", res.Signature.TimeOnPageMs)
	}
	signedAt := *res.Signature.SignedAt

	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	if _, err := f.svc.Sign(ctx, link, SignRequest{SignatureData: "second"}, ClientInfo{}); !errors.Is(err, services.ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned, got %v", err)
	}

	var sig models.Signature
	f.svc.db.Where("signature_link = ?", link).First(&sig)
	if sig.SignatureData != "first" || !sig.SignedAt.Equal(signedAt) {
		t.Errorf("second sign mutated the signature: %+v", sig)
	}
}

func TestStatusFollowsSignatures(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord", "agent")
	ctx := context.Background()

	for i, sig := range a.Signatures {
		res, err := f.svc.Sign(ctx, sig.SignatureLink, SignRequest{SignatureData: "png"}, ClientInfo{})
		if err != nil {
			t.Fatalf("sign %d: %v", i, err)
		}
		last := i == len(a.Signatures)-1
		want := models.AgreementPendingSignatures
		if last {
			want = models.AgreementSigned
		}
		if res.AgreementStatus != want || res.AllSigned != last {
			t.Errorf("after %d signatures: status %s allSigned %v", i+1, res.AgreementStatus, res.AllSigned)
		}
	}

	got, _ := f.svc.Get(ctx, a.ID)
	if got.Status != models.AgreementSigned || got.SignedAt == nil {
		t.Errorf("agreement not signed: %s", got.Status)
	}
	// one pdf on create plus one per signature
	if len(f.pdf.calls) != 4 {
		t.Errorf("expected 4 pdf generations, got %d", len(f.pdf.calls))
	}
	if !f.notifier.has(EventAgreementSigned) {
		t.Error("agreement.signed event not sent")
	}
}

func TestDeleteLastSignatureRevertsToDraft(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord")
	ctx := context.Background()

	if err := f.svc.DeleteSignature(ctx, a.ID, a.Signatures[0].ID); err != nil {
		t.Fatal(err)
	}
	got, _ := f.svc.Get(ctx, a.ID)
	if got.Status != models.AgreementPendingSignatures {
		t.Errorf("expected pending with one signature left, got %s", got.Status)
	}

	if err := f.svc.DeleteSignature(ctx, a.ID, a.Signatures[1].ID); err != nil {
		t.Fatal(err)
	}
	got, _ = f.svc.Get(ctx, a.ID)
	if got.Status != models.AgreementDraft {
		t.Errorf("expected draft, got %s", got.Status)
	}

	if err := f.svc.DeleteSignature(ctx, a.ID, a.Signatures[1].ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddSignature(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	if _, err := f.svc.Sign(ctx, a.Signatures[0].SignatureLink, SignRequest{SignatureData: "png"}, ClientInfo{}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.AddSignature(ctx, a.ID, AddSignatureRequest{SignerName: "Other", SignerRole: "Tenant"}); !errors.Is(err, services.ErrRoleInUse) {
		t.Errorf("expected ErrRoleInUse, got %v", err)
	}

	sig, err := f.svc.AddSignature(ctx, a.ID, AddSignatureRequest{SignerName: "Guarantor", SignerRole: "guarantor"})
	if err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if sig.SignatureLink == "" {
		t.Error("link not issued")
	}
	got, _ := f.svc.Get(ctx, a.ID)
	if got.Status != models.AgreementPendingSignatures {
		t.Errorf("new signer should reopen signing, got %s", got.Status)
	}

	if _, err := f.svc.AddSignature(ctx, 999, AddSignatureRequest{SignerName: "X", SignerRole: "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestViewSignatureRecordsFirstVisitOnce(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord")
	link := a.Signatures[0].SignatureLink
	ctx := context.Background()

	iphone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	page, err := f.svc.ViewSignature(ctx, link, ClientInfo{UserAgent: iphone, IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("ViewSignature: %v", err)
	}
	if page.Signature.DeviceType != "mobile" || page.Signature.IPAddress != "10.0.0.1" || page.Signature.ViewCount != 1 {
		t.Errorf("first visit not recorded: %+v", page.Signature)
	}
	for _, sig := range page.Agreement.Signatures {
		if sig.SignatureLink != "" {
			t.Error("other signature links must not leak")
		}
	}

	desktop := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	page, err = f.svc.ViewSignature(ctx, link, ClientInfo{UserAgent: desktop, IP: "10.0.0.2"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Signature.DeviceType != "mobile" || page.Signature.IPAddress != "10.0.0.1" {
		t.Error("device metadata must only be stored on the first visit")
	}
	if page.Signature.ViewCount != 2 {
		t.Errorf("expected 2 views, got %d", page.Signature.ViewCount)
	}

	if _, err := f.svc.ViewSignature(ctx, "nope", ClientInfo{}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPublicLinkAndVerify(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	pub, err := f.svc.GetByPublicLink(ctx, a.PublicLink)
	if err != nil {
		t.Fatal(err)
	}
	if pub.Signatures[0].SignatureLink != "" {
		t.Error("public view must hide signature links")
	}

	v, err := f.svc.Verify(ctx, a.VerifyLink)
	if err != nil {
		t.Fatal(err)
	}
	if v.AgreementNumber != a.AgreementNumber || len(v.Signatures) != 1 || v.Signatures[0].IsSigned {
		t.Errorf("unexpected verification %+v", v)
	}
	if _, err := f.svc.Verify(ctx, "unknown"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	structure := []byte(`{"nodes":[{"type":"paragraph","text":"Rewritten body"}]}`)
	got, err := f.svc.Update(ctx, a.ID, UpdateRequest{Structure: structure, RentAmount: money(2000)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Content != `<p class="doc-paragraph">Rewritten body</p>`+"\n" {
		t.Errorf("content not regenerated: %q", got.Content)
	}
	if !got.RentAmountTotal.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("rent total not recomputed: %s", got.RentAmountTotal)
	}

	signed := models.AgreementSigned
	if _, err := f.svc.Update(ctx, a.ID, UpdateRequest{Status: &signed}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("manual signed status should be rejected, got %v", err)
	}

	active := models.AgreementActive
	got, err = f.svc.Update(ctx, a.ID, UpdateRequest{Status: &active})
	if err != nil {
		t.Fatalf("could not activate: %v", err)
	}
	if got.Status != models.AgreementActive {
		t.Fatalf("expected active, got %s", got.Status)
	}
	if err := f.svc.DeleteSignature(ctx, a.ID, a.Signatures[0].ID); err != nil {
		t.Fatal(err)
	}
	got, _ = f.svc.Get(ctx, a.ID)
	if got.Status != models.AgreementActive {
		t.Errorf("manual status must survive signature changes, got %s", got.Status)
	}
}

func TestRenderHTML(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	page, err := f.svc.RenderHTML(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Lease Agreement", "DRAFT", "Tenant Person", "not signed", "https://docs.example.com/verify/" + a.VerifyLink} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}

	if _, err := f.svc.Sign(ctx, a.Signatures[0].SignatureLink, SignRequest{SignatureData: "iVBORw0KGgo="}, ClientInfo{}); err != nil {
		t.Fatal(err)
	}
	page, _ = f.svc.RenderHTML(ctx, a.ID)
	if strings.Contains(page, `class="watermark"`) {
		t.Error("signed agreement should not carry a watermark")
	}
	if !strings.Contains(page, "data:image/png;base64,iVBORw0KGgo=") {
		t.Error("signature image missing")
	}
}

func TestDeleteAndList(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	f.create(t, "landlord")
	ctx := context.Background()

	res, err := f.svc.List(ctx, ListFilter{Search: "landlord person"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("search should match by party name, got %d", res.Total)
	}

	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, a.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("deleted agreement should be gone, got %v", err)
	}
	res, _ = f.svc.List(ctx, ListFilter{})
	if res.Total != 1 {
		t.Errorf("expected 1 agreement after delete, got %d", res.Total)
	}
}

func TestRegenerateQR(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	if err := f.svc.db.Model(&models.Agreement{}).Where("id = ?", a.ID).UpdateColumn("qr_code_base64", "").Error; err != nil {
		t.Fatal(err)
	}
	qr, err := f.svc.RegenerateQR(ctx, a.ID)
	if err != nil {
		t.Fatalf("RegenerateQR: %v", err)
	}
	if qr == "" {
		t.Fatal("expected a QR code")
	}
	got, err := f.svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.QRCodeBase64 != qr {
		t.Error("QR code was not stored")
	}
	if _, err := f.svc.RegenerateQR(ctx, 9999); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSignOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant", "landlord")
	link := a.Signatures[0].SignatureLink

	// one connection so SQLite serializes the writers instead of failing them
	sqlDB, err := f.svc.db.DB.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	const signers = 2
	errs := make(chan error, signers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < signers; i++ {
		go func(i int) {
			start.Wait()
			_, err := f.svc.Sign(context.Background(), link, SignRequest{SignatureData: "png" + strings.Repeat("!", i)}, ClientInfo{})
			errs <- err
		}(i)
	}
	start.Done()

	won, rejected := 0, 0
	for i := 0; i < signers; i++ {
		switch err := <-errs; {
		case err == nil:
			won++
		case errors.Is(err, services.ErrAlreadySigned):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || rejected != 1 {
		t.Errorf("expected one success and one ErrAlreadySigned, got %d/%d", won, rejected)
	}

	got, _ := f.svc.Get(context.Background(), a.ID)
	if got.Status != models.AgreementPendingSignatures {
		t.Errorf("expected pending with one of two signed, got %s", got.Status)
	}
}

func TestSignLeavesDeviceCaptureToView(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	client := ClientInfo{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", IP: "10.0.0.9"}
	res, err := f.svc.Sign(ctx, a.Signatures[0].SignatureLink, SignRequest{SignatureData: "png"}, client)
	if err != nil {
		t.Fatal(err)
	}
	if res.Signature.FirstVisitAt != nil || res.Signature.IPAddress != "" {
		t.Errorf("signing without a view must not record a visit: %+v", res.Signature)
	}
}

func TestSignStatusEventFollowsCommit(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	f.notifier.events = nil

	if _, err := f.svc.Sign(context.Background(), a.Signatures[0].SignatureLink, SignRequest{SignatureData: "png"}, ClientInfo{}); err != nil {
		t.Fatal(err)
	}
	want := []string{EventAgreementStatus, EventSignatureSigned, EventAgreementSigned}
	if strings.Join(f.notifier.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", f.notifier.events, want)
	}

	if _, err := f.svc.AddSignature(context.Background(), 999, AddSignatureRequest{SignerName: "X", SignerRole: "x"}); err == nil {
		t.Fatal("expected an error")
	}
	if len(f.notifier.events) != len(want) {
		t.Errorf("a rolled back change must not be announced: %v", f.notifier.events)
	}
}

func TestSignMetricDecoding(t *testing.T) {
	var req SignRequest
	body := `{"signatureData":"png","timeOnPage":15234.7,"timeToSign":"812","scrollDepth":1e20,"interactionCount":"lots"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("analytics must never reject a signature: %v", err)
	}
	if req.TimeOnPageMs != 15234.7 || req.TimeToSignMs != 812 || req.ScrollDepth != 1e20 || req.InteractionCount != 0 {
		t.Errorf("unexpected metrics %+v", req)
	}

	f := newFixture(t)
	a := f.create(t, "tenant")
	res, err := f.svc.Sign(context.Background(), a.Signatures[0].SignatureLink, req, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Signature.TimeOnPageMs != 15235 || res.Signature.ScrollDepth != 2147483647 {
		t.Errorf("metrics not rounded and clamped: %d/%d", res.Signature.TimeOnPageMs, res.Signature.ScrollDepth)
	}
}

func TestUpdateKeepsContentForEmptyStructure(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "tenant")
	ctx := context.Background()

	for _, raw := range []string{`null`, ` null `} {
		got, err := f.svc.Update(ctx, a.ID, UpdateRequest{Structure: []byte(raw), RentAmount: money(1500)})
		if err != nil {
			t.Fatalf("Update with %q: %v", raw, err)
		}
		if got.Content != a.Content || string(got.Structure) != string(a.Structure) {
			t.Errorf("structure %q must leave the body alone", raw)
		}
	}

	if _, err := f.svc.Update(ctx, a.ID, UpdateRequest{Structure: []byte(`{}`)}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty structure without content should be rejected, got %v", err)
	}
	got, _ := f.svc.Get(ctx, a.ID)
	if got.Content != a.Content {
		t.Error("rejected update changed the content")
	}

	html := "<p>Hand written</p>"
	got, err := f.svc.Update(ctx, a.ID, UpdateRequest{Structure: []byte(`{"nodes":[]}`), Content: &html})
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != html || len(got.Structure) != 0 {
		t.Errorf("content should replace the body: %q %s", got.Content, got.Structure)
	}
}

func TestCreateNumberSkipsTakenNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manual, err := f.svc.Create(ctx, CreateRequest{
		TemplateID:      f.tmpl.ID,
		AgreementNumber: "AG-2024-00002",
		DateFrom:        "2024-01-01",
		DateTo:          "2024-02-01",
	}, nil)
	if err != nil {
		t.Fatalf("manual number: %v", err)
	}
	if manual.AgreementNumber != "AG-2024-00002" {
		t.Fatalf("manual number not kept: %s", manual.AgreementNumber)
	}

	next := f.create(t)
	if next.AgreementNumber != "AG-2024-00003" {
		t.Errorf("expected AG-2024-00003, got %s", next.AgreementNumber)
	}

	if err := f.svc.Delete(ctx, next.ID); err != nil {
		t.Fatal(err)
	}
	if again := f.create(t); again.AgreementNumber != "AG-2024-00004" {
		t.Errorf("numbers of deleted agreements must not be reissued, got %s", again.AgreementNumber)
	}
}
