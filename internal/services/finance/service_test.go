package finance

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/storage"
	"github.com/xelth-com/eckdocs/internal/testutil"
)

type fakePDF struct {
	invoices, receipts int
}

func (f *fakePDF) GenerateInvoicePDF(ctx context.Context, id uint) (string, error) {
	f.invoices++
	return "", nil
}

func (f *fakePDF) GenerateReceiptPDF(ctx context.Context, id uint) (string, error) {
	f.receipts++
	return "", errors.New("disk full")
}

func newService(t *testing.T) (*Service, *fakePDF) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pdf := &fakePDF{}
	return NewService(testutil.NewDB(t), pdf, store, nil), pdf
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func createInvoice(t *testing.T, s *Service, total string) *models.Invoice {
	t.Helper()
	inv, err := s.CreateInvoice(context.Background(), InvoiceRequest{
		ClientName: "Olena Kovalenko",
		IssueDate:  "2024-02-01",
		Items:      []ItemInput{{Description: "Agency fee", Quantity: dec("1"), UnitPrice: dec(total)}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func TestInvoiceStatus(t *testing.T) {
	tests := []struct {
		total, paid string
		want        models.InvoiceStatus
	}{
		{"500", "0", models.InvoiceUnpaid},
		{"500", "200", models.InvoicePartiallyPaid},
		{"500", "500", models.InvoicePaid},
		{"500", "600", models.InvoicePaid},
		{"0", "0", models.InvoiceUnpaid},
		{"0", "10", models.InvoicePartiallyPaid},
	}
	for _, tt := range tests {
		if got := InvoiceStatus(dec(tt.total), dec(tt.paid)); got != tt.want {
			t.Errorf("InvoiceStatus(%s, %s) = %s, want %s", tt.total, tt.paid, got, tt.want)
		}
	}
}

func TestCreateInvoiceTotals(t *testing.T) {
	s, pdf := newService(t)
	inv, err := s.CreateInvoice(context.Background(), InvoiceRequest{
		ClientName: "Client",
		Items: []ItemInput{
			{Description: "Rent", Quantity: dec("2"), UnitPrice: dec("1000.50")},
			{Description: "Cleaning", UnitPrice: dec("99.99")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !inv.TotalAmount.Equal(dec("2100.99")) {
		t.Errorf("expected total 2100.99, got %s", inv.TotalAmount)
	}
	if len(inv.Items) != 2 || !inv.Items[1].Quantity.Equal(dec("1")) {
		t.Errorf("items not stored: %+v", inv.Items)
	}
	if inv.Number == "" || inv.Status != models.InvoiceUnpaid {
		t.Errorf("unexpected invoice %s/%s", inv.Number, inv.Status)
	}
	if pdf.invoices != 1 {
		t.Errorf("expected one pdf generation, got %d", pdf.invoices)
	}

	_, err = s.CreateInvoice(context.Background(), InvoiceRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestReceiptPaysInvoice(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	inv := createInvoice(t, s, "500")

	rc, err := s.CreateReceipt(ctx, ReceiptRequest{InvoiceID: &inv.ID, PayerName: "Olena", Amount: dec("500"), Method: "cash"})
	if err != nil {
		t.Fatalf("CreateReceipt should succeed even if its pdf fails: %v", err)
	}

	got, _ := s.GetInvoice(ctx, inv.ID)
	if !got.AmountPaid.Equal(dec("500")) {
		t.Errorf("expected amount paid 500, got %s", got.AmountPaid)
	}
	if got.Status != models.InvoicePaid {
		t.Errorf("expected paid, got %s", got.Status)
	}
	if len(got.Receipts) != 1 || got.Receipts[0].ID != rc.ID {
		t.Errorf("receipt not linked: %+v", got.Receipts)
	}
}

func TestReceiptUpdateAndDeleteAdjustInvoice(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	first := createInvoice(t, s, "500")
	second := createInvoice(t, s, "300")

	rc, err := s.CreateReceipt(ctx, ReceiptRequest{InvoiceID: &first.ID, Amount: dec("200")})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetInvoice(ctx, first.ID)
	if got.Status != models.InvoicePartiallyPaid {
		t.Errorf("expected partially_paid, got %s", got.Status)
	}

	if _, err := s.UpdateReceipt(ctx, rc.ID, ReceiptRequest{InvoiceID: &second.ID, Amount: dec("300")}); err != nil {
		t.Fatalf("UpdateReceipt: %v", err)
	}
	got, _ = s.GetInvoice(ctx, first.ID)
	if !got.AmountPaid.IsZero() || got.Status != models.InvoiceUnpaid {
		t.Errorf("old invoice not reverted: %s %s", got.AmountPaid, got.Status)
	}
	got, _ = s.GetInvoice(ctx, second.ID)
	if !got.AmountPaid.Equal(dec("300")) || got.Status != models.InvoicePaid {
		t.Errorf("new invoice not paid: %s %s", got.AmountPaid, got.Status)
	}

	if err := s.DeleteReceipt(ctx, rc.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetInvoice(ctx, second.ID)
	if !got.AmountPaid.IsZero() || got.Status != models.InvoiceUnpaid {
		t.Errorf("delete did not revert payment: %s %s", got.AmountPaid, got.Status)
	}
	if err := s.DeleteReceipt(ctx, rc.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReceiptValidationAndAttachment(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	if _, err := s.CreateReceipt(ctx, ReceiptRequest{Amount: dec("0")}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("zero amount should be rejected, got %v", err)
	}
	missing := uint(42)
	if _, err := s.CreateReceipt(ctx, ReceiptRequest{InvoiceID: &missing, Amount: dec("1")}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("unknown invoice should be not found, got %v", err)
	}

	rc, err := s.CreateReceipt(ctx, ReceiptRequest{
		Amount:     dec("10"),
		Attachment: &Attachment{FileName: "scan.pdf", Data: base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rc.FilePath == "" {
		t.Fatal("attachment not stored")
	}
	if _, err := s.store.Read(rc.FilePath); err != nil {
		t.Errorf("attachment file missing: %v", err)
	}
}

func TestUpdateInvoiceKeepsPayments(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	inv := createInvoice(t, s, "500")
	if _, err := s.CreateReceipt(ctx, ReceiptRequest{InvoiceID: &inv.ID, Amount: dec("500")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateInvoice(ctx, inv.ID, InvoiceRequest{
		ClientName: "Olena Kovalenko",
		Items:      []ItemInput{{Description: "Agency fee", UnitPrice: dec("800")}},
	})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if !got.TotalAmount.Equal(dec("800")) || !got.AmountPaid.Equal(dec("500")) {
		t.Errorf("unexpected amounts %s/%s", got.TotalAmount, got.AmountPaid)
	}
	if got.Status != models.InvoicePartiallyPaid || len(got.Items) != 1 {
		t.Errorf("unexpected invoice %s with %d items", got.Status, len(got.Items))
	}

	if err := s.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
	receipts, total, _ := s.ListReceipts(ctx, ReceiptFilter{})
	if total != 1 || receipts[0].InvoiceID != nil {
		t.Errorf("receipt should survive detached from the deleted invoice: %+v", receipts)
	}
}

func TestNumbersContinueAfterTakenOnes(t *testing.T) {
	s, _ := newService(t)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	manual, err := s.CreateInvoice(ctx, InvoiceRequest{
		Number:     "INV-2024-00007",
		ClientName: "Client",
		Items:      []ItemInput{{Description: "Fee", UnitPrice: dec("10")}},
	})
	if err != nil {
		t.Fatalf("manual invoice: %v", err)
	}
	auto := createInvoice(t, s, "20")
	if auto.Number != "INV-2024-00008" {
		t.Errorf("expected INV-2024-00008 after %s, got %s", manual.Number, auto.Number)
	}

	if err := s.DeleteInvoice(ctx, auto.ID); err != nil {
		t.Fatal(err)
	}
	if again := createInvoice(t, s, "30"); again.Number != "INV-2024-00009" {
		t.Errorf("deleted invoice number reissued: %s", again.Number)
	}

	for _, number := range []string{"RC-2024-00003", "RC-2024-manual", ""} {
		rc, err := s.CreateReceipt(ctx, ReceiptRequest{Number: number, PayerName: "Payer", Amount: dec("5")})
		if err != nil {
			t.Fatalf("CreateReceipt(%q): %v", number, err)
		}
		if number == "" && rc.Number != "RC-2024-00004" {
			t.Errorf("expected RC-2024-00004, got %s", rc.Number)
		}
	}
}
