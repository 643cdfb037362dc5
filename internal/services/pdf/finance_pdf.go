package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/utils"
)

const dateLayout = "02.01.2006"

// newDocument sets up an A4 page with the core font
func newDocument(title string) (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	// Core fonts are cp1252; this maps UTF-8 input onto it
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

// drawQR places a QR code in the top right corner
func drawQR(pdf *gofpdf.Fpdf, name, content string) error {
	png, err := utils.QRCodePNG(content, 256)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, 170, 12, 25, 25, false, opts, 0, "")
	return nil
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderInvoice draws an invoice with its line items
func RenderInvoice(inv *models.Invoice, qrContent string) ([]byte, error) {
	pdf, tr := newDocument("Invoice " + inv.Number)

	if qrContent != "" {
		if err := drawQR(pdf, "qr_invoice", qrContent); err != nil {
			return nil, err
		}
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(150, 10, tr("Invoice "+inv.Number), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(150, 6, tr("Issue date: "+inv.IssueDate.Format(dateLayout)), "", 1, "L", false, 0, "")
	if inv.DueDate != nil {
		pdf.CellFormat(150, 6, tr("Due date: "+inv.DueDate.Format(dateLayout)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(150, 6, tr("Status: "+string(inv.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, tr("Bill to: "+inv.ClientName), "", 1, "L", false, 0, "")
	if inv.ClientDetails != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(inv.ClientDetails), "", "L", false)
	}
	pdf.Ln(6)

	widths := []float64{90, 25, 30, 35}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(widths[0], 7, tr(item.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, item.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelW := widths[0] + widths[1] + widths[2]
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(labelW, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, fmt.Sprintf("%s %s", inv.TotalAmount.StringFixed(2), inv.Currency), "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(labelW, 7, "Paid", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, inv.AmountPaid.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 7, "Due", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, inv.TotalAmount.Sub(inv.AmountPaid).StringFixed(2), "1", 1, "R", false, 0, "")

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	return output(pdf)
}

// RenderReceipt draws a payment receipt
func RenderReceipt(rc *models.Receipt, invoiceNumber, qrContent string) ([]byte, error) {
	pdf, tr := newDocument("Receipt " + rc.Number)

	if qrContent != "" {
		if err := drawQR(pdf, "qr_receipt", qrContent); err != nil {
			return nil, err
		}
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(150, 10, tr("Receipt "+rc.Number), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Date", rc.PaidAt.Format(dateLayout)},
		{"Payer", rc.PayerName},
		{"Amount", rc.Amount.StringFixed(2) + " " + rc.Currency},
		{"Method", rc.Method},
	}
	if invoiceNumber != "" {
		rows = append(rows, [2]string{"Invoice", invoiceNumber})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(40, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(110, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	if rc.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 5, tr(rc.Notes), "", "L", false)
	}

	return output(pdf)
}
