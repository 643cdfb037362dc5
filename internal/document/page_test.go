package document

import (
	"html/template"
	"strings"
	"testing"
)

func TestRenderPage(t *testing.T) {
	html, err := RenderPage(PageData{
		Title:           "Lease",
		AgreementNumber: "AG-2024-0001",
		Status:          "pending_signatures",
		Watermark:       "DRAFT",
		BodyHTML:        template.HTML(RenderStructure(sampleStructure())),
		Parties: []PartyView{{
			Role: "tenant", Name: "Anna <A>", Details: []string{"Passport AB123"},
			Attachments: []Attachment{{Label: "passport", DataURI: DataURI("QUJD", "image/jpeg")}},
		}},
		Signatures: []SignatureView{
			{Role: "tenant", Name: "Anna", Signed: true, ImageURI: DataURI("iVBOR", ""), SignedAt: "2024-01-02 10:00"},
			{Role: "lessor", Name: "Petro"},
		},
		QRCodeURI: DataURI("data:image/png;base64,QR", ""),
		VerifyURL: "https://example.com/verify/x",
	})
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	for _, want := range []string{
		`<div class="watermark">DRAFT</div>`,
		`<h2 class="doc-section-title">1. Subject</h2>`,
		`Anna &lt;A&gt;`,
		`src="data:image/png;base64,iVBOR"`,
		`src="data:image/jpeg;base64,QUJD"`,
		`src="data:image/png;base64,QR"`,
		`not signed`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestDataURI(t *testing.T) {
	if DataURI("  ", "") != "" {
		t.Error("blank data gives empty URI")
	}
	if DataURI("abc", "") != "data:image/png;base64,abc" {
		t.Error("png is the default mime type")
	}
}
