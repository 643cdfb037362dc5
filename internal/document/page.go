package document

import (
	"bytes"
	"html/template"
	"strings"
)

// PartyView is a party as printed on the document
type PartyView struct {
	Role        string
	Name        string
	Details     []string
	Attachments []Attachment
}

// Attachment is an identity document image shown on its own page
type Attachment struct {
	Label   string
	DataURI template.URL
}

// SignatureView is one row of the signature table
type SignatureView struct {
	Role     string
	Name     string
	Signed   bool
	SignedAt string
	ImageURI template.URL
	Device   string
}

// PageData feeds the standalone print document
type PageData struct {
	Title           string
	AgreementNumber string
	City            string
	Date            string
	Status          string
	Watermark       string
	BodyHTML        template.HTML
	Parties         []PartyView
	Signatures      []SignatureView
	QRCodeURI       template.URL
	VerifyURL       string
	GeneratedAt     string
}

// DataURI builds an image data URI from raw base64 or an existing data URI
func DataURI(data, mime string) template.URL {
	data = strings.TrimSpace(data)
	if data == "" {
		return ""
	}
	if strings.HasPrefix(data, "data:") {
		return template.URL(data)
	}
	if mime == "" {
		mime = "image/png"
	}
	return template.URL("data:" + mime + ";base64," + data)
}

var pageTemplate = template.Must(template.New("agreement").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.AgreementNumber}}</title>
<style>
@page { size: A4; margin: 0; }
body { font-family: "Times New Roman", serif; font-size: 12pt; line-height: 1.45; color: #111; margin: 0; }
.page { position: relative; padding: 18mm 16mm 20mm 20mm; page-break-after: always; }
.page:last-child { page-break-after: auto; }
.watermark { position: fixed; top: 40%; left: 0; right: 0; text-align: center; font-size: 96pt; color: rgba(200, 0, 0, 0.08); transform: rotate(-30deg); z-index: 0; }
.doc-header { display: flex; justify-content: space-between; font-size: 10pt; color: #555; border-bottom: 1px solid #ccc; margin-bottom: 8mm; }
.doc-title { text-align: center; font-size: 16pt; margin: 0 0 6mm; }
.doc-meta { display: flex; justify-content: space-between; margin-bottom: 6mm; }
.doc-section { margin-bottom: 5mm; }
.doc-section-title { font-size: 13pt; text-align: center; margin: 4mm 0 2mm; }
.doc-subsection-title { font-size: 12pt; margin: 3mm 0 1mm; }
.doc-paragraph, .doc-subsection-text { text-align: justify; margin: 0 0 2mm; }
.doc-bullet-list { margin: 0 0 2mm 6mm; }
.parties { display: flex; flex-wrap: wrap; margin-top: 8mm; page-break-inside: avoid; }
.party { width: 50%; box-sizing: border-box; padding: 2mm; }
.signatures { width: 100%; border-collapse: collapse; margin-top: 6mm; page-break-inside: avoid; }
.signatures th, .signatures td { border: 1px solid #999; padding: 2mm; text-align: left; }
.signatures img { max-height: 22mm; max-width: 60mm; }
.unsigned { color: #a00; }
.verify { margin-top: 8mm; font-size: 9pt; color: #555; display: flex; align-items: center; gap: 4mm; }
.verify img { width: 28mm; height: 28mm; }
.attachment img { max-width: 100%; max-height: 240mm; display: block; margin: 4mm auto; }
</style>
</head>
<body>
{{if .Watermark}}<div class="watermark">{{.Watermark}}</div>{{end}}
<div class="page">
<div class="doc-header"><span>{{.AgreementNumber}}</span><span>{{.Status}}</span></div>
<div class="doc-meta"><span>{{.City}}</span><span>{{.Date}}</span></div>
{{.BodyHTML}}
{{if .Parties}}
<div class="parties">
{{range .Parties}}
<div class="party"><strong>{{.Role}}</strong><br>{{.Name}}{{range .Details}}<br>{{.}}{{end}}</div>
{{end}}
</div>
{{end}}
{{if .Signatures}}
<table class="signatures">
<tr><th>Role</th><th>Name</th><th>Signature</th><th>Signed at</th></tr>
{{range .Signatures}}
<tr>
<td>{{.Role}}</td>
<td>{{.Name}}</td>
<td>{{if .Signed}}<img src="{{.ImageURI}}" alt="signature">{{else}}<span class="unsigned">not signed</span>{{end}}</td>
<td>{{.SignedAt}}{{if .Device}}<br><small>{{.Device}}</small>{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
{{if .QRCodeURI}}
<div class="verify"><img src="{{.QRCodeURI}}" alt="QR"><span>Verify this document: {{.VerifyURL}}<br>Generated {{.GeneratedAt}}</span></div>
{{end}}
</div>
{{range .Parties}}{{$role := .Role}}{{range .Attachments}}
<div class="page attachment">
<div class="doc-header"><span>{{$role}}</span><span>{{.Label}}</span></div>
<img src="{{.DataURI}}" alt="{{.Label}}">
</div>
{{end}}{{end}}
</body>
</html>
`))

// RenderPage renders the full standalone HTML document
func RenderPage(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
