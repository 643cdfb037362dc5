package agreement

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/models"
)

const displayDate = "02.01.2006"

// roleKey turns a party role into a placeholder prefix, "Co Tenant" -> "co_tenant"
func roleKey(role string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(role)), " ", "_")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(displayDate)
}

// BuildVars assembles the placeholder map for an agreement. Custom values
// override computed ones.
func BuildVars(a *models.Agreement, parties []models.Party, property *models.Property, issued time.Time, custom map[string]string) document.Vars {
	v := document.Vars{}

	v.Set("agreement_number", a.AgreementNumber)
	v.Set("agreement_date", issued.Format(displayDate))
	v.Set("agreement_type", string(a.Type))
	v.Set("city", a.City)
	v.Set("currency", a.Currency)
	v.Set("date_from", formatDate(a.DateFrom))
	v.Set("date_to", formatDate(a.DateTo))
	if a.DateFrom != nil && a.DateTo != nil {
		v.Set("rental_months", strconv.Itoa(document.MonthsBetween(*a.DateFrom, *a.DateTo)))
	}

	v.SetDecimal("rent_amount", a.RentAmount)
	v.SetDecimal("rent_amount_total", a.RentAmountTotal)
	v.SetDecimal("deposit_amount", a.DepositAmount)
	v.SetDecimal("total_amount", a.TotalAmount)
	v.SetDecimal("payment_on_signing", a.PaymentOnSigning)
	v.SetDecimal("payment_remaining", a.PaymentRemaining)
	v.Set("payment_on_signing_percent", document.PercentOf(a.PaymentOnSigning, a.TotalAmount))
	v.Set("payment_remaining_percent", document.PercentOf(a.PaymentRemaining, a.TotalAmount))
	v.Set("deposit_percent", document.PercentOf(a.DepositAmount, a.TotalAmount))

	if property != nil {
		v.Set("property_address", property.Address)
		v.Set("property_city", property.City)
		v.Set("property_cadastral_number", property.CadastralNumber)
		v.SetNumber("property_area", property.Area)
		v.Set("property_rooms", strconv.Itoa(property.Rooms))
		v.Set("property_floor", strconv.Itoa(property.Floor))
		v.Set("property_owner", property.Owner)
	}

	for _, p := range parties {
		setPartyVars(v, roleKey(p.Role), p)
	}

	for k, val := range custom {
		v.Set(k, val)
	}
	return v
}

func setPartyVars(v document.Vars, prefix string, p models.Party) {
	if prefix == "" {
		return
	}
	set := func(key, val string) { v.Set(prefix+"_"+key, val) }

	set("name", p.DisplayName())
	set("type", p.PartyType)
	set("address", p.Address)
	set("phone", p.Phone)
	set("email", p.Email)

	set("full_name", p.FullName)
	set("birth_date", p.BirthDate)
	set("passport", p.PassportNumber)
	set("passport_issued_by", p.PassportIssuedBy)
	set("passport_issued_at", p.PassportIssuedAt)
	set("tax_id", p.TaxID)

	set("company_name", p.CompanyName)
	set("company_code", p.CompanyCode)
	set("director_name", p.DirectorName)
	set("acting_on_basis", p.ActingOnBasis)
	set("bank_account", p.BankAccount)
}

// instantiate substitutes vars into template content and structure
func instantiate(tmpl *models.Template, vars document.Vars) (string, []byte, error) {
	content := document.Substitute(tmpl.Content, vars)

	if len(tmpl.Structure) == 0 || string(tmpl.Structure) == "null" {
		return content, nil, nil
	}
	var tree any
	if err := json.Unmarshal(tmpl.Structure, &tree); err != nil {
		return "", nil, err
	}
	structure, err := json.Marshal(document.SubstituteTree(tree, vars))
	if err != nil {
		return "", nil, err
	}

	// Templates without HTML get it from their structure
	if strings.TrimSpace(content) == "" {
		parsed, err := document.ParseStructure(structure)
		if err != nil {
			return "", nil, err
		}
		content = document.RenderStructure(parsed)
	}
	return content, structure, nil
}
