package templates

import (
	"context"
	"errors"
	"testing"

	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/testutil"
)

func strPtr(s string) *string { return &s }

func typePtr(t models.TemplateType) *models.TemplateType { return &t }

func TestCreateValidation(t *testing.T) {
	s := NewService(testutil.NewDB(t), nil)

	_, err := s.Create(context.Background(), Request{Name: strPtr(""), Type: typePtr("lease")})
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "type", "content"} {
		if verr.Fields[field] == "" {
			t.Errorf("expected violation for %s, got %v", field, verr.Fields)
		}
	}

	_, err = s.Create(context.Background(), Request{Name: strPtr("x"), Type: typePtr(models.TemplateRent), Structure: []byte(`{"nodes": 5}`)})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("malformed structure should be rejected, got %v", err)
	}
}

func TestUpdateBumpsVersionOnBodyChange(t *testing.T) {
	s := NewService(testutil.NewDB(t), nil)
	ctx := context.Background()

	tmpl, err := s.Create(ctx, Request{Name: strPtr("Lease"), Type: typePtr(models.TemplateRent), Content: strPtr("<p>{{tenant_name}}</p>")})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Version != 1 || !tmpl.IsActive {
		t.Fatalf("unexpected new template %+v", tmpl)
	}

	tmpl, err = s.Update(ctx, tmpl.ID, Request{Description: strPtr("standard")})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Version != 1 {
		t.Fatalf("metadata change should keep version, got %d", tmpl.Version)
	}

	tmpl, err = s.Update(ctx, tmpl.ID, Request{Content: strPtr("<p>{{tenant_name}} and {{landlord_name}}</p>")})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Version != 2 {
		t.Fatalf("content change should bump version, got %d", tmpl.Version)
	}

	tmpl, err = s.Update(ctx, tmpl.ID, Request{Structure: []byte(`{"nodes":[{"type":"paragraph","text":"x"}]}`)})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Version != 3 {
		t.Fatalf("structure change should bump version, got %d", tmpl.Version)
	}

	if _, err := s.Update(ctx, 999, Request{}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDeactivatesReferencedTemplate(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()

	used, _ := s.Create(ctx, Request{Name: strPtr("Used"), Type: typePtr(models.TemplateSale), Content: strPtr("x")})
	unused, _ := s.Create(ctx, Request{Name: strPtr("Unused"), Type: typePtr(models.TemplateSale), Content: strPtr("y")})
	if err := db.Create(&models.Agreement{AgreementNumber: "AG-1", TemplateID: used.ID}).Error; err != nil {
		t.Fatal(err)
	}

	deactivated, err := s.Delete(ctx, used.ID)
	if err != nil || !deactivated {
		t.Fatalf("referenced template should be deactivated: %v", err)
	}
	got, err := s.Get(ctx, used.ID)
	if err != nil || got.IsActive {
		t.Errorf("template should still exist, inactive: %v", err)
	}

	deactivated, err = s.Delete(ctx, unused.ID)
	if err != nil || deactivated {
		t.Fatalf("unused template should be deleted: %v", err)
	}
	if _, err := s.Get(ctx, unused.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	active, _ := s.List(ctx, models.TemplateSale, true)
	if len(active) != 0 {
		t.Errorf("expected no active sale templates, got %d", len(active))
	}
}

func TestPreview(t *testing.T) {
	s := NewService(testutil.NewDB(t), nil)
	ctx := context.Background()

	tmpl, _ := s.Create(ctx, Request{
		Name:    strPtr("Lease"),
		Type:    typePtr(models.TemplateRent),
		Content: strPtr("<p>{{tenant_name}} pays {{rent_amount}}</p>"),
	})

	p, err := s.Preview(ctx, tmpl.ID, map[string]string{"tenant_name": "Ivan <Jr>"})
	if err != nil {
		t.Fatal(err)
	}
	if p.HTML != "<p>Ivan &lt;Jr&gt; pays {{rent_amount}}</p>" {
		t.Errorf("unexpected preview %q", p.HTML)
	}
	if len(p.Missing) != 1 || p.Missing[0] != "rent_amount" {
		t.Errorf("unexpected missing list %v", p.Missing)
	}
}
