package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/xelth-com/eckdocs/internal/config"
	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/logger"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services/templates"
	"github.com/xelth-com/eckdocs/internal/utils"
)

// seedTemplate is one starter template
type seedTemplate struct {
	name string
	typ  models.TemplateType
	doc  document.Structure
}

func section(title string, children ...document.Node) document.Node {
	return document.Node{Type: document.NodeSection, Title: title, Children: children}
}

func para(text string) document.Node {
	return document.Node{Type: document.NodeParagraph, Text: text}
}

func bullets(items ...string) document.Node {
	return document.Node{Type: document.NodeBulletList, Items: items}
}

var starterTemplates = []seedTemplate{
	{
		name: "Residential lease",
		typ:  models.TemplateRent,
		doc: document.Structure{Title: "Lease agreement", Nodes: []document.Node{
			section("1. Parties",
				para("{{landlord_full_name}} (the Landlord) and {{tenant_full_name}} (the Tenant) conclude this agreement in {{city}} on {{agreement_date}}.")),
			section("2. Property",
				para("The Landlord lets the property at {{property_address}}, total area {{property_area}} m², {{property_rooms}} rooms.")),
			section("3. Term and rent",
				para("The lease runs from {{date_from}} to {{date_to}} ({{rental_months}} months)."),
				bullets(
					"Monthly rent: {{rent_amount}} {{currency}}",
					"Total rent for the term: {{rent_amount_total}} {{currency}}",
					"Security deposit: {{deposit_amount}} {{currency}}")),
			section("4. Signatures",
				para("The parties confirm the terms above by signing electronically.")),
		}},
	},
	{
		name: "Sale agreement",
		typ:  models.TemplateSale,
		doc: document.Structure{Title: "Sale agreement", Nodes: []document.Node{
			section("1. Parties",
				para("{{seller_full_name}} (the Seller) and {{buyer_full_name}} (the Buyer), {{city}}, {{agreement_date}}.")),
			section("2. Subject",
				para("The Seller transfers the property at {{property_address}}, cadastral number {{property_cadastral_number}}.")),
			section("3. Price",
				bullets(
					"Price: {{total_amount}} {{currency}}",
					"Paid on signing: {{payment_on_signing}} {{currency}} ({{payment_on_signing_percent}}%)",
					"Remaining: {{payment_remaining}} {{currency}}")),
		}},
	},
	{
		name: "Transfer act",
		typ:  models.TemplateTransferAct,
		doc: document.Structure{Title: "Transfer and acceptance act", Nodes: []document.Node{
			para("Under agreement {{agreement_number}} the property at {{property_address}} is handed over on {{agreement_date}}."),
			para("The receiving party has no claims regarding the condition of the property."),
		}},
	},
}

func main() {
	fmt.Println("eckdocs demo seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.NodeEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.Database, zl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := seedAdmin(db); err != nil {
		log.Fatalf("Admin seed failed: %v", err)
	}

	svc := templates.NewService(db, zl)
	ctx := context.Background()
	for _, st := range starterTemplates {
		var count int64
		db.Model(&models.Template{}).Where("name = ?", st.name).Count(&count)
		if count > 0 {
			fmt.Printf("  skip %q (exists)\n", st.name)
			continue
		}
		raw, err := json.Marshal(st.doc)
		if err != nil {
			log.Fatalf("Encode %q: %v", st.name, err)
		}
		name, typ := st.name, st.typ
		t, err := svc.Create(ctx, templates.Request{Name: &name, Type: &typ, Structure: raw})
		if err != nil {
			log.Fatalf("Create %q: %v", st.name, err)
		}
		fmt.Printf("  template #%d %q (%s)\n", t.ID, t.Name, t.Type)
	}

	fmt.Println("Done")
}

// seedAdmin creates the first admin from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD
func seedAdmin(db *database.DB) error {
	var users int64
	if err := db.Model(&models.UserAuth{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		fmt.Printf("  %d users exist, admin not seeded\n", users)
		return nil
	}

	email, password := os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("  SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD not set, admin not seeded")
		return nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.UserAuth{Username: "admin", Email: email, Password: hash, Role: models.RoleAdmin, IsActive: true}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	fmt.Printf("  admin %s created\n", email)
	return nil
}
