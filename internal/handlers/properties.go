package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/xelth-com/eckdocs/internal/models"
	"gorm.io/gorm"
)

// PropertyRequest creates or replaces a property
type PropertyRequest struct {
	Address         string  `json:"address"`
	City            string  `json:"city"`
	CadastralNumber string  `json:"cadastralNumber"`
	Area            float64 `json:"area"`
	Rooms           int     `json:"rooms"`
	Floor           int     `json:"floor"`
	Owner           string  `json:"owner"`
	Description     string  `json:"description"`
}

func (p PropertyRequest) apply(m *models.Property) {
	m.Address = strings.TrimSpace(p.Address)
	m.City = strings.TrimSpace(p.City)
	m.CadastralNumber = strings.TrimSpace(p.CadastralNumber)
	m.Area = p.Area
	m.Rooms = p.Rooms
	m.Floor = p.Floor
	m.Owner = p.Owner
	m.Description = p.Description
}

func (p PropertyRequest) valid() string {
	switch {
	case strings.TrimSpace(p.Address) == "":
		return "Address is required"
	case p.Area < 0 || p.Rooms < 0:
		return "Area and rooms must not be negative"
	}
	return ""
}

// listProperties lists properties, optionally filtered by city or search
func (r *Router) listProperties(w http.ResponseWriter, req *http.Request) {
	q := r.db.WithContext(req.Context()).Model(&models.Property{})
	if city := req.URL.Query().Get("city"); city != "" {
		q = q.Where("city = ?", city)
	}
	if search := strings.TrimSpace(req.URL.Query().Get("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(address) LIKE ? OR LOWER(cadastral_number) LIKE ?", like, like)
	}

	var props []models.Property
	if err := q.Order("id desc").Find(&props).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, props)
}

func (r *Router) findProperty(w http.ResponseWriter, req *http.Request) (*models.Property, bool) {
	var prop models.Property
	err := r.db.WithContext(req.Context()).First(&prop, pathID(req, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Property not found")
		return nil, false
	}
	if err != nil {
		r.respondServiceError(w, req, err)
		return nil, false
	}
	return &prop, true
}

// getProperty returns one property
func (r *Router) getProperty(w http.ResponseWriter, req *http.Request) {
	if prop, ok := r.findProperty(w, req); ok {
		respondJSON(w, http.StatusOK, prop)
	}
}

// createProperty stores a new property
func (r *Router) createProperty(w http.ResponseWriter, req *http.Request) {
	var body PropertyRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if msg := body.valid(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	var prop models.Property
	body.apply(&prop)
	if err := r.db.WithContext(req.Context()).Create(&prop).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, prop)
}

// updateProperty replaces a property's fields
func (r *Router) updateProperty(w http.ResponseWriter, req *http.Request) {
	prop, ok := r.findProperty(w, req)
	if !ok {
		return
	}
	var body PropertyRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if msg := body.valid(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	body.apply(prop)
	if err := r.db.WithContext(req.Context()).Save(prop).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, prop)
}

// deleteProperty soft-deletes a property not referenced by live agreements
func (r *Router) deleteProperty(w http.ResponseWriter, req *http.Request) {
	prop, ok := r.findProperty(w, req)
	if !ok {
		return
	}
	var refs int64
	if err := r.db.WithContext(req.Context()).Model(&models.Agreement{}).
		Where("property_id = ?", prop.ID).Count(&refs).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	if refs > 0 {
		respondError(w, http.StatusConflict, "Property is used by agreements")
		return
	}
	if err := r.db.WithContext(req.Context()).Delete(prop).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Property deleted"})
}
