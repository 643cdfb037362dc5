package handlers

import (
	"net/http"

	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services/templates"
)

// listTemplates lists templates; ?type= filters, ?active=true hides inactive ones
func (r *Router) listTemplates(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	list, err := r.templates.List(req.Context(), models.TemplateType(q.Get("type")), q.Get("active") == "true")
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// getTemplate returns one template
func (r *Router) getTemplate(w http.ResponseWriter, req *http.Request) {
	t, err := r.templates.Get(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// createTemplate stores a new template at version 1
func (r *Router) createTemplate(w http.ResponseWriter, req *http.Request) {
	var body templates.Request
	if !decodeJSON(w, req, &body) {
		return
	}
	t, err := r.templates.Create(req.Context(), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// updateTemplate edits a template; body changes bump its version
func (r *Router) updateTemplate(w http.ResponseWriter, req *http.Request) {
	var body templates.Request
	if !decodeJSON(w, req, &body) {
		return
	}
	t, err := r.templates.Update(req.Context(), pathID(req, "id"), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// deleteTemplate removes a template, or deactivates it while agreements reference it
func (r *Router) deleteTemplate(w http.ResponseWriter, req *http.Request) {
	deactivated, err := r.templates.Delete(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	msg := "Template deleted"
	if deactivated {
		msg = "Template is referenced by agreements and was deactivated"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     msg,
		"deactivated": deactivated,
	})
}

// previewTemplate renders a template with sample values
func (r *Router) previewTemplate(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Values map[string]string `json:"values"`
	}
	if !decodeJSON(w, req, &body) {
		return
	}
	p, err := r.templates.Preview(req.Context(), pathID(req, "id"), body.Values)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
