package handlers

import (
	"net/http"

	"github.com/xelth-com/eckdocs/internal/middleware"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services/agreement"
)

// listAgreements supports ?status=, ?type=, ?search=, ?page=, ?limit=
func (r *Router) listAgreements(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	res, err := r.agreements.List(req.Context(), agreement.ListFilter{
		Status: models.AgreementStatus(q.Get("status")),
		Type:   models.TemplateType(q.Get("type")),
		Search: q.Get("search"),
		Page:   queryInt(req, "page"),
		Limit:  queryInt(req, "limit"),
	})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// getAgreement returns an agreement with parties, signatures and property
func (r *Router) getAgreement(w http.ResponseWriter, req *http.Request) {
	a, err := r.agreements.Get(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// createAgreement instantiates a template into a new agreement
func (r *Router) createAgreement(w http.ResponseWriter, req *http.Request) {
	var body agreement.CreateRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	a, err := r.agreements.Create(req.Context(), body, middleware.UserID(req.Context()))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// updateAgreement applies manual edits
func (r *Router) updateAgreement(w http.ResponseWriter, req *http.Request) {
	var body agreement.UpdateRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	a, err := r.agreements.Update(req.Context(), pathID(req, "id"), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// deleteAgreement soft-deletes an agreement
func (r *Router) deleteAgreement(w http.ResponseWriter, req *http.Request) {
	if err := r.agreements.Delete(req.Context(), pathID(req, "id")); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Agreement deleted"})
}

// agreementHTML renders the print document consumed by the PDF printer
func (r *Router) agreementHTML(w http.ResponseWriter, req *http.Request) {
	page, err := r.agreements.RenderHTML(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

// agreementPDF serves the stored PDF, generating it first when missing
func (r *Router) agreementPDF(w http.ResponseWriter, req *http.Request) {
	id := pathID(req, "id")
	a, err := r.agreements.Get(req.Context(), id)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	path := a.PDFPath
	if path != "" {
		if abs, err := r.store.Abs(path); err != nil || !fileExists(abs) {
			path = ""
		}
	}
	if path == "" {
		if path, err = r.agreements.GeneratePDF(req.Context(), id); err != nil {
			r.respondServiceError(w, req, err)
			return
		}
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+a.AgreementNumber+`.pdf"`)
	r.serveStored(w, req, path, "application/pdf")
}

// regenerateAgreementPDF rebuilds the PDF and reports the new path
func (r *Router) regenerateAgreementPDF(w http.ResponseWriter, req *http.Request) {
	path, err := r.agreements.GeneratePDF(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"pdfPath": path})
}

// regenerateQR rebuilds the verification QR code
func (r *Router) regenerateQR(w http.ResponseWriter, req *http.Request) {
	qr, err := r.agreements.RegenerateQR(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"qrCode": qr})
}

// stageEdit asks the AI editor for a proposal without touching the agreement
func (r *Router) stageEdit(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if !decodeJSON(w, req, &body) {
		return
	}
	edit, err := r.agreements.StageEdit(req.Context(), pathID(req, "id"), body.Prompt, middleware.UserID(req.Context()))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, edit)
}

// applyEdit commits a staged edit
func (r *Router) applyEdit(w http.ResponseWriter, req *http.Request) {
	var body struct {
		EditID uint `json:"editId"`
	}
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.EditID == 0 {
		respondError(w, http.StatusBadRequest, "editId is required")
		return
	}
	a, err := r.agreements.ApplyEdit(req.Context(), pathID(req, "id"), body.EditID, middleware.UserID(req.Context()))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// discardEdit drops a staged edit
func (r *Router) discardEdit(w http.ResponseWriter, req *http.Request) {
	if err := r.agreements.DiscardEdit(req.Context(), pathID(req, "id"), pathID(req, "editId")); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Edit discarded"})
}

// listEdits returns the AI edit history
func (r *Router) listEdits(w http.ResponseWriter, req *http.Request) {
	edits, err := r.agreements.ListEdits(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, edits)
}
