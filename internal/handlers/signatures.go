package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckdocs/internal/middleware"
	"github.com/xelth-com/eckdocs/internal/services/agreement"
)

func clientInfo(req *http.Request) agreement.ClientInfo {
	return agreement.ClientInfo{
		UserAgent: req.UserAgent(),
		IP:        middleware.ClientIP(req),
	}
}

// getPublicAgreement shows an agreement through its public link
func (r *Router) getPublicAgreement(w http.ResponseWriter, req *http.Request) {
	a, err := r.agreements.GetByPublicLink(req.Context(), mux.Vars(req)["link"])
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// verifyAgreement backs the page the QR code points at
func (r *Router) verifyAgreement(w http.ResponseWriter, req *http.Request) {
	v, err := r.agreements.Verify(req.Context(), mux.Vars(req)["verifyLink"])
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// viewSignature opens a signer's link and records the visit
func (r *Router) viewSignature(w http.ResponseWriter, req *http.Request) {
	page, err := r.agreements.ViewSignature(req.Context(), mux.Vars(req)["link"], clientInfo(req))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// signAgreement stores a signer's signature
func (r *Router) signAgreement(w http.ResponseWriter, req *http.Request) {
	var body agreement.SignRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	res, err := r.agreements.Sign(req.Context(), mux.Vars(req)["link"], body, clientInfo(req))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// listSignatures lists an agreement's signers with their links
func (r *Router) listSignatures(w http.ResponseWriter, req *http.Request) {
	sigs, err := r.agreements.ListSignatures(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, sigs)
}

// addSignature adds a signer to an agreement
func (r *Router) addSignature(w http.ResponseWriter, req *http.Request) {
	var body agreement.AddSignatureRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	sig, err := r.agreements.AddSignature(req.Context(), pathID(req, "id"), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"signature": sig,
		"signUrl":   r.agreements.SignURL(sig),
	})
}

// deleteSignature removes a signer
func (r *Router) deleteSignature(w http.ResponseWriter, req *http.Request) {
	if err := r.agreements.DeleteSignature(req.Context(), pathID(req, "id"), pathID(req, "sigId")); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Signature deleted"})
}
