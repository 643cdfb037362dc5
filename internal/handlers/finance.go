package handlers

import (
	"net/http"

	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services/finance"
)

type page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

// listInvoices supports ?status=, ?agreementId=, ?page=, ?limit=
func (r *Router) listInvoices(w http.ResponseWriter, req *http.Request) {
	items, total, err := r.finance.ListInvoices(req.Context(), finance.InvoiceFilter{
		Status:      models.InvoiceStatus(req.URL.Query().Get("status")),
		AgreementID: queryID(req, "agreementId"),
		Page:        queryInt(req, "page"),
		Limit:       queryInt(req, "limit"),
	})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, page{Items: items, Total: total})
}

func (r *Router) getInvoice(w http.ResponseWriter, req *http.Request) {
	inv, err := r.finance.GetInvoice(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (r *Router) createInvoice(w http.ResponseWriter, req *http.Request) {
	var body finance.InvoiceRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	inv, err := r.finance.CreateInvoice(req.Context(), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

func (r *Router) updateInvoice(w http.ResponseWriter, req *http.Request) {
	var body finance.InvoiceRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	inv, err := r.finance.UpdateInvoice(req.Context(), pathID(req, "id"), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (r *Router) deleteInvoice(w http.ResponseWriter, req *http.Request) {
	if err := r.finance.DeleteInvoice(req.Context(), pathID(req, "id")); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Invoice deleted"})
}

// invoicePDF regenerates and streams the invoice PDF
func (r *Router) invoicePDF(w http.ResponseWriter, req *http.Request) {
	path, err := r.finance.InvoicePDF(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	r.serveStored(w, req, path, "application/pdf")
}

// listReceipts supports ?invoiceId=, ?agreementId=, ?page=, ?limit=
func (r *Router) listReceipts(w http.ResponseWriter, req *http.Request) {
	items, total, err := r.finance.ListReceipts(req.Context(), finance.ReceiptFilter{
		InvoiceID:   queryID(req, "invoiceId"),
		AgreementID: queryID(req, "agreementId"),
		Page:        queryInt(req, "page"),
		Limit:       queryInt(req, "limit"),
	})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, page{Items: items, Total: total})
}

func (r *Router) getReceipt(w http.ResponseWriter, req *http.Request) {
	rc, err := r.finance.GetReceipt(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (r *Router) createReceipt(w http.ResponseWriter, req *http.Request) {
	var body finance.ReceiptRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	rc, err := r.finance.CreateReceipt(req.Context(), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, rc)
}

func (r *Router) updateReceipt(w http.ResponseWriter, req *http.Request) {
	var body finance.ReceiptRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	rc, err := r.finance.UpdateReceipt(req.Context(), pathID(req, "id"), body)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}

func (r *Router) deleteReceipt(w http.ResponseWriter, req *http.Request) {
	if err := r.finance.DeleteReceipt(req.Context(), pathID(req, "id")); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Receipt deleted"})
}

// receiptPDF regenerates and streams the receipt PDF
func (r *Router) receiptPDF(w http.ResponseWriter, req *http.Request) {
	path, err := r.finance.ReceiptPDF(req.Context(), pathID(req, "id"))
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	r.serveStored(w, req, path, "application/pdf")
}
