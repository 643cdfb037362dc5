package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckdocs/internal/ai"
	"github.com/xelth-com/eckdocs/internal/buildinfo"
	"github.com/xelth-com/eckdocs/internal/config"
	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/middleware"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services"
	"github.com/xelth-com/eckdocs/internal/services/agreement"
	"github.com/xelth-com/eckdocs/internal/services/finance"
	"github.com/xelth-com/eckdocs/internal/services/templates"
	"github.com/xelth-com/eckdocs/internal/storage"
	"github.com/xelth-com/eckdocs/internal/websocket"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON payloads; party documents arrive as base64
const maxBodyBytes = 32 << 20

// Deps are the collaborators the router dispatches to
type Deps struct {
	DB         *database.DB
	Config     *config.Config
	Log        *zap.Logger
	Store      *storage.Local
	Agreements *agreement.Service
	Finance    *finance.Service
	Templates  *templates.Service
	Hub        *websocket.Hub
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	db         *database.DB
	cfg        *config.Config
	log        *zap.Logger
	store      *storage.Local
	agreements *agreement.Service
	finance    *finance.Service
	templates  *templates.Service
	hub        *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		Router:     mux.NewRouter(),
		db:         d.DB,
		cfg:        d.Config,
		log:        log,
		store:      d.Store,
		agreements: d.Agreements,
		finance:    d.Finance,
		templates:  d.Templates,
		hub:        d.Hub,
	}
	r.Use(middleware.Recoverer(log), middleware.RequestLogger(log))

	authn := middleware.Auth(r.cfg.JWTSecret)
	writers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRole(models.RoleAdmin)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")
	auth.Handle("/me", authn(http.HandlerFunc(r.me))).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Public agreement routes, authorized by the UUID in the path.
	// Registered before /{id} routes so the literals win.
	public := api.PathPrefix("/agreements").Subrouter()
	public.HandleFunc("/public/{link}", r.getPublicAgreement).Methods("GET")
	public.HandleFunc("/verify/{verifyLink}", r.verifyAgreement).Methods("GET")
	public.HandleFunc("/signatures/{link}", r.viewSignature).Methods("GET")
	public.HandleFunc("/signatures/sign/{link}", r.signAgreement).Methods("POST")

	// Print document for the headless browser or an admin
	api.Handle("/agreements/{id:[0-9]+}/html",
		middleware.InternalOrAuth(r.cfg.InternalAPIKey, r.cfg.JWTSecret)(http.HandlerFunc(r.agreementHTML))).Methods("GET")

	// Everything below requires a token
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authn)

	read := func(path string, h http.HandlerFunc) {
		protected.HandleFunc(path, h).Methods("GET")
	}
	write := func(method, path string, h http.HandlerFunc) {
		protected.Handle(path, writers(h)).Methods(method)
	}

	// Templates
	read("/templates", r.listTemplates)
	read("/templates/{id:[0-9]+}", r.getTemplate)
	write("POST", "/templates/{id:[0-9]+}/preview", r.previewTemplate)
	protected.Handle("/templates", admins(http.HandlerFunc(r.createTemplate))).Methods("POST")
	protected.Handle("/templates/{id:[0-9]+}", admins(http.HandlerFunc(r.updateTemplate))).Methods("PUT")
	protected.Handle("/templates/{id:[0-9]+}", admins(http.HandlerFunc(r.deleteTemplate))).Methods("DELETE")

	// Properties
	read("/properties", r.listProperties)
	read("/properties/{id:[0-9]+}", r.getProperty)
	write("POST", "/properties", r.createProperty)
	write("PUT", "/properties/{id:[0-9]+}", r.updateProperty)
	write("DELETE", "/properties/{id:[0-9]+}", r.deleteProperty)

	// Agreements
	read("/agreements", r.listAgreements)
	read("/agreements/{id:[0-9]+}", r.getAgreement)
	write("POST", "/agreements", r.createAgreement)
	write("PUT", "/agreements/{id:[0-9]+}", r.updateAgreement)
	write("DELETE", "/agreements/{id:[0-9]+}", r.deleteAgreement)
	read("/agreements/{id:[0-9]+}/pdf", r.agreementPDF)
	write("POST", "/agreements/{id:[0-9]+}/pdf", r.regenerateAgreementPDF)
	write("POST", "/agreements/{id:[0-9]+}/qr", r.regenerateQR)
	read("/agreements/{id:[0-9]+}/signatures", r.listSignatures)
	write("POST", "/agreements/{id:[0-9]+}/signatures", r.addSignature)
	protected.Handle("/agreements/{id:[0-9]+}/signatures/{sigId:[0-9]+}", admins(http.HandlerFunc(r.deleteSignature))).Methods("DELETE")
	write("POST", "/agreements/{id:[0-9]+}/ai-edit", r.stageEdit)
	write("POST", "/agreements/{id:[0-9]+}/ai-edit/apply", r.applyEdit)
	write("DELETE", "/agreements/{id:[0-9]+}/ai-edits/{editId:[0-9]+}", r.discardEdit)
	read("/agreements/{id:[0-9]+}/ai-edits", r.listEdits)

	// Financial documents
	fin := "/financial-documents"
	read(fin+"/invoices", r.listInvoices)
	read(fin+"/invoices/{id:[0-9]+}", r.getInvoice)
	write("POST", fin+"/invoices", r.createInvoice)
	write("PUT", fin+"/invoices/{id:[0-9]+}", r.updateInvoice)
	write("DELETE", fin+"/invoices/{id:[0-9]+}", r.deleteInvoice)
	read(fin+"/invoices/{id:[0-9]+}/pdf", r.invoicePDF)
	read(fin+"/receipts", r.listReceipts)
	read(fin+"/receipts/{id:[0-9]+}", r.getReceipt)
	write("POST", fin+"/receipts", r.createReceipt)
	write("PUT", fin+"/receipts/{id:[0-9]+}", r.updateReceipt)
	write("DELETE", fin+"/receipts/{id:[0-9]+}", r.deleteReceipt)
	read(fin+"/receipts/{id:[0-9]+}/pdf", r.receiptPDF)

	// Admin event stream
	if r.hub != nil {
		r.Handle("/ws", websocket.Handler(r.hub, r.cfg.JWTSecret))
	}

	// Uploaded files require a token; signed documents may contain ID scans
	if r.store != nil {
		uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(r.store.Root())))
		r.PathPrefix("/uploads/").Handler(authn(uploads))
	}

	// Admin UI bundle
	if r.cfg.FrontendDir != "" {
		if _, err := os.Stat(r.cfg.FrontendDir); err == nil {
			r.PathPrefix("/").Handler(http.FileServer(http.Dir(r.cfg.FrontendDir)))
		}
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := r.db.DB.DB(); err != nil || sqlDB.PingContext(req.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	resp := map[string]interface{}{
		"status":     status,
		"startTime":  buildinfo.StartTime,
		"buildTime":  buildinfo.BuildTime,
		"commitHash": buildinfo.CommitHash,
		"commitTime": buildinfo.CommitTime,
	}
	if r.hub != nil {
		resp["wsClients"] = r.hub.Count()
	}
	respondJSON(w, code, resp)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps service errors onto HTTP statuses
func (r *Router) respondServiceError(w http.ResponseWriter, req *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  err.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrAlreadySigned),
		errors.Is(err, services.ErrRoleInUse),
		errors.Is(err, services.ErrEditNotStaged),
		errors.Is(err, ai.ErrEmptyInstruction):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, agreement.ErrEditorUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		r.log.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID parses a numeric route variable
func pathID(req *http.Request, name string) uint {
	id, _ := strconv.ParseUint(mux.Vars(req)[name], 10, 64)
	return uint(id)
}

// queryInt returns a positive integer query parameter or zero
func queryInt(req *http.Request, name string) int {
	n, err := strconv.Atoi(req.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryID returns an optional numeric filter
func queryID(req *http.Request, name string) *uint {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

// serveStored streams a file kept under the uploads root
func (r *Router) serveStored(w http.ResponseWriter, req *http.Request, rel, contentType string) {
	abs, err := r.store.Abs(rel)
	if err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	if _, err := os.Stat(abs); err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, req, abs)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
