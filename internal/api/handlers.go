// Package api is the thin request glue: it deserializes requests,
// calls the core services, and serializes their typed results. No
// business rules live here.
package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ms-storefront/internal/fault"
	"ms-storefront/internal/payment"
	"ms-storefront/internal/resource"
	"ms-storefront/internal/store"
)

const maxUploadBytes = 10 << 20

type Server struct {
	payments      *payment.Service
	slides        *resource.Manager
	files         store.FileStore
	log           *zap.Logger
	jwtSecret     string
	slideCategory string
	collections   []string
}

func NewServer(payments *payment.Service, slides *resource.Manager, files store.FileStore, log *zap.Logger, jwtSecret, slideCategory string, collections []string) *Server {
	return &Server{
		payments:      payments,
		slides:        slides,
		files:         files,
		log:           log,
		jwtSecret:     jwtSecret,
		slideCategory: slideCategory,
		collections:   collections,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/token", s.handleIssueToken)
		r.Post("/payments/checkout", s.handleCheckout)
		r.Get("/payments/transactions/{id}", s.handleCheckTransaction)
		r.Get("/slides", s.handleListSlides)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth(s.jwtSecret))
			r.Post("/slides", s.handleUploadSlide)
			r.Delete("/slides/{id}", s.handleDeleteSlide)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.payments.IssueToken(r.Context())
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type checkoutRequest struct {
	Amount       string            `json:"amount"`
	PaymentNonce string            `json:"payment_nonce"`
	Metadata     map[string]string `json:"metadata"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	if id := principal(r.Context()); id != "" {
		metadata["principal_id"] = id
	}

	summary, err := s.payments.ProcessSale(r.Context(), req.Amount, req.PaymentNonce, metadata)
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": summary,
	})
}

func (s *Server) handleCheckTransaction(w http.ResponseWriter, r *http.Request) {
	summary, err := s.payments.CheckTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUploadSlide(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFault(w, s.log, fault.Wrap(fault.KindMissingFile, "a file is required", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeFault(w, s.log, fault.Wrap(fault.KindMissingFile, "a file is required", err))
		return
	}
	defer file.Close()

	filename := uuid.NewString() + filepath.Ext(header.Filename)
	path := store.ContentPath(s.slideCategory, filename)
	if err := s.files.Write(path, file); err != nil {
		s.log.Error("upload write failed", zap.String("path", path), zap.Error(err))
		writeFault(w, s.log, fault.Wrap(fault.KindSaveFailed, "could not save the uploaded resource", err))
		return
	}

	created, err := s.slides.Upload(r.Context(), filename, map[string]any{
		"title":       r.FormValue("title"),
		"uploaded_by": principal(r.Context()),
	})
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	if err := s.slides.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListSlides(w http.ResponseWriter, r *http.Request) {
	records, err := s.slides.ListAll(r.Context())
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	type slide struct {
		ID        string         `json:"id"`
		Fields    map[string]any `json:"fields"`
		CreatedAt string         `json:"created_at"`
	}
	out := make([]slide, 0, len(records))
	for _, rec := range records {
		out = append(out, slide{
			ID:        rec.ID,
			Fields:    rec.Fields,
			CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.slides.AggregateCounts(r.Context(), s.collections...)
	if err != nil {
		writeFault(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
