// Package rest serves the HTTP side of dapd: probes, metrics and binary
// attachment downloads. Everything else is exposed over gRPC.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/application/usecase"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/presentation/identity"
	"github.com/coopahorro/dap/pkg/auth"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires the HTTP router.
type RouterConfig struct {
	AttachmentContent *usecase.GetAttachmentContent
	JWT               *auth.JWTService
	Ready             Pinger
	Metrics           http.Handler
	AllowedOrigins    []string
	Logger            *slog.Logger
}

// NewRouter builds the chi router for the HTTP listener.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &attachmentHandler{content: cfg.AttachmentContent, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(cfg.Ready))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.HTTPMiddleware(cfg.JWT))
		r.Get("/deposits/{depositID}/attachments/{attachmentID}", h.download)
	})
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readyz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type attachmentHandler struct {
	content *usecase.GetAttachmentContent
	logger  *slog.Logger
}

// download handles GET /v1/deposits/{depositID}/attachments/{attachmentID}.
func (h *attachmentHandler) download(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHENTICATED", Message: "missing or invalid credentials"})
		return
	}

	depositID, err := uuid.Parse(chi.URLParam(r, "depositID"))
	if err != nil {
		writeError(w, r, h.logger, actor, apperror.ErrInvalidInput.With("invalid deposit id"))
		return
	}
	attachmentID, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		writeError(w, r, h.logger, actor, apperror.ErrInvalidInput.With("invalid attachment id"))
		return
	}

	result, err := h.content.Execute(r.Context(), dto.AttachmentRequest{
		Actor:        actor,
		DepositID:    depositID,
		AttachmentID: attachmentID,
	})
	if err != nil {
		writeError(w, r, h.logger, actor, err)
		return
	}

	w.Header().Set("Content-Type", result.Attachment.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Attachment.Filename))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Content)
}
