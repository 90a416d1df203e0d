package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

// Handler exposes the identity echo endpoint.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/whoami", h.whoami) // GET /api/whoami
}

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	p := Whoami(r.Context())
	web.JSON(w, http.StatusOK, map[string]any{
		"principal": p,
		"anonymous": p.IsAnonymous(),
	})
}
