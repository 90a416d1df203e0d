package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/traceability-backend/internal/modules/auth"
	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireAuth).Get("/api/dashboard", h.get) // GET /api/dashboard
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Get(r.Context())
	if err != nil {
		web.ServerError(w, r, err)
		return
	}
	web.Logger(r.Context()).Debug("dashboard data fetched")
	web.JSON(w, http.StatusOK, data)
}
