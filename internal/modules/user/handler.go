package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/api/users/{id}", h.getUser) // GET /api/users/{id}
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.GetUser(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		web.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		web.ServerError(w, r, err)
		return
	}

	web.JSON(w, http.StatusOK, user)
}
