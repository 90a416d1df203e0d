package auth

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/traceability-backend/internal/modules/user"
	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)     // POST /api/auth/register
		r.Post("/login", h.login)           // POST /api/auth/login
		r.Post("/refresh-token", h.refresh) // POST /api/auth/refresh-token

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/logout", h.logout) // POST /api/auth/logout
			r.Get("/me", h.me)          // GET  /api/auth/me
		})
	})
}

type session struct {
	User *user.User `json:"user"`
	*Tokens
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req request
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, tokens, err := h.service.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		web.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		web.Fail(w, http.StatusConflict, "Email already registered")
	case err != nil:
		web.ServerError(w, r, err)
	default:
		web.Logger(r.Context()).WithField("user_id", u.ID).Info("user registered")
		web.JSON(w, http.StatusCreated, session{User: u, Tokens: tokens})
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		web.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		web.ServerError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, session{User: u, Tokens: tokens})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := web.Decode(r, &req); err != nil || req.RefreshToken == "" {
		web.Fail(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, ErrInvalidToken) {
		web.Fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err != nil {
		web.ServerError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, tokens)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := web.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		web.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	access, _ := bearerToken(r)
	err := h.service.Logout(r.Context(), access, req.RefreshToken)
	if errors.Is(err, ErrInvalidToken) {
		web.Fail(w, http.StatusUnauthorized, authFailed)
		return
	}
	if err != nil {
		web.ServerError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.CurrentUser(r.Context())
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, ErrInvalidToken) {
		web.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		web.ServerError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, u)
}
