package provenance

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

// Handler exposes the registry over HTTP.
type Handler struct {
	service  Service
	canister *Canister
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, canister: NewCanister(service)}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)              // GET    /api/products
		r.Post("/", h.createProduct)            // POST   /api/products
		r.Post("/simple", h.addProduct)         // POST   /api/products/simple
		r.Get("/mine", h.listMyProducts)        // GET    /api/products/mine
		r.Get("/{id}", h.getProduct)            // GET    /api/products/{id}
		r.Get("/{id}/history", h.getHistory)    // GET    /api/products/{id}/history
		r.Post("/{id}/stages", h.addStage)      // POST   /api/products/{id}/stages
		r.Post("/{id}/transfer", h.transfer)    // POST   /api/products/{id}/transfer
	})
	r.Post("/api/canister/{method}", h.call) // POST   /api/canister/{method}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, products)
}

func (h *Handler) listMyProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetProductsByOwner(r.Context(), identity.Caller(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if products == nil {
		products = []*Product{}
	}
	web.JSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req Product
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.service.AddProduct(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, p)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	stages, err := h.service.GetProductHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, stages)
}

func (h *Handler) addStage(w http.ResponseWriter, r *http.Request) {
	var req AddStageRequest
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ProductID = chi.URLParam(r, "id")
	stage, err := h.service.AddStage(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, stage)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ProductID = chi.URLParam(r, "id")
	id, err := h.service.TransferProduct(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) call(w http.ResponseWriter, r *http.Request) {
	var args []json.RawMessage
	if err := web.Decode(r, &args); err != nil && !errors.Is(err, io.EOF) {
		web.Fail(w, http.StatusBadRequest, "arguments must be a JSON array")
		return
	}
	out, err := h.canister.Call(r.Context(), chi.URLParam(r, "method"), args)
	switch {
	case errors.Is(err, errUnknownMethod):
		web.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errBadArgs):
		web.Fail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		web.ServerError(w, r, err)
	default:
		web.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		web.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound):
		web.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		web.Fail(w, http.StatusForbidden, err.Error())
	default:
		web.ServerError(w, r, err)
	}
}
