package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rgi-trading/procure/internal/platform/httpx"
	"github.com/rgi-trading/procure/internal/shared"
)

// Handler exposes the registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.listClients)
		r.Post("/", h.createClient)
		r.Get("/{id}", h.showClient)
		r.Put("/{id}", h.updateClient)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{id}", h.showSupplier)
		r.Put("/{id}", h.updateSupplier)
	})
	r.Route("/goods", func(r chi.Router) {
		r.Get("/", h.listGoods)
		r.Post("/", h.createGood)
		r.Get("/{id}", h.showGood)
		r.Put("/{id}", h.updateGood)
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return 0, false
	}
	return id, true
}

func listFilter(r *http.Request) ListFilter {
	var f ListFilter
	f.Search = r.URL.Query().Get("search")
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Offset = n
		}
	}
	return f
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var req UpsertClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "create client", func() (any, error) {
		return h.service.CreateClient(r.Context(), req, actor)
	}, http.StatusCreated)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpsertClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "update client", func() (any, error) {
		return h.service.UpdateClient(r.Context(), id, req, actor)
	}, http.StatusOK)
}

func (h *Handler) showClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListClients(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var req UpsertSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "create supplier", func() (any, error) {
		return h.service.CreateSupplier(r.Context(), req, actor)
	}, http.StatusCreated)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpsertSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "update supplier", func() (any, error) {
		return h.service.UpdateSupplier(r.Context(), id, req, actor)
	}, http.StatusOK)
}

func (h *Handler) showSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListSuppliers(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createGood(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var req UpsertGoodRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "create good", func() (any, error) {
		return h.service.CreateGood(r.Context(), req, actor)
	}, http.StatusCreated)
}

func (h *Handler) updateGood(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpsertGoodRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondWrite(w, "update good", func() (any, error) {
		return h.service.UpdateGood(r.Context(), id, req, actor)
	}, http.StatusOK)
}

func (h *Handler) showGood(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetGood(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) listGoods(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListGoods(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list goods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) respondWrite(w http.ResponseWriter, op string, fn func() (any, error), status int) {
	record, err := fn()
	if err != nil {
		if !isClientError(err) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, record)
}

func isClientError(err error) bool {
	for _, sentinel := range []error{shared.ErrNotFound, shared.ErrValidation, shared.ErrPermissionDenied, shared.ErrAlreadyExists} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
