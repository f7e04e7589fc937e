package example

import (
	"encoding/json"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"mercator-hq/callaudit/pkg/server/handlers"
)

// Field limits of CreateRequest.
const (
	MinNameLength = 2
	MaxNameLength = 120
	MaxDNILength  = 20
)

// maxRequestBody bounds the create request body.
const maxRequestBody = 1 << 20

// Handler serves the example API.
type Handler struct {
	service *Service
}

// NewHandler creates an HTTP handler over service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the handler on r, normally under /api/v1/examples.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/dni/{dni}", h.FindByDNI)
}

// Create handles POST /.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		handlers.WriteError(w, r, handlers.NewBadRequestError("body", "malformed JSON: %v", err))
		return
	}

	if err := Validate(req); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, ToResponse(created))
}

// List handles GET /.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	examples, err := h.service.List(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, lo.Map(examples, func(e *Example, _ int) Response {
		return ToResponse(e)
	}))
}

// FindByDNI handles GET /dni/{dni}.
func (h *Handler) FindByDNI(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.FindByDNI(r.Context(), chi.URLParam(r, "dni"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, ToResponse(found))
}

// Validate checks a create request and returns a *handlers.ValidationError
// listing every invalid field.
func Validate(req CreateRequest) error {
	fields := map[string]string{}

	switch n := utf8.RuneCountInString(req.Name); {
	case n == 0:
		fields["name"] = "is required"
	case n < MinNameLength || n > MaxNameLength:
		fields["name"] = "must be between 2 and 120 characters"
	}

	switch {
	case req.DNI == "":
		fields["dni"] = "is required"
	case utf8.RuneCountInString(req.DNI) > MaxDNILength:
		fields["dni"] = "must be at most 20 characters"
	case !isAlphanumeric(req.DNI):
		fields["dni"] = "must be alphanumeric"
	}

	if len(fields) > 0 {
		return &handlers.ValidationError{Fields: fields}
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
