package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fkhayef/tripsettle/pkg/middleware"
	"github.com/fkhayef/tripsettle/pkg/response"
)

// Handler handles HTTP requests for member profiles
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new user handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

// Routes returns the router for user endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.GetMe)
	r.Put("/me/payment-handles", h.UpdatePaymentHandles)
	r.Get("/{id}", h.GetByID)

	return r
}

// GetMe handles GET /users/me
// @Summary      Get my profile
// @Description  Profile of the acting user including payment handles
// @Tags         users
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// GetByID handles GET /users/{id}
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// UpdatePaymentHandles handles PUT /users/me/payment-handles
// @Summary      Update my payment handles
// @Description  Set or clear the Venmo username and PayPal email used for settlement links
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        request body UpdatePaymentHandlesRequest true "Payment handles"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /users/me/payment-handles [put]
func (h *Handler) UpdatePaymentHandles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	var req UpdatePaymentHandlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdatePaymentHandles(r.Context(), userID, &req)
	if err != nil {
		response.FromError(w, r, err, "Failed to update payment handles")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}
