package settlement

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fkhayef/tripsettle/pkg/middleware"
	"github.com/fkhayef/tripsettle/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

// Routes returns the router for /settlements
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/pending", h.ListPending)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/options", h.Options)
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/decline", h.Decline)

	return r
}

// TripRoutes returns the router mounted at /trips/{tripId}/settlements
func (h *Handler) TripRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListByTrip)
	r.Post("/", h.Initiate)
	r.Get("/recommended", h.Recommended)

	return r
}

// Initiate handles POST /trips/{tripId}/settlements
// @Summary      Initiate a settlement
// @Description  Record that the acting user paid another member. Balances do not change until the payee confirms.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        tripId path int true "Trip ID"
// @Param        request body InitiateSettlementRequest true "Settlement"
// @Success      201 {object} response.APIResponse{data=SettlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{tripId}/settlements [post]
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	payerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	var req InitiateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	st, err := h.service.Initiate(r.Context(), tripID, payerID, &req)
	if err != nil {
		response.FromError(w, r, err, "Failed to initiate settlement")
		return
	}

	response.JSON(w, http.StatusCreated, st.ToResponse())
}

// ListByTrip handles GET /trips/{tripId}/settlements
// @Summary      List trip settlements
// @Description  Every settlement of a trip in any status, newest first
// @Tags         settlements
// @Produce      json
// @Param        tripId path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]SettlementResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{tripId}/settlements [get]
func (h *Handler) ListByTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	settlements, err := h.service.ListByTrip(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to list settlements")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(settlements))
}

// Recommended handles GET /trips/{tripId}/settlements/recommended
// @Summary      Recommended settlements
// @Description  The shortest set of transfers that settles the trip, with payment options for each payee
// @Tags         settlements
// @Produce      json
// @Param        tripId path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]Recommendation}
// @Failure      404 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /trips/{tripId}/settlements/recommended [get]
func (h *Handler) Recommended(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	recs, err := h.service.RecommendedSettlements(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to compute recommended settlements")
		return
	}

	response.JSON(w, http.StatusOK, recs)
}

// ListPending handles GET /settlements/pending
// @Summary      Pending settlements
// @Description  Initiated settlements waiting for the acting user to confirm or decline, newest first
// @Tags         settlements
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Success      200 {object} response.APIResponse{data=[]SettlementResponse}
// @Router       /settlements/pending [get]
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	settlements, err := h.service.ListPendingFor(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err, "Failed to list pending settlements")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(settlements))
}

// GetByID handles GET /settlements/{id}
// @Summary      Get settlement by ID
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := settlementID(w, r)
	if !ok {
		return
	}

	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err, "Failed to get settlement")
		return
	}

	response.JSON(w, http.StatusOK, st.ToResponse())
}

// Options handles GET /settlements/{id}/options
// @Summary      Payment options
// @Description  Venmo and PayPal deep links for the payee when available, plus cash
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=[]payment.SettlementOption}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id}/options [get]
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	id, ok := settlementID(w, r)
	if !ok {
		return
	}

	options, err := h.service.Options(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err, "Failed to resolve payment options")
		return
	}

	response.JSON(w, http.StatusOK, options)
}

// Confirm handles POST /settlements/{id}/confirm
// @Summary      Confirm a settlement
// @Description  Payee confirms the money arrived. Repeating the call is safe.
// @Tags         settlements
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/{id}/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ActionConfirm)
}

// Decline handles POST /settlements/{id}/decline
// @Summary      Decline a settlement
// @Description  Payee reports the money never arrived. Repeating the call is safe.
// @Tags         settlements
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/{id}/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ActionDecline)
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, action Action) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	id, ok := settlementID(w, r)
	if !ok {
		return
	}

	var (
		st  *Settlement
		err error
	)
	if action == ActionConfirm {
		st, err = h.service.Confirm(r.Context(), id, userID)
	} else {
		st, err = h.service.Decline(r.Context(), id, userID)
	}
	if err != nil {
		response.FromError(w, r, err, "Failed to "+string(action)+" settlement")
		return
	}

	response.JSON(w, http.StatusOK, st.ToResponse())
}

func settlementID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return uuid.Nil, false
	}
	return id, true
}
