package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tripsettle/pkg/response"
)

// Handler serves trip balances
type Handler struct {
	service *Service
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router mounted at /trips/{tripId}/balances
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetBalances)

	return r
}

// GetBalances handles GET /trips/{tripId}/balances
// @Summary      Trip balances
// @Description  Net balance of every member. Positive means the member is owed money. Only confirmed settlements are counted.
// @Tags         balances
// @Produce      json
// @Param        tripId path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]UserBalance}
// @Failure      404 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /trips/{tripId}/balances [get]
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	balances, err := h.service.ComputeBalances(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to compute balances")
		return
	}

	response.JSON(w, http.StatusOK, balances)
}
