package trip

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tripsettle/pkg/response"
)

// Reader is the read side of the trip store
type Reader interface {
	GetByID(ctx context.Context, id int64) (*Trip, error)
	ListMembers(ctx context.Context, tripID int64) ([]*Member, error)
}

// Handler serves read-only trip views. Creating trips and managing
// membership happens in the service that owns them.
type Handler struct {
	trips Reader
}

// NewHandler creates a new trip handler
func NewHandler(trips Reader) *Handler {
	return &Handler{trips: trips}
}

// GetByID handles GET /trips/{tripId}
// @Summary      Get trip
// @Description  Get a trip with its roster and the members' payment handles
// @Tags         trips
// @Produce      json
// @Param        tripId path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=TripResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{tripId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	t, err := h.trips.GetByID(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to get trip")
		return
	}

	members, err := h.trips.ListMembers(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to get trip members")
		return
	}

	resp := t.ToResponse()
	resp.Members = members
	response.JSON(w, http.StatusOK, resp)
}
