package expense

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fkhayef/tripsettle/pkg/middleware"
	"github.com/fkhayef/tripsettle/pkg/response"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Get("/trip/{tripId}", h.ListByTrip)
	r.Post("/splits/{splitId}/pay", h.MarkSplitPaid)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create an expense paid by the acting user, split with EVEN, PERCENTAGE, or EXACT strategy
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.CreateExpense(r.Context(), payerID, &req)
	if err != nil {
		response.FromError(w, r, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, result.ToResponse())
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with all its splits
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	result, err := h.service.GetExpenseByID(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, result.ToResponse())
}

// ListByTrip handles GET /expenses/trip/{tripId}
// @Summary      List expenses by trip
// @Description  Get a paginated list of expenses for a trip
// @Tags         expenses
// @Produce      json
// @Param        tripId path int true "Trip ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses/trip/{tripId} [get]
func (h *Handler) ListByTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	expenses, err := h.service.ListByTrip(r.Context(), tripID)
	if err != nil {
		response.FromError(w, r, err, "Failed to list expenses")
		return
	}

	total := len(expenses)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	expenseResponses := make([]*ExpenseResponse, 0, end-start)
	for _, e := range expenses[start:end] {
		expenseResponses = append(expenseResponses, e.ToResponse())
	}

	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, meta)
}

// MarkSplitPaid handles POST /expenses/splits/{splitId}/pay
// @Summary      Mark split as paid
// @Description  The expense payer records that a participant paid their share
// @Tags         splits
// @Produce      json
// @Param        X-User-ID header int true "Acting user"
// @Param        splitId path int true "Split ID"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/splits/{splitId}/pay [post]
func (h *Handler) MarkSplitPaid(w http.ResponseWriter, r *http.Request) {
	splitID, err := strconv.ParseInt(chi.URLParam(r, "splitId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid split ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Acting user required")
		return
	}

	split, err := h.service.MarkSplitPaid(r.Context(), splitID, userID)
	if err != nil {
		response.FromError(w, r, err, "Failed to mark split as paid")
		return
	}

	response.JSON(w, http.StatusOK, split.ToResponse())
}
