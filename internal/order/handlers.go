package order

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hamropasal/backend-storefront/internal/common"
)

// Handler serves the order history endpoints.
type Handler struct {
	Store Store
}

// List returns the authenticated user's settled orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	uID, err := uuid.Parse(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	total, err := h.Store.CountByUser(r.Context(), uID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Store.ListByUser(r.Context(), uID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, map[string]any{
			"id":          ord.ID,
			"items":       ord.Items,
			"totalAmount": ord.TotalAmount,
			"provider":    ord.Provider,
			"paymentRef":  ord.PaymentRef,
			"createdAt":   ord.CreatedAt,
		})
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}
