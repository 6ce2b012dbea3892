package updateorder

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/tms/internal/transport/http/dto"
	"github.com/corray333/backend-labs/tms/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
)

type service interface {
	UpdateOrder(ctx context.Context, cmd ordersvc.UpdateCommand) (order.Order, error)
}

// Previous is the order state the client loaded before editing.
type Previous struct {
	CustomerID int64 `json:"customerId" validate:"gte=0"`
	RouteID    int64 `json:"routeId"    validate:"gte=0"`
	IsDraft    bool  `json:"isDraft"`
}

type UpdateOrderRequest struct {
	dto.Order
	Code     string   `json:"code"     validate:"required"`
	Previous Previous `json:"previous"`
}

// UpdateOrder handles PUT /api/orders/{id}.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, r, errs.ValidationFields("INVALID_REQUEST", map[string]string{"id": "gt=0"}))
		return
	}

	var req UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, errs.Validation("INVALID_REQUEST", "malformed request body"))
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.Error(w, r, err)
		return
	}

	o := req.ToModel()
	o.ID = id
	o.Code = req.Code

	updated, err := service.UpdateOrder(r.Context(), ordersvc.UpdateCommand{
		Order: o,
		Previous: ordersvc.Snapshot{
			CustomerID: req.Previous.CustomerID,
			RouteID:    req.Previous.RouteID,
			IsDraft:    req.Previous.IsDraft,
		},
		ActorID: req.ActorID,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}
