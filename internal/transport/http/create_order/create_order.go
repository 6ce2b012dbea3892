package createorder

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/tms/internal/transport/http/dto"
	"github.com/corray333/backend-labs/tms/internal/transport/http/response"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, cmd ordersvc.CreateCommand) (ordersvc.CreateResult, error)
}

type CreateOrderResponse struct {
	Order    order.Order      `json:"order"`
	Dispatch *dispatch.Result `json:"dispatch,omitempty"`
}

// CreateOrder handles POST /api/orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	var req dto.Order
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, errs.Validation("INVALID_REQUEST", "malformed request body"))
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := service.CreateOrder(r.Context(), ordersvc.CreateCommand{
		Order:   req.ToModel(),
		ActorID: req.ActorID,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, CreateOrderResponse{Order: res.Order, Dispatch: res.Dispatch})
}
