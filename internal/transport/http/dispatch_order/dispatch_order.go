package dispatchorder

import (
	"context"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
)

type service interface {
	Recommend(ctx context.Context, organizationID int64, code string) (dispatch.Result, error)
}

// DispatchOrder handles POST /api/organizations/{organizationId}/orders/{code}/dispatch.
// Dispatch problems come back as a 200 with a warning result; only unknown orders and bad input fail.
func DispatchOrder(w http.ResponseWriter, r *http.Request, service service) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "organizationId"), 10, 64)
	if err != nil || orgID <= 0 {
		response.Error(w, r, errs.ValidationFields("INVALID_REQUEST", map[string]string{"organizationId": "gt=0"}))
		return
	}

	res, err := service.Recommend(r.Context(), orgID, chi.URLParam(r, "code"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, res)
}
