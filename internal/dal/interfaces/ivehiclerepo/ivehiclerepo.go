package ivehiclerepo

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/models/vehicle"
)

// IVehicleRepository is an interface for the vehicle availability query.
type IVehicleRepository interface {
	FindCandidates(ctx context.Context, q vehicle.CandidateQuery) ([]vehicle.Candidate, error)
}
